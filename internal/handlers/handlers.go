package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"bankcards/internal/middleware"
	"bankcards/internal/money"
	"bankcards/internal/models"
	"bankcards/internal/services"

	"go.uber.org/zap"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps a *services.Error to its status. Anything else is
// logged and reported as a generic 500.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var serviceErr *services.Error
	if errors.As(err, &serviceErr) {
		respondError(w, statusForKind(serviceErr.Kind), serviceErr.Message)
		return
	}
	h.logger.Error(fallback,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	respondError(w, http.StatusInternalServerError, fallback)
}

func statusForKind(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func callerFromRequest(r *http.Request) (services.Caller, bool) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || principal.UserID == "" {
		return services.Caller{}, false
	}
	return services.Caller{
		UserID:   principal.UserID,
		Username: principal.Username,
		Role:     principal.Role,
	}, true
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func pageFromRequest(r *http.Request) services.PageRequest {
	query := r.URL.Query()
	return services.NewPageRequest(
		parseInt(query.Get("page"), 1),
		parseInt(query.Get("size"), services.DefaultPageSize),
	)
}

type transactionView struct {
	ID          string  `json:"id"`
	FromCardID  *string `json:"from_card_id"`
	ToCardID    *string `json:"to_card_id"`
	Amount      string  `json:"amount"`
	Description *string `json:"description,omitempty"`
	Timestamp   string  `json:"timestamp"`
}

func toTransactionView(tx models.CardTransaction) transactionView {
	return transactionView{
		ID:          tx.ID,
		FromCardID:  tx.FromCardID,
		ToCardID:    tx.ToCardID,
		Amount:      money.Format(tx.Amount),
		Description: tx.Description,
		Timestamp:   tx.Timestamp.UTC().Format(timestampLayout),
	}
}

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"
