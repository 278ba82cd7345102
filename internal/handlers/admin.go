package handlers

import (
	"net/http"

	"bankcards/internal/auth"
	"bankcards/internal/middleware"
	"bankcards/internal/models"
	"bankcards/internal/services"
	"bankcards/internal/websocket"
)

func (h *Handler) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	page := pageFromRequest(r)
	rows, total, err := h.transactions.ListAll(r.Context(), page.Size, page.Offset())
	if err != nil {
		h.respondServiceError(w, r, err, "unable to load transactions")
		return
	}
	views := make([]transactionView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toTransactionView(row))
	}
	respondJSON(w, http.StatusOK, services.Page[transactionView]{
		Content: views,
		Page:    page.Page,
		Size:    page.Size,
		Total:   total,
	})
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	page := pageFromRequest(r)
	rows, total, err := h.audit.List(r.Context(), page.Size, page.Offset())
	if err != nil {
		h.respondServiceError(w, r, err, "unable to load audit logs")
		return
	}
	if rows == nil {
		rows = []models.AuditLog{}
	}
	respondJSON(w, http.StatusOK, services.Page[models.AuditLog]{
		Content: rows,
		Page:    page.Page,
		Size:    page.Size,
		Total:   total,
	})
}

// WSBalances takes the access token from ?token= or, failing that, a Bearer
// header.
func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = middleware.BearerToken(r)
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, h.upgrader, claims.UserID)
}
