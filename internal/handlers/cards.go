package handlers

import (
	"net/http"
	"strings"

	"bankcards/internal/models"
	"bankcards/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type transferRequest struct {
	FromCardID  string      `json:"from_card_id"`
	ToCardID    string      `json:"to_card_id"`
	Amount      amountField `json:"amount"`
	Description string      `json:"description"`
}

type createCardRequest struct {
	Owner   string             `json:"owner"`
	Status  *models.CardStatus `json:"status"`
	Balance amountField        `json:"balance"`
}

// cardAction is the shape shared by the single-card endpoints that return the
// updated card view.
type cardAction func(r *http.Request, caller services.Caller, cardID string) (services.CardView, error)

func (h *Handler) serveCardAction(w http.ResponseWriter, r *http.Request, action cardAction, fallback string) {
	caller, ok := callerFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	view, err := action(r, caller, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err, fallback)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *Handler) ListMyCards(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	page, err := h.cards.ListMyCards(r.Context(), caller, search, pageFromRequest(r))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to load cards")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *Handler) ListAllCards(w http.ResponseWriter, r *http.Request) {
	page, err := h.cards.ListAllCards(r.Context(), pageFromRequest(r))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to load cards")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	h.serveCardAction(w, r, func(r *http.Request, caller services.Caller, cardID string) (services.CardView, error) {
		return h.cards.GetCard(r.Context(), caller, cardID)
	}, "unable to load card")
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	balance, err := h.cards.GetBalance(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err, "unable to load balance")
		return
	}
	respondJSON(w, http.StatusOK, balance)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.FromCardID) == "" || strings.TrimSpace(req.ToCardID) == "" {
		respondError(w, http.StatusBadRequest, "from_card_id and to_card_id are required")
		return
	}
	amount, err := req.Amount.positive()
	if err != nil {
		respondError(w, http.StatusBadRequest, services.ErrInvalidAmount.Message)
		return
	}
	record, err := h.cards.Transfer(r.Context(), caller, services.TransferRequest{
		FromCardID:  strings.TrimSpace(req.FromCardID),
		ToCardID:    strings.TrimSpace(req.ToCardID),
		Amount:      amount,
		Description: req.Description,
	})
	if err != nil {
		h.respondServiceError(w, r, err, "transfer failed")
		return
	}
	respondJSON(w, http.StatusCreated, toTransactionView(record))
}

func (h *Handler) RequestBlock(w http.ResponseWriter, r *http.Request) {
	h.serveCardAction(w, r, func(r *http.Request, caller services.Caller, cardID string) (services.CardView, error) {
		return h.cards.RequestBlock(r.Context(), caller, cardID)
	}, "unable to request block")
}

func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createCardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var balance *decimal.Decimal
	if req.Balance.present {
		value, err := req.Balance.value()
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid balance")
			return
		}
		balance = &value
	}
	view, err := h.cards.CreateCard(r.Context(), caller, services.CreateCardRequest{
		Owner:   req.Owner,
		Status:  req.Status,
		Balance: balance,
	})
	if err != nil {
		h.respondServiceError(w, r, err, "unable to create card")
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

func (h *Handler) BlockCard(w http.ResponseWriter, r *http.Request) {
	h.serveCardAction(w, r, func(r *http.Request, caller services.Caller, cardID string) (services.CardView, error) {
		return h.cards.BlockCard(r.Context(), caller, cardID)
	}, "unable to block card")
}

func (h *Handler) ActivateCard(w http.ResponseWriter, r *http.Request) {
	h.serveCardAction(w, r, func(r *http.Request, caller services.Caller, cardID string) (services.CardView, error) {
		return h.cards.ActivateCard(r.Context(), caller, cardID)
	}, "unable to activate card")
}

func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.cards.DeleteCard(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, r, err, "unable to delete card")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
