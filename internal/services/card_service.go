package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bankcards/internal/cardnumber"
	"bankcards/internal/db"
	"bankcards/internal/models"
	"bankcards/internal/money"
	"bankcards/internal/store"
	"bankcards/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const cardValidity = 2 // years

type CardStore interface {
	Create(ctx context.Context, tx store.Execer, card models.Card) error
	GetByID(ctx context.Context, cardID string) (models.Card, error)
	GetByIDAndOwner(ctx context.Context, cardID, ownerID string) (models.Card, error)
	GetForUpdate(ctx context.Context, tx store.Getter, cardID string) (models.Card, error)
	ListByOwner(ctx context.Context, ownerID, search string, limit, offset int) ([]models.Card, int, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Card, int, error)
	UpdateBalance(ctx context.Context, tx store.Execer, cardID string, balance decimal.Decimal) error
	SetStatus(ctx context.Context, tx store.Execer, cardID string, status models.CardStatus) error
	SetBlockRequested(ctx context.Context, tx store.Execer, cardID string, requested bool) error
	Delete(ctx context.Context, tx store.Execer, cardID string) (int64, error)
}

type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (models.User, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input models.CardTransaction) error
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

type CardService struct {
	txRunner     db.TxRunner
	cards        CardStore
	users        UserLookup
	transactions TransactionStore
	audit        AuditStore
	codec        cardnumber.Codec
	hub          BalanceHub
	logger       *zap.Logger

	now      func() time.Time
	generate func() (string, error)
}

func NewCardService(txRunner db.TxRunner, cards CardStore, users UserLookup, transactions TransactionStore, audit AuditStore, codec cardnumber.Codec, hub BalanceHub, logger *zap.Logger) *CardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CardService{
		txRunner:     txRunner,
		cards:        cards,
		users:        users,
		transactions: transactions,
		audit:        audit,
		codec:        codec,
		hub:          hub,
		logger:       logger,
		now:          time.Now,
		generate:     cardnumber.Generate,
	}
}

// CardView is the only card representation that leaves the service. The raw
// number is never part of it.
type CardView struct {
	ID             string            `json:"id"`
	MaskedNumber   string            `json:"masked_number"`
	Owner          string            `json:"owner"`
	ExpiryDate     string            `json:"expiry_date"`
	Status         models.CardStatus `json:"status"`
	Balance        string            `json:"balance"`
	BlockRequested bool              `json:"block_requested"`
	CreatedAt      time.Time         `json:"created_at"`
}

type BalanceView struct {
	CardID  string `json:"card_id"`
	Balance string `json:"balance"`
}

func (s *CardService) view(card models.Card) (CardView, error) {
	masked, err := cardnumber.Mask(s.codec, card.EncryptedNumber)
	if err != nil {
		return CardView{}, fmt.Errorf("mask card %s: %w", card.ID, err)
	}
	return CardView{
		ID:             card.ID,
		MaskedNumber:   masked,
		Owner:          card.OwnerUsername,
		ExpiryDate:     card.ExpiryDate.Format(time.DateOnly),
		Status:         card.Status,
		Balance:        money.Format(card.Balance),
		BlockRequested: card.BlockRequested,
		CreatedAt:      card.CreatedAt,
	}, nil
}

func (s *CardService) views(cards []models.Card) ([]CardView, error) {
	out := make([]CardView, 0, len(cards))
	for _, card := range cards {
		v, err := s.view(card)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

type CreateCardRequest struct {
	Owner   string
	Status  *models.CardStatus
	Balance *decimal.Decimal
}

func (s *CardService) CreateCard(ctx context.Context, actor Caller, req CreateCardRequest) (CardView, error) {
	owner := strings.TrimSpace(req.Owner)
	if owner == "" {
		return CardView{}, ErrInvalidOwnerUsername
	}
	status := models.CardStatusActive
	if req.Status != nil {
		if !req.Status.Valid() {
			return CardView{}, ErrInvalidCardStatus
		}
		status = *req.Status
	}
	balance := decimal.Zero
	if req.Balance != nil {
		if req.Balance.IsNegative() {
			return CardView{}, ErrNegativeBalance
		}
		if !money.HasScale(*req.Balance) || !money.InRange(*req.Balance) {
			return CardView{}, ErrInvalidBalance
		}
		balance = req.Balance.Round(money.Scale)
	}
	user, err := s.users.GetByUsername(ctx, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return CardView{}, ErrUserNotFound
	}
	if err != nil {
		return CardView{}, err
	}
	raw, err := s.generate()
	if err != nil {
		return CardView{}, fmt.Errorf("generate card number: %w", err)
	}
	token, err := s.codec.Encode(raw)
	if err != nil {
		return CardView{}, fmt.Errorf("encode card number: %w", err)
	}
	now := s.now().UTC()
	card := models.Card{
		ID:              uuid.NewString(),
		EncryptedNumber: token,
		NumberLast4:     cardnumber.Last4(raw),
		OwnerID:         user.ID,
		OwnerUsername:   user.Username,
		ExpiryDate:      now.AddDate(cardValidity, 0, 0).Truncate(24 * time.Hour),
		Status:          status,
		Balance:         balance,
		CreatedAt:       now,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.cards.Create(ctx, tx, card); err != nil {
			return err
		}
		return s.logAudit(ctx, tx, actor, "card.create", card.ID, map[string]string{
			"owner_id": user.ID,
			"status":   string(status),
			"balance":  money.Format(balance),
		})
	})
	if err != nil {
		return CardView{}, err
	}
	s.logger.Info("card created", zap.String("card_id", card.ID), zap.String("owner_id", user.ID), zap.String("actor_id", actor.UserID))
	return s.view(card)
}

func (s *CardService) RequestBlock(ctx context.Context, caller Caller, cardID string) (CardView, error) {
	return s.mutate(ctx, caller, cardID, "card.block_request", func(ctx context.Context, tx *sqlx.Tx, card *models.Card) error {
		if card.OwnerID != caller.UserID {
			return ErrCardNotFound
		}
		if card.Status == models.CardStatusBlocked {
			return ErrCardAlreadyBlocked
		}
		card.BlockRequested = true
		return s.cards.SetBlockRequested(ctx, tx, card.ID, true)
	})
}

func (s *CardService) BlockCard(ctx context.Context, actor Caller, cardID string) (CardView, error) {
	return s.mutate(ctx, actor, cardID, "card.block", func(ctx context.Context, tx *sqlx.Tx, card *models.Card) error {
		if !card.BlockRequested {
			return ErrNoPendingBlock
		}
		card.Status = models.CardStatusBlocked
		return s.cards.SetStatus(ctx, tx, card.ID, models.CardStatusBlocked)
	})
}

// ActivateCard returns a blocked card to ACTIVE. The block request flag is
// left as it was.
func (s *CardService) ActivateCard(ctx context.Context, actor Caller, cardID string) (CardView, error) {
	return s.mutate(ctx, actor, cardID, "card.activate", func(ctx context.Context, tx *sqlx.Tx, card *models.Card) error {
		if card.Status != models.CardStatusBlocked {
			return ErrCardNotActivatable
		}
		card.Status = models.CardStatusActive
		return s.cards.SetStatus(ctx, tx, card.ID, models.CardStatusActive)
	})
}

func (s *CardService) DeleteCard(ctx context.Context, actor Caller, cardID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		card, err := s.lockCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if _, err := s.cards.Delete(ctx, tx, card.ID); err != nil {
			return err
		}
		return s.logAudit(ctx, tx, actor, "card.delete", card.ID, map[string]string{
			"owner_id": card.OwnerID,
			"balance":  money.Format(card.Balance),
		})
	})
	if err != nil {
		return err
	}
	s.logger.Info("card deleted", zap.String("card_id", cardID), zap.String("actor_id", actor.UserID))
	return nil
}

// mutate locks the card, applies change and records an audit entry in one
// transaction, then returns the updated view.
func (s *CardService) mutate(ctx context.Context, actor Caller, cardID, action string, change func(context.Context, *sqlx.Tx, *models.Card) error) (CardView, error) {
	var updated models.Card
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		card, err := s.lockCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if err := change(ctx, tx, &card); err != nil {
			return err
		}
		updated = card
		return s.logAudit(ctx, tx, actor, action, card.ID, map[string]string{
			"status":          string(card.Status),
			"block_requested": fmt.Sprint(card.BlockRequested),
		})
	})
	if err != nil {
		return CardView{}, err
	}
	s.logger.Info("card updated", zap.String("action", action), zap.String("card_id", cardID), zap.String("actor_id", actor.UserID))
	return s.view(updated)
}

func (s *CardService) lockCard(ctx context.Context, tx store.Getter, cardID string) (models.Card, error) {
	card, err := s.cards.GetForUpdate(ctx, tx, cardID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Card{}, ErrCardNotFound
	}
	return card, err
}

func (s *CardService) logAudit(ctx context.Context, tx store.Execer, actor Caller, action, cardID string, data map[string]string) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.audit.Log(ctx, tx, actor.UserID, action, "card", cardID, string(payload))
}

// GetCard returns the card if the caller owns it. Administrators can read any card.
func (s *CardService) GetCard(ctx context.Context, caller Caller, cardID string) (CardView, error) {
	card, err := s.readCard(ctx, caller, cardID)
	if err != nil {
		return CardView{}, err
	}
	return s.view(card)
}

func (s *CardService) GetBalance(ctx context.Context, caller Caller, cardID string) (BalanceView, error) {
	card, err := s.readCard(ctx, caller, cardID)
	if err != nil {
		return BalanceView{}, err
	}
	return BalanceView{CardID: card.ID, Balance: money.Format(card.Balance)}, nil
}

func (s *CardService) readCard(ctx context.Context, caller Caller, cardID string) (models.Card, error) {
	var (
		card models.Card
		err  error
	)
	if caller.IsAdmin() {
		card, err = s.cards.GetByID(ctx, cardID)
	} else {
		card, err = s.cards.GetByIDAndOwner(ctx, cardID, caller.UserID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.Card{}, ErrCardNotFound
	}
	return card, err
}

// ListMyCards pages through the caller's own cards.
func (s *CardService) ListMyCards(ctx context.Context, caller Caller, search string, page PageRequest) (Page[CardView], error) {
	cards, total, err := s.cards.ListByOwner(ctx, caller.UserID, strings.TrimSpace(search), page.Size, page.Offset())
	if err != nil {
		return Page[CardView]{}, err
	}
	content, err := s.views(cards)
	if err != nil {
		return Page[CardView]{}, err
	}
	return newPage(content, page, total), nil
}

func (s *CardService) ListAllCards(ctx context.Context, page PageRequest) (Page[CardView], error) {
	cards, total, err := s.cards.ListAll(ctx, page.Size, page.Offset())
	if err != nil {
		return Page[CardView]{}, err
	}
	content, err := s.views(cards)
	if err != nil {
		return Page[CardView]{}, err
	}
	return newPage(content, page, total), nil
}
