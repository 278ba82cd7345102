package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"bankcards/internal/models"
	"bankcards/internal/money"
	"bankcards/internal/store"
	"bankcards/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxDescriptionLength = 50

type TransferRequest struct {
	FromCardID  string
	ToCardID    string
	Amount      decimal.Decimal
	Description string
}

// Transfer moves funds between two cards owned by the caller. Both rows are
// locked in id order and every check runs against the locked rows, so a
// rejected transfer changes nothing. A card may be both source and
// destination; its balance is then unchanged.
func (s *CardService) Transfer(ctx context.Context, caller Caller, req TransferRequest) (models.CardTransaction, error) {
	if !req.Amount.IsPositive() || !money.HasScale(req.Amount) || !money.InRange(req.Amount) {
		return models.CardTransaction{}, ErrInvalidAmount
	}
	if !utf8.ValidString(req.Description) || strings.ContainsRune(req.Description, 0) {
		return models.CardTransaction{}, ErrInvalidDescription
	}
	if utf8.RuneCountInString(req.Description) > maxDescriptionLength {
		return models.CardTransaction{}, ErrDescriptionTooLong
	}
	amount := req.Amount.Round(money.Scale)

	var (
		record           models.CardTransaction
		fromBalanceAfter decimal.Decimal
		toBalanceAfter   decimal.Decimal
	)
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		from, to, err := lockTwoCards(ctx, tx, s.cards, req.FromCardID, req.ToCardID)
		if err != nil {
			return err
		}
		if from == nil || from.OwnerID != caller.UserID {
			return ErrSourceCardNotFound
		}
		if from.Status != models.CardStatusActive {
			return ErrSourceCardUnavailable
		}
		if to == nil || to.OwnerID != caller.UserID {
			return ErrDestinationCardNotFound
		}
		if to.Status != models.CardStatusActive {
			return ErrDestinationCardUnavailable
		}
		if amount.GreaterThan(from.Balance) {
			return ErrInsufficientFunds
		}
		if from.ID != to.ID && !money.InRange(to.Balance.Add(amount)) {
			return ErrBalanceLimitExceeded
		}

		fromBalanceAfter = from.Balance.Sub(amount)
		toBalanceAfter = to.Balance.Add(amount)
		if from.ID == to.ID {
			fromBalanceAfter = from.Balance
			toBalanceAfter = from.Balance
		} else {
			if err := s.cards.UpdateBalance(ctx, tx, from.ID, fromBalanceAfter); err != nil {
				return err
			}
			if err := s.cards.UpdateBalance(ctx, tx, to.ID, toBalanceAfter); err != nil {
				return err
			}
		}

		record = models.CardTransaction{
			ID:         uuid.NewString(),
			FromCardID: &from.ID,
			ToCardID:   &to.ID,
			Amount:     amount,
			Timestamp:  s.now().UTC(),
		}
		if req.Description != "" {
			description := req.Description
			record.Description = &description
		}
		if err := s.transactions.Create(ctx, tx, record); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"from_card_id": from.ID,
			"to_card_id":   to.ID,
			"amount":       money.Format(amount),
		})
		return s.audit.Log(ctx, tx, caller.UserID, "card.transfer", "card_transaction", record.ID, string(data))
	})
	if err != nil {
		return models.CardTransaction{}, err
	}
	s.logger.Info("transfer completed",
		zap.String("transaction_id", record.ID),
		zap.String("from_card_id", req.FromCardID),
		zap.String("to_card_id", req.ToCardID),
		zap.String("amount", money.Format(amount)),
	)
	s.hub.BroadcastBalance(caller.UserID, websocket.BalanceUpdate{
		CardID:  req.FromCardID,
		Balance: money.Format(fromBalanceAfter),
	})
	if req.ToCardID != req.FromCardID {
		s.hub.BroadcastBalance(caller.UserID, websocket.BalanceUpdate{
			CardID:  req.ToCardID,
			Balance: money.Format(toBalanceAfter),
		})
	}
	return record, nil
}

// lockTwoCards locks both rows in id order. A missing card comes back nil.
// When both ids are equal the row is locked once and returned twice.
func lockTwoCards(ctx context.Context, tx store.Getter, cards CardStore, fromID, toID string) (*models.Card, *models.Card, error) {
	if fromID == toID {
		card, err := lockOptional(ctx, tx, cards, fromID)
		return card, card, err
	}
	leftID, rightID := orderedIDs(fromID, toID)
	left, err := lockOptional(ctx, tx, cards, leftID)
	if err != nil {
		return nil, nil, err
	}
	right, err := lockOptional(ctx, tx, cards, rightID)
	if err != nil {
		return nil, nil, err
	}
	if fromID == leftID {
		return left, right, nil
	}
	return right, left, nil
}

func lockOptional(ctx context.Context, tx store.Getter, cards CardStore, cardID string) (*models.Card, error) {
	card, err := cards.GetForUpdate(ctx, tx, cardID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func orderedIDs(firstID, secondID string) (string, string) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}
