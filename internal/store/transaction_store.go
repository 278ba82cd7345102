package store

import (
	"context"
	"strconv"

	"bankcards/internal/models"
)

type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input models.CardTransaction) error {
	query := `
		INSERT INTO card_transactions (id, from_card_id, to_card_id, amount, description, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.FromCardID, input.ToCardID, input.Amount, input.Description, input.Timestamp,
	)
	return err
}

func (s *TransactionStore) ListAll(ctx context.Context, limit, offset int) ([]models.CardTransaction, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM card_transactions`); err != nil {
		return nil, 0, err
	}
	var rows []models.CardTransaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, from_card_id, to_card_id, amount, description, timestamp
		FROM card_transactions
		ORDER BY timestamp DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func itoa(value int) string {
	return strconv.Itoa(value)
}
