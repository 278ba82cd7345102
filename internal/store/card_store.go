package store

import (
	"context"

	"bankcards/internal/models"

	"github.com/shopspring/decimal"
)

type CardStore struct {
	db DB
}

func NewCardStore(db DB) *CardStore {
	return &CardStore{db: db}
}

const cardSelect = `
		SELECT c.id, c.encrypted_number, c.number_last4, c.owner_id, u.username AS owner_username,
		       c.expiry_date, c.status, c.balance, c.block_requested, c.created_at
		FROM cards c
		JOIN users u ON u.id = c.owner_id
`

func (s *CardStore) Create(ctx context.Context, tx Execer, card models.Card) error {
	query := `
		INSERT INTO cards (id, encrypted_number, number_last4, owner_id, expiry_date, status, balance, block_requested, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := tx.ExecContext(ctx, query,
		card.ID, card.EncryptedNumber, card.NumberLast4, card.OwnerID,
		card.ExpiryDate, card.Status, card.Balance, card.BlockRequested, card.CreatedAt,
	)
	return err
}

func (s *CardStore) GetByID(ctx context.Context, cardID string) (models.Card, error) {
	var row models.Card
	err := s.db.GetContext(ctx, &row, cardSelect+` WHERE c.id = $1`, cardID)
	if err != nil {
		return models.Card{}, err
	}
	return row, nil
}

func (s *CardStore) GetByIDAndOwner(ctx context.Context, cardID, ownerID string) (models.Card, error) {
	var row models.Card
	err := s.db.GetContext(ctx, &row, cardSelect+` WHERE c.id = $1 AND c.owner_id = $2`, cardID, ownerID)
	if err != nil {
		return models.Card{}, err
	}
	return row, nil
}

// GetForUpdate locks the card row, leaving the owner row unlocked.
func (s *CardStore) GetForUpdate(ctx context.Context, tx Getter, cardID string) (models.Card, error) {
	var row models.Card
	err := tx.GetContext(ctx, &row, cardSelect+` WHERE c.id = $1 FOR UPDATE OF c`, cardID)
	if err != nil {
		return models.Card{}, err
	}
	return row, nil
}

// ListByOwner pages through the owner's cards. A non-empty search matches the
// owner username or the last four digits, case-insensitively.
func (s *CardStore) ListByOwner(ctx context.Context, ownerID, search string, limit, offset int) ([]models.Card, int, error) {
	where := ` WHERE c.owner_id = $1`
	args := []any{ownerID}
	if search != "" {
		where += ` AND (u.username ILIKE $2 OR c.number_last4 LIKE $2)`
		args = append(args, containsPattern(search))
	}
	return s.list(ctx, where, args, limit, offset)
}

func (s *CardStore) ListAll(ctx context.Context, limit, offset int) ([]models.Card, int, error) {
	return s.list(ctx, "", nil, limit, offset)
}

func (s *CardStore) list(ctx context.Context, where string, args []any, limit, offset int) ([]models.Card, int, error) {
	var total int
	err := s.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM cards c JOIN users u ON u.id = c.owner_id`+where, args...)
	if err != nil {
		return nil, 0, err
	}
	param := len(args) + 1
	query := cardSelect + where + ` ORDER BY c.created_at, c.id LIMIT $` + itoa(param) + ` OFFSET $` + itoa(param+1)
	var rows []models.Card
	if err := s.db.SelectContext(ctx, &rows, query, append(args, limit, offset)...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *CardStore) UpdateBalance(ctx context.Context, tx Execer, cardID string, balance decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `UPDATE cards SET balance = $1 WHERE id = $2`, balance, cardID)
	return err
}

func (s *CardStore) SetStatus(ctx context.Context, tx Execer, cardID string, status models.CardStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE cards SET status = $1 WHERE id = $2`, status, cardID)
	return err
}

func (s *CardStore) SetBlockRequested(ctx context.Context, tx Execer, cardID string, requested bool) error {
	_, err := tx.ExecContext(ctx, `UPDATE cards SET block_requested = $1 WHERE id = $2`, requested, cardID)
	return err
}

func (s *CardStore) Delete(ctx context.Context, tx Execer, cardID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, cardID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
