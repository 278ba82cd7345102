package tokens

import (
	"context"
	"database/sql"
	"errors"

	"bankcards/internal/models"
	"bankcards/internal/store"
)

type PostgresStore struct {
	db store.DB
}

func NewPostgresStore(db store.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, token models.RefreshToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token_id, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, token.TokenID, token.UserID, token.ExpiresAt)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, tokenID string) (models.RefreshToken, error) {
	var row models.RefreshToken
	err := s.db.GetContext(ctx, &row, `
		SELECT token_id, user_id, expires_at
		FROM refresh_tokens
		WHERE token_id = $1
	`, tokenID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RefreshToken{}, ErrNotFound
	}
	if err != nil {
		return models.RefreshToken{}, err
	}
	return row, nil
}

func (s *PostgresStore) Delete(ctx context.Context, tokenID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_id = $1`, tokenID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
