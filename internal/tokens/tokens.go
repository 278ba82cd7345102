// Package tokens persists issued refresh tokens so they can be revoked.
package tokens

import (
	"context"
	"errors"

	"bankcards/internal/models"
)

var ErrNotFound = errors.New("refresh token not found")

// Store keeps refresh tokens by their jti. Delete reports whether a token was
// removed.
type Store interface {
	Save(ctx context.Context, token models.RefreshToken) error
	Get(ctx context.Context, tokenID string) (models.RefreshToken, error)
	Delete(ctx context.Context, tokenID string) (bool, error)
}
