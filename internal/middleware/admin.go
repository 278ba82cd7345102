package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"bankcards/internal/models"
)

type RoleStore interface {
	GetRole(ctx context.Context, userID string) (models.Role, error)
}

// RequireAdmin checks the caller's current role in the store rather than the
// role claimed in the token, so demotions and deletions apply immediately.
func RequireAdmin(roles RoleStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			role, err := roles.GetRole(r.Context(), userID)
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "unable to verify admin")
				return
			}
			if role != models.RoleAdmin {
				writeError(w, http.StatusForbidden, "admin privileges required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
