package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"bankcards/internal/auth"
	"bankcards/internal/db"
	"bankcards/internal/models"
	"bankcards/internal/store"
	"bankcards/internal/tokens"
	"bankcards/internal/validator"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, user models.User) error
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.User, error)
	SetRole(ctx context.Context, tx store.Execer, userID string, role models.Role) error
	List(ctx context.Context, limit, offset int) ([]models.User, int, error)
	Delete(ctx context.Context, tx store.Execer, userID string) (int64, error)
}

type TokenSettings struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type UserService struct {
	txRunner db.TxRunner
	users    UserStore
	tokens   tokens.Store
	audit    AuditStore
	settings TokenSettings
	logger   *zap.Logger
	now      func() time.Time
}

func NewUserService(txRunner db.TxRunner, users UserStore, tokenStore tokens.Store, audit AuditStore, settings TokenSettings, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		txRunner: txRunner,
		users:    users,
		tokens:   tokenStore,
		audit:    audit,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (s *UserService) Register(ctx context.Context, username, password string) (TokenPair, error) {
	username = strings.TrimSpace(username)
	if err := validator.ValidateUsername(username); err != nil {
		return TokenPair{}, ErrInvalidUsername
	}
	if err := validator.ValidatePassword(password); err != nil {
		return TokenPair{}, ErrInvalidPassword
	}
	user, err := s.createUser(ctx, username, password, models.RoleUser, "user.register")
	if err != nil {
		return TokenPair{}, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.issue(ctx, user)
}

func (s *UserService) createUser(ctx context.Context, username, password string, role models.Role, action string) (models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.users.Create(ctx, tx, user); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"username": username, "role": string(role)})
		return s.audit.Log(ctx, tx, user.ID, action, "user", user.ID, string(data))
	})
	if db.IsUniqueViolation(err) {
		return models.User{}, ErrUsernameTaken
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) Login(ctx context.Context, username, password string) (TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, sql.ErrNoRows) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

func (s *UserService) issue(ctx context.Context, user models.User) (TokenPair, error) {
	identity := auth.Identity{UserID: user.ID, Username: user.Username, Role: user.Role}
	access, err := auth.GenerateToken(s.settings.Secret, identity, s.settings.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, tokenID, expiresAt, err := auth.GenerateRefreshToken(s.settings.Secret, identity, s.settings.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.tokens.Save(ctx, models.RefreshToken{TokenID: tokenID, UserID: user.ID, ExpiresAt: expiresAt}); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.settings.AccessTTL.Seconds()),
	}, nil
}

// Refresh issues a new access token for a stored, unexpired refresh token.
// The refresh token itself is returned unchanged. A stored token found
// expired is deleted.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := auth.ParseRefreshToken(s.settings.Secret, refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	stored, err := s.tokens.Get(ctx, claims.ID)
	if errors.Is(err, tokens.ErrNotFound) {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return TokenPair{}, err
	}
	if !stored.ExpiresAt.After(s.now()) {
		if _, err := s.tokens.Delete(ctx, stored.TokenID); err != nil {
			return TokenPair{}, err
		}
		return TokenPair{}, ErrInvalidRefreshToken
	}
	user, err := s.users.GetByID(ctx, stored.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return TokenPair{}, err
	}
	access, err := auth.GenerateToken(s.settings.Secret, auth.Identity{UserID: user.ID, Username: user.Username, Role: user.Role}, s.settings.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.settings.AccessTTL.Seconds()),
	}, nil
}

func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := auth.ParseRefreshToken(s.settings.Secret, refreshToken)
	if err != nil {
		return ErrUnknownRefreshToken
	}
	deleted, err := s.tokens.Delete(ctx, claims.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrUnknownRefreshToken
	}
	return nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) ListUsers(ctx context.Context, page PageRequest) (Page[models.User], error) {
	users, total, err := s.users.List(ctx, page.Size, page.Offset())
	if err != nil {
		return Page[models.User]{}, err
	}
	return newPage(users, page, total), nil
}

// DeleteUser removes a non-administrator account together with its cards.
func (s *UserService) DeleteUser(ctx context.Context, actor Caller, userID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		user, err := s.users.GetForUpdate(ctx, tx, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if user.Role == models.RoleAdmin {
			return ErrCannotRemoveAdmin
		}
		if _, err := s.users.Delete(ctx, tx, user.ID); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"username": user.Username})
		return s.audit.Log(ctx, tx, actor.UserID, "user.delete", "user", user.ID, string(data))
	})
	if err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.String("user_id", userID), zap.String("actor_id", actor.UserID))
	return nil
}

// EnsureAdmin creates the named administrator, or promotes the existing user
// of that name. The password of an existing user is left untouched.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) error {
	existing, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role == models.RoleAdmin {
			return nil
		}
		err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			if err := s.users.SetRole(ctx, tx, existing.ID, models.RoleAdmin); err != nil {
				return err
			}
			return s.audit.Log(ctx, tx, "", "user.promote_admin", "user", existing.ID, "{}")
		})
		if err != nil {
			return err
		}
		s.logger.Info("promoted bootstrap admin", zap.String("user_id", existing.ID))
		return nil
	case errors.Is(err, sql.ErrNoRows):
		if err := validator.ValidateUsername(username); err != nil {
			return ErrInvalidUsername
		}
		if err := validator.ValidatePassword(password); err != nil {
			return ErrInvalidPassword
		}
		user, err := s.createUser(ctx, username, password, models.RoleAdmin, "user.bootstrap_admin")
		if err != nil {
			return err
		}
		s.logger.Info("created bootstrap admin", zap.String("user_id", user.ID))
		return nil
	default:
		return err
	}
}
