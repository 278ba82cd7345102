package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"bankcards/internal/auth"
	"bankcards/internal/config"
	"bankcards/internal/models"
	"bankcards/internal/services"
	"bankcards/internal/websocket"

	"go.uber.org/zap"
)

type stubCardService struct {
	createFn       func(ctx context.Context, actor services.Caller, req services.CreateCardRequest) (services.CardView, error)
	requestBlockFn func(ctx context.Context, caller services.Caller, cardID string) (services.CardView, error)
	blockFn        func(ctx context.Context, actor services.Caller, cardID string) (services.CardView, error)
	activateFn     func(ctx context.Context, actor services.Caller, cardID string) (services.CardView, error)
	deleteFn       func(ctx context.Context, actor services.Caller, cardID string) error
	getFn          func(ctx context.Context, caller services.Caller, cardID string) (services.CardView, error)
	balanceFn      func(ctx context.Context, caller services.Caller, cardID string) (services.BalanceView, error)
	listMineFn     func(ctx context.Context, caller services.Caller, search string, page services.PageRequest) (services.Page[services.CardView], error)
	listAllFn      func(ctx context.Context, page services.PageRequest) (services.Page[services.CardView], error)
	transferFn     func(ctx context.Context, caller services.Caller, req services.TransferRequest) (models.CardTransaction, error)
}

func (s stubCardService) CreateCard(ctx context.Context, actor services.Caller, req services.CreateCardRequest) (services.CardView, error) {
	if s.createFn == nil {
		return services.CardView{}, nil
	}
	return s.createFn(ctx, actor, req)
}

func (s stubCardService) RequestBlock(ctx context.Context, caller services.Caller, cardID string) (services.CardView, error) {
	if s.requestBlockFn == nil {
		return services.CardView{}, nil
	}
	return s.requestBlockFn(ctx, caller, cardID)
}

func (s stubCardService) BlockCard(ctx context.Context, actor services.Caller, cardID string) (services.CardView, error) {
	if s.blockFn == nil {
		return services.CardView{}, nil
	}
	return s.blockFn(ctx, actor, cardID)
}

func (s stubCardService) ActivateCard(ctx context.Context, actor services.Caller, cardID string) (services.CardView, error) {
	if s.activateFn == nil {
		return services.CardView{}, nil
	}
	return s.activateFn(ctx, actor, cardID)
}

func (s stubCardService) DeleteCard(ctx context.Context, actor services.Caller, cardID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, actor, cardID)
}

func (s stubCardService) GetCard(ctx context.Context, caller services.Caller, cardID string) (services.CardView, error) {
	if s.getFn == nil {
		return services.CardView{}, nil
	}
	return s.getFn(ctx, caller, cardID)
}

func (s stubCardService) GetBalance(ctx context.Context, caller services.Caller, cardID string) (services.BalanceView, error) {
	if s.balanceFn == nil {
		return services.BalanceView{}, nil
	}
	return s.balanceFn(ctx, caller, cardID)
}

func (s stubCardService) ListMyCards(ctx context.Context, caller services.Caller, search string, page services.PageRequest) (services.Page[services.CardView], error) {
	if s.listMineFn == nil {
		return services.Page[services.CardView]{Content: []services.CardView{}, Page: page.Page, Size: page.Size}, nil
	}
	return s.listMineFn(ctx, caller, search, page)
}

func (s stubCardService) ListAllCards(ctx context.Context, page services.PageRequest) (services.Page[services.CardView], error) {
	if s.listAllFn == nil {
		return services.Page[services.CardView]{Content: []services.CardView{}, Page: page.Page, Size: page.Size}, nil
	}
	return s.listAllFn(ctx, page)
}

func (s stubCardService) Transfer(ctx context.Context, caller services.Caller, req services.TransferRequest) (models.CardTransaction, error) {
	if s.transferFn == nil {
		return models.CardTransaction{}, nil
	}
	return s.transferFn(ctx, caller, req)
}

type stubUserService struct {
	registerFn func(ctx context.Context, username, password string) (services.TokenPair, error)
	loginFn    func(ctx context.Context, username, password string) (services.TokenPair, error)
	refreshFn  func(ctx context.Context, refreshToken string) (services.TokenPair, error)
	logoutFn   func(ctx context.Context, refreshToken string) error
	getFn      func(ctx context.Context, userID string) (models.User, error)
	listFn     func(ctx context.Context, page services.PageRequest) (services.Page[models.User], error)
	deleteFn   func(ctx context.Context, actor services.Caller, userID string) error
}

func (s stubUserService) Register(ctx context.Context, username, password string) (services.TokenPair, error) {
	if s.registerFn == nil {
		return services.TokenPair{}, nil
	}
	return s.registerFn(ctx, username, password)
}

func (s stubUserService) Login(ctx context.Context, username, password string) (services.TokenPair, error) {
	if s.loginFn == nil {
		return services.TokenPair{}, nil
	}
	return s.loginFn(ctx, username, password)
}

func (s stubUserService) Refresh(ctx context.Context, refreshToken string) (services.TokenPair, error) {
	if s.refreshFn == nil {
		return services.TokenPair{}, nil
	}
	return s.refreshFn(ctx, refreshToken)
}

func (s stubUserService) Logout(ctx context.Context, refreshToken string) error {
	if s.logoutFn == nil {
		return nil
	}
	return s.logoutFn(ctx, refreshToken)
}

func (s stubUserService) GetUser(ctx context.Context, userID string) (models.User, error) {
	if s.getFn == nil {
		return models.User{}, nil
	}
	return s.getFn(ctx, userID)
}

func (s stubUserService) ListUsers(ctx context.Context, page services.PageRequest) (services.Page[models.User], error) {
	if s.listFn == nil {
		return services.Page[models.User]{Content: []models.User{}, Page: page.Page, Size: page.Size}, nil
	}
	return s.listFn(ctx, page)
}

func (s stubUserService) DeleteUser(ctx context.Context, actor services.Caller, userID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, actor, userID)
}

// stubRoleStore answers GetRole from a fixed map; unknown users are ordinary
// users.
type stubRoleStore map[string]models.Role

func (s stubRoleStore) GetRole(_ context.Context, userID string) (models.Role, error) {
	if role, ok := s[userID]; ok {
		return role, nil
	}
	return models.RoleUser, nil
}

type stubTransactionStore struct {
	listAllFn func(ctx context.Context, limit, offset int) ([]models.CardTransaction, int, error)
}

func (s stubTransactionStore) ListAll(ctx context.Context, limit, offset int) ([]models.CardTransaction, int, error) {
	if s.listAllFn == nil {
		return nil, 0, nil
	}
	return s.listAllFn(ctx, limit, offset)
}

type stubAuditStore struct {
	listFn func(ctx context.Context, limit, offset int) ([]models.AuditLog, int, error)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]models.AuditLog, int, error) {
	if s.listFn == nil {
		return nil, 0, nil
	}
	return s.listFn(ctx, limit, offset)
}

type testDeps struct {
	cards        stubCardService
	users        stubUserService
	transactions stubTransactionStore
	audit        stubAuditStore
}

var (
	alice = auth.Identity{UserID: "user-1", Username: "alice", Role: models.RoleUser}
	root  = auth.Identity{UserID: "admin-1", Username: "root", Role: models.RoleAdmin}
)

func newTestHandler(deps testDeps) *Handler {
	cfg := config.Config{
		AppEnv:          "test",
		Port:            "0",
		JWTSecret:       "secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		AllowedOrigins:  []string{"*"},
	}
	roles := stubRoleStore{root.UserID: models.RoleAdmin}
	return New(cfg, deps.cards, deps.users, roles, deps.transactions, deps.audit, websocket.NewHub(zap.NewNop()), zap.NewNop())
}

// serve sends a request through the full router. A zero identity sends no
// Authorization header.
func serve(t *testing.T, handler *Handler, method, path, body string, identity auth.Identity) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if identity.UserID != "" {
		token, err := auth.GenerateToken("secret", identity, time.Minute)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	return rr
}

func stringPtr(value string) *string {
	return &value
}
