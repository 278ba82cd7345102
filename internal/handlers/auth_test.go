package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"bankcards/internal/auth"
	"bankcards/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterSuccess(t *testing.T) {
	var gotUsername, gotPassword string
	handler := newTestHandler(testDeps{users: stubUserService{
		registerFn: func(_ context.Context, username, password string) (services.TokenPair, error) {
			gotUsername, gotPassword = username, password
			return services.TokenPair{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", ExpiresIn: 900}, nil
		},
	}})

	rr := serve(t, handler, http.MethodPost, "/api/auth/register", `{"username":"alice","password":"password1"}`, auth.Identity{})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "alice", gotUsername)
	assert.Equal(t, "password1", gotPassword)

	var pair services.TokenPair
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&pair))
	assert.Equal(t, "access", pair.AccessToken)
	assert.Equal(t, "refresh", pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
}

func TestRegisterConflict(t *testing.T) {
	handler := newTestHandler(testDeps{users: stubUserService{
		registerFn: func(context.Context, string, string) (services.TokenPair, error) {
			return services.TokenPair{}, services.ErrUsernameTaken
		},
	}})
	rr := serve(t, handler, http.MethodPost, "/api/auth/register", `{"username":"alice","password":"password1"}`, auth.Identity{})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error":"username already taken"}`, rr.Body.String())
}

func TestRegisterRejectsMalformedPayload(t *testing.T) {
	handler := newTestHandler(testDeps{users: stubUserService{
		registerFn: func(context.Context, string, string) (services.TokenPair, error) {
			t.Fatalf("service should not be called")
			return services.TokenPair{}, nil
		},
	}})
	for _, body := range []string{`{`, `{"username":"a","password":"b","extra":1}`, `{"username":"a"} {}`} {
		rr := serve(t, handler, http.MethodPost, "/api/auth/register", body, auth.Identity{})
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler := newTestHandler(testDeps{users: stubUserService{
		loginFn: func(context.Context, string, string) (services.TokenPair, error) {
			return services.TokenPair{}, services.ErrInvalidCredentials
		},
	}})
	rr := serve(t, handler, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"wrong-pass"}`, auth.Identity{})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginInternalErrorIsGeneric(t *testing.T) {
	handler := newTestHandler(testDeps{users: stubUserService{
		loginFn: func(context.Context, string, string) (services.TokenPair, error) {
			return services.TokenPair{}, errors.New("pq: connection refused")
		},
	}})
	rr := serve(t, handler, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"password1"}`, auth.Identity{})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "connection refused")
}

func TestRefresh(t *testing.T) {
	handler := newTestHandler(testDeps{users: stubUserService{
		refreshFn: func(_ context.Context, token string) (services.TokenPair, error) {
			if token != "refresh" {
				return services.TokenPair{}, services.ErrInvalidRefreshToken
			}
			return services.TokenPair{AccessToken: "new-access", RefreshToken: token, TokenType: "Bearer"}, nil
		},
	}})

	rr := serve(t, handler, http.MethodPost, "/api/auth/refresh", `{"refresh_token":"refresh"}`, auth.Identity{})
	require.Equal(t, http.StatusOK, rr.Code)
	var pair services.TokenPair
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&pair))
	assert.Equal(t, "new-access", pair.AccessToken)
	assert.Equal(t, "refresh", pair.RefreshToken)

	rr = serve(t, handler, http.MethodPost, "/api/auth/refresh", `{"refresh_token":"stale"}`, auth.Identity{})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(t, handler, http.MethodPost, "/api/auth/refresh", `{}`, auth.Identity{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogout(t *testing.T) {
	handler := newTestHandler(testDeps{users: stubUserService{
		logoutFn: func(_ context.Context, token string) error {
			if token != "refresh" {
				return services.ErrUnknownRefreshToken
			}
			return nil
		},
	}})
	rr := serve(t, handler, http.MethodPost, "/api/auth/logout", `{"refresh_token":"refresh"}`, auth.Identity{})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(t, handler, http.MethodPost, "/api/auth/logout", `{"refresh_token":"unknown"}`, auth.Identity{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(testDeps{})
	rr := serve(t, handler, http.MethodGet, "/health", "", auth.Identity{})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
