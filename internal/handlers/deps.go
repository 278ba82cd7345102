package handlers

import (
	"context"

	"bankcards/internal/models"
	"bankcards/internal/services"
)

type CardService interface {
	CreateCard(ctx context.Context, actor services.Caller, req services.CreateCardRequest) (services.CardView, error)
	RequestBlock(ctx context.Context, caller services.Caller, cardID string) (services.CardView, error)
	BlockCard(ctx context.Context, actor services.Caller, cardID string) (services.CardView, error)
	ActivateCard(ctx context.Context, actor services.Caller, cardID string) (services.CardView, error)
	DeleteCard(ctx context.Context, actor services.Caller, cardID string) error
	GetCard(ctx context.Context, caller services.Caller, cardID string) (services.CardView, error)
	GetBalance(ctx context.Context, caller services.Caller, cardID string) (services.BalanceView, error)
	ListMyCards(ctx context.Context, caller services.Caller, search string, page services.PageRequest) (services.Page[services.CardView], error)
	ListAllCards(ctx context.Context, page services.PageRequest) (services.Page[services.CardView], error)
	Transfer(ctx context.Context, caller services.Caller, req services.TransferRequest) (models.CardTransaction, error)
}

type UserService interface {
	Register(ctx context.Context, username, password string) (services.TokenPair, error)
	Login(ctx context.Context, username, password string) (services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	GetUser(ctx context.Context, userID string) (models.User, error)
	ListUsers(ctx context.Context, page services.PageRequest) (services.Page[models.User], error)
	DeleteUser(ctx context.Context, actor services.Caller, userID string) error
}

type RoleStore interface {
	GetRole(ctx context.Context, userID string) (models.Role, error)
}

type TransactionStore interface {
	ListAll(ctx context.Context, limit, offset int) ([]models.CardTransaction, int, error)
}

type AuditStore interface {
	List(ctx context.Context, limit, offset int) ([]models.AuditLog, int, error)
}
