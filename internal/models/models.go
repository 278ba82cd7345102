package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
)

func (s CardStatus) Valid() bool {
	return s == CardStatusActive || s == CardStatusBlocked
}

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Card is a stored card row joined with its owner's username.
type Card struct {
	ID              string          `db:"id"`
	EncryptedNumber string          `db:"encrypted_number"`
	NumberLast4     string          `db:"number_last4"`
	OwnerID         string          `db:"owner_id"`
	OwnerUsername   string          `db:"owner_username"`
	ExpiryDate      time.Time       `db:"expiry_date"`
	Status          CardStatus      `db:"status"`
	Balance         decimal.Decimal `db:"balance"`
	BlockRequested  bool            `db:"block_requested"`
	CreatedAt       time.Time       `db:"created_at"`
}

type CardTransaction struct {
	ID          string          `db:"id" json:"id"`
	FromCardID  *string         `db:"from_card_id" json:"from_card_id,omitempty"`
	ToCardID    *string         `db:"to_card_id" json:"to_card_id,omitempty"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Description *string         `db:"description" json:"description,omitempty"`
	Timestamp   time.Time       `db:"timestamp" json:"timestamp"`
}

type AuditLog struct {
	ID          string    `db:"id" json:"id"`
	ActorUserID *string   `db:"actor_user_id" json:"actor_user_id,omitempty"`
	Action      string    `db:"action" json:"action"`
	EntityType  string    `db:"entity_type" json:"entity_type"`
	EntityID    string    `db:"entity_id" json:"entity_id"`
	Data        string    `db:"data" json:"data"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type RefreshToken struct {
	TokenID   string    `db:"token_id"`
	UserID    string    `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
}
