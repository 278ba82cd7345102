package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"

	"bankcards/internal/models"
	"bankcards/internal/store"
	"bankcards/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// memBank keeps cards and transfer records in memory. Its tx runner restores
// the previous state when fn fails, like a rolled back transaction.
type memBank struct {
	mu           sync.Mutex
	cards        map[string]models.Card
	users        map[string]models.User
	transactions []models.CardTransaction
	audits       []string
	locks        []string

	createTxErr error
}

func newMemBank() *memBank {
	return &memBank{
		cards: map[string]models.Card{},
		users: map[string]models.User{},
	}
}

func (b *memBank) addUser(id, username string, role models.Role) {
	b.users[username] = models.User{ID: id, Username: username, Role: role}
}

func (b *memBank) addCard(id, ownerID string, status models.CardStatus, balance string) {
	owner := ""
	for _, u := range b.users {
		if u.ID == ownerID {
			owner = u.Username
		}
	}
	b.cards[id] = models.Card{
		ID:              id,
		EncryptedNumber: "MTIzNDU2NzgxMjM0NTY3OA==",
		NumberLast4:     "5678",
		OwnerID:         ownerID,
		OwnerUsername:   owner,
		Status:          status,
		Balance:         decimal.RequireFromString(balance),
	}
}

func (b *memBank) balance(id string) string {
	return b.cards[id].Balance.StringFixed(2)
}

func (b *memBank) total() decimal.Decimal {
	sum := decimal.Zero
	for _, card := range b.cards {
		sum = sum.Add(card.Balance)
	}
	return sum
}

func (b *memBank) WithTx(_ context.Context, fn func(*sqlx.Tx) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cards := make(map[string]models.Card, len(b.cards))
	for k, v := range b.cards {
		cards[k] = v
	}
	txCount := len(b.transactions)
	auditCount := len(b.audits)
	if err := fn(nil); err != nil {
		b.cards = cards
		b.transactions = b.transactions[:txCount]
		b.audits = b.audits[:auditCount]
		return err
	}
	return nil
}

func (b *memBank) Create(_ context.Context, _ store.Execer, card models.Card) error {
	b.cards[card.ID] = card
	return nil
}

func (b *memBank) GetByID(_ context.Context, cardID string) (models.Card, error) {
	card, ok := b.cards[cardID]
	if !ok {
		return models.Card{}, sql.ErrNoRows
	}
	return card, nil
}

func (b *memBank) GetByIDAndOwner(_ context.Context, cardID, ownerID string) (models.Card, error) {
	card, ok := b.cards[cardID]
	if !ok || card.OwnerID != ownerID {
		return models.Card{}, sql.ErrNoRows
	}
	return card, nil
}

func (b *memBank) GetForUpdate(_ context.Context, _ store.Getter, cardID string) (models.Card, error) {
	b.locks = append(b.locks, cardID)
	card, ok := b.cards[cardID]
	if !ok {
		return models.Card{}, sql.ErrNoRows
	}
	return card, nil
}

func (b *memBank) ListByOwner(_ context.Context, ownerID, search string, limit, offset int) ([]models.Card, int, error) {
	var matched []models.Card
	for _, card := range b.sortedCards() {
		if card.OwnerID != ownerID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(card.OwnerUsername), strings.ToLower(search)) && !strings.Contains(card.NumberLast4, search) {
			continue
		}
		matched = append(matched, card)
	}
	return paginate(matched, limit, offset), len(matched), nil
}

func (b *memBank) ListAll(_ context.Context, limit, offset int) ([]models.Card, int, error) {
	all := b.sortedCards()
	return paginate(all, limit, offset), len(all), nil
}

func (b *memBank) sortedCards() []models.Card {
	out := make([]models.Card, 0, len(b.cards))
	for _, card := range b.cards {
		out = append(out, card)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func (b *memBank) UpdateBalance(_ context.Context, _ store.Execer, cardID string, balance decimal.Decimal) error {
	card := b.cards[cardID]
	card.Balance = balance
	b.cards[cardID] = card
	return nil
}

func (b *memBank) SetStatus(_ context.Context, _ store.Execer, cardID string, status models.CardStatus) error {
	card := b.cards[cardID]
	card.Status = status
	b.cards[cardID] = card
	return nil
}

func (b *memBank) SetBlockRequested(_ context.Context, _ store.Execer, cardID string, requested bool) error {
	card := b.cards[cardID]
	card.BlockRequested = requested
	b.cards[cardID] = card
	return nil
}

func (b *memBank) Delete(_ context.Context, _ store.Execer, cardID string) (int64, error) {
	if _, ok := b.cards[cardID]; !ok {
		return 0, nil
	}
	delete(b.cards, cardID)
	return 1, nil
}

// memUsers adapts memBank to the owner lookup.
type memUsers struct{ bank *memBank }

func (u memUsers) GetByUsername(_ context.Context, username string) (models.User, error) {
	user, ok := u.bank.users[username]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	return user, nil
}

type memTransactions struct{ bank *memBank }

func (t memTransactions) Create(_ context.Context, _ store.Execer, input models.CardTransaction) error {
	if t.bank.createTxErr != nil {
		return t.bank.createTxErr
	}
	t.bank.transactions = append(t.bank.transactions, input)
	return nil
}

type memAudit struct{ bank *memBank }

func (a memAudit) Log(_ context.Context, _ store.Execer, _, action, _, _, _ string) error {
	a.bank.audits = append(a.bank.audits, action)
	return nil
}

type stubHub struct {
	calls []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(_ string, update websocket.BalanceUpdate) {
	s.calls = append(s.calls, update)
}

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(_ context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubAuditStore struct {
	actions []string
}

func (s *stubAuditStore) Log(_ context.Context, _ store.Execer, _, action, _, _, _ string) error {
	s.actions = append(s.actions, action)
	return nil
}
