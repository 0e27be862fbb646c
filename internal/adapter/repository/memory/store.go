// Package memory implements the ledger repositories on process memory.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// ErrTxDone is returned when a finished transaction is used again.
var ErrTxDone = errors.New("memory: transaction already committed or rolled back")

// Store holds the committed state shared by the memory repositories.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	transactions []*domain.TransactionRecord
	outbox       []*domain.OutboxEvent
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*domain.Account),
	}
}

// Ping reports whether the store can serve requests. It only fails once ctx is done.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Tx stages writes and applies them to the Store in one step on Commit.
type Tx struct {
	store    *Store
	mu       sync.Mutex
	done     bool
	created  []*domain.Account
	balances map[string]*domain.Account
	records  []*domain.TransactionRecord
	events   []*domain.OutboxEvent
}

// TxManager implements usecase.TransactionManager for the memory store.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{store: m.store, balances: make(map[string]*domain.Account)}, nil
}

// Commit applies every staged write, or none of them if an updated account vanished.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return ErrTxDone
	}
	t.done = true

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range t.created {
		if _, ok := s.accounts[a.ID]; ok {
			return fmt.Errorf("memory: duplicate account id %s", a.ID)
		}
	}
	for id := range t.balances {
		if _, ok := s.accounts[id]; !ok && !t.creates(id) {
			return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
		}
	}

	for _, a := range t.created {
		s.accounts[a.ID] = a
	}
	for id, staged := range t.balances {
		a := s.accounts[id]
		a.Balance = staged.Balance
		a.UpdatedAt = staged.UpdatedAt
	}

	s.appendRecords(t.records)
	s.outbox = append(s.outbox, t.events...)

	return nil
}

// Rollback discards staged writes. It is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return nil
	}
	t.done = true
	t.created, t.balances, t.records, t.events = nil, nil, nil, nil

	return nil
}

func (t *Tx) creates(id string) bool {
	for _, a := range t.created {
		if a.ID == id {
			return true
		}
	}
	return false
}

func (t *Tx) stage(fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return ErrTxDone
	}
	fn()
	return nil
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	mt, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("memory: unexpected transaction type %T", tx)
	}
	return mt, nil
}

// appendRecords keeps the log ordered by creation time, then id. Caller holds s.mu.
func (s *Store) appendRecords(records []*domain.TransactionRecord) {
	if len(records) == 0 {
		return
	}

	s.transactions = append(s.transactions, records...)
	sort.SliceStable(s.transactions, func(i, j int) bool {
		return recordLess(s.transactions[i], s.transactions[j])
	})
}

func recordLess(a, b *domain.TransactionRecord) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func copyRecord(r *domain.TransactionRecord) *domain.TransactionRecord {
	c := *r
	return &c
}
