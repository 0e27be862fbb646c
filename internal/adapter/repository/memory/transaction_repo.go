package memory

import (
	"context"
	"time"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// Append stages a record.
func (r *TransactionRepository) Append(ctx context.Context, tx usecase.Transaction, record *domain.TransactionRecord) error {
	mt, err := asTx(tx)
	if err != nil {
		return err
	}
	return mt.stage(func() { mt.records = append(mt.records, copyRecord(record)) })
}

// List returns every record matching filter.
func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.TransactionRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.match(filter), nil
}

// ListPage returns one page of the records matching filter and the total match count.
func (r *TransactionRepository) ListPage(ctx context.Context, filter domain.TransactionFilter, page, size int) ([]*domain.TransactionRecord, int64, error) {
	if err := domain.ValidatePage(page, size); err != nil {
		return nil, 0, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	all := r.match(filter)
	total := int64(len(all))

	start := page * size
	if start >= len(all) {
		return []*domain.TransactionRecord{}, total, nil
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}

	return all[start:end], total, nil
}

// OperatorDateRange returns the earliest and latest timestamps for operators matching pattern.
func (r *TransactionRepository) OperatorDateRange(ctx context.Context, pattern string) (time.Time, time.Time, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var first, last time.Time
	found := false
	for _, t := range r.store.transactions {
		if !domain.ContainsFold(t.OperatorName, pattern) {
			continue
		}
		if !found || t.CreatedAt.Before(first) {
			first = t.CreatedAt
		}
		if !found || t.CreatedAt.After(last) {
			last = t.CreatedAt
		}
		found = true
	}

	return first, last, found, nil
}

// match scans the ordered log. Caller holds the read lock.
func (r *TransactionRepository) match(filter domain.TransactionFilter) []*domain.TransactionRecord {
	var owners map[string]struct{}
	if filter.AccountNamePattern != "" {
		owners = make(map[string]struct{})
		for id, a := range r.store.accounts {
			if domain.ContainsFold(a.Name, filter.AccountNamePattern) {
				owners[id] = struct{}{}
			}
		}
	}

	out := []*domain.TransactionRecord{}
	for _, t := range r.store.transactions {
		if owners != nil {
			if _, ok := owners[t.AccountID]; !ok {
				continue
			}
		}
		if !filter.Matches(t) {
			continue
		}
		out = append(out, copyRecord(t))
	}

	return out
}
