package billing

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. It is safe for concurrent use and is
// intended for tests and single-instance development setups.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	orders   map[string]string // order ID -> account ID
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*Account),
		orders:   make(map[string]string),
	}
}

func (m *MemoryStore) FindByID(_ context.Context, userID string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, ok := m.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acc.Clone(), nil
}

func (m *MemoryStore) FindByOrderID(_ context.Context, orderID string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	userID, ok := m.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return m.accounts[userID].Clone(), nil
}

func (m *MemoryStore) FindByExpiryRange(_ context.Context, start, end time.Time) ([]*Account, error) {
	return m.filter(func(a *Account) bool {
		exp := a.Subscription.Expiry
		return exp != nil && !exp.Before(start) && exp.Before(end)
	}), nil
}

func (m *MemoryStore) FindWithPendingOrders(_ context.Context, createdBefore time.Time) ([]*Account, error) {
	return m.filter(func(a *Account) bool {
		for _, o := range a.Orders {
			if o.Status == OrderPending && o.CreatedAt.Before(createdBefore) {
				return true
			}
		}
		return false
	}), nil
}

func (m *MemoryStore) Save(_ context.Context, acc *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.accounts[acc.ID]
	switch {
	case acc.Version == 0 && exists:
		return ErrVersionConflict
	case acc.Version != 0 && (!exists || current.Version != acc.Version):
		return ErrVersionConflict
	}

	stored := acc.Clone()
	stored.Version = acc.Version + 1
	m.accounts[acc.ID] = stored
	for _, o := range stored.Orders {
		m.orders[o.OrderID] = stored.ID
	}
	acc.Version = stored.Version
	return nil
}

func (m *MemoryStore) ResetUsage(_ context.Context, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, acc := range m.accounts {
		acc.Subscription.Usage = nil
		acc.Subscription.UsageResetAt = timePtr(at)
		acc.Version++
		n++
	}
	return n, nil
}

// filter returns copies sorted by account ID for deterministic iteration.
func (m *MemoryStore) filter(match func(*Account) bool) []*Account {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Account
	for _, acc := range m.accounts {
		if match(acc) {
			out = append(out, acc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
