package service

import (
	"context"
	"sync"
	"time"

	"fintrack/internal/models"
	"fintrack/internal/repository"
	"fintrack/pkg/push"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type statsRange struct {
	userID   uuid.UUID
	from, to time.Time
}

type fakeStats struct {
	totals     repository.Totals
	categories []repository.CategoryTotal
	monthly    []repository.MonthTotal
	perUser    map[uuid.UUID]decimal.Decimal // expense override for Totals
	err        error
	ranges     []statsRange
}

func (f *fakeStats) Totals(ctx context.Context, userID uuid.UUID, from, to time.Time) (*repository.Totals, error) {
	f.ranges = append(f.ranges, statsRange{userID, from, to})
	if f.err != nil {
		return nil, f.err
	}
	t := f.totals
	if v, ok := f.perUser[userID]; ok {
		t.Expense = v
	}
	return &t, nil
}

func (f *fakeStats) CategoryTotals(ctx context.Context, userID uuid.UUID, txType models.TransactionType, from, to time.Time) ([]repository.CategoryTotal, error) {
	f.ranges = append(f.ranges, statsRange{userID, from, to})
	return f.categories, f.err
}

func (f *fakeStats) MonthlyTotals(ctx context.Context, userID uuid.UUID, txType models.TransactionType, from, to time.Time) ([]repository.MonthTotal, error) {
	return f.monthly, f.err
}

type fakeSubs struct {
	subs    []*models.PushSubscription
	deleted []string
}

func (f *fakeSubs) Upsert(ctx context.Context, s *models.PushSubscription) error {
	for i, existing := range f.subs {
		if existing.Endpoint == s.Endpoint {
			f.subs[i] = s
			return nil
		}
	}
	f.subs = append(f.subs, s)
	return nil
}

func (f *fakeSubs) ListAll(ctx context.Context) ([]*models.PushSubscription, error) {
	return f.subs, nil
}

func (f *fakeSubs) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.PushSubscription, error) {
	var out []*models.PushSubscription
	for _, s := range f.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubs) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	f.deleted = append(f.deleted, endpoint)
	return nil
}

func (f *fakeSubs) DeleteForUser(ctx context.Context, userID uuid.UUID, endpoint string) error {
	for i, s := range f.subs {
		if s.UserID == userID && s.Endpoint == endpoint {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type sentPush struct {
	endpoint string
	msg      push.Message
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentPush
	results map[string]error // by endpoint
}

func (f *fakeSender) Send(ctx context.Context, sub push.Subscription, msg push.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.results[sub.Endpoint]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentPush{sub.Endpoint, msg})
	return nil
}

// memTransactions is an owner-scoped in-memory TransactionStore.
type memTransactions struct {
	rows map[uuid.UUID]*models.Transaction
	err  error
}

func newMemTransactions() *memTransactions {
	return &memTransactions{rows: make(map[uuid.UUID]*models.Transaction)}
}

func (m *memTransactions) Create(ctx context.Context, tx *models.Transaction) error {
	if m.err != nil {
		return m.err
	}
	cp := *tx
	m.rows[tx.ID] = &cp
	return nil
}

func (m *memTransactions) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Transaction, error) {
	tx, ok := m.rows[id]
	if !ok || tx.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *memTransactions) List(ctx context.Context, userID uuid.UUID, filter models.TransactionFilter) ([]*models.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Transaction
	for _, tx := range m.rows {
		if tx.UserID != userID {
			continue
		}
		if filter.Type != nil && tx.Type != *filter.Type {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (m *memTransactions) Update(ctx context.Context, tx *models.Transaction) error {
	if _, err := m.GetByID(ctx, tx.UserID, tx.ID); err != nil {
		return err
	}
	cp := *tx
	m.rows[tx.ID] = &cp
	return nil
}

func (m *memTransactions) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := m.GetByID(ctx, userID, id); err != nil {
		return err
	}
	delete(m.rows, id)
	return nil
}
