package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/internal/repository"
	"fintrack/pkg/auth"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTransactionService_CreateValidates(t *testing.T) {
	svc := NewTransactionService(newMemTransactions(), "VND", zap.NewNop())
	owner := uuid.New()

	tests := []struct {
		name string
		req  dto.TransactionRequest
	}{
		{"bad type", dto.TransactionRequest{Type: "transfer", Category: "Other", Amount: d(1), Date: "2024-03-01"}},
		{"income category on expense", dto.TransactionRequest{Type: "expense", Category: "Salary", Amount: d(1), Date: "2024-03-01"}},
		{"zero amount", dto.TransactionRequest{Type: "expense", Category: "Housing", Amount: decimal.Zero, Date: "2024-03-01"}},
		{"bad date", dto.TransactionRequest{Type: "expense", Category: "Housing", Amount: d(1), Date: "01/03/2024"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), owner, &tt.req)
			var ve *ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}

	res, err := svc.Create(context.Background(), owner, &dto.TransactionRequest{Type: "Expense", Category: "housing", Amount: d(7_000_000), Date: "2024-03-01"})
	require.NoError(t, err)
	assert.Equal(t, "expense", res.Type)
	assert.Equal(t, "Housing", res.Category)
	assert.Equal(t, "manual", res.Source)
	assert.Equal(t, "VND", res.Currency)
}

func TestTransactionService_OwnerIsolation(t *testing.T) {
	store := newMemTransactions()
	svc := NewTransactionService(store, "VND", zap.NewNop())
	owner, other := uuid.New(), uuid.New()

	created, err := svc.Create(context.Background(), owner, &dto.TransactionRequest{Type: "income", Category: "Salary", Amount: d(5), Date: "2024-03-01"})
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	update := &dto.TransactionRequest{Type: "income", Category: "Bonus", Amount: d(6), Date: "2024-03-02"}
	_, err = svc.Update(context.Background(), other, id, update)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), other, id), ErrNotFound)

	updated, err := svc.Update(context.Background(), owner, id, update)
	require.NoError(t, err)
	assert.Equal(t, "Bonus", updated.Category)
	assert.Equal(t, "2024-03-02", updated.Date)

	list, err := svc.List(context.Background(), other, models.TransactionFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.Count)
	assert.Equal(t, defaultListLimit, list.Limit)

	require.NoError(t, svc.Delete(context.Background(), owner, id))
	assert.Empty(t, store.rows)
}

func TestTransactionService_ExportCSV(t *testing.T) {
	store := newMemTransactions()
	svc := NewTransactionService(store, "VND", zap.NewNop())
	owner := uuid.New()
	_, err := svc.Create(context.Background(), owner, &dto.TransactionRequest{Type: "expense", Category: "Housing", Amount: decimal.RequireFromString("1500.50"), Description: "Rent, March", Date: "2024-03-01"})
	require.NoError(t, err)

	out, err := svc.ExportCSV(context.Background(), owner, models.TransactionFilter{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,type,category,amount,currency,description,bank,source", lines[0])
	assert.Equal(t, `2024-03-01,expense,Housing,1500.5,VND,"Rent, March",,manual`, lines[1])
}

func TestTransactionService_Categories(t *testing.T) {
	cats := NewTransactionService(newMemTransactions(), "", zap.NewNop()).Categories()
	assert.Contains(t, cats.Income, "Salary")
	assert.Contains(t, cats.Expense, "Housing")
}

type fakeBudgets struct {
	saved []*models.Budget
	rows  []*models.Budget
}

func (f *fakeBudgets) Upsert(ctx context.Context, b *models.Budget) error {
	f.saved = append(f.saved, b)
	return nil
}

func (f *fakeBudgets) ListByMonth(ctx context.Context, userID uuid.UUID, month string) ([]*models.Budget, error) {
	return f.rows, nil
}

func (f *fakeBudgets) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return repository.ErrNotFound
}

func TestBudgetService(t *testing.T) {
	budgets := &fakeBudgets{}
	stats := &fakeStats{categories: []repository.CategoryTotal{{Category: "Food & Dining", Amount: d(1_500_000)}}}
	svc := NewBudgetService(budgets, stats, zap.NewNop())
	owner := uuid.New()

	_, err := svc.Upsert(context.Background(), owner, &dto.BudgetRequest{Category: "Salary", Month: "2024-03", Amount: d(1)})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "income categories cannot be budgeted")

	_, err = svc.Upsert(context.Background(), owner, &dto.BudgetRequest{Category: "Housing", Month: "2024-3", Amount: d(1)})
	require.True(t, errors.As(err, &ve))

	res, err := svc.Upsert(context.Background(), owner, &dto.BudgetRequest{Category: "food & dining", Month: "2024-02", Amount: d(2_000_000)})
	require.NoError(t, err)
	assert.Equal(t, "Food & Dining", res.Category)
	assert.True(t, res.Spent.Equal(d(1_500_000)))
	assert.True(t, res.Remaining.Equal(d(500_000)))
	assert.Equal(t, 75.0, res.PercentUsed)

	// February 2024 is a leap month
	last := stats.ranges[len(stats.ranges)-1]
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), last.from)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), last.to)

	budgets.rows = []*models.Budget{{ID: uuid.New(), Category: "Housing", Month: "2024-02", Amount: d(100)}}
	list, err := svc.List(context.Background(), owner, "2024-02")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Spent.IsZero())
	assert.Zero(t, list[0].PercentUsed)

	assert.ErrorIs(t, svc.Delete(context.Background(), owner, uuid.New()), ErrNotFound)
}

type fakeGoals struct {
	goal *models.Goal
}

func (f *fakeGoals) Create(ctx context.Context, g *models.Goal) error {
	f.goal = g
	return nil
}

func (f *fakeGoals) List(ctx context.Context, userID uuid.UUID) ([]*models.Goal, error) {
	return []*models.Goal{f.goal}, nil
}

func (f *fakeGoals) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Goal, error) {
	if f.goal == nil || f.goal.ID != id || f.goal.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return f.goal, nil
}

func (f *fakeGoals) Update(ctx context.Context, g *models.Goal) error { return nil }

func (f *fakeGoals) Delete(ctx context.Context, userID, id uuid.UUID) error { return nil }

func (f *fakeGoals) Contribute(ctx context.Context, userID, id uuid.UUID, amount decimal.Decimal, at time.Time) (*models.Goal, error) {
	if _, err := f.GetByID(ctx, userID, id); err != nil {
		return nil, err
	}
	f.goal.CurrentAmount = f.goal.CurrentAmount.Add(amount)
	return f.goal, nil
}

func TestGoalService(t *testing.T) {
	goals := &fakeGoals{}
	svc := NewGoalService(goals, zap.NewNop())
	owner := uuid.New()

	_, err := svc.Create(context.Background(), owner, &dto.GoalRequest{Name: " ", TargetAmount: d(10)})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))

	deadline := "2024-12-31"
	g, err := svc.Create(context.Background(), owner, &dto.GoalRequest{Name: "Laptop", TargetAmount: d(20_000_000), Deadline: &deadline})
	require.NoError(t, err)
	require.NotNil(t, g.Deadline)
	assert.Equal(t, deadline, *g.Deadline)
	id := uuid.MustParse(g.ID)

	_, err = svc.Contribute(context.Background(), owner, id, decimal.Zero)
	require.True(t, errors.As(err, &ve))
	_, err = svc.Contribute(context.Background(), owner, id, d(-5))
	require.True(t, errors.As(err, &ve))

	g, err = svc.Contribute(context.Background(), owner, id, d(5_000_000))
	require.NoError(t, err)
	assert.Equal(t, 25.0, g.ProgressPercent)
	assert.False(t, g.Completed)

	g, err = svc.Contribute(context.Background(), owner, id, d(20_000_000))
	require.NoError(t, err)
	assert.Equal(t, 100.0, g.ProgressPercent)
	assert.True(t, g.Completed)

	_, err = svc.Contribute(context.Background(), uuid.New(), id, d(1))
	assert.ErrorIs(t, err, ErrNotFound)
}

type memUsers struct {
	byEmail map[string]*models.User
}

func (m *memUsers) Create(ctx context.Context, u *models.User) error {
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func TestAuthService_Flow(t *testing.T) {
	users := &memUsers{byEmail: map[string]*models.User{}}
	svc := NewAuthService(users, auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Register(ctx, &dto.RegisterRequest{Username: "an", Email: "an@example.com", Password: "password1"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))

	reg, err := svc.Register(ctx, &dto.RegisterRequest{Username: "anna", Email: " Anna@Example.com ", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", reg.User.Email)
	assert.Equal(t, "Bearer", reg.TokenType)
	assert.Equal(t, int64(3600), reg.ExpiresIn)

	_, err = svc.Register(ctx, &dto.RegisterRequest{Username: "anna2", Email: "anna@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "anna@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "ANNA@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.RefreshToken(ctx, login.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials, "access tokens cannot refresh")

	refreshed, err := svc.RefreshToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, refreshed.User.ID)
}
