package service

import (
	"context"
	"time"

	"fintrack/internal/dto"
	"fintrack/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type BudgetStore interface {
	Upsert(ctx context.Context, b *models.Budget) error
	ListByMonth(ctx context.Context, userID uuid.UUID, month string) ([]*models.Budget, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// BudgetService keeps monthly spending limits per expense category.
type BudgetService struct {
	repo   BudgetStore
	stats  TransactionStats
	now    func() time.Time
	logger *zap.Logger
}

func NewBudgetService(repo BudgetStore, stats TransactionStats, logger *zap.Logger) *BudgetService {
	return &BudgetService{repo: repo, stats: stats, now: time.Now, logger: logger}
}

func (s *BudgetService) Upsert(ctx context.Context, userID uuid.UUID, req *dto.BudgetRequest) (*dto.BudgetResponse, error) {
	category, ok := models.CanonicalCategory(models.TransactionTypeExpense, req.Category)
	if !ok {
		return nil, validationf("category %q is not an expense category", req.Category)
	}
	start, err := time.Parse(models.MonthLayout, req.Month)
	if err != nil {
		return nil, &ValidationError{Message: "month must be YYYY-MM"}
	}
	if !req.Amount.IsPositive() {
		return nil, &ValidationError{Message: "amount must be positive"}
	}

	now := s.now()
	b := &models.Budget{
		ID:        uuid.New(),
		UserID:    userID,
		Category:  category,
		Month:     start.Format(models.MonthLayout),
		Amount:    req.Amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, b); err != nil {
		return nil, &PersistenceError{Op: "save budget", Err: err}
	}

	spent, err := s.spentByCategory(ctx, userID, start)
	if err != nil {
		return nil, err
	}
	resp := toBudgetResponse(b, spent[b.Category])
	return &resp, nil
}

// List returns the budgets of month (current month when empty) with the
// amount already spent in each category.
func (s *BudgetService) List(ctx context.Context, userID uuid.UUID, month string) ([]dto.BudgetResponse, error) {
	if month == "" {
		month = s.now().Format(models.MonthLayout)
	}
	start, err := time.Parse(models.MonthLayout, month)
	if err != nil {
		return nil, &ValidationError{Message: "month must be YYYY-MM"}
	}

	budgets, err := s.repo.ListByMonth(ctx, userID, month)
	if err != nil {
		return nil, &PersistenceError{Op: "list budgets", Err: err}
	}
	spent, err := s.spentByCategory(ctx, userID, start)
	if err != nil {
		return nil, err
	}

	out := make([]dto.BudgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b, spent[b.Category]))
	}
	return out, nil
}

func (s *BudgetService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return mapStoreErr("delete budget", err)
	}
	return nil
}

func (s *BudgetService) spentByCategory(ctx context.Context, userID uuid.UUID, start time.Time) (map[string]decimal.Decimal, error) {
	end := start.AddDate(0, 1, -1)
	totals, err := s.stats.CategoryTotals(ctx, userID, models.TransactionTypeExpense, start, end)
	if err != nil {
		return nil, &PersistenceError{Op: "load spending", Err: err}
	}
	spent := make(map[string]decimal.Decimal, len(totals))
	for _, t := range totals {
		spent[t.Category] = t.Amount
	}
	return spent, nil
}

func toBudgetResponse(b *models.Budget, spent decimal.Decimal) dto.BudgetResponse {
	resp := dto.BudgetResponse{
		ID:        b.ID.String(),
		Category:  b.Category,
		Month:     b.Month,
		Amount:    b.Amount,
		Spent:     spent,
		Remaining: b.Amount.Sub(spent),
	}
	if b.Amount.IsPositive() {
		resp.PercentUsed = percent(spent, b.Amount)
	}
	return resp
}
