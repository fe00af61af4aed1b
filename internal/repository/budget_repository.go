package repository

import (
	"context"

	"fintrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var budgetColumns = []string{"id", "user_id", "category", "month", "amount", "created_at", "updated_at"}

type BudgetRepository struct {
	db     DB
	logger *zap.Logger
}

func NewBudgetRepository(db DB, logger *zap.Logger) *BudgetRepository {
	return &BudgetRepository{db: db, logger: logger}
}

// Upsert creates the budget or replaces the amount of the existing one for
// the same owner, category and month. b.ID and b.CreatedAt are refreshed
// from the stored row.
func (r *BudgetRepository) Upsert(ctx context.Context, b *models.Budget) error {
	query := squirrel.Insert("budgets").
		Columns(budgetColumns...).
		Values(b.ID, b.UserID, b.Category, b.Month, b.Amount, b.CreatedAt, b.UpdatedAt).
		Suffix("ON CONFLICT (user_id, category, month) DO UPDATE SET amount = EXCLUDED.amount, updated_at = EXCLUDED.updated_at RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	return r.db.QueryRow(ctx, sql, args...).Scan(&b.ID, &b.CreatedAt)
}

func (r *BudgetRepository) ListByMonth(ctx context.Context, userID uuid.UUID, month string) ([]*models.Budget, error) {
	query := squirrel.Select(budgetColumns...).
		From("budgets").
		Where(squirrel.Eq{"user_id": userID, "month": month}).
		OrderBy("category").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := make([]*models.Budget, 0)
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &b.Month, &b.Amount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		budgets = append(budgets, &b)
	}

	return budgets, rows.Err()
}

func (r *BudgetRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	query := squirrel.Delete("budgets").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
