package repository

import (
	"context"
	"time"

	"fintrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var goalColumns = []string{"id", "user_id", "name", "target_amount", "current_amount", "deadline", "created_at", "updated_at"}

type GoalRepository struct {
	db     DB
	logger *zap.Logger
}

func NewGoalRepository(db DB, logger *zap.Logger) *GoalRepository {
	return &GoalRepository{db: db, logger: logger}
}

func (r *GoalRepository) Create(ctx context.Context, g *models.Goal) error {
	query := squirrel.Insert("goals").
		Columns(goalColumns...).
		Values(g.ID, g.UserID, g.Name, g.TargetAmount, g.CurrentAmount, g.Deadline, g.CreatedAt, g.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *GoalRepository) List(ctx context.Context, userID uuid.UUID) ([]*models.Goal, error) {
	query := squirrel.Select(goalColumns...).
		From("goals").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
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

	goals := make([]*models.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}

	return goals, rows.Err()
}

func (r *GoalRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Goal, error) {
	query := squirrel.Select(goalColumns...).
		From("goals").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	g, err := scanGoal(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return g, nil
}

func (r *GoalRepository) Update(ctx context.Context, g *models.Goal) error {
	query := squirrel.Update("goals").
		Set("name", g.Name).
		Set("target_amount", g.TargetAmount).
		Set("deadline", g.Deadline).
		Set("updated_at", g.UpdatedAt).
		Where(squirrel.Eq{"id": g.ID, "user_id": g.UserID}).
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

func (r *GoalRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	query := squirrel.Delete("goals").
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

// Contribute adds amount to the goal in a single statement and returns the
// updated row.
func (r *GoalRepository) Contribute(ctx context.Context, userID, id uuid.UUID, amount decimal.Decimal, at time.Time) (*models.Goal, error) {
	query := squirrel.Update("goals").
		Set("current_amount", squirrel.Expr("current_amount + ?", amount)).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		Suffix("RETURNING id, user_id, name, target_amount, current_amount, deadline, created_at, updated_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	g, err := scanGoal(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return g, nil
}

func scanGoal(row rowScanner) (*models.Goal, error) {
	var g models.Goal
	if err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.Deadline, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}
