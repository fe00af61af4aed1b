package repository

import (
	"context"
	"errors"

	"fintrack/pkg/scheduler"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ScheduleRepository persists scheduler slots in scheduler_slots.
type ScheduleRepository struct {
	db     DB
	logger *zap.Logger
}

func NewScheduleRepository(db DB, logger *zap.Logger) *ScheduleRepository {
	return &ScheduleRepository{db: db, logger: logger}
}

func (r *ScheduleRepository) Save(ctx context.Context, rec scheduler.Record) error {
	query := squirrel.Insert("scheduler_slots").
		Columns("slot", "hour", "minute", "scheduled_time", "set_at").
		Values(rec.Slot, rec.Hour, rec.Minute, rec.ScheduledTime, rec.SetAt).
		Suffix("ON CONFLICT (slot) DO UPDATE SET hour = EXCLUDED.hour, minute = EXCLUDED.minute, scheduled_time = EXCLUDED.scheduled_time, set_at = EXCLUDED.set_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ScheduleRepository) Load(ctx context.Context, slot string) (*scheduler.Record, error) {
	query := squirrel.Select("slot", "hour", "minute", "scheduled_time", "set_at").
		From("scheduler_slots").
		Where(squirrel.Eq{"slot": slot}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var rec scheduler.Record
	err = r.db.QueryRow(ctx, sql, args...).Scan(&rec.Slot, &rec.Hour, &rec.Minute, &rec.ScheduledTime, &rec.SetAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, slot string) error {
	query := squirrel.Delete("scheduler_slots").
		Where(squirrel.Eq{"slot": slot}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
