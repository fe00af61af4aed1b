package repository

import (
	"context"

	"fintrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var pushColumns = []string{"id", "user_id", "endpoint", "p256dh", "auth", "created_at"}

type PushSubscriptionRepository struct {
	db     DB
	logger *zap.Logger
}

func NewPushSubscriptionRepository(db DB, logger *zap.Logger) *PushSubscriptionRepository {
	return &PushSubscriptionRepository{db: db, logger: logger}
}

// Upsert stores the subscription keyed by endpoint. A browser that
// re-subscribes under another account moves to that owner.
func (r *PushSubscriptionRepository) Upsert(ctx context.Context, s *models.PushSubscription) error {
	query := squirrel.Insert("push_subscriptions").
		Columns(pushColumns...).
		Values(s.ID, s.UserID, s.Endpoint, s.P256dh, s.Auth, s.CreatedAt).
		Suffix("ON CONFLICT (endpoint) DO UPDATE SET user_id = EXCLUDED.user_id, p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *PushSubscriptionRepository) ListAll(ctx context.Context) ([]*models.PushSubscription, error) {
	return r.list(ctx, nil)
}

func (r *PushSubscriptionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.PushSubscription, error) {
	return r.list(ctx, squirrel.Eq{"user_id": userID})
}

func (r *PushSubscriptionRepository) list(ctx context.Context, where squirrel.Sqlizer) ([]*models.PushSubscription, error) {
	query := squirrel.Select(pushColumns...).
		From("push_subscriptions").
		OrderBy("created_at").
		PlaceholderFormat(squirrel.Dollar)
	if where != nil {
		query = query.Where(where)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]*models.PushSubscription, 0)
	for rows.Next() {
		var s models.PushSubscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256dh, &s.Auth, &s.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, &s)
	}

	return subs, rows.Err()
}

// DeleteByEndpoint removes the subscription regardless of owner. Used when
// the push service reports it gone.
func (r *PushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	return r.delete(ctx, squirrel.Eq{"endpoint": endpoint})
}

func (r *PushSubscriptionRepository) DeleteForUser(ctx context.Context, userID uuid.UUID, endpoint string) error {
	return r.delete(ctx, squirrel.Eq{"endpoint": endpoint, "user_id": userID})
}

func (r *PushSubscriptionRepository) delete(ctx context.Context, where squirrel.Eq) error {
	query := squirrel.Delete("push_subscriptions").
		Where(where).
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
