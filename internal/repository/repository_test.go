package repository

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/models"
	"fintrack/pkg/scheduler"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// anyArgs matches n query arguments of any value. Filters built with
// squirrel.Eq hand driver.Valuer values over already converted, so uuid
// arguments are expected as strings.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestUserRepository_GetByEmailNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, username, email, password, created_at, updated_at FROM users WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewUserRepository(mock, zap.NewNop()).GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBudgetRepository_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	existing := uuid.New()
	created := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	b := &models.Budget{
		ID: uuid.New(), UserID: uuid.New(), Category: "Shopping", Month: "2024-03",
		Amount: decimal.NewFromInt(2000000), CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}

	mock.ExpectQuery(`INSERT INTO budgets .* ON CONFLICT \(user_id, category, month\) DO UPDATE`).
		WithArgs(b.ID, b.UserID, "Shopping", "2024-03", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(existing, created))

	require.NoError(t, NewBudgetRepository(mock, zap.NewNop()).Upsert(context.Background(), b))
	assert.Equal(t, existing, b.ID)
	assert.Equal(t, created, b.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGoalRepository_Contribute(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID, id := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(`UPDATE goals SET current_amount = current_amount \+ \$1, updated_at = \$2 WHERE id = \$3 AND user_id = \$4 RETURNING`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), id.String(), userID.String()).
		WillReturnRows(pgxmock.NewRows(goalColumns).AddRow(
			id, userID, "Laptop", decimal.NewFromInt(1000), decimal.NewFromInt(250), nil, now, now,
		))

	g, err := NewGoalRepository(mock, zap.NewNop()).Contribute(context.Background(), userID, id, decimal.NewFromInt(50), now)
	require.NoError(t, err)
	assert.True(t, g.CurrentAmount.Equal(decimal.NewFromInt(250)))
	assert.Nil(t, g.Deadline)
	assert.Equal(t, 25.0, g.ProgressPercent())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGoalRepository_ContributeNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`UPDATE goals`).
		WithArgs(anyArgs(4)...).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewGoalRepository(mock, zap.NewNop()).Contribute(context.Background(), uuid.New(), uuid.New(), decimal.NewFromInt(1), time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPushSubscriptionRepository_DeleteByEndpoint(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM push_subscriptions WHERE endpoint = \$1`).
		WithArgs("https://push.example/abc").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err = NewPushSubscriptionRepository(mock, zap.NewNop()).DeleteByEndpoint(context.Background(), "https://push.example/abc")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepository_LoadMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT slot, hour, minute, scheduled_time, set_at FROM scheduler_slots WHERE slot = \$1`).
		WithArgs(scheduler.SlotDaily).
		WillReturnError(pgx.ErrNoRows)

	rec, err := NewScheduleRepository(mock, zap.NewNop()).Load(context.Background(), scheduler.SlotDaily)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestScheduleRepository_SaveAndLoad(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	next := time.Date(2024, 3, 11, 21, 0, 0, 0, time.UTC)
	set := time.Date(2024, 3, 10, 22, 0, 0, 0, time.UTC)
	rec := scheduler.Record{Slot: scheduler.SlotDaily, Hour: 21, Minute: 0, ScheduledTime: next, SetAt: set}

	mock.ExpectExec(`INSERT INTO scheduler_slots .* ON CONFLICT \(slot\) DO UPDATE`).
		WithArgs("daily", 21, 0, next, set).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT slot, hour, minute, scheduled_time, set_at FROM scheduler_slots`).
		WithArgs("daily").
		WillReturnRows(pgxmock.NewRows([]string{"slot", "hour", "minute", "scheduled_time", "set_at"}).
			AddRow("daily", 21, 0, next, set))

	repo := NewScheduleRepository(mock, zap.NewNop())
	require.NoError(t, repo.Save(context.Background(), rec))

	got, err := repo.Load(context.Background(), scheduler.SlotDaily)
	require.NoError(t, err)
	assert.Equal(t, rec, *got)
	require.NoError(t, mock.ExpectationsWereMet())
}
