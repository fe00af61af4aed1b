package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fakeTransactions(t *testing.T, userID uuid.UUID, n int) []*models.Transaction {
	t.Helper()
	faker := gofakeit.New(42)
	now := time.Now()

	out := make([]*models.Transaction, n)
	for i := range out {
		out[i] = &models.Transaction{
			ID:          uuid.New(),
			UserID:      userID,
			Type:        models.TransactionTypeExpense,
			Category:    "Food & Dining",
			Amount:      decimal.NewFromInt(int64(faker.Number(1000, 500000))),
			Currency:    "VND",
			Description: faker.Company(),
			Source:      models.SourceImport,
			Date:        faker.DateRange(now.AddDate(0, -1, 0), now),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return out
}

// batchArgs lists the insert arguments in column order, row by row. Insert
// values are passed through unconverted.
func batchArgs(txs []*models.Transaction) []any {
	var args []any
	for _, tx := range txs {
		args = append(args, transactionValues(tx)...)
	}
	return args
}

func TestTransactionRepository_CreateBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	txs := fakeTransactions(t, userID, 3)

	mock.ExpectExec(`INSERT INTO transactions \(id,user_id,type,category,amount,currency,description,bank,source,date,created_at,updated_at\) VALUES \(\$1,.*\),\(\$13,.*\),\(\$25,.*\)`).
		WithArgs(batchArgs(txs)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 3))

	repo := NewTransactionRepository(mock, zap.NewNop())
	n, err := repo.CreateBatch(context.Background(), txs)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_CreateBatchEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n, err := NewTransactionRepository(mock, zap.NewNop()).CreateBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_CreateBatchError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO transactions`).
		WithArgs(anyArgs(len(transactionColumns))...).
		WillReturnError(errors.New("duplicate key"))

	_, err = NewTransactionRepository(mock, zap.NewNop()).CreateBatch(context.Background(), fakeTransactions(t, uuid.New(), 1))
	assert.ErrorContains(t, err, "duplicate key")
}

func TestTransactionRepository_ListWithFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	txType := models.TransactionTypeExpense
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM transactions WHERE \(user_id = \$1 AND type = \$2 AND date >= \$3\) ORDER BY date DESC, created_at DESC LIMIT 10`).
		WithArgs(userID.String(), txType, from).
		WillReturnRows(pgxmock.NewRows(transactionColumns).AddRow(
			id, userID, models.TransactionTypeExpense, "Shopping", decimal.NewFromInt(120000), "VND",
			"Mall", "", models.SourceManual, from, now, now,
		))

	repo := NewTransactionRepository(mock, zap.NewNop())
	got, err := repo.List(context.Background(), userID, models.TransactionFilter{Type: &txType, From: &from, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(120000)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_DeleteNotOwned(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID, id := uuid.New(), uuid.New()
	mock.ExpectExec(`DELETE FROM transactions WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id.String(), userID.String()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err = NewTransactionRepository(mock, zap.NewNop()).Delete(context.Background(), userID, id)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Totals(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT type, COALESCE\(SUM\(amount\), 0\), COUNT\(\*\) FROM transactions`).
		WithArgs(userID.String(), day, day).
		WillReturnRows(pgxmock.NewRows([]string{"type", "sum", "count"}).
			AddRow(models.TransactionTypeIncome, decimal.NewFromInt(5000000), 1).
			AddRow(models.TransactionTypeExpense, decimal.NewFromInt(150000), 2))

	totals, err := NewTransactionRepository(mock, zap.NewNop()).Totals(context.Background(), userID, day, day)
	require.NoError(t, err)
	assert.True(t, totals.Income.Equal(decimal.NewFromInt(5000000)))
	assert.True(t, totals.Expense.Equal(decimal.NewFromInt(150000)))
	assert.Equal(t, 2, totals.ExpenseCount)
	require.NoError(t, mock.ExpectationsWereMet())
}
