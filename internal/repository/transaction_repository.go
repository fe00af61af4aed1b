package repository

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var transactionColumns = []string{
	"id", "user_id", "type", "category", "amount", "currency", "description", "bank", "source", "date", "created_at", "updated_at",
}

// CategoryTotal is the summed amount of one category in a period.
type CategoryTotal struct {
	Category string
	Amount   decimal.Decimal
	Count    int
}

// MonthTotal is the summed amount of one calendar month (YYYY-MM).
type MonthTotal struct {
	Month  string
	Amount decimal.Decimal
}

// Totals aggregates one owner's transactions in a period.
type Totals struct {
	Income       decimal.Decimal
	Expense      decimal.Decimal
	IncomeCount  int
	ExpenseCount int
}

type TransactionRepository struct {
	db     DB
	logger *zap.Logger
}

func NewTransactionRepository(db DB, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

func transactionValues(tx *models.Transaction) []any {
	return []any{
		tx.ID, tx.UserID, tx.Type, tx.Category, tx.Amount, tx.Currency, tx.Description, tx.Bank, tx.Source, tx.Date, tx.CreatedAt, tx.UpdatedAt,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	query := squirrel.Insert("transactions").
		Columns(transactionColumns...).
		Values(transactionValues(tx)...).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// CreateBatch writes all rows in one multi-row INSERT and returns how many
// the store reports as inserted.
func (r *TransactionRepository) CreateBatch(ctx context.Context, transactions []*models.Transaction) (int64, error) {
	if len(transactions) == 0 {
		return 0, nil
	}

	builder := squirrel.Insert("transactions").
		Columns(transactionColumns...).
		PlaceholderFormat(squirrel.Dollar)

	for _, tx := range transactions {
		builder = builder.Values(transactionValues(tx)...)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Transaction, error) {
	query := squirrel.Select(transactionColumns...).
		From("transactions").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	tx, err := scanTransaction(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return tx, nil
}

func (r *TransactionRepository) List(ctx context.Context, userID uuid.UUID, filter models.TransactionFilter) ([]*models.Transaction, error) {
	query := squirrel.Select(transactionColumns...).
		From("transactions").
		Where(filterClause(userID, filter)).
		OrderBy("date DESC", "created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
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

	transactions := make([]*models.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

// Update overwrites the mutable fields of an owned transaction.
func (r *TransactionRepository) Update(ctx context.Context, tx *models.Transaction) error {
	query := squirrel.Update("transactions").
		Set("type", tx.Type).
		Set("category", tx.Category).
		Set("amount", tx.Amount).
		Set("currency", tx.Currency).
		Set("description", tx.Description).
		Set("bank", tx.Bank).
		Set("date", tx.Date).
		Set("updated_at", tx.UpdatedAt).
		Where(squirrel.Eq{"id": tx.ID, "user_id": tx.UserID}).
		PlaceholderFormat(squirrel.Dollar)

	return r.execOne(ctx, query)
}

func (r *TransactionRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	query := squirrel.Delete("transactions").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	return r.execOne(ctx, query)
}

// Totals sums income and expense for an inclusive date range.
func (r *TransactionRepository) Totals(ctx context.Context, userID uuid.UUID, from, to time.Time) (*Totals, error) {
	query := squirrel.Select("type", "COALESCE(SUM(amount), 0)", "COUNT(*)").
		From("transactions").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.LtOrEq{"date": to}).
		GroupBy("type").
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

	totals := &Totals{}
	for rows.Next() {
		var (
			txType models.TransactionType
			sum    decimal.Decimal
			count  int
		)
		if err := rows.Scan(&txType, &sum, &count); err != nil {
			return nil, err
		}
		switch txType {
		case models.TransactionTypeIncome:
			totals.Income, totals.IncomeCount = sum, count
		case models.TransactionTypeExpense:
			totals.Expense, totals.ExpenseCount = sum, count
		}
	}

	return totals, rows.Err()
}

// CategoryTotals sums one transaction type per category, largest first.
func (r *TransactionRepository) CategoryTotals(ctx context.Context, userID uuid.UUID, txType models.TransactionType, from, to time.Time) ([]CategoryTotal, error) {
	query := squirrel.Select("category", "SUM(amount)", "COUNT(*)").
		From("transactions").
		Where(squirrel.Eq{"user_id": userID, "type": txType}).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.LtOrEq{"date": to}).
		GroupBy("category").
		OrderBy("SUM(amount) DESC").
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

	var totals []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Amount, &ct.Count); err != nil {
			return nil, err
		}
		totals = append(totals, ct)
	}

	return totals, rows.Err()
}

// MonthlyTotals sums one transaction type per calendar month, oldest first.
func (r *TransactionRepository) MonthlyTotals(ctx context.Context, userID uuid.UUID, txType models.TransactionType, from, to time.Time) ([]MonthTotal, error) {
	query := squirrel.Select("to_char(date, 'YYYY-MM') AS month", "SUM(amount)").
		From("transactions").
		Where(squirrel.Eq{"user_id": userID, "type": txType}).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.LtOrEq{"date": to}).
		GroupBy("month").
		OrderBy("month").
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

	var totals []MonthTotal
	for rows.Next() {
		var mt MonthTotal
		if err := rows.Scan(&mt.Month, &mt.Amount); err != nil {
			return nil, err
		}
		totals = append(totals, mt)
	}

	return totals, rows.Err()
}

func (r *TransactionRepository) execOne(ctx context.Context, query squirrel.Sqlizer) error {
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

func filterClause(userID uuid.UUID, f models.TransactionFilter) squirrel.And {
	clause := squirrel.And{squirrel.Eq{"user_id": userID}}
	if f.Type != nil {
		clause = append(clause, squirrel.Eq{"type": *f.Type})
	}
	if f.Category != nil {
		clause = append(clause, squirrel.Eq{"category": *f.Category})
	}
	if f.From != nil {
		clause = append(clause, squirrel.GtOrEq{"date": *f.From})
	}
	if f.To != nil {
		clause = append(clause, squirrel.LtOrEq{"date": *f.To})
	}
	return clause
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	if err := row.Scan(
		&tx.ID, &tx.UserID, &tx.Type, &tx.Category, &tx.Amount, &tx.Currency, &tx.Description, &tx.Bank, &tx.Source, &tx.Date, &tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return &tx, nil
}
