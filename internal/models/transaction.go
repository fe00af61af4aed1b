package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the two known types.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// TransactionSource records how a transaction entered the store.
type TransactionSource string

const (
	SourceManual TransactionSource = "manual"
	SourceImport TransactionSource = "import"
)

// DateLayout is the calendar-date wire format used everywhere (no time part).
const DateLayout = "2006-01-02"

type Transaction struct {
	ID          uuid.UUID         `db:"id"`
	UserID      uuid.UUID         `db:"user_id"`
	Type        TransactionType   `db:"type"`
	Category    string            `db:"category"`
	Amount      decimal.Decimal   `db:"amount"`
	Currency    string            `db:"currency"`
	Description string            `db:"description"`
	Bank        string            `db:"bank"`
	Source      TransactionSource `db:"source"`
	Date        time.Time         `db:"date"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
}

// TransactionFilter narrows owner-scoped transaction queries. Nil fields are ignored.
type TransactionFilter struct {
	Type     *TransactionType
	Category *string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}
