package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/internal/repository"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxExportRows    = 10000
)

type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, userID uuid.UUID, filter models.TransactionFilter) ([]*models.Transaction, error)
	Update(ctx context.Context, tx *models.Transaction) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type TransactionService struct {
	repo     TransactionStore
	currency string
	now      func() time.Time
	logger   *zap.Logger
}

func NewTransactionService(repo TransactionStore, currency string, logger *zap.Logger) *TransactionService {
	if currency == "" {
		currency = "VND"
	}
	return &TransactionService{repo: repo, currency: currency, now: time.Now, logger: logger}
}

func (s *TransactionService) Create(ctx context.Context, userID uuid.UUID, req *dto.TransactionRequest) (*dto.TransactionResponse, error) {
	tx, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	tx.ID = uuid.New()
	tx.UserID = userID
	tx.Source = models.SourceManual
	tx.CreatedAt = now
	tx.UpdatedAt = now

	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, &PersistenceError{Op: "create transaction", Err: err}
	}
	resp := toTransactionResponse(tx)
	return &resp, nil
}

func (s *TransactionService) List(ctx context.Context, userID uuid.UUID, filter models.TransactionFilter) (*dto.TransactionListResponse, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	txs, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, &PersistenceError{Op: "list transactions", Err: err}
	}

	items := make([]dto.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		items = append(items, toTransactionResponse(tx))
	}
	return &dto.TransactionListResponse{
		Transactions: items,
		Count:        len(items),
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	}, nil
}

// Update replaces the editable fields of an owned transaction. Another
// owner's id reads as not found.
func (s *TransactionService) Update(ctx context.Context, userID, id uuid.UUID, req *dto.TransactionRequest) (*dto.TransactionResponse, error) {
	existing, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, mapStoreErr("load transaction", err)
	}

	patch, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	existing.Type = patch.Type
	existing.Category = patch.Category
	existing.Amount = patch.Amount
	existing.Description = patch.Description
	existing.Bank = patch.Bank
	existing.Date = patch.Date
	existing.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, mapStoreErr("update transaction", err)
	}
	resp := toTransactionResponse(existing)
	return &resp, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return mapStoreErr("delete transaction", err)
	}
	return nil
}

// ExportCSV renders the filtered transactions as CSV with a header row.
func (s *TransactionService) ExportCSV(ctx context.Context, userID uuid.UUID, filter models.TransactionFilter) ([]byte, error) {
	filter.Limit, filter.Offset = maxExportRows, 0
	txs, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, &PersistenceError{Op: "export transactions", Err: err}
	}

	rows := make([]*dto.TransactionCSVRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, &dto.TransactionCSVRow{
			Date:        tx.Date.Format(models.DateLayout),
			Type:        string(tx.Type),
			Category:    tx.Category,
			Amount:      tx.Amount.String(),
			Currency:    tx.Currency,
			Description: tx.Description,
			Bank:        tx.Bank,
			Source:      string(tx.Source),
		})
	}
	return gocsv.MarshalBytes(&rows)
}

func (s *TransactionService) Categories() dto.CategoriesResponse {
	return dto.CategoriesResponse{
		Income:  models.Categories(models.TransactionTypeIncome),
		Expense: models.Categories(models.TransactionTypeExpense),
	}
}

func (s *TransactionService) fromRequest(req *dto.TransactionRequest) (*models.Transaction, error) {
	txType := models.TransactionType(strings.ToLower(strings.TrimSpace(req.Type)))
	if !txType.Valid() {
		return nil, &ValidationError{Message: "type must be income or expense"}
	}
	category, ok := models.CanonicalCategory(txType, req.Category)
	if !ok {
		return nil, validationf("category %q is not a valid %s category", req.Category, txType)
	}
	if !req.Amount.IsPositive() {
		return nil, &ValidationError{Message: "amount must be positive"}
	}
	date, err := parseISODate(req.Date)
	if err != nil {
		return nil, &ValidationError{Message: "date must be YYYY-MM-DD"}
	}

	return &models.Transaction{
		Type:        txType,
		Category:    category,
		Amount:      req.Amount,
		Currency:    s.currency,
		Description: cleanText(strings.TrimSpace(req.Description)),
		Bank:        cleanText(strings.TrimSpace(req.Bank)),
		Date:        date,
	}, nil
}

func toTransactionResponse(tx *models.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:          tx.ID.String(),
		Type:        string(tx.Type),
		Category:    tx.Category,
		Amount:      tx.Amount,
		Currency:    tx.Currency,
		Description: tx.Description,
		Bank:        tx.Bank,
		Source:      string(tx.Source),
		Date:        tx.Date.Format(models.DateLayout),
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
	}
}

// mapStoreErr turns a missing owned row into ErrNotFound and anything else
// into a PersistenceError.
func mapStoreErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return &PersistenceError{Op: op, Err: err}
}
