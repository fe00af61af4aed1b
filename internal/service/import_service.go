package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/models"
	"fintrack/pkg/metrics"
	"fintrack/pkg/spreadsheet"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransactionWriter is the batch insert used by the importer.
type TransactionWriter interface {
	CreateBatch(ctx context.Context, transactions []*models.Transaction) (int64, error)
}

type ImportOptions struct {
	MaxBatchSize int
	MaxFileBytes int
	Currency     string
}

// ImportService runs the statement pipeline: read, detect, classify and
// import. The caller confirms the classified preview before BulkImport.
type ImportService struct {
	detector   *LayoutDetector
	classifier *Classifier
	store      TransactionWriter
	opts       ImportOptions
	now        func() time.Time
	logger     *zap.Logger
}

func NewImportService(detector *LayoutDetector, classifier *Classifier, store TransactionWriter, opts ImportOptions, logger *zap.Logger) *ImportService {
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = 1000
	}
	if opts.Currency == "" {
		opts.Currency = "VND"
	}
	return &ImportService{
		detector:   detector,
		classifier: classifier,
		store:      store,
		opts:       opts,
		now:        time.Now,
		logger:     logger,
	}
}

// Upload reads a spreadsheet file and detects its layout.
func (s *ImportService) Upload(ctx context.Context, fileName string, data []byte) (*LayoutResult, error) {
	if len(data) == 0 {
		return nil, &ValidationError{Message: "file is empty"}
	}
	if s.opts.MaxFileBytes > 0 && len(data) > s.opts.MaxFileBytes {
		return nil, validationf("file exceeds %d MB", s.opts.MaxFileBytes/(1024*1024))
	}

	grid, err := spreadsheet.Read(fileName, data)
	if err != nil {
		metrics.ImportStage.WithLabelValues("read", "error").Inc()
		s.logger.Warn("Failed to read statement", zap.String("file", fileName), zap.Error(err))
		return nil, &ValidationError{Message: err.Error()}
	}
	metrics.ImportStage.WithLabelValues("read", "ok").Inc()

	return s.detector.Detect(ctx, grid)
}

// Parse detects the layout of a grid the client already extracted.
func (s *ImportService) Parse(ctx context.Context, grid spreadsheet.Grid) (*LayoutResult, error) {
	return s.detector.Detect(ctx, grid)
}

// Classify labels a preview. Previews over MaxBatchSize are rejected before
// the model is called since they could not be imported in one batch either.
func (s *ImportService) Classify(ctx context.Context, txs []models.ParsedTransaction) (*ClassificationResult, error) {
	if len(txs) > s.opts.MaxBatchSize {
		return nil, validationf("at most %d transactions can be classified at once", s.opts.MaxBatchSize)
	}
	return s.classifier.Classify(ctx, txs)
}

// BulkImport stores the confirmed rows under userID in one batch insert and
// returns the number of rows written.
func (s *ImportService) BulkImport(ctx context.Context, userID uuid.UUID, items []models.ClassifiedTransaction) (int64, error) {
	if len(items) == 0 {
		return 0, &ValidationError{Message: "transactions are required"}
	}
	if len(items) > s.opts.MaxBatchSize {
		return 0, validationf("at most %d transactions can be imported at once", s.opts.MaxBatchSize)
	}

	now := s.now()
	records := make([]*models.Transaction, 0, len(items))
	for i, item := range items {
		rec, err := s.toRecord(userID, item, now)
		if err != nil {
			return 0, prefixIndex(i, err)
		}
		records = append(records, rec)
	}

	n, err := s.store.CreateBatch(ctx, records)
	if err != nil {
		metrics.ImportStage.WithLabelValues("import", "error").Inc()
		s.logger.Error("Bulk import failed", zap.String("user_id", userID.String()), zap.Int("count", len(records)), zap.Error(err))
		return 0, &PersistenceError{Op: "bulk import", Err: err}
	}

	metrics.ImportStage.WithLabelValues("import", "ok").Inc()
	metrics.ImportedTransactions.Add(float64(n))
	s.logger.Info("Transactions imported", zap.String("user_id", userID.String()), zap.Int64("imported", n))
	return n, nil
}

func (s *ImportService) toRecord(userID uuid.UUID, item models.ClassifiedTransaction, now time.Time) (*models.Transaction, error) {
	date, err := parseISODate(item.Date)
	if err != nil {
		return nil, validationf("invalid date %q", item.Date)
	}

	txType, amount := item.Type, item.Amount
	switch err := item.CheckExclusive(); {
	case err == nil:
		txType, amount = item.SignType(), item.MovedAmount()
	case errors.Is(err, models.ErrNoMovement):
		// edited rows may carry only type and amount
		if !txType.Valid() {
			return nil, validationf("invalid type %q", item.Type)
		}
		if !amount.IsPositive() {
			return nil, &ValidationError{Message: "amount must be positive"}
		}
	default:
		return nil, &DataQualityError{Message: "transaction violates the debit/credit rules", Diagnostics: []string{err.Error()}}
	}

	category, coerced := models.CoerceCategory(txType, item.Category)
	if coerced && item.Category != "" {
		metrics.CategoryCoercions.WithLabelValues(string(txType)).Inc()
		s.logger.Warn("Imported category coerced to fallback", zap.String("category", item.Category))
	}

	description := cleanText(strings.TrimSpace(item.Description))
	if sender := cleanText(strings.TrimSpace(item.Sender)); sender != "" {
		description = sender + " - " + description
	}

	return &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        txType,
		Category:    category,
		Amount:      amount,
		Currency:    s.opts.Currency,
		Description: description,
		Bank:        cleanText(strings.TrimSpace(item.Bank)),
		Source:      models.SourceImport,
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func prefixIndex(i int, err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return validationf("transaction %d: %s", i, ve.Message)
	}
	var dq *DataQualityError
	if errors.As(err, &dq) {
		return &DataQualityError{Message: fmt.Sprintf("transaction %d: %s", i, dq.Message), Diagnostics: dq.Diagnostics}
	}
	return err
}
