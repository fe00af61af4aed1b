package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/models"
	"fintrack/pkg/llm"
	"fintrack/pkg/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	ClassifyModeAI       = "ai"
	ClassifyModeFallback = "fallback"

	promptTextRunes = 120

	// classifyChunkRows keeps each reply well inside the 4000 token limit.
	classifyChunkRows = 80
)

type ClassificationSummary struct {
	Total        int             `json:"total"`
	Income       decimal.Decimal `json:"income"`
	Expense      decimal.Decimal `json:"expense"`
	IncomeCount  int             `json:"incomeCount"`
	ExpenseCount int             `json:"expenseCount"`
}

type ClassificationResult struct {
	Transactions []models.ClassifiedTransaction `json:"transactions"`
	Summary      ClassificationSummary          `json:"summary"`
	Mode         string                         `json:"mode"`
}

type classification struct {
	Index    int    `json:"index"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

type classificationAnswer struct {
	Mode            string           `json:"mode"`
	Classifications []classification `json:"classifications"`
	Transactions    []classification `json:"transactions"`
}

// Classifier assigns type and category to parsed statement rows. The type
// always follows the debit/credit sign whatever the model says, and the
// category is always a member of that type's taxonomy.
type Classifier struct {
	llm    *llm.Client
	logger *zap.Logger
}

func NewClassifier(client *llm.Client, logger *zap.Logger) *Classifier {
	return &Classifier{llm: client, logger: logger}
}

func (c *Classifier) Classify(ctx context.Context, txs []models.ParsedTransaction) (*ClassificationResult, error) {
	if len(txs) == 0 {
		return nil, &ValidationError{Message: "transactions are required"}
	}
	if err := checkRows(txs); err != nil {
		return nil, err
	}

	answers, err := c.askChunked(ctx, txs)
	if err != nil {
		var upstream *UpstreamServiceError
		if errors.As(err, &upstream) {
			metrics.ImportStage.WithLabelValues("classify", "error").Inc()
			return nil, err
		}
		c.logger.Warn("Classification falling back to debit/credit rules", zap.Error(err), zap.Int("count", len(txs)))
		metrics.ImportStage.WithLabelValues("classify", "fallback").Inc()
		return buildResult(txs, nil, ClassifyModeFallback, c.logger), nil
	}

	metrics.ImportStage.WithLabelValues("classify", "ok").Inc()
	return buildResult(txs, answers, ClassifyModeAI, c.logger), nil
}

// askChunked sends txs classifyChunkRows at a time and rebases each chunk's
// indexes onto txs. The first failing chunk fails the whole call.
func (c *Classifier) askChunked(ctx context.Context, txs []models.ParsedTransaction) (map[int]classification, error) {
	all := make(map[int]classification, len(txs))
	for start := 0; start < len(txs); start += classifyChunkRows {
		end := min(start+classifyChunkRows, len(txs))
		answers, err := c.ask(ctx, txs[start:end])
		if err != nil {
			if start > 0 {
				err = fmt.Errorf("rows %d-%d: %w", start, end-1, err)
			}
			return nil, err
		}
		for i, a := range answers {
			if i >= 0 && i < end-start {
				all[start+i] = a
			}
		}
	}
	return all, nil
}

var errFallbackRequested = errors.New("model requested fallback mode")

// ask returns per-index answers. Any error other than UpstreamServiceError
// means the caller should use the deterministic fallback.
func (c *Classifier) ask(ctx context.Context, txs []models.ParsedTransaction) (map[int]classification, error) {
	if !c.llm.Configured() {
		return nil, llm.ErrNoProvider
	}

	resp, err := c.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: classifierSystemPrompt()},
			{Role: llm.RoleUser, Content: renderTransactions(txs)},
		},
		Temperature: 0.1,
		MaxTokens:   4000,
	}, llm.WithoutFallback())
	if err != nil {
		var se *llm.StatusError
		if errors.As(err, &se) {
			c.logger.Error("Classification backend rejected request",
				zap.String("provider", se.Provider),
				zap.Int("status", se.StatusCode),
			)
			return nil, newUpstreamError("classification", se.StatusCode, se.Body)
		}
		return nil, err
	}

	return decodeClassifications(resp.Content)
}

func decodeClassifications(content string) (map[int]classification, error) {
	var items []classification
	if strings.HasPrefix(llm.ExtractJSON(content), "[") {
		if err := llm.DecodeJSON(content, &items); err != nil {
			return nil, err
		}
	} else {
		var answer classificationAnswer
		if err := llm.DecodeJSON(content, &answer); err != nil {
			return nil, err
		}
		if strings.EqualFold(answer.Mode, ClassifyModeFallback) {
			return nil, errFallbackRequested
		}
		items = answer.Classifications
		if len(items) == 0 {
			items = answer.Transactions
		}
	}

	out := make(map[int]classification, len(items))
	for _, it := range items {
		if _, dup := out[it.Index]; !dup {
			out[it.Index] = it
		}
	}
	return out, nil
}

// buildResult merges answers into txs. A nil map yields the fallback for
// every row.
func buildResult(txs []models.ParsedTransaction, answers map[int]classification, mode string, logger *zap.Logger) *ClassificationResult {
	result := &ClassificationResult{
		Transactions: make([]models.ClassifiedTransaction, len(txs)),
		Mode:         mode,
	}

	for i, tx := range txs {
		txType := tx.SignType()
		out := models.ClassifiedTransaction{
			ParsedTransaction: tx,
			Type:              txType,
			Category:          models.FallbackCategory,
			Amount:            tx.MovedAmount(),
			IsValid:           true,
		}

		if a, ok := answers[i]; ok {
			if suggested := models.TransactionType(strings.ToLower(strings.TrimSpace(a.Type))); suggested.Valid() {
				out.SuggestedType = suggested
			}
			category, coerced := models.CoerceCategory(txType, a.Category)
			if coerced && a.Category != "" {
				metrics.CategoryCoercions.WithLabelValues(string(txType)).Inc()
				logger.Warn("Category outside taxonomy coerced to fallback",
					zap.Int("index", i),
					zap.String("type", string(txType)),
					zap.String("category", a.Category),
				)
			}
			out.Category = category
		}

		result.Transactions[i] = out
		addToSummary(&result.Summary, out)
	}
	return result
}

func addToSummary(s *ClassificationSummary, tx models.ClassifiedTransaction) {
	s.Total++
	if tx.Type == models.TransactionTypeIncome {
		s.Income = s.Income.Add(tx.Amount)
		s.IncomeCount++
		return
	}
	s.Expense = s.Expense.Add(tx.Amount)
	s.ExpenseCount++
}

func checkRows(txs []models.ParsedTransaction) error {
	var diag []string
	for i, tx := range txs {
		if err := tx.CheckExclusive(); err != nil {
			diag = append(diag, fmt.Sprintf("index %d: %s", i, err))
		}
	}
	if len(diag) > 0 {
		return &DataQualityError{Message: "transactions violate the debit/credit rules", Diagnostics: diag}
	}
	return nil
}

func classifierSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You classify bank statement transactions.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- debit > 0 means type \"expense\"; credit > 0 means type \"income\". Never contradict this.\n")
	b.WriteString("- category must be exactly one of the labels listed for the type.\n")
	b.WriteString("Expense categories: ")
	b.WriteString(strings.Join(models.Categories(models.TransactionTypeExpense), ", "))
	b.WriteString("\nIncome categories: ")
	b.WriteString(strings.Join(models.Categories(models.TransactionTypeIncome), ", "))
	b.WriteString("\nEach input line is: index | date | debit | credit | text.\n")
	b.WriteString(`Answer with JSON only: {"classifications": [{"index": 0, "type": "expense", "category": "Food & Dining"}]}`)
	return b.String()
}

func renderTransactions(txs []models.ParsedTransaction) string {
	var b strings.Builder
	for i, tx := range txs {
		text := strings.TrimSpace(strings.Join(nonEmpty(tx.Sender, tx.Description), " - "))
		text = strings.ReplaceAll(truncateRunes(text, promptTextRunes), "\n", " ")
		fmt.Fprintf(&b, "%d | %s | %s | %s | %s\n", i, tx.Date, tx.Debit.String(), tx.Credit.String(), cleanText(text))
	}
	return b.String()
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
