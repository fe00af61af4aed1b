package service

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/internal/repository"
	"fintrack/pkg/llm"
	"fintrack/pkg/moneyfmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	AnalysisModeAI    = "ai"
	AnalysisModeBasic = "basic"

	StabilityStable   = "stable"
	StabilityModerate = "moderate"
	StabilityVolatile = "volatile"

	topCategoryLimit = 5
)

var listItemPattern = regexp.MustCompile(`^(\d+[\.\)]|[-*•])\s+`)

// TransactionStats is the aggregate read side of the transaction store.
type TransactionStats interface {
	Totals(ctx context.Context, userID uuid.UUID, from, to time.Time) (*repository.Totals, error)
	CategoryTotals(ctx context.Context, userID uuid.UUID, txType models.TransactionType, from, to time.Time) ([]repository.CategoryTotal, error)
	MonthlyTotals(ctx context.Context, userID uuid.UUID, txType models.TransactionType, from, to time.Time) ([]repository.MonthTotal, error)
}

type AnalysisService struct {
	llm        *llm.Client
	stats      TransactionStats
	windowDays int
	currency   string
	now        func() time.Time
	logger     *zap.Logger
}

func NewAnalysisService(client *llm.Client, stats TransactionStats, windowDays int, currency string, logger *zap.Logger) *AnalysisService {
	if windowDays <= 0 {
		windowDays = 90
	}
	if currency == "" {
		currency = moneyfmt.DefaultCurrency
	}
	return &AnalysisService{
		llm:        client,
		stats:      stats,
		windowDays: windowDays,
		currency:   currency,
		now:        time.Now,
		logger:     logger,
	}
}

// Analyze summarizes the caller's recent activity. The summary comes from the
// inference backend when it answers and from fixed rules otherwise.
func (s *AnalysisService) Analyze(ctx context.Context, userID uuid.UUID) (*dto.AnalysisResponse, error) {
	from, to := window(s.now(), s.windowDays)

	totals, err := s.stats.Totals(ctx, userID, from, to)
	if err != nil {
		return nil, &PersistenceError{Op: "load totals", Err: err}
	}
	categories, err := s.stats.CategoryTotals(ctx, userID, models.TransactionTypeExpense, from, to)
	if err != nil {
		return nil, &PersistenceError{Op: "load category totals", Err: err}
	}
	monthly, err := s.stats.MonthlyTotals(ctx, userID, models.TransactionTypeIncome, from, to)
	if err != nil {
		return nil, &PersistenceError{Op: "load monthly totals", Err: err}
	}

	resp := &dto.AnalysisResponse{
		Stats:                buildStats(totals),
		TopExpenseCategories: topShares(categories, totals.Expense, topCategoryLimit),
		IncomeStability:      incomeStability(monthly),
		Period: dto.AnalysisPeriod{
			From: from.Format(models.DateLayout),
			To:   to.Format(models.DateLayout),
			Days: s.windowDays,
		},
	}

	if totals.IncomeCount+totals.ExpenseCount == 0 {
		resp.Summary = fmt.Sprintf("No transactions were recorded in the last %d days. Log your income and expenses or import a bank statement to get an analysis.", s.windowDays)
		resp.Recommendations = []string{"Start by importing your latest bank statement."}
		resp.AnalysisMode = AnalysisModeBasic
		return resp, nil
	}

	text, err := s.askModel(ctx, resp)
	if err != nil {
		s.logger.Warn("AI analysis unavailable, using rule-based summary",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		resp.Summary = s.basicSummary(resp)
		resp.Recommendations = basicRecommendations(resp)
		resp.AnalysisMode = AnalysisModeBasic
		return resp, nil
	}

	resp.Summary, resp.Recommendations = splitRecommendations(text)
	if len(resp.Recommendations) == 0 {
		resp.Recommendations = basicRecommendations(resp)
	}
	resp.AnalysisMode = AnalysisModeAI
	return resp, nil
}

func (s *AnalysisService) askModel(ctx context.Context, a *dto.AnalysisResponse) (string, error) {
	if !s.llm.Configured() {
		return "", llm.ErrNoProvider
	}
	out, err := s.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: analysisSystemPrompt},
			{Role: llm.RoleUser, Content: s.renderStats(a)},
		},
		Temperature: 0.7,
		MaxTokens:   1500,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(cleanText(out.Content))
	if text == "" {
		return "", llm.ErrMalformedResponse
	}
	return text, nil
}

const analysisSystemPrompt = `You are a personal finance advisor. You receive aggregated statistics of one user's income and expenses.
Write a short summary of their financial situation (2-4 sentences), then a numbered list of 3 to 5 concrete recommendations.
Refer to the actual amounts and categories. Do not invent transactions. Plain text only, no tables.`

func (s *AnalysisService) renderStats(a *dto.AnalysisResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Period: %s to %s (%d days)\n", a.Period.From, a.Period.To, a.Period.Days)
	fmt.Fprintf(&b, "Income: %s\n", moneyfmt.Format(a.Stats.Income, s.currency))
	fmt.Fprintf(&b, "Expense: %s\n", moneyfmt.Format(a.Stats.Expense, s.currency))
	fmt.Fprintf(&b, "Balance: %s\n", moneyfmt.Format(a.Stats.Balance, s.currency))
	fmt.Fprintf(&b, "Savings rate: %.1f%%\n", a.Stats.SavingsRate)
	if a.IncomeStability != nil {
		fmt.Fprintf(&b, "Income stability: %s\n", *a.IncomeStability)
	}
	if len(a.TopExpenseCategories) > 0 {
		b.WriteString("Top expense categories:\n")
		for _, c := range a.TopExpenseCategories {
			fmt.Fprintf(&b, "- %s: %s (%.1f%%)\n", c.Category, moneyfmt.Format(c.Amount, s.currency), c.Share)
		}
	}
	return b.String()
}

func (s *AnalysisService) basicSummary(a *dto.AnalysisResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Over the last %d days you earned %s and spent %s, leaving %s (savings rate %.1f%%).",
		a.Period.Days,
		moneyfmt.Format(a.Stats.Income, s.currency),
		moneyfmt.Format(a.Stats.Expense, s.currency),
		moneyfmt.Format(a.Stats.Balance, s.currency),
		a.Stats.SavingsRate,
	)
	if len(a.TopExpenseCategories) > 0 {
		top := a.TopExpenseCategories[0]
		fmt.Fprintf(&b, " Your largest expense category is %s at %.1f%% of spending.", top.Category, top.Share)
	}
	return b.String()
}

func basicRecommendations(a *dto.AnalysisResponse) []string {
	var recs []string
	switch {
	case a.Stats.Balance.IsNegative():
		recs = append(recs, "Your spending exceeds your income. Review recurring expenses and cut the ones you can live without.")
	case a.Stats.SavingsRate < 20:
		recs = append(recs, "Try to set aside at least 20% of your income as savings.")
	default:
		recs = append(recs, "You are saving a healthy share of your income. Consider a savings goal to put it to work.")
	}
	if len(a.TopExpenseCategories) > 0 && a.TopExpenseCategories[0].Share > 40 {
		top := a.TopExpenseCategories[0]
		recs = append(recs, fmt.Sprintf("%s takes %.0f%% of your spending. Set a monthly budget for it.", top.Category, top.Share))
	}
	if a.IncomeStability != nil && *a.IncomeStability == StabilityVolatile {
		recs = append(recs, "Your income varies a lot between months. Keep an emergency fund of three to six months of expenses.")
	}
	return recs
}

// splitRecommendations separates the leading prose from list items. Item
// text continues across lines until the next marker.
func splitRecommendations(text string) (string, []string) {
	var (
		summary []string
		recs    []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			recs = append(recs, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if listItemPattern.MatchString(line) {
			flush()
			current.WriteString(listItemPattern.ReplaceAllString(line, ""))
			continue
		}
		if current.Len() > 0 {
			current.WriteString(" ")
			current.WriteString(line)
			continue
		}
		summary = append(summary, line)
	}
	flush()

	if len(summary) == 0 {
		return text, recs
	}
	return strings.Join(summary, " "), recs
}

func buildStats(t *repository.Totals) dto.AnalysisStats {
	balance := t.Income.Sub(t.Expense)
	stats := dto.AnalysisStats{Income: t.Income, Expense: t.Expense, Balance: balance}
	if t.Income.IsPositive() {
		stats.SavingsRate = percent(balance, t.Income)
	}
	return stats
}

func topShares(categories []repository.CategoryTotal, total decimal.Decimal, limit int) []dto.CategoryShare {
	shares := make([]dto.CategoryShare, 0, limit)
	for _, c := range categories {
		if len(shares) == limit {
			break
		}
		share := 0.0
		if total.IsPositive() {
			share = percent(c.Amount, total)
		}
		shares = append(shares, dto.CategoryShare{Category: c.Category, Amount: c.Amount, Share: share})
	}
	return shares
}

// incomeStability grades the coefficient of variation of monthly income.
// Fewer than two months with income gives no grade.
func incomeStability(months []repository.MonthTotal) *string {
	values := make([]float64, 0, len(months))
	for _, m := range months {
		if m.Amount.IsPositive() {
			values = append(values, m.Amount.InexactFloat64())
		}
	}
	if len(values) < 2 {
		return nil
	}

	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	cv := math.Sqrt(variance/float64(len(values))) / mean

	grade := StabilityVolatile
	switch {
	case cv < 0.15:
		grade = StabilityStable
	case cv < 0.35:
		grade = StabilityModerate
	}
	return &grade
}

func percent(part, whole decimal.Decimal) float64 {
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}

// window returns the inclusive date range of the last days days ending today.
func window(now time.Time, days int) (time.Time, time.Time) {
	y, m, d := now.Date()
	to := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return to.AddDate(0, 0, -(days - 1)), to
}
