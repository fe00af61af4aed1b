package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func busyStats() *fakeStats {
	return &fakeStats{
		totals: repository.Totals{Income: d(10_000_000), Expense: d(7_500_000), IncomeCount: 2, ExpenseCount: 40},
		categories: []repository.CategoryTotal{
			{Category: "Housing", Amount: d(4_500_000), Count: 3},
			{Category: "Food & Dining", Amount: d(3_000_000), Count: 37},
		},
		monthly: []repository.MonthTotal{{Month: "2024-02", Amount: d(5_000_000)}, {Month: "2024-03", Amount: d(5_000_000)}},
	}
}

func newTestAnalysis(client *fakeStats, providers ...*scriptedProvider) *AnalysisService {
	llmClient := newLLM()
	if len(providers) > 0 {
		llmClient = newLLM(providers[0])
	}
	svc := NewAnalysisService(llmClient, client, 90, "VND", zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 3, 31, 15, 0, 0, 0, time.UTC) }
	return svc
}

func TestAnalyze_AIMode(t *testing.T) {
	p := &scriptedProvider{content: "You saved a quarter of your income.\n\n1. Review your rent.\n2. Cook at home\n   more often.\n"}
	svc := newTestAnalysis(busyStats(), p)

	res, err := svc.Analyze(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, AnalysisModeAI, res.AnalysisMode)
	assert.Equal(t, "You saved a quarter of your income.", res.Summary)
	assert.Equal(t, []string{"Review your rent.", "Cook at home more often."}, res.Recommendations)

	assert.True(t, res.Stats.Balance.Equal(d(2_500_000)))
	assert.Equal(t, 25.0, res.Stats.SavingsRate)
	require.Len(t, res.TopExpenseCategories, 2)
	assert.Equal(t, 60.0, res.TopExpenseCategories[0].Share)
	require.NotNil(t, res.IncomeStability)
	assert.Equal(t, StabilityStable, *res.IncomeStability)

	assert.Equal(t, "2024-01-02", res.Period.From)
	assert.Equal(t, "2024-03-31", res.Period.To)

	req := p.lastRequest()
	assert.Equal(t, 0.7, req.Temperature)
	assert.Contains(t, req.Messages[1].Content, "Food & Dining")
}

func TestAnalyze_BasicWhenBackendFails(t *testing.T) {
	p := &scriptedProvider{err: errors.New("dial tcp: i/o timeout")}
	svc := newTestAnalysis(busyStats(), p)

	res, err := svc.Analyze(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, AnalysisModeBasic, res.AnalysisMode)
	assert.Contains(t, res.Summary, "Housing")
	assert.NotEmpty(t, res.Recommendations)
	assert.Contains(t, res.Recommendations[len(res.Recommendations)-1], "Housing takes 60%")
}

func TestAnalyze_NoTransactions(t *testing.T) {
	p := &scriptedProvider{content: "should not be asked"}
	svc := newTestAnalysis(&fakeStats{}, p)

	res, err := svc.Analyze(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, AnalysisModeBasic, res.AnalysisMode)
	assert.Contains(t, res.Summary, "No transactions")
	assert.Zero(t, res.Stats.SavingsRate)
	assert.Nil(t, res.IncomeStability)
	assert.Zero(t, p.calls())
}

func TestAnalyze_StoreFailure(t *testing.T) {
	svc := newTestAnalysis(&fakeStats{err: errors.New("db down")})

	_, err := svc.Analyze(context.Background(), uuid.New())
	var pe *PersistenceError
	assert.True(t, errors.As(err, &pe))
}

func TestIncomeStability(t *testing.T) {
	months := func(amounts ...int64) []repository.MonthTotal {
		out := make([]repository.MonthTotal, len(amounts))
		for i, a := range amounts {
			out[i] = repository.MonthTotal{Amount: d(a)}
		}
		return out
	}

	tests := []struct {
		name    string
		amounts []int64
		want    string
	}{
		{"equal months", []int64{10, 10, 10}, StabilityStable},
		{"cv 0.17", []int64{10, 14}, StabilityModerate},
		{"cv 0.5", []int64{5, 15}, StabilityVolatile},
		{"zero months ignored", []int64{10, 0, 10}, StabilityStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := incomeStability(months(tt.amounts...))
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}

	assert.Nil(t, incomeStability(months(10)))
	assert.Nil(t, incomeStability(months(10, 0)))
}

func TestSplitRecommendations_PlainText(t *testing.T) {
	summary, recs := splitRecommendations("Everything looks fine.")
	assert.Equal(t, "Everything looks fine.", summary)
	assert.Empty(t, recs)

	summary, recs = splitRecommendations("- first\n- second")
	assert.Equal(t, "- first\n- second", summary)
	assert.Equal(t, []string{"first", "second"}, recs)
}
