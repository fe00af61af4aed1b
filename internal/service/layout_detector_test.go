package service

import (
	"context"
	"errors"
	"testing"

	"fintrack/pkg/llm"
	"fintrack/pkg/spreadsheet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func s(v string) spreadsheet.Cell  { return spreadsheet.StringCell(v) }
func n(v float64) spreadsheet.Cell { return spreadsheet.NumberCell(v) }

var empty = spreadsheet.EmptyCell()

func statementGrid() spreadsheet.Grid {
	return spreadsheet.Grid{
		{s("ACME BANK STATEMENT"), empty, empty, empty, empty},
		{s("Account: 0123456789"), empty, empty, empty, empty},
		{s("Date"), s("Description"), s("Debit"), s("Credit"), s("Balance")},
		{s("10/03/2024"), s("ATM WITHDRAWAL"), n(150000), empty, n(4850000)},
		{n(45362), s("SALARY"), empty, s("5,000,000"), s("9,850,000")},
		{s("12/03/2024"), s("BROKEN ROW"), s("10"), s("20"), empty},
		{s("Total"), empty, n(150000), n(5000000), empty},
	}
}

const layoutAnswerJSON = "```json\n" + `{"headerRow": 2, "columnMapping": {"date": 0, "sender": null, "bank": null, "description": 1, "debit": 2, "credit": 3, "balance": 4}, "dateFormat": "DD/MM/YYYY"}` + "\n```"

func TestLayoutDetector_AppliesModelMapping(t *testing.T) {
	p := &scriptedProvider{content: layoutAnswerJSON}
	d := NewLayoutDetector(newLLM(p), 40, true, zap.NewNop())

	res, err := d.Detect(context.Background(), statementGrid())
	require.NoError(t, err)

	assert.Equal(t, LayoutModeAI, res.Mode)
	assert.Equal(t, 2, res.HeaderRow)
	assert.Equal(t, 7, res.TotalRows)
	assert.Equal(t, 7, res.SampledRows)

	require.Len(t, res.Transactions, 2)
	atm := res.Transactions[0]
	assert.Equal(t, "2024-03-10", atm.Date)
	assert.Equal(t, "ATM WITHDRAWAL", atm.Description)
	assert.Equal(t, "150000", atm.Debit.String())
	assert.True(t, atm.Credit.IsZero())
	require.NotNil(t, atm.Balance)

	salary := res.Transactions[1]
	assert.Equal(t, "2024-03-11", salary.Date)
	assert.Equal(t, "5000000", salary.Credit.String())

	require.Len(t, res.Rejected, 2)
	assert.Equal(t, 5, res.Rejected[0].Row)
	assert.Contains(t, res.Rejected[0].Reason, "both debit and credit")
	assert.Equal(t, 6, res.Rejected[1].Row)

	req := p.lastRequest()
	assert.Equal(t, 0.1, req.Temperature)
	assert.Contains(t, req.Messages[1].Content, `2: ["Date","Description","Debit","Credit","Balance"]`)
}

func TestLayoutDetector_SignedAmountColumn(t *testing.T) {
	grid := spreadsheet.Grid{
		{s("Posted"), s("Details"), s("Amount")},
		{s("2024-03-01"), s("Coffee"), s("-45.000")},
		{s("2024-03-02"), s("Refund"), n(12000)},
	}
	p := &scriptedProvider{content: `{"headerRow":0,"columnMapping":{"date":0,"description":1,"debit":2,"credit":2}}`}
	d := NewLayoutDetector(newLLM(p), 40, true, zap.NewNop())

	res, err := d.Detect(context.Background(), grid)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, "45000", res.Transactions[0].Debit.String())
	assert.True(t, res.Transactions[0].Credit.IsZero())
	assert.Equal(t, "12000", res.Transactions[1].Credit.String())
}

func TestLayoutDetector_SamplesOnlyLeadingRows(t *testing.T) {
	grid := spreadsheet.Grid{{s("Date"), s("Description"), s("Debit")}}
	for i := 0; i < 100; i++ {
		grid = append(grid, []spreadsheet.Cell{s("2024-03-01"), s("row"), n(1000)})
	}
	p := &scriptedProvider{content: `{"headerRow":0,"columnMapping":{"date":0,"description":1,"debit":2}}`}
	d := NewLayoutDetector(newLLM(p), 30, true, zap.NewNop())

	res, err := d.Detect(context.Background(), grid)
	require.NoError(t, err)
	assert.Equal(t, 30, res.SampledRows)
	assert.Len(t, res.Transactions, 100)
	assert.NotContains(t, p.lastRequest().Messages[1].Content, "\n30: ")
}

func TestLayoutDetector_InsufficientRows(t *testing.T) {
	d := NewLayoutDetector(newLLM(&scriptedProvider{}), 40, true, zap.NewNop())
	_, err := d.Detect(context.Background(), spreadsheet.Grid{{s("Date")}})

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "file has insufficient rows", ve.Message)
}

func TestLayoutDetector_MalformedResponse(t *testing.T) {
	d := NewLayoutDetector(newLLM(&scriptedProvider{content: "I could not find a table, sorry."}), 40, true, zap.NewNop())
	_, err := d.Detect(context.Background(), statementGrid())

	var dq *DataQualityError
	require.True(t, errors.As(err, &dq))
	assert.Equal(t, "statement format not recognized", dq.Message)
}

func TestLayoutDetector_EmptyResult(t *testing.T) {
	p := &scriptedProvider{content: `{"headerRow":0,"columnMapping":{"date":4,"description":1,"debit":2,"credit":3}}`}
	d := NewLayoutDetector(newLLM(p), 40, true, zap.NewNop())

	_, err := d.Detect(context.Background(), statementGrid())
	var dq *DataQualityError
	require.True(t, errors.As(err, &dq))
	assert.Equal(t, "statement format not recognized", dq.Message)
	assert.NotEmpty(t, dq.Diagnostics)
}

func TestLayoutDetector_IncompleteMapping(t *testing.T) {
	p := &scriptedProvider{content: `{"headerRow":2,"columnMapping":{"date":0,"description":null,"debit":2}}`}
	d := NewLayoutDetector(newLLM(p), 40, true, zap.NewNop())

	_, err := d.Detect(context.Background(), statementGrid())
	var dq *DataQualityError
	require.True(t, errors.As(err, &dq))
	assert.Contains(t, dq.Error(), "description")
}

func TestLayoutDetector_UpstreamStatus(t *testing.T) {
	p := &scriptedProvider{err: &llm.StatusError{Provider: "x", StatusCode: 402, Body: "Insufficient Balance"}}
	d := NewLayoutDetector(newLLM(p), 40, true, zap.NewNop())

	_, err := d.Detect(context.Background(), statementGrid())
	var up *UpstreamServiceError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, 402, up.StatusCode)
	assert.Contains(t, up.Suggestion, "Top up")
}

func TestLayoutDetector_HeuristicWhenBackendUnavailable(t *testing.T) {
	d := NewLayoutDetector(newLLM(), 40, true, zap.NewNop())

	res, err := d.Detect(context.Background(), statementGrid())
	require.NoError(t, err)
	assert.Equal(t, LayoutModeHeuristic, res.Mode)
	assert.Equal(t, 2, res.HeaderRow)
	assert.Len(t, res.Transactions, 2)
}

func TestHeuristicLayout_VietnameseHeaders(t *testing.T) {
	grid := spreadsheet.Grid{
		{s("Ngày giao dịch"), s("Người chuyển"), s("Nội dung"), s("Số tiền ghi nợ"), s("Số tiền ghi có"), s("Số dư")},
		{s("01/03/2024"), s("NGUYEN VAN A"), s("Chuyen tien"), empty, s("2.000.000"), s("12.000.000")},
	}
	answer, ok := heuristicLayout(grid)
	require.True(t, ok)
	m := answer.ColumnMapping
	assert.Equal(t, 0, *m.Date)
	assert.Equal(t, 1, *m.Sender)
	assert.Equal(t, 2, *m.Description)
	assert.Equal(t, 3, *m.Debit)
	assert.Equal(t, 4, *m.Credit)
	assert.Equal(t, 5, *m.Balance)
}

func TestHeuristicLayout_MatchesWholeHeaderWords(t *testing.T) {
	grid := spreadsheet.Grid{
		{s("Updated"), s("Posting Date"), s("Sender Bank"), s("Sender Name"), s("Details"), s("Amount")},
		{s("x"), s("01/03/2024"), s("VCB"), s("NGUYEN VAN A"), s("Chuyen tien"), s("-150,000")},
	}
	answer, ok := heuristicLayout(grid)
	require.True(t, ok)
	m := answer.ColumnMapping
	assert.Equal(t, 1, *m.Date)
	assert.Equal(t, 2, *m.Bank)
	assert.Equal(t, 3, *m.Sender)
	assert.Equal(t, 4, *m.Description)
	assert.Equal(t, 5, *m.Debit)
	assert.Equal(t, 5, *m.Credit)
}

func TestContainsWord(t *testing.T) {
	assert.True(t, containsWord("transaction date", "date"))
	assert.True(t, containsWord("date/time", "date"))
	assert.True(t, containsWord("ngày giao dịch", "ngày"))
	assert.False(t, containsWord("updated", "date"))
	assert.False(t, containsWord("debited amount", "debit"))
	assert.False(t, containsWord("", "date"))
}
