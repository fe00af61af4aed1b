package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"fintrack/internal/models"
	"fintrack/pkg/llm"
	"fintrack/pkg/metrics"
	"fintrack/pkg/spreadsheet"

	"go.uber.org/zap"
)

const (
	LayoutModeAI        = "ai"
	LayoutModeHeuristic = "heuristic"
)

// ColumnMapping holds the column index of each canonical field, nil when the
// statement has no such column.
type ColumnMapping struct {
	Date        *int `json:"date"`
	Sender      *int `json:"sender"`
	Bank        *int `json:"bank"`
	Description *int `json:"description"`
	Debit       *int `json:"debit"`
	Credit      *int `json:"credit"`
	Balance     *int `json:"balance"`
}

// signedAmount reports a single amount column where negatives are debits.
func (m ColumnMapping) signedAmount() bool {
	return m.Debit != nil && m.Credit != nil && *m.Debit == *m.Credit
}

func (m ColumnMapping) validate(width int) error {
	var missing []string
	if m.Date == nil {
		missing = append(missing, "date")
	}
	if m.Description == nil {
		missing = append(missing, "description")
	}
	if m.Debit == nil && m.Credit == nil {
		missing = append(missing, "debit or credit")
	}
	if len(missing) > 0 {
		return fmt.Errorf("column mapping is missing %s", strings.Join(missing, ", "))
	}

	for name, idx := range map[string]*int{
		"date": m.Date, "sender": m.Sender, "bank": m.Bank, "description": m.Description,
		"debit": m.Debit, "credit": m.Credit, "balance": m.Balance,
	} {
		if idx != nil && (*idx < 0 || *idx >= width) {
			return fmt.Errorf("column %s index %d is outside the sheet (width %d)", name, *idx, width)
		}
	}
	return nil
}

type RejectedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type LayoutResult struct {
	HeaderRow     int                        `json:"headerRow"`
	ColumnMapping ColumnMapping              `json:"columnMapping"`
	DateFormat    string                     `json:"dateFormat,omitempty"`
	Transactions  []models.ParsedTransaction `json:"transactions"`
	Rejected      []RejectedRow              `json:"rejected"`
	SampledRows   int                        `json:"sampledRows"`
	TotalRows     int                        `json:"totalRows"`
	Mode          string                     `json:"mode"`
}

type layoutAnswer struct {
	HeaderRow     *int          `json:"headerRow"`
	ColumnMapping ColumnMapping `json:"columnMapping"`
	DateFormat    string        `json:"dateFormat"`
}

// LayoutDetector infers the header row and column semantics of an unknown
// statement grid, then maps every row onto ParsedTransaction.
//
// Only the first sampleRows rows are shown to the model. Statements whose
// header sits below that cutoff are not recognised.
type LayoutDetector struct {
	llm        *llm.Client
	sampleRows int
	dayFirst   bool
	logger     *zap.Logger
}

func NewLayoutDetector(client *llm.Client, sampleRows int, dayFirst bool, logger *zap.Logger) *LayoutDetector {
	if sampleRows < spreadsheet.MinRows {
		sampleRows = 40
	}
	return &LayoutDetector{
		llm:        client,
		sampleRows: sampleRows,
		dayFirst:   dayFirst,
		logger:     logger,
	}
}

const layoutSystemPrompt = `You analyse bank statement spreadsheets. You receive the first rows of a sheet as JSON arrays, one row per line, prefixed with the zero-based row index.
Find the header row and the zero-based column index of each field:
- date: transaction or posting date
- sender: counterparty / remitter name
- bank: counterparty bank
- description: narrative / details / memo
- debit: money leaving the account (withdrawal)
- credit: money entering the account (deposit)
- balance: running balance
If the sheet has one signed amount column, use the same index for debit and credit.
Use null for fields that do not exist. date, description and at least one of debit/credit are required.
Also report the date format you see, using tokens DD, MM, YYYY (for example "DD/MM/YYYY"), or "" for spreadsheet serial numbers.
Answer with JSON only:
{"headerRow": 0, "columnMapping": {"date": 0, "sender": null, "bank": null, "description": 1, "debit": 2, "credit": 3, "balance": 4}, "dateFormat": "DD/MM/YYYY"}`

// Detect maps grid onto parsed transactions. Backend status failures become
// UpstreamServiceError; when no backend answers at all the keyword
// heuristic is used instead.
func (d *LayoutDetector) Detect(ctx context.Context, grid spreadsheet.Grid) (*LayoutResult, error) {
	if err := grid.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	sample := grid.Head(d.sampleRows)
	answer, mode, err := d.askModel(ctx, sample)
	if err != nil {
		metrics.ImportStage.WithLabelValues("detect", "error").Inc()
		return nil, err
	}

	result, err := d.apply(grid, answer, mode)
	if err != nil {
		metrics.ImportStage.WithLabelValues("detect", "rejected").Inc()
		return nil, err
	}
	result.SampledRows = len(sample)

	metrics.ImportStage.WithLabelValues("detect", "ok").Inc()
	d.logger.Info("Statement layout detected",
		zap.String("mode", mode),
		zap.Int("header_row", result.HeaderRow),
		zap.Int("transactions", len(result.Transactions)),
		zap.Int("rejected", len(result.Rejected)),
		zap.Int("total_rows", result.TotalRows),
	)
	return result, nil
}

// DetectHeuristic skips the model and relies on header keywords only.
func (d *LayoutDetector) DetectHeuristic(grid spreadsheet.Grid) (*LayoutResult, error) {
	if err := grid.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	sample := grid.Head(d.sampleRows)
	answer, ok := heuristicLayout(sample)
	if !ok {
		return nil, &DataQualityError{Message: "statement format not recognized", Diagnostics: []string{"no header row with date, description and amount columns"}}
	}
	result, err := d.apply(grid, answer, LayoutModeHeuristic)
	if err != nil {
		return nil, err
	}
	result.SampledRows = len(sample)
	return result, nil
}

func (d *LayoutDetector) askModel(ctx context.Context, sample spreadsheet.Grid) (*layoutAnswer, string, error) {
	prompt, err := renderSample(sample)
	if err != nil {
		return nil, "", err
	}

	resp, err := d.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: layoutSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   2000,
	})
	if err != nil {
		if status := llm.StatusCode(err); status > 0 {
			var se *llm.StatusError
			errors.As(err, &se)
			return nil, "", newUpstreamError("layout detection", status, se.Body)
		}
		d.logger.Warn("Layout detection backend unavailable, using header heuristics", zap.Error(err))
		answer, ok := heuristicLayout(sample)
		if !ok {
			return nil, "", &DataQualityError{
				Message:     "statement format not recognized",
				Diagnostics: []string{"AI layout detection is unavailable and no known header was found"},
			}
		}
		return answer, LayoutModeHeuristic, nil
	}

	var answer layoutAnswer
	if err := llm.DecodeJSON(resp.Content, &answer); err != nil {
		d.logger.Warn("Layout detection returned malformed output", zap.Error(err), zap.String("content", truncateRunes(resp.Content, 300)))
		return nil, "", &DataQualityError{
			Message:     "statement format not recognized",
			Diagnostics: []string{"the AI response could not be read"},
		}
	}
	return &answer, LayoutModeAI, nil
}

func renderSample(sample spreadsheet.Grid) (string, error) {
	var b strings.Builder
	b.WriteString("Rows:\n")
	for i, row := range sample {
		line, err := json.Marshal(row)
		if err != nil {
			return "", fmt.Errorf("failed to encode row %d: %w", i, err)
		}
		fmt.Fprintf(&b, "%d: %s\n", i, cleanText(string(line)))
	}
	return b.String(), nil
}

// apply maps every row below the header through the answer's mapping.
func (d *LayoutDetector) apply(grid spreadsheet.Grid, answer *layoutAnswer, mode string) (*LayoutResult, error) {
	headerRow := -1
	if answer.HeaderRow != nil {
		headerRow = *answer.HeaderRow
	}
	if headerRow < -1 || headerRow >= len(grid)-1 {
		return nil, &DataQualityError{
			Message:     "statement format not recognized",
			Diagnostics: []string{fmt.Sprintf("header row %d leaves no data rows", headerRow)},
		}
	}

	mapping := answer.ColumnMapping
	if err := mapping.validate(grid.Width()); err != nil {
		return nil, &DataQualityError{Message: "statement format not recognized", Diagnostics: []string{err.Error()}}
	}

	dates := newDateNormalizer(answer.DateFormat, d.dayFirst)
	result := &LayoutResult{
		HeaderRow:     headerRow,
		ColumnMapping: mapping,
		DateFormat:    answer.DateFormat,
		Transactions:  make([]models.ParsedTransaction, 0),
		Rejected:      make([]RejectedRow, 0),
		TotalRows:     len(grid),
		Mode:          mode,
	}

	for i := headerRow + 1; i < len(grid); i++ {
		if rowIsBlank(grid[i]) {
			continue
		}
		tx, err := mapRow(grid, i, mapping, dates)
		if err != nil {
			result.Rejected = append(result.Rejected, RejectedRow{Row: i, Reason: err.Error()})
			continue
		}
		result.Transactions = append(result.Transactions, tx)
	}

	if len(result.Transactions) == 0 {
		diag := make([]string, 0, 3)
		for _, r := range result.Rejected {
			if len(diag) == cap(diag) {
				break
			}
			diag = append(diag, fmt.Sprintf("row %d: %s", r.Row, r.Reason))
		}
		return nil, &DataQualityError{Message: "statement format not recognized", Diagnostics: diag}
	}
	return result, nil
}

func mapRow(grid spreadsheet.Grid, row int, m ColumnMapping, dates dateNormalizer) (models.ParsedTransaction, error) {
	cell := func(idx *int) spreadsheet.Cell {
		if idx == nil {
			return spreadsheet.EmptyCell()
		}
		return grid.At(row, *idx)
	}
	text := func(idx *int) string {
		return strings.TrimSpace(cleanText(cell(idx).String()))
	}

	date, err := dates.Normalize(cell(m.Date))
	if err != nil {
		return models.ParsedTransaction{}, err
	}

	tx := models.ParsedTransaction{
		Date:        date,
		Sender:      text(m.Sender),
		Bank:        text(m.Bank),
		Description: text(m.Description),
	}

	if m.signedAmount() {
		if v, ok := parseAmount(cell(m.Debit)); ok {
			if v.IsNegative() {
				tx.Debit = v.Abs()
			} else {
				tx.Credit = v
			}
		}
	} else {
		if v, ok := parseAmount(cell(m.Debit)); ok {
			tx.Debit = v.Abs()
		}
		if v, ok := parseAmount(cell(m.Credit)); ok {
			tx.Credit = v.Abs()
		}
	}
	if m.Balance != nil {
		if v, ok := parseAmount(cell(m.Balance)); ok {
			tx.Balance = &v
		}
	}

	if err := tx.CheckExclusive(); err != nil {
		return models.ParsedTransaction{}, err
	}
	return tx, nil
}

func rowIsBlank(row []spreadsheet.Cell) bool {
	for _, c := range row {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

var headerKeywords = map[string][]string{
	"date":        {"date", "datetime", "ngày", "ngay", "posting", "value dt", "fecha", "datum"},
	"sender":      {"sender", "remitter", "payer", "counterparty", "người chuyển", "đối tác", "tên đơn vị"},
	"bank":        {"bank", "ngân hàng"},
	"description": {"description", "details", "narrative", "memo", "particulars", "nội dung", "diễn giải", "remarks"},
	"debit":       {"debit", "debits", "withdrawal", "withdrawals", "ghi nợ", "số tiền ghi nợ", "paid out", "money out"},
	"credit":      {"credit", "credits", "deposit", "deposits", "ghi có", "số tiền ghi có", "paid in", "money in"},
	"amount":      {"amount", "số tiền", "so tien", "value"},
	"balance":     {"balance", "số dư", "so du"},
}

// heuristicLayout finds the first row whose cells name a date, a
// description and an amount column.
func heuristicLayout(sample spreadsheet.Grid) (*layoutAnswer, bool) {
	for r, row := range sample {
		found := map[string]int{}
		for c, cell := range row {
			if cell.Kind != spreadsheet.CellString {
				continue
			}
			h := strings.ToLower(strings.TrimSpace(cell.Str))
			// "Sender Bank" names the bank, so bank is tried before sender
			for _, field := range []string{"balance", "debit", "credit", "date", "bank", "sender", "description", "amount"} {
				if _, taken := found[field]; taken {
					continue
				}
				if containsAny(h, headerKeywords[field]) {
					found[field] = c
					break
				}
			}
		}

		_, hasDate := found["date"]
		_, hasDesc := found["description"]
		_, hasDebit := found["debit"]
		_, hasCredit := found["credit"]
		amountIdx, hasAmount := found["amount"]
		if !hasDate || !hasDesc || !(hasDebit || hasCredit || hasAmount) {
			continue
		}

		idx := func(field string) *int {
			if v, ok := found[field]; ok {
				return &v
			}
			return nil
		}
		header := r
		answer := &layoutAnswer{
			HeaderRow: &header,
			ColumnMapping: ColumnMapping{
				Date:        idx("date"),
				Sender:      idx("sender"),
				Bank:        idx("bank"),
				Description: idx("description"),
				Debit:       idx("debit"),
				Credit:      idx("credit"),
				Balance:     idx("balance"),
			},
		}
		if !hasDebit && !hasCredit {
			answer.ColumnMapping.Debit = &amountIdx
			answer.ColumnMapping.Credit = &amountIdx
		}
		return answer, true
	}
	return nil, false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if containsWord(s, kw) {
			return true
		}
	}
	return false
}

// containsWord reports whether kw occurs in s bounded by non-letters, so
// "updated" does not name a date column.
func containsWord(s, kw string) bool {
	for from := 0; from <= len(s); {
		i := strings.Index(s[from:], kw)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(kw)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(s) || !isWordRune(after)) {
			return true
		}
		from = start + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// parseISODate parses the YYYY-MM-DD form produced by the detector.
func parseISODate(s string) (time.Time, error) {
	return time.Parse(models.DateLayout, strings.TrimSpace(s))
}
