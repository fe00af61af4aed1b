package service

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fintrack/pkg/spreadsheet"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var errUnparseableDate = errors.New("missing or unparseable date")

// Excel serial numbers for 1970-01-01 and 9999-12-31.
const (
	minSerialDate = 25569
	maxSerialDate = 2958465
)

var dayFirstLayouts = []string{
	"2/1/2006", "2-1-2006", "2.1.2006", "2/1/06", "2-1-06", "2.1.06",
}

var monthFirstLayouts = []string{
	"1/2/2006", "1-2-2006", "1.2.2006", "1/2/06", "1-2-06",
}

var unambiguousLayouts = []string{
	"2006-01-02", "2006/01/02", "2006.01.02", "20060102",
	"2-Jan-2006", "2 Jan 2006", "2-Jan-06", "Jan 2, 2006", "2 January 2006", "January 2, 2006",
}

// dateNormalizer turns statement date cells into calendar dates.
type dateNormalizer struct {
	hint     string
	dayFirst bool
}

func newDateNormalizer(formatHint string, dayFirst bool) dateNormalizer {
	return dateNormalizer{hint: goLayout(formatHint), dayFirst: dayFirst}
}

// Normalize returns the date formatted as YYYY-MM-DD.
func (n dateNormalizer) Normalize(c spreadsheet.Cell) (string, error) {
	t, err := n.parse(c)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}

func (n dateNormalizer) parse(c spreadsheet.Cell) (time.Time, error) {
	switch c.Kind {
	case spreadsheet.CellNumber:
		return fromNumber(c.Num)
	case spreadsheet.CellString:
		return n.parseString(c.Str)
	}
	return time.Time{}, errUnparseableDate
}

func fromNumber(v float64) (time.Time, error) {
	if v == math.Trunc(v) && v >= 19000101 && v <= 29991231 {
		if t, err := time.Parse("20060102", strconv.FormatInt(int64(v), 10)); err == nil {
			return t, nil
		}
	}
	if v < minSerialDate || v > maxSerialDate {
		return time.Time{}, errUnparseableDate
	}
	t, err := excelize.ExcelDateToTime(v, false)
	if err != nil {
		return time.Time{}, errUnparseableDate
	}
	return truncateDay(t), nil
}

func (n dateNormalizer) parseString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errUnparseableDate
	}

	if isDigits(s) && len(s) != 8 {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, errUnparseableDate
		}
		return fromNumber(v)
	}

	for _, candidate := range dateCandidates(s) {
		if t, ok := n.tryLayouts(candidate); ok {
			return t, nil
		}
	}
	return time.Time{}, errUnparseableDate
}

// dateCandidates yields s and s without a trailing time component.
func dateCandidates(s string) []string {
	out := []string{s}
	if i := strings.IndexAny(s, "T "); i > 0 {
		head := s[:i]
		// keep "2 Jan 2006" style dates intact
		if strings.ContainsAny(head, "/-.") || isDigits(head) {
			out = append(out, head)
		}
	}
	return out
}

func (n dateNormalizer) tryLayouts(s string) (time.Time, bool) {
	var layouts []string
	if n.hint != "" {
		layouts = append(layouts, n.hint)
	}
	layouts = append(layouts, unambiguousLayouts...)
	if n.dayFirst {
		layouts = append(layouts, dayFirstLayouts...)
		layouts = append(layouts, monthFirstLayouts...)
	} else {
		layouts = append(layouts, monthFirstLayouts...)
		layouts = append(layouts, dayFirstLayouts...)
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), true
		}
	}
	return time.Time{}, false
}

var hintReplacer = strings.NewReplacer(
	"YYYY", "2006", "YY", "06",
	"MMMM", "January", "MMM", "Jan", "MM", "01",
	"DD", "02",
	"HH", "15", "mm", "04", "SS", "05", "ss", "05",
)

// goLayout converts a DD/MM/YYYY style hint into a Go layout, "" when the
// hint is empty or has no recognisable tokens.
func goLayout(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return ""
	}
	upper := strings.NewReplacer("yyyy", "YYYY", "yy", "YY", "dd", "DD").Replace(hint)
	if strings.Contains(upper, "mm") && !strings.Contains(upper, "MM") && !strings.ContainsAny(upper, "Hh") {
		upper = strings.ReplaceAll(upper, "mm", "MM")
	}
	layout := hintReplacer.Replace(upper)
	if layout == upper {
		return ""
	}
	// single-letter forms such as D/M/YYYY
	layout = strings.NewReplacer("D", "2", "M", "1").Replace(layout)
	return layout
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var nonNumeric = regexp.MustCompile(`[^0-9.,]`)

// parseAmount reads a statement amount. It returns the signed value; ok is
// false when the cell carries no number at all.
func parseAmount(c spreadsheet.Cell) (decimal.Decimal, bool) {
	switch c.Kind {
	case spreadsheet.CellNumber:
		return decimal.NewFromFloat(c.Num), true
	case spreadsheet.CellString:
		return parseAmountString(c.Str)
	}
	return decimal.Zero, false
}

func parseAmountString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	negative := minusBeforeDigits(s) || strings.HasSuffix(s, "-") ||
		(strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"))

	digits := nonNumeric.ReplaceAllString(s, "")
	if digits == "" || strings.Trim(digits, ".,") == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(normalizeSeparators(digits))
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// minusBeforeDigits reports whether a hyphen or U+2212 minus sits directly
// before the first digit, ignoring spaces. Currency tokens may precede it.
func minusBeforeDigits(s string) bool {
	first := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if first <= 0 {
		return false
	}
	prefix := strings.TrimRight(s[:first], " \u00a0")
	return strings.HasSuffix(prefix, "-") || strings.HasSuffix(prefix, "\u2212")
}

// normalizeSeparators strips grouping separators and leaves "." as the
// decimal point. With both "." and "," present the last one is decimal. A
// single separator followed by exactly three digits is grouping unless the
// integer part is zero ("0.500").
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
	case lastDot >= 0:
		return resolveSingle(s, ".")
	case lastComma >= 0:
		return strings.ReplaceAll(resolveSingle(s, ","), ",", ".")
	}
	return s
}

func resolveSingle(s, sep string) string {
	if strings.Count(s, sep) > 1 {
		return strings.ReplaceAll(s, sep, "")
	}
	i := strings.Index(s, sep)
	lead := s[:i]
	if len(s)-i-1 == 3 && len(lead) >= 1 && len(lead) <= 3 && strings.TrimLeft(lead, "0") != "" {
		return strings.ReplaceAll(s, sep, "")
	}
	return s
}
