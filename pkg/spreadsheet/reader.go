package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Read parses an uploaded statement into a Grid, choosing the format from
// the file extension.
func Read(fileName string, data []byte) (Grid, error) {
	var (
		grid Grid
		err  error
	)
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm", ".xltx":
		grid, err = ReadXLSX(bytes.NewReader(data))
	case ".csv", ".txt":
		grid, err = ReadCSV(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: xlsx, csv)", filepath.Ext(fileName))
	}
	if err != nil {
		return nil, err
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	return grid, nil
}

// ReadXLSX reads the first sheet that has any content. Numeric cells keep
// their raw value, so serial dates arrive as numbers.
func ReadXLSX(r io.Reader) (Grid, error) {
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}

		grid := make(Grid, len(rows))
		for i, row := range rows {
			cells := make([]Cell, len(row))
			for j, raw := range row {
				cells[j] = xlsxCell(f, sheet, i, j, raw)
			}
			grid[i] = cells
		}
		if g := trimTrailingEmpty(grid); len(g) > 0 {
			return g, nil
		}
	}
	return Grid{}, nil
}

func xlsxCell(f *excelize.File, sheet string, row, col int, raw string) Cell {
	if strings.TrimSpace(raw) == "" {
		return EmptyCell()
	}
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err == nil {
		if typ, err := f.GetCellType(sheet, axis); err == nil {
			switch typ {
			case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeBool:
				return StringCell(raw)
			}
		}
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return NumberCell(n)
	}
	return StringCell(raw)
}

// ReadCSV reads a delimited text file. The delimiter is sniffed from the
// first line; every cell is a string.
func ReadCSV(r io.Reader) (Grid, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	grid := make(Grid, len(records))
	for i, rec := range records {
		cells := make([]Cell, len(rec))
		for j, v := range rec {
			cells[j] = StringCell(strings.TrimSpace(v))
		}
		grid[i] = cells
	}
	return trimTrailingEmpty(grid), nil
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(string(line), string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
