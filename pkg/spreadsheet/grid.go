// Package spreadsheet turns uploaded statement files into a raw grid of
// typed cells. It makes no assumption about which row is the header.
package spreadsheet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInsufficientRows is returned when a file has fewer than MinRows rows.
var ErrInsufficientRows = errors.New("file has insufficient rows")

// MinRows is a header plus at least one data row.
const MinRows = 2

type CellKind int

const (
	CellEmpty CellKind = iota
	CellString
	CellNumber
)

// Cell is one raw spreadsheet value: a string, a number or empty.
type Cell struct {
	Kind CellKind
	Str  string
	Num  float64
}

func StringCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Kind: CellString, Str: s}
}

func NumberCell(n float64) Cell { return Cell{Kind: CellNumber, Num: n} }

func EmptyCell() Cell { return Cell{Kind: CellEmpty} }

func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }

// String renders the cell the way it would appear in a prompt or CSV.
func (c Cell) String() string {
	switch c.Kind {
	case CellString:
		return c.Str
	case CellNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	default:
		return ""
	}
}

func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellString:
		return json.Marshal(c.Str)
	case CellNumber:
		return json.Marshal(c.Num)
	default:
		return []byte("null"), nil
	}
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = EmptyCell()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = StringCell(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*c = StringCell(strconv.FormatBool(b))
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("cell must be a string, number or null: %w", err)
		}
		*c = NumberCell(n)
	}
	return nil
}

// Grid is rows of cells. Rows may have different lengths.
type Grid [][]Cell

// Width is the length of the widest row.
func (g Grid) Width() int {
	w := 0
	for _, row := range g {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// At returns the cell at (row, col), empty when out of range.
func (g Grid) At(row, col int) Cell {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return EmptyCell()
	}
	return g[row][col]
}

// Head returns at most n leading rows. The result shares storage with g.
func (g Grid) Head(n int) Grid {
	if n >= len(g) {
		return g
	}
	return g[:n]
}

// Validate enforces the minimum row count.
func (g Grid) Validate() error {
	if len(g) < MinRows {
		return ErrInsufficientRows
	}
	return nil
}

// trimTrailingEmpty drops fully empty rows at the end of the grid.
func trimTrailingEmpty(g Grid) Grid {
	end := len(g)
	for end > 0 && rowEmpty(g[end-1]) {
		end--
	}
	return g[:end]
}

func rowEmpty(row []Cell) bool {
	for _, c := range row {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}
