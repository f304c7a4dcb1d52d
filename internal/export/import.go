package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-tos/internal/bloom"
	"github.com/p-n-ai/pai-tos/internal/tos"
)

// ErrNoTOSSheet is returned when a workbook has no recognizable TOS table.
var ErrNoTOSSheet = errors.New("no TOS table found")

// Imported is a TOS read from a workbook. Outcome ids are assigned in row
// order starting at 0. Every level has a row in Matrix with an entry for
// every outcome.
type Imported struct {
	Outcomes []tos.Outcome
	Matrix   tos.Matrix
}

// Total returns the item count of the imported matrix.
func (im Imported) Total() int {
	return im.Matrix.Total()
}

// ReadTOS reads the TOS sheet of an xlsx workbook. The sheet named TOS is
// used when present, otherwise the first sheet. The header row is the first
// row naming at least one Bloom level; level columns are matched by name in
// any case. A TOTAL row and blank rows are skipped.
func ReadTOS(r io.Reader) (*Imported, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoTOSSheet
	}
	sheet := sheets[0]
	for _, s := range sheets {
		if strings.EqualFold(s, SheetTOS) {
			sheet = s
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return parseRows(rows)
}

type columns struct {
	hours  int
	levels map[bloom.Level]int
}

func findHeader(rows [][]string) (int, columns, bool) {
	for i, row := range rows {
		cols := columns{hours: -1, levels: make(map[bloom.Level]int)}
		for j, cell := range row {
			if strings.EqualFold(strings.TrimSpace(cell), headerHours) {
				cols.hours = j
				continue
			}
			if l, err := bloom.ParseLevel(cell); err == nil {
				if _, seen := cols.levels[l]; !seen {
					cols.levels[l] = j
				}
			}
		}
		if len(cols.levels) > 0 {
			return i, cols, true
		}
	}
	return 0, columns{}, false
}

func parseRows(rows [][]string) (*Imported, error) {
	headerRow, cols, ok := findHeader(rows)
	if !ok {
		return nil, ErrNoTOSSheet
	}

	im := &Imported{Matrix: make(tos.Matrix, len(bloom.Levels))}
	for _, l := range bloom.Levels {
		im.Matrix[l] = make(map[int]int)
	}

	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		text := strings.TrimSpace(cellAt(row, 0))
		if text == "" || strings.EqualFold(text, totalLabel) {
			continue
		}

		id := len(im.Outcomes)
		o := tos.Outcome{ID: id, Text: text}
		if cols.hours >= 0 {
			h, err := parseNumber(cellAt(row, cols.hours))
			if err != nil {
				return nil, fmt.Errorf("row %d hours: %w", i+1, err)
			}
			o.Hours = h
		}
		for _, l := range bloom.Levels {
			n := 0
			if j, ok := cols.levels[l]; ok {
				v, err := parseCount(cellAt(row, j))
				if err != nil {
					return nil, fmt.Errorf("row %d %s: %w", i+1, l, err)
				}
				n = v
			}
			im.Matrix[l][id] = n
		}
		im.Outcomes = append(im.Outcomes, o)
	}

	if len(im.Outcomes) == 0 {
		return nil, fmt.Errorf("%w: header found but no outcome rows", ErrNoTOSSheet)
	}
	return im, nil
}

func cellAt(row []string, j int) string {
	if j < len(row) {
		return row[j]
	}
	return ""
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %q", s)
	}
	return v, nil
}

// parseCount parses an item count: a blank cell is 0, anything else must be
// a non-negative whole number.
func parseCount(s string) (int, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("item count %q is not a whole number", strings.TrimSpace(s))
	}
	if v > math.MaxInt32 {
		return 0, fmt.Errorf("item count %q is too large", strings.TrimSpace(s))
	}
	return int(v), nil
}
