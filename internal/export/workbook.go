// Package export renders blueprints as xlsx workbooks and reads TOS sheets
// back in.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-tos/internal/authoring"
	"github.com/p-n-ai/pai-tos/internal/bloom"
	"github.com/p-n-ai/pai-tos/internal/qtype"
	"github.com/p-n-ai/pai-tos/internal/tqs"
)

// Sheet names.
const (
	SheetTOS       = "TOS"
	SheetTypes     = "Question Types"
	SheetBlueprint = "Blueprint"
	SheetQuestions = "Questions"
)

const (
	headerOutcome = "Learning Outcome"
	headerHours   = "Hours"
	headerWeight  = "Weight %"
	headerItems   = "Items"
	totalLabel    = "TOTAL"
)

// ContentType is the MIME type of the workbooks produced here.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteTOS writes b as a workbook to w. The Questions sheet is included only
// when b has a drafted sheet.
func WriteTOS(w io.Writer, b *authoring.Blueprint) error {
	f, err := Workbook(b)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Workbook builds the workbook for b. The caller closes it.
func Workbook(b *authoring.Blueprint) (*excelize.File, error) {
	if b == nil {
		return nil, fmt.Errorf("blueprint is nil")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetTOS); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	steps := []func(*excelize.File, *authoring.Blueprint) error{writeTOSSheet, writeTypesSheet, writeBlueprintSheet}
	if b.Sheet != nil {
		steps = append(steps, writeQuestionsSheet)
	}
	for _, step := range steps {
		if err := step(f, b); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeTOSSheet(f *excelize.File, b *authoring.Blueprint) error {
	header := []any{headerOutcome, headerHours, headerWeight}
	for _, l := range bloom.Levels {
		header = append(header, l.String())
	}
	header = append(header, headerItems)

	rows := [][]any{header}
	var hours float64
	for _, o := range b.Outcomes {
		row := []any{o.Text, o.Hours, percent(o.Weight)}
		for _, l := range bloom.Levels {
			row = append(row, b.Table.Matrix[l][o.ID])
		}
		row = append(row, b.Table.Matrix.OutcomeTotal(o.ID))
		rows = append(rows, row)
		hours += o.Hours
	}

	total := []any{totalLabel, hours, 100}
	for _, l := range bloom.Levels {
		total = append(total, b.Table.Matrix.LevelTotal(l))
	}
	total = append(total, b.Table.Matrix.Total())
	rows = append(rows, total)

	if err := setRows(f, SheetTOS, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetTOS, "A", "A", 48)
}

func writeTypesSheet(f *excelize.File, b *authoring.Blueprint) error {
	if _, err := f.NewSheet(SheetTypes); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetTypes, err)
	}

	rows := [][]any{{"Question Type", headerItems, "Points per Item", "Total Points"}}
	for _, e := range b.Input.Distribution {
		rows = append(rows, []any{e.Type, e.Items, e.PointsPerItem, e.TotalPoints()})
	}
	items, points := qtype.Totals(b.Input.Distribution)
	rows = append(rows, []any{totalLabel, items, "", points})

	if err := setRows(f, SheetTypes, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetTypes, "A", "A", 24)
}

func writeBlueprintSheet(f *excelize.File, b *authoring.Blueprint) error {
	if _, err := f.NewSheet(SheetBlueprint); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetBlueprint, err)
	}

	rows := [][]any{{"#", headerOutcome, "Bloom Level", "Question Type", "Points"}}
	for i, s := range b.Slots {
		rows = append(rows, []any{i + 1, s.OutcomeText, s.Level.String(), s.QuestionType, s.Points})
	}
	rows = append(rows, []any{})
	rows = append(rows, []any{"Preferred matches", b.Metadata.PreferredMatches})
	rows = append(rows, []any{"Fallback matches", b.Metadata.FallbackMatches})
	rows = append(rows, []any{"Coverage", b.Metadata.CoverageQuality})

	if err := setRows(f, SheetBlueprint, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetBlueprint, "B", "B", 48)
}

func writeQuestionsSheet(f *excelize.File, b *authoring.Blueprint) error {
	if _, err := f.NewSheet(SheetQuestions); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetQuestions, err)
	}

	rows := [][]any{{"#", "Question Type", "Bloom Level", headerOutcome, "Points", "Question", "Choices", "Answer", "Status"}}
	for _, q := range b.Sheet.Questions {
		rows = append(rows, []any{
			q.Number, q.Type, q.Level.String(), q.OutcomeText, q.Points,
			q.Text, strings.Join(q.Choices, "\n"), answerOf(q), string(q.Status),
		})
	}

	if err := setRows(f, SheetQuestions, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetQuestions, "F", "F", 64)
}

func answerOf(q tqs.Question) string {
	switch {
	case q.CorrectAnswer != "":
		return q.CorrectAnswer
	case q.AnswerKey != "":
		return q.AnswerKey
	default:
		return q.SampleAnswer
	}
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func percent(weight float64) float64 {
	return math.Round(weight*10000) / 100
}
