package survey

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportStatsXLSX renders a stats report as a single-sheet workbook: a survey
// header followed by one block per question, choice questions as
// option/count/percentage rows and text questions as the collected answers.
func ExportStatsXLSX(report *StatsReport) ([]byte, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	setCell := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	setCell(1, 1, "Survey")
	setCell(2, 1, report.SurveyTitle)
	setCell(1, 2, "Total responses")
	setCell(2, 2, report.TotalResponses)

	row := 4
	for _, q := range report.Questions {
		setCell(1, row, q.QuestionTitle)
		setCell(2, row, q.Type)
		row++

		if q.Type == TypeText {
			if len(q.TextAnswers) == 0 {
				setCell(2, row, "(no answers)")
				row++
			}
			for _, text := range q.TextAnswers {
				setCell(2, row, text)
				row++
			}
			row++
			continue
		}

		setCell(2, row, "option")
		setCell(3, row, "count")
		setCell(4, row, "percentage")
		row++
		for _, o := range q.Options {
			setCell(2, row, o.OptionText)
			setCell(3, row, o.Count)
			setCell(4, row, o.Percentage)
			row++
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "B", 40)
	_ = f.SetColWidth(sheet, "C", "D", 14)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}
