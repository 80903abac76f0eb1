package survey

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExportStatsXLSXRoundTrip(t *testing.T) {
	report := &StatsReport{
		SurveyID:       1,
		SurveyTitle:    "S1",
		TotalResponses: 2,
		Questions: []QuestionStats{
			{QuestionID: 10, QuestionTitle: "Q1", Type: TypeSingle, Options: []OptionStats{
				{OptionID: 101, OptionText: "O1", Count: 1, Percentage: 50.0},
				{OptionID: 102, OptionText: "O2", Count: 1, Percentage: 50.0},
			}},
			{QuestionID: 20, QuestionTitle: "Q2", Type: TypeText, TextAnswers: []string{"hello", "world"}},
		},
	}

	data, err := ExportStatsXLSX(report)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open exported workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}

	if len(rows) == 0 || rows[0][1] != "S1" {
		t.Fatalf("expected survey title in header, got %v", rows)
	}

	flat := make(map[string]bool)
	for _, row := range rows {
		for _, cell := range row {
			flat[cell] = true
		}
	}
	for _, want := range []string{"Q1", "O1", "O2", "Q2", "hello", "world"} {
		if !flat[want] {
			t.Fatalf("expected cell %q in exported sheet", want)
		}
	}
}
