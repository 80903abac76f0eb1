package survey

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validSaveInput() SaveSurveyInput {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	return SaveSurveyInput{
		Title:     "Team satisfaction",
		StartDate: start,
		EndDate:   end,
		Status:    "DRAFT",
		Questions: []QuestionInput{
			{Title: "Pick one", Type: "SINGLE", Required: true, OrderIndex: 1, Options: []OptionInput{
				{Text: "Yes", OrderIndex: 1},
				{Text: "No", OrderIndex: 2},
			}},
			{Title: "Comments", Type: "TEXT", OrderIndex: 2},
		},
	}
}

func TestNormalizeDefinitionSortsByOrderIndex(t *testing.T) {
	in := validSaveInput()
	in.Questions = []QuestionInput{
		{Title: "Second", Type: "TEXT", OrderIndex: 2},
		{Title: "First", Type: "MULTI", OrderIndex: 1, Options: []OptionInput{
			{Text: "B", OrderIndex: 2},
			{Text: "A", OrderIndex: 1},
		}},
	}

	out, err := normalizeDefinition(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Questions[0].Title != "First" || out.Questions[1].Title != "Second" {
		t.Fatalf("questions not sorted by order_index: %+v", out.Questions)
	}
	opts := out.Questions[0].Options
	if opts[0].Text != "A" || opts[1].Text != "B" {
		t.Fatalf("options not sorted by order_index: %+v", opts)
	}
}

func TestNormalizeDefinitionNormalizesCase(t *testing.T) {
	in := validSaveInput()
	in.Status = " published "
	in.Questions[0].Type = "single"

	out, err := normalizeDefinition(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusPublished {
		t.Fatalf("expected status PUBLISHED, got %s", out.Status)
	}
	if out.Questions[0].Type != TypeSingle {
		t.Fatalf("expected type SINGLE, got %s", out.Questions[0].Type)
	}
}

func TestNormalizeDefinitionDropsOptionsOnTextQuestions(t *testing.T) {
	in := validSaveInput()
	in.Questions[1].Options = []OptionInput{{Text: "stray", OrderIndex: 1}}

	out, err := normalizeDefinition(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Questions[1].Options) != 0 {
		t.Fatalf("expected no options on TEXT question, got %d", len(out.Questions[1].Options))
	}
}

func TestNormalizeDefinitionRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *SaveSurveyInput)
	}{
		{name: "empty title", mutate: func(in *SaveSurveyInput) { in.Title = "   " }},
		{name: "title too long", mutate: func(in *SaveSurveyInput) { in.Title = strings.Repeat("x", 51) }},
		{name: "description too long", mutate: func(in *SaveSurveyInput) { in.Description = strings.Repeat("x", 301) }},
		{name: "unknown status", mutate: func(in *SaveSurveyInput) { in.Status = "ARCHIVED" }},
		{name: "zero dates", mutate: func(in *SaveSurveyInput) { in.StartDate = time.Time{} }},
		{name: "end before start", mutate: func(in *SaveSurveyInput) {
			in.EndDate = in.StartDate.AddDate(0, 0, -1)
		}},
		{name: "empty question title", mutate: func(in *SaveSurveyInput) { in.Questions[0].Title = "" }},
		{name: "question title too long", mutate: func(in *SaveSurveyInput) {
			in.Questions[0].Title = strings.Repeat("x", 76)
		}},
		{name: "unknown question type", mutate: func(in *SaveSurveyInput) { in.Questions[0].Type = "RATING" }},
		{name: "duplicate question order", mutate: func(in *SaveSurveyInput) {
			in.Questions[1].OrderIndex = in.Questions[0].OrderIndex
		}},
		{name: "empty option text", mutate: func(in *SaveSurveyInput) { in.Questions[0].Options[0].Text = " " }},
		{name: "duplicate option order", mutate: func(in *SaveSurveyInput) {
			in.Questions[0].Options[1].OrderIndex = in.Questions[0].Options[0].OrderIndex
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validSaveInput()
			tc.mutate(&in)
			_, err := normalizeDefinition(in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestNormalizeDefinitionAllowsChoiceWithoutOptions(t *testing.T) {
	in := validSaveInput()
	in.Questions[0].Options = nil

	if _, err := normalizeDefinition(in); err != nil {
		t.Fatalf("choice question without options should pass, got %v", err)
	}
}
