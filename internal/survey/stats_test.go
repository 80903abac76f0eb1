package survey

import (
	"reflect"
	"testing"
)

func int64Ptr(v int64) *int64 { return &v }

func TestRoundPct(t *testing.T) {
	tests := []struct {
		count int
		total int
		want  float64
	}{
		{count: 1, total: 2, want: 50.0},
		{count: 1, total: 3, want: 33.3},
		{count: 2, total: 3, want: 66.7},
		{count: 3, total: 3, want: 100.0},
		{count: 0, total: 5, want: 0.0},
		{count: 0, total: 0, want: 0.0},
	}
	for _, tc := range tests {
		if got := roundPct(tc.count, tc.total); got != tc.want {
			t.Fatalf("roundPct(%d, %d) = %v, want %v", tc.count, tc.total, got, tc.want)
		}
	}
}

// Two respondents: both answer Q1 (one per option) and Q2 ("hello", "world").
func TestBuildStatsReportTwoResponses(t *testing.T) {
	def := &Survey{
		ID:    1,
		Title: "S1",
		Questions: []Question{
			{ID: 10, Title: "Q1", Type: TypeSingle, OrderIndex: 1, Options: []Option{
				{ID: 101, QuestionID: 10, Text: "O1", OrderIndex: 1},
				{ID: 102, QuestionID: 10, Text: "O2", OrderIndex: 2},
			}},
			{ID: 20, Title: "Q2", Type: TypeText, OrderIndex: 2},
		},
	}
	rows := []voteRow{
		{questionID: 10, optionID: int64Ptr(101)},
		{questionID: 20, text: strPtr("hello")},
		{questionID: 10, optionID: int64Ptr(102)},
		{questionID: 20, text: strPtr("world")},
	}

	report := buildStatsReport(def, 2, rows)

	if report.TotalResponses != 2 {
		t.Fatalf("expected total_responses=2, got %d", report.TotalResponses)
	}
	if len(report.Questions) != 2 {
		t.Fatalf("expected 2 question blocks, got %d", len(report.Questions))
	}

	q1 := report.Questions[0]
	if q1.Options[0].Count != 1 || q1.Options[0].Percentage != 50.0 {
		t.Fatalf("O1: expected count=1 pct=50.0, got count=%d pct=%v", q1.Options[0].Count, q1.Options[0].Percentage)
	}
	if q1.Options[1].Count != 1 || q1.Options[1].Percentage != 50.0 {
		t.Fatalf("O2: expected count=1 pct=50.0, got count=%d pct=%v", q1.Options[1].Count, q1.Options[1].Percentage)
	}

	q2 := report.Questions[1]
	if !reflect.DeepEqual(q2.TextAnswers, []string{"hello", "world"}) {
		t.Fatalf("expected text answers in submission order, got %v", q2.TextAnswers)
	}
}

func TestBuildStatsReportZeroResponses(t *testing.T) {
	def := &Survey{
		ID:    1,
		Title: "S1",
		Questions: []Question{
			{ID: 10, Title: "Q1", Type: TypeSingle, OrderIndex: 1, Options: []Option{
				{ID: 101, QuestionID: 10, Text: "O1", OrderIndex: 1},
				{ID: 102, QuestionID: 10, Text: "O2", OrderIndex: 2},
			}},
		},
	}

	report := buildStatsReport(def, 0, nil)

	if report.TotalResponses != 0 {
		t.Fatalf("expected total_responses=0, got %d", report.TotalResponses)
	}
	q := report.Questions[0]
	if len(q.Options) != 2 {
		t.Fatalf("every option must appear even with no votes, got %d", len(q.Options))
	}
	for _, o := range q.Options {
		if o.Count != 0 || o.Percentage != 0 {
			t.Fatalf("expected zero count and percentage, got %+v", o)
		}
	}
}

// MULTI percentages divide by votes for the question, not by respondents, so
// they sum to 100 even when respondents select several options each.
func TestBuildStatsReportMultiDenominatorIsVotes(t *testing.T) {
	def := &Survey{
		ID:    1,
		Title: "S1",
		Questions: []Question{
			{ID: 20, Title: "Q2", Type: TypeMulti, OrderIndex: 1, Options: []Option{
				{ID: 201, QuestionID: 20, Text: "M1", OrderIndex: 1},
				{ID: 202, QuestionID: 20, Text: "M2", OrderIndex: 2},
				{ID: 203, QuestionID: 20, Text: "M3", OrderIndex: 3},
			}},
		},
	}
	// two respondents, three votes total
	rows := []voteRow{
		{questionID: 20, optionID: int64Ptr(201)},
		{questionID: 20, optionID: int64Ptr(202)},
		{questionID: 20, optionID: int64Ptr(201)},
	}

	report := buildStatsReport(def, 2, rows)

	opts := report.Questions[0].Options
	if opts[0].Count != 2 || opts[0].Percentage != 66.7 {
		t.Fatalf("M1: expected count=2 pct=66.7, got count=%d pct=%v", opts[0].Count, opts[0].Percentage)
	}
	if opts[1].Count != 1 || opts[1].Percentage != 33.3 {
		t.Fatalf("M2: expected count=1 pct=33.3, got count=%d pct=%v", opts[1].Count, opts[1].Percentage)
	}
	if opts[2].Count != 0 || opts[2].Percentage != 0 {
		t.Fatalf("M3: expected count=0 pct=0, got count=%d pct=%v", opts[2].Count, opts[2].Percentage)
	}
}

func TestBuildStatsReportDropsBlankTextAnswers(t *testing.T) {
	def := &Survey{
		ID:    1,
		Title: "S1",
		Questions: []Question{
			{ID: 30, Title: "Q3", Type: TypeText, OrderIndex: 1},
		},
	}
	rows := []voteRow{
		{questionID: 30, text: strPtr("keep me")},
		{questionID: 30, text: strPtr("   ")},
		{questionID: 30, text: strPtr("")},
	}

	report := buildStatsReport(def, 3, rows)

	got := report.Questions[0].TextAnswers
	if !reflect.DeepEqual(got, []string{"keep me"}) {
		t.Fatalf("expected blank answers dropped, got %v", got)
	}
}
