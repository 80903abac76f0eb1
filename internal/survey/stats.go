package survey

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
)

type StatsReport struct {
	SurveyID       int64           `json:"survey_id"`
	SurveyTitle    string          `json:"survey_title"`
	TotalResponses int             `json:"total_responses"`
	Questions      []QuestionStats `json:"question_stats"`
}

type QuestionStats struct {
	QuestionID    int64         `json:"question_id"`
	QuestionTitle string        `json:"question_title"`
	Type          string        `json:"type"`
	Options       []OptionStats `json:"option_stats,omitempty"`
	TextAnswers   []string      `json:"text_answers,omitempty"`
}

type OptionStats struct {
	OptionID   int64   `json:"option_id"`
	OptionText string  `json:"option_text"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// voteRow is one stored answer, already ordered by submission time.
type voteRow struct {
	questionID int64
	optionID   *int64
	text       *string
}

// roundPct rounds a count/total ratio to one decimal place, as a percentage.
func roundPct(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}

// buildStatsReport folds stored answers into the per-question report. Every
// option of a choice question appears even with zero votes. Percentages use
// the number of votes cast for that question as the denominator, so a MULTI
// question's percentages always sum to 100 regardless of how many options
// each respondent picked. Blank text answers are dropped from the listing.
func buildStatsReport(def *Survey, totalResponses int, rows []voteRow) *StatsReport {
	report := &StatsReport{
		SurveyID:       def.ID,
		SurveyTitle:    def.Title,
		TotalResponses: totalResponses,
		Questions:      make([]QuestionStats, 0, len(def.Questions)),
	}

	optionVotes := make(map[int64]int)
	questionVotes := make(map[int64]int)
	textsByQuestion := make(map[int64][]string)
	for _, row := range rows {
		switch {
		case row.optionID != nil:
			optionVotes[*row.optionID]++
			questionVotes[row.questionID]++
		case row.text != nil:
			if strings.TrimSpace(*row.text) == "" {
				continue
			}
			textsByQuestion[row.questionID] = append(textsByQuestion[row.questionID], *row.text)
		}
	}

	for i := range def.Questions {
		q := &def.Questions[i]
		qs := QuestionStats{
			QuestionID:    q.ID,
			QuestionTitle: q.Title,
			Type:          q.Type,
		}

		if q.Type == TypeText {
			qs.TextAnswers = textsByQuestion[q.ID]
			report.Questions = append(report.Questions, qs)
			continue
		}

		total := questionVotes[q.ID]
		qs.Options = make([]OptionStats, 0, len(q.Options))
		for _, o := range q.Options {
			count := optionVotes[o.ID]
			qs.Options = append(qs.Options, OptionStats{
				OptionID:   o.ID,
				OptionText: o.Text,
				Count:      count,
				Percentage: roundPct(count, total),
			})
		}
		report.Questions = append(report.Questions, qs)
	}

	return report
}

// ComputeStats aggregates every stored response of a survey into a report.
// Read-only; all three reads share one repeatable-read transaction so a
// submission committing mid-report cannot skew counts against the response
// total.
func (s *Service) ComputeStats(ctx context.Context, surveyID int64) (*StatsReport, error) {
	if surveyID <= 0 {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("begin stats tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	def, err := loadSurveyTree(ctx, tx, surveyID)
	if err != nil {
		return nil, err
	}

	var totalResponses int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM responses WHERE survey_id = $1
	`, surveyID).Scan(&totalResponses); err != nil {
		return nil, fmt.Errorf("count responses: %w", err)
	}

	dbRows, err := tx.QueryContext(ctx, `
		SELECT ra.question_id, ra.option_id, ra.answer_text
		FROM response_answers ra
		JOIN responses r ON r.id = ra.response_id
		WHERE r.survey_id = $1
		ORDER BY r.submitted_at ASC, r.id ASC, ra.id ASC
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("query response answers: %w", err)
	}
	defer dbRows.Close()

	rows := make([]voteRow, 0)
	for dbRows.Next() {
		var (
			row      voteRow
			optionID sql.NullInt64
			text     sql.NullString
		)
		if err := dbRows.Scan(&row.questionID, &optionID, &text); err != nil {
			return nil, fmt.Errorf("scan response answer: %w", err)
		}
		if optionID.Valid {
			v := optionID.Int64
			row.optionID = &v
		}
		if text.Valid {
			v := text.String
			row.text = &v
		}
		rows = append(rows, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate response answers: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit stats tx: %w", err)
	}
	return buildStatsReport(def, totalResponses, rows), nil
}
