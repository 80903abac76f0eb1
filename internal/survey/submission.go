package survey

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type AnswerInput struct {
	QuestionID int64   `json:"question_id"`
	OptionIDs  []int64 `json:"option_ids,omitempty"`
	Text       *string `json:"text,omitempty"`
}

type SubmitResult struct {
	ResponseID  int64     `json:"response_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	AnswerCount int       `json:"answer_count"`
}

// answerRow is one response_answers row to be written: either an option vote
// or a free-text value, never both.
type answerRow struct {
	questionID int64
	optionID   *int64
	text       *string
}

// buildAnswerRows checks a submitted answer set against the survey definition
// and flattens it into the rows to persist. Choice answers become one row per
// selected option. The whole set is validated before anything is written, so
// a rejected submission leaves no partial rows behind.
func buildAnswerRows(def *Survey, answers []AnswerInput) ([]answerRow, error) {
	rows := make([]answerRow, 0, len(answers))
	answered := make(map[int64]struct{}, len(answers))

	for _, a := range answers {
		if _, dup := answered[a.QuestionID]; dup {
			return nil, fmt.Errorf("%w: question %d answered more than once", ErrValidation, a.QuestionID)
		}
		answered[a.QuestionID] = struct{}{}

		q := def.questionByID(a.QuestionID)
		if q == nil {
			return nil, fmt.Errorf("%w: question %d is not part of this survey", ErrValidation, a.QuestionID)
		}

		switch q.Type {
		case TypeText:
			if len(a.OptionIDs) > 0 {
				return nil, fmt.Errorf("%w: question %d takes free text, not options", ErrValidation, q.ID)
			}
			if a.Text == nil {
				if q.Required {
					return nil, fmt.Errorf("%w: question %d requires an answer", ErrValidation, q.ID)
				}
				continue
			}
			if q.Required && strings.TrimSpace(*a.Text) == "" {
				return nil, fmt.Errorf("%w: question %d requires an answer", ErrValidation, q.ID)
			}
			text := *a.Text
			rows = append(rows, answerRow{questionID: q.ID, text: &text})

		case TypeSingle, TypeMulti:
			if a.Text != nil {
				return nil, fmt.Errorf("%w: question %d takes options, not free text", ErrValidation, q.ID)
			}
			selected := make([]int64, 0, len(a.OptionIDs))
			seen := make(map[int64]struct{}, len(a.OptionIDs))
			for _, optID := range a.OptionIDs {
				if _, dup := seen[optID]; dup {
					continue
				}
				seen[optID] = struct{}{}
				if q.optionByID(optID) == nil {
					return nil, fmt.Errorf("%w: option %d does not belong to question %d", ErrValidation, optID, q.ID)
				}
				selected = append(selected, optID)
			}
			if q.Type == TypeSingle && len(selected) > 1 {
				return nil, fmt.Errorf("%w: question %d accepts a single option", ErrValidation, q.ID)
			}
			if len(selected) == 0 {
				if q.Required {
					return nil, fmt.Errorf("%w: question %d requires an answer", ErrValidation, q.ID)
				}
				continue
			}
			for _, optID := range selected {
				id := optID
				rows = append(rows, answerRow{questionID: q.ID, optionID: &id})
			}

		default:
			return nil, fmt.Errorf("%w: question %d has unknown type %q", ErrValidation, q.ID, q.Type)
		}
	}

	for i := range def.Questions {
		q := &def.Questions[i]
		if !q.Required {
			continue
		}
		if _, ok := answered[q.ID]; !ok {
			return nil, fmt.Errorf("%w: question %d requires an answer", ErrValidation, q.ID)
		}
	}

	return rows, nil
}

// Submit records one response for a survey. The definition is loaded and the
// answer set validated inside the same transaction that writes the rows, so
// either the response and all its answers land, or nothing does.
func (s *Service) Submit(ctx context.Context, surveyID, userID int64, answers []AnswerInput) (*SubmitResult, error) {
	if surveyID <= 0 || userID <= 0 {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin submit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	def, err := loadSurveyTree(ctx, tx, surveyID)
	if err != nil {
		return nil, err
	}

	rows, err := buildAnswerRows(def, answers)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{SubmittedAt: s.now().UTC()}
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO responses (survey_id, user_id, submitted_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, surveyID, userID, result.SubmittedAt).Scan(&result.ResponseID); err != nil {
		return nil, fmt.Errorf("insert response: %w", err)
	}

	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO response_answers (response_id, question_id, option_id, answer_text)
			VALUES ($1, $2, $3, $4)
		`, result.ResponseID, row.questionID, row.optionID, row.text); err != nil {
			return nil, fmt.Errorf("insert response answer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submit tx: %w", err)
	}
	result.AnswerCount = len(rows)
	return result, nil
}
