package survey

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
)

const (
	TypeSingle = "SINGLE"
	TypeMulti  = "MULTI"
	TypeText   = "TEXT"
)

const (
	maxSurveyTitleLen   = 50
	maxDescriptionLen   = 300
	maxQuestionTitleLen = 75
)

type Survey struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	Status      string     `json:"status"`
	Questions   []Question `json:"questions"`
}

type Question struct {
	ID         int64    `json:"id"`
	SurveyID   int64    `json:"survey_id"`
	Title      string   `json:"title"`
	Type       string   `json:"type"`
	Required   bool     `json:"required"`
	OrderIndex int      `json:"order_index"`
	Options    []Option `json:"options"`
}

type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	OrderIndex int    `json:"order_index"`
}

type SaveSurveyInput struct {
	ID          int64
	Title       string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Status      string
	Questions   []QuestionInput
}

type QuestionInput struct {
	Title      string
	Type       string
	Required   bool
	OrderIndex int
	Options    []OptionInput
}

type OptionInput struct {
	Text       string
	OrderIndex int
}

func normalizeQuestionType(v string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case TypeSingle:
		return TypeSingle
	case TypeMulti:
		return TypeMulti
	case TypeText:
		return TypeText
	default:
		return ""
	}
}

func normalizeStatus(v string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case StatusDraft:
		return StatusDraft
	case StatusPublished:
		return StatusPublished
	default:
		return ""
	}
}

// normalizeDefinition trims and validates a full survey tree before it is
// written. Questions and options come back sorted by order index so the
// stored rows always reflect display order regardless of input order.
func normalizeDefinition(in SaveSurveyInput) (SaveSurveyInput, error) {
	out := in
	out.Title = strings.TrimSpace(in.Title)
	out.Description = strings.TrimSpace(in.Description)
	out.Status = normalizeStatus(in.Status)

	if out.Title == "" {
		return out, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(out.Title) > maxSurveyTitleLen {
		return out, fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, maxSurveyTitleLen)
	}
	if len(out.Description) > maxDescriptionLen {
		return out, fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, maxDescriptionLen)
	}
	if out.Status == "" {
		return out, fmt.Errorf("%w: status must be DRAFT or PUBLISHED", ErrInvalidInput)
	}
	if out.StartDate.IsZero() || out.EndDate.IsZero() {
		return out, fmt.Errorf("%w: start_date and end_date are required", ErrInvalidInput)
	}
	if out.EndDate.Before(out.StartDate) {
		return out, fmt.Errorf("%w: end_date cannot be before start_date", ErrInvalidInput)
	}

	out.Questions = make([]QuestionInput, len(in.Questions))
	seenOrder := make(map[int]struct{}, len(in.Questions))
	for i, q := range in.Questions {
		nq := q
		nq.Title = strings.TrimSpace(q.Title)
		nq.Type = normalizeQuestionType(q.Type)

		if nq.Title == "" {
			return out, fmt.Errorf("%w: questions[%d].title is required", ErrInvalidInput, i)
		}
		if len(nq.Title) > maxQuestionTitleLen {
			return out, fmt.Errorf("%w: questions[%d].title exceeds %d characters", ErrInvalidInput, i, maxQuestionTitleLen)
		}
		if nq.Type == "" {
			return out, fmt.Errorf("%w: questions[%d].type must be SINGLE, MULTI or TEXT", ErrInvalidInput, i)
		}
		if _, dup := seenOrder[nq.OrderIndex]; dup {
			return out, fmt.Errorf("%w: questions[%d].order_index %d is duplicated", ErrInvalidInput, i, nq.OrderIndex)
		}
		seenOrder[nq.OrderIndex] = struct{}{}

		if nq.Type == TypeText {
			// Free-text questions never carry options; stray ones are dropped.
			nq.Options = nil
			out.Questions[i] = nq
			continue
		}

		nq.Options = make([]OptionInput, len(q.Options))
		seenOptOrder := make(map[int]struct{}, len(q.Options))
		for j, o := range q.Options {
			no := o
			no.Text = strings.TrimSpace(o.Text)
			if no.Text == "" {
				return out, fmt.Errorf("%w: questions[%d].options[%d].text is required", ErrInvalidInput, i, j)
			}
			if _, dup := seenOptOrder[no.OrderIndex]; dup {
				return out, fmt.Errorf("%w: questions[%d].options[%d].order_index %d is duplicated", ErrInvalidInput, i, j, no.OrderIndex)
			}
			seenOptOrder[no.OrderIndex] = struct{}{}
			nq.Options[j] = no
		}
		sort.SliceStable(nq.Options, func(a, b int) bool {
			return nq.Options[a].OrderIndex < nq.Options[b].OrderIndex
		})
		out.Questions[i] = nq
	}

	sort.SliceStable(out.Questions, func(a, b int) bool {
		return out.Questions[a].OrderIndex < out.Questions[b].OrderIndex
	})
	return out, nil
}

func (s *Survey) questionByID(id int64) *Question {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i]
		}
	}
	return nil
}

func (q *Question) optionByID(id int64) *Option {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i]
		}
	}
	return nil
}
