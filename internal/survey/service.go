package survey

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrSurveyNotFound     = errors.New("survey not found")
	ErrValidation         = errors.New("validation failed")
	ErrSurveyHasResponses = errors.New("survey has recorded responses")
)

type Service struct {
	db  *sql.DB
	now func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, now: time.Now}
}

type SurveySummary struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Status        string    `json:"status"`
	QuestionCount int       `json:"question_count"`
	HasResponses  bool      `json:"has_responses"`
}

type ListSurveysInput struct {
	Title string
	Start *time.Time
	End   *time.Time
}

type ResponseRecord struct {
	ID          int64     `json:"response_id"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name"`
	UserEmail   string    `json:"user_email"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type HistoryEntry struct {
	ResponseID  int64     `json:"response_id"`
	SurveyID    int64     `json:"survey_id"`
	SurveyTitle string    `json:"survey_title"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// SaveSurvey creates a survey tree, or replaces an existing one wholesale.
// An update clears the previous question/option subtree and rebuilds it from
// the input; there is no field-by-field merge. Surveys that already collected
// responses reject any update so historical answers keep valid question and
// option references.
func (s *Service) SaveSurvey(ctx context.Context, in SaveSurveyInput) (*Survey, error) {
	norm, err := normalizeDefinition(in)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	out := &Survey{
		Title:       norm.Title,
		Description: norm.Description,
		StartDate:   norm.StartDate,
		EndDate:     norm.EndDate,
		Status:      norm.Status,
	}

	if norm.ID > 0 {
		var prevStatus string
		err := tx.QueryRowContext(ctx, `
			SELECT status FROM surveys WHERE id = $1 FOR UPDATE
		`, norm.ID).Scan(&prevStatus)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrSurveyNotFound
			}
			return nil, fmt.Errorf("load survey for update: %w", err)
		}
		if prevStatus == StatusPublished && norm.Status == StatusDraft {
			return nil, fmt.Errorf("%w: a published survey cannot return to draft", ErrInvalidInput)
		}

		hasResponses, err := surveyHasResponses(ctx, tx, norm.ID)
		if err != nil {
			return nil, err
		}
		if hasResponses {
			return nil, ErrSurveyHasResponses
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE surveys
			SET title = $2,
				description = $3,
				start_date = $4,
				end_date = $5,
				status = $6,
				updated_at = now()
			WHERE id = $1
		`, norm.ID, norm.Title, norm.Description, norm.StartDate, norm.EndDate, norm.Status); err != nil {
			return nil, fmt.Errorf("update survey: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM options
			WHERE question_id IN (SELECT id FROM questions WHERE survey_id = $1)
		`, norm.ID); err != nil {
			return nil, fmt.Errorf("clear options: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE survey_id = $1`, norm.ID); err != nil {
			return nil, fmt.Errorf("clear questions: %w", err)
		}
		out.ID = norm.ID
	} else {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO surveys (title, description, start_date, end_date, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
			RETURNING id
		`, norm.Title, norm.Description, norm.StartDate, norm.EndDate, norm.Status).Scan(&out.ID); err != nil {
			return nil, fmt.Errorf("insert survey: %w", err)
		}
	}

	out.Questions = make([]Question, 0, len(norm.Questions))
	for _, q := range norm.Questions {
		question := Question{
			SurveyID:   out.ID,
			Title:      q.Title,
			Type:       q.Type,
			Required:   q.Required,
			OrderIndex: q.OrderIndex,
			Options:    make([]Option, 0, len(q.Options)),
		}
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO questions (survey_id, title, question_type, required, order_index)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, out.ID, q.Title, q.Type, q.Required, q.OrderIndex).Scan(&question.ID); err != nil {
			return nil, fmt.Errorf("insert question: %w", err)
		}

		for _, o := range q.Options {
			option := Option{
				QuestionID: question.ID,
				Text:       o.Text,
				OrderIndex: o.OrderIndex,
			}
			if err := tx.QueryRowContext(ctx, `
				INSERT INTO options (question_id, option_text, order_index)
				VALUES ($1, $2, $3)
				RETURNING id
			`, question.ID, o.Text, o.OrderIndex).Scan(&option.ID); err != nil {
				return nil, fmt.Errorf("insert option: %w", err)
			}
			question.Options = append(question.Options, option)
		}
		out.Questions = append(out.Questions, question)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save tx: %w", err)
	}
	return out, nil
}

func (s *Service) GetSurvey(ctx context.Context, surveyID int64) (*Survey, error) {
	if surveyID <= 0 {
		return nil, ErrInvalidInput
	}
	return loadSurveyTree(ctx, s.db, surveyID)
}

// DeleteSurvey removes a survey together with its questions and options.
// It refuses to touch a survey that already collected responses.
func (s *Service) DeleteSurvey(ctx context.Context, surveyID int64) error {
	if surveyID <= 0 {
		return ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM surveys WHERE id = $1)
	`, surveyID).Scan(&exists); err != nil {
		return fmt.Errorf("check survey exists: %w", err)
	}
	if !exists {
		return ErrSurveyNotFound
	}

	hasResponses, err := surveyHasResponses(ctx, tx, surveyID)
	if err != nil {
		return err
	}
	if hasResponses {
		return ErrSurveyHasResponses
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM options
		WHERE question_id IN (SELECT id FROM questions WHERE survey_id = $1)
	`, surveyID); err != nil {
		return fmt.Errorf("delete options: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE survey_id = $1`, surveyID); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM surveys WHERE id = $1`, surveyID); err != nil {
		return fmt.Errorf("delete survey: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}

// ListActiveSurveys returns published surveys whose date window contains the
// reference day. Survey dates are stored at midnight, so the clock reading is
// truncated to a date first: a survey stays active through the whole of its
// end date.
func (s *Service) ListActiveSurveys(ctx context.Context) ([]SurveySummary, error) {
	today := startOfDay(s.now())
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.description, s.start_date, s.end_date, s.status,
			(SELECT COUNT(*) FROM questions q WHERE q.survey_id = s.id)
		FROM surveys s
		WHERE s.status = $1
		  AND s.start_date <= $2
		  AND s.end_date >= $2
		ORDER BY s.start_date ASC, s.id ASC
	`, StatusPublished, today)
	if err != nil {
		return nil, fmt.Errorf("query active surveys: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows, false)
}

// ListSurveys is the administrator view: optional title substring and date
// range filters, every row annotated with whether responses exist.
func (s *Service) ListSurveys(ctx context.Context, in ListSurveysInput) ([]SurveySummary, error) {
	query := `
		SELECT s.id, s.title, s.description, s.start_date, s.end_date, s.status,
			(SELECT COUNT(*) FROM questions q WHERE q.survey_id = s.id),
			EXISTS(SELECT 1 FROM responses r WHERE r.survey_id = s.id)
		FROM surveys s
		WHERE 1=1
	`
	args := make([]any, 0, 3)
	if t := in.Title; t != "" {
		args = append(args, "%"+t+"%")
		query += fmt.Sprintf(` AND s.title ILIKE $%d`, len(args))
	}
	if in.Start != nil {
		args = append(args, *in.Start)
		query += fmt.Sprintf(` AND s.end_date >= $%d`, len(args))
	}
	if in.End != nil {
		args = append(args, *in.End)
		query += fmt.Sprintf(` AND s.start_date <= $%d`, len(args))
	}
	query += ` ORDER BY s.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query surveys: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows, true)
}

func (s *Service) ListSurveyResponses(ctx context.Context, surveyID int64) ([]ResponseRecord, error) {
	if surveyID <= 0 {
		return nil, ErrInvalidInput
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM surveys WHERE id = $1)
	`, surveyID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check survey exists: %w", err)
	}
	if !exists {
		return nil, ErrSurveyNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.user_id, u.full_name, u.email, r.submitted_at
		FROM responses r
		JOIN users u ON u.id = r.user_id
		WHERE r.survey_id = $1
		ORDER BY r.submitted_at ASC, r.id ASC
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("query survey responses: %w", err)
	}
	defer rows.Close()

	items := make([]ResponseRecord, 0)
	for rows.Next() {
		var item ResponseRecord
		if err := rows.Scan(&item.ID, &item.UserID, &item.UserName, &item.UserEmail, &item.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan survey response: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate survey responses: %w", err)
	}
	return items, nil
}

func (s *Service) ListUserHistory(ctx context.Context, userID int64) ([]HistoryEntry, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, s.id, s.title, r.submitted_at
		FROM responses r
		JOIN surveys s ON s.id = r.survey_id
		WHERE r.user_id = $1
		ORDER BY r.submitted_at DESC, r.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user history: %w", err)
	}
	defer rows.Close()

	items := make([]HistoryEntry, 0)
	for rows.Next() {
		var item HistoryEntry
		if err := rows.Scan(&item.ResponseID, &item.SurveyID, &item.SurveyTitle, &item.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user history: %w", err)
	}
	return items, nil
}

// loadSurveyTree reads a survey with its questions and options, children
// ordered by order_index then id.
func loadSurveyTree(ctx context.Context, q queryable, surveyID int64) (*Survey, error) {
	out := &Survey{}
	err := q.QueryRowContext(ctx, `
		SELECT id, title, description, start_date, end_date, status
		FROM surveys
		WHERE id = $1
	`, surveyID).Scan(&out.ID, &out.Title, &out.Description, &out.StartDate, &out.EndDate, &out.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSurveyNotFound
		}
		return nil, fmt.Errorf("load survey: %w", err)
	}

	qRows, err := q.QueryContext(ctx, `
		SELECT id, survey_id, title, question_type, required, order_index
		FROM questions
		WHERE survey_id = $1
		ORDER BY order_index ASC, id ASC
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer qRows.Close()

	out.Questions = make([]Question, 0)
	index := make(map[int64]int)
	for qRows.Next() {
		var item Question
		if err := qRows.Scan(&item.ID, &item.SurveyID, &item.Title, &item.Type, &item.Required, &item.OrderIndex); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		item.Options = make([]Option, 0)
		index[item.ID] = len(out.Questions)
		out.Questions = append(out.Questions, item)
	}
	if err := qRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	oRows, err := q.QueryContext(ctx, `
		SELECT o.id, o.question_id, o.option_text, o.order_index
		FROM options o
		JOIN questions qs ON qs.id = o.question_id
		WHERE qs.survey_id = $1
		ORDER BY o.order_index ASC, o.id ASC
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer oRows.Close()

	for oRows.Next() {
		var item Option
		if err := oRows.Scan(&item.ID, &item.QuestionID, &item.Text, &item.OrderIndex); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		if i, ok := index[item.QuestionID]; ok {
			out.Questions[i].Options = append(out.Questions[i].Options, item)
		}
	}
	if err := oRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}

	return out, nil
}

// startOfDay truncates an instant to midnight UTC so date-window comparisons
// include the boundary days.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func surveyHasResponses(ctx context.Context, q queryable, surveyID int64) (bool, error) {
	var exists bool
	if err := q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM responses WHERE survey_id = $1)
	`, surveyID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check survey responses: %w", err)
	}
	return exists, nil
}

func scanSummaries(rows *sql.Rows, withResponses bool) ([]SurveySummary, error) {
	items := make([]SurveySummary, 0)
	for rows.Next() {
		var item SurveySummary
		dest := []any{&item.ID, &item.Title, &item.Description, &item.StartDate, &item.EndDate, &item.Status, &item.QuestionCount}
		if withResponses {
			dest = append(dest, &item.HasResponses)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan survey summary: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate survey summaries: %w", err)
	}
	return items, nil
}
