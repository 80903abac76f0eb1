package survey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dynamicsurvey/internal/app/apiresp"
	"dynamicsurvey/internal/auth"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc surveyService
}

type surveyService interface {
	SaveSurvey(ctx context.Context, in SaveSurveyInput) (*Survey, error)
	GetSurvey(ctx context.Context, surveyID int64) (*Survey, error)
	DeleteSurvey(ctx context.Context, surveyID int64) error
	ListActiveSurveys(ctx context.Context) ([]SurveySummary, error)
	ListSurveys(ctx context.Context, in ListSurveysInput) ([]SurveySummary, error)
	ListSurveyResponses(ctx context.Context, surveyID int64) ([]ResponseRecord, error)
	ListUserHistory(ctx context.Context, userID int64) ([]HistoryEntry, error)
	Submit(ctx context.Context, surveyID, userID int64, answers []AnswerInput) (*SubmitResult, error)
	ComputeStats(ctx context.Context, surveyID int64) (*StatsReport, error)
}

type response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type saveSurveyRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	StartDate   string            `json:"start_date"`
	EndDate     string            `json:"end_date"`
	Status      string            `json:"status"`
	Questions   []questionRequest `json:"questions"`
}

type questionRequest struct {
	Title      string          `json:"title"`
	Type       string          `json:"type"`
	Required   bool            `json:"required"`
	OrderIndex int             `json:"order_index"`
	Options    []optionRequest `json:"options"`
}

type optionRequest struct {
	Text       string `json:"text"`
	OrderIndex int    `json:"order_index"`
}

type submitRequest struct {
	Answers []AnswerInput `json:"answers"`
}

func NewHandler(svc surveyService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListActiveSurveys(r.Context())
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: items})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	surveyID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || surveyID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid survey id"})
		return
	}
	item, err := h.svc.GetSurvey(r.Context(), surveyID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSurveyNotFound):
			writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: "survey not found"})
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid survey id"})
		default:
			writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: item})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	surveyID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || surveyID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid survey id"})
		return
	}

	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, response{OK: false, Error: "unauthorized"})
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}

	result, err := h.svc.Submit(r.Context(), surveyID, user.ID, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, ErrSurveyNotFound):
			writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: "survey not found"})
		case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusCreated, response{OK: true, Data: result})
}

func (h *Handler) MyHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, response{OK: false, Error: "unauthorized"})
		return
	}
	items, err := h.svc.ListUserHistory(r.Context(), user.ID)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: items})
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	in := ListSurveysInput{Title: strings.TrimSpace(r.URL.Query().Get("title"))}
	if raw := strings.TrimSpace(r.URL.Query().Get("start")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "start must be YYYY-MM-DD"})
			return
		}
		in.Start = &t
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("end")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "end must be YYYY-MM-DD"})
			return
		}
		in.End = &t
	}
	items, err := h.svc.ListSurveys(r.Context(), in)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: items})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeSaveRequest(w, r, 0)
	if !ok {
		return
	}
	item, err := h.svc.SaveSurvey(r.Context(), in)
	if err != nil {
		h.writeSaveError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, response{OK: true, Data: item})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	surveyID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || surveyID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid survey id"})
		return
	}
	in, ok := h.decodeSaveRequest(w, r, surveyID)
	if !ok {
		return
	}
	item, err := h.svc.SaveSurvey(r.Context(), in)
	if err != nil {
		h.writeSaveError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: item})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	surveyID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || surveyID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid survey id"})
		return
	}
	if err := h.svc.DeleteSurvey(r.Context(), surveyID); err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid survey id"})
		case errors.Is(err, ErrSurveyNotFound):
			writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: "survey not found"})
		case errors.Is(err, ErrSurveyHasResponses):
			writeJSON(w, r, http.StatusConflict, response{OK: false, Error: "survey already has responses"})
		default:
			writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: map[string]string{"status": "deleted"}})
}

func (h *Handler) Responses(w http.ResponseWriter, r *http.Request) {
	surveyID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || surveyID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid survey id"})
		return
	}
	items, err := h.svc.ListSurveyResponses(r.Context(), surveyID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSurveyNotFound):
			writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: "survey not found"})
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid survey id"})
		default:
			writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: items})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadStats(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: report})
}

func (h *Handler) ExportStats(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadStats(w, r)
	if !ok {
		return
	}
	data, err := ExportStatsXLSX(report)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="survey_%d_stats.xlsx"`, report.SurveyID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) loadStats(w http.ResponseWriter, r *http.Request) (*StatsReport, bool) {
	surveyID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || surveyID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid survey id"})
		return nil, false
	}
	report, err := h.svc.ComputeStats(r.Context(), surveyID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSurveyNotFound):
			writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: "survey not found"})
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid survey id"})
		default:
			writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		}
		return nil, false
	}
	return report, true
}

func (h *Handler) decodeSaveRequest(w http.ResponseWriter, r *http.Request, surveyID int64) (SaveSurveyInput, bool) {
	var req saveSurveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return SaveSurveyInput{}, false
	}

	startDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.StartDate))
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "start_date must be YYYY-MM-DD"})
		return SaveSurveyInput{}, false
	}
	endDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.EndDate))
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "end_date must be YYYY-MM-DD"})
		return SaveSurveyInput{}, false
	}

	in := SaveSurveyInput{
		ID:          surveyID,
		Title:       req.Title,
		Description: req.Description,
		StartDate:   startDate,
		EndDate:     endDate,
		Status:      req.Status,
		Questions:   make([]QuestionInput, 0, len(req.Questions)),
	}
	for _, q := range req.Questions {
		question := QuestionInput{
			Title:      q.Title,
			Type:       q.Type,
			Required:   q.Required,
			OrderIndex: q.OrderIndex,
			Options:    make([]OptionInput, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			question.Options = append(question.Options, OptionInput{
				Text:       o.Text,
				OrderIndex: o.OrderIndex,
			})
		}
		in.Questions = append(in.Questions, question)
	}
	return in, true
}

func (h *Handler) writeSaveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: err.Error()})
	case errors.Is(err, ErrSurveyNotFound):
		writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: "survey not found"})
	case errors.Is(err, ErrSurveyHasResponses):
		writeJSON(w, r, http.StatusConflict, response{OK: false, Error: "survey already has responses"})
	default:
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload response) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteError(w, r, code, payload.Error)
}
