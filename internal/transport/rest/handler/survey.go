package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"in8/internal/model"
	"in8/internal/service"
	"in8/internal/transport/rest/middleware"
)

type templateFetcher interface {
	Fetch(ctx context.Context) (*model.SurveyTemplate, service.TemplateSource, error)
}

type sessionRegistry interface {
	Open(ctx context.Context, userID string) (*service.Session, error)
	Get(userID string) (*service.Session, error)
	SavedProgress(ctx context.Context, userID string) (*model.ProgressRecord, error)
}

type guideLookup interface {
	Guide(name model.ConstitutionName) (*model.ConstitutionGuide, error)
	ForResult(res *model.RankedResult) (*model.ConstitutionGuide, error)
}

// SurveyHandler drives a user's survey session
type SurveyHandler struct {
	templates templateFetcher
	sessions  sessionRegistry
	guides    guideLookup
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(templates templateFetcher, sessions sessionRegistry, guides guideLookup) *SurveyHandler {
	return &SurveyHandler{templates: templates, sessions: sessions, guides: guides}
}

// StartRequest is the body of POST /v1/survey/start
type StartRequest struct {
	Choice service.ResumeChoice `json:"choice"`
}

// AnswerRequest is the body of POST /v1/survey/answer
type AnswerRequest struct {
	OptionIndex *int `json:"optionIndex"`
}

type templateResponse struct {
	Template *model.SurveyTemplate  `json:"template"`
	Source   service.TemplateSource `json:"source"`
}

type sessionResponse struct {
	service.SessionState
	Guide *model.ConstitutionGuide `json:"guide,omitempty"`
}

// Template handles GET /v1/survey/template
func (h *SurveyHandler) Template(w http.ResponseWriter, r *http.Request) {
	tpl, source, err := h.templates.Fetch(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, templateResponse{Template: tpl, Source: source})
}

// Progress handles GET /v1/survey/progress
func (h *SurveyHandler) Progress(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	rec, err := h.sessions.SavedProgress(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"progress": rec})
}

// Start handles POST /v1/survey/start. It opens a fresh session on the
// current template and enters it, resuming or restarting saved progress as
// the body asks.
func (h *SurveyHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.Choice {
	case service.ChoiceUnspecified, service.ChoiceResume, service.ChoiceRestart:
	default:
		writeError(w, http.StatusBadRequest, "choice must be resume or restart")
		return
	}

	sess, err := h.sessions.Open(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	st, err := sess.Start(r.Context(), req.Choice)
	if err != nil {
		writeSessionError(w, err, st)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionState: st})
}

// Answer handles POST /v1/survey/answer
func (h *SurveyHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OptionIndex == nil {
		writeError(w, http.StatusBadRequest, "optionIndex is required")
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	st, err := sess.SelectOption(r.Context(), *req.OptionIndex)
	h.respond(w, st, err)
}

// Previous handles POST /v1/survey/previous
func (h *SurveyHandler) Previous(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	st, err := sess.Previous()
	h.respond(w, st, err)
}

// Next handles POST /v1/survey/next
func (h *SurveyHandler) Next(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	st, err := sess.Next(r.Context())
	h.respond(w, st, err)
}

// Abandon handles POST /v1/survey/abandon
func (h *SurveyHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	res, err := sess.Abandon(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"result": res})
}

// Complete handles POST /v1/survey/complete
func (h *SurveyHandler) Complete(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	st, err := sess.Complete(r.Context())
	h.respond(w, st, err)
}

func (h *SurveyHandler) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	sess, err := h.sessions.Get(middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return sess, true
}

func (h *SurveyHandler) respond(w http.ResponseWriter, st service.SessionState, err error) {
	if err != nil {
		writeSessionError(w, err, st)
		return
	}
	resp := sessionResponse{SessionState: st}
	if st.Status == service.StatusCompleted && st.Result != nil {
		// Guidance is a convenience; an unknown constitution just omits it.
		if g, err := h.guides.ForResult(st.Result); err == nil {
			resp.Guide = g
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
