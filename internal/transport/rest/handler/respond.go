package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"in8/internal/model"
	"in8/internal/scoring"
	"in8/internal/service"
)

type errorResponse struct {
	Error         string                `json:"error"`
	QuestionIndex *int                  `json:"questionIndex,omitempty"`
	State         *service.SessionState `json:"state,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, scoring.ErrInvalidIndex),
		errors.Is(err, model.ErrInvalidTemplate),
		errors.Is(err, model.ErrInvalidProgress),
		errors.Is(err, service.ErrMissingUserID):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNoSession),
		errors.Is(err, service.ErrUnknownConstitution):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnanswered),
		errors.Is(err, service.ErrIncomplete),
		errors.Is(err, service.ErrResumeChoiceRequired),
		errors.Is(err, service.ErrProgressMismatch),
		errors.Is(err, service.ErrNotInProgress),
		errors.Is(err, service.ErrAlreadyStarted):
		return http.StatusConflict
	case errors.Is(err, service.ErrPersistence):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrTemplateUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody(err))
}

// writeSessionError reports a failed session operation together with the
// state the session was left in.
func writeSessionError(w http.ResponseWriter, err error, st service.SessionState) {
	body := errorBody(err)
	body.State = &st
	writeJSON(w, statusFor(err), body)
}

func errorBody(err error) errorResponse {
	body := errorResponse{Error: err.Error()}
	var inc *service.IncompleteError
	if errors.As(err, &inc) {
		idx := inc.QuestionIndex
		body.QuestionIndex = &idx
	}
	return body
}
