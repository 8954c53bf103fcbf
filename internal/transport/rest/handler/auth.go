package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"in8/internal/model"
	"in8/internal/transport/rest/middleware"
)

type authService interface {
	Login(username, password string) (*model.LoginResponse, error)
	IssueUserToken(userID, loginType string) (string, error)
}

type profileService interface {
	EnsureProfile(ctx context.Context, req model.SessionRequest) error
	Summary(ctx context.Context, userID string) (*model.UserSummary, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authSvc  authService
	profiles profileService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authSvc authService, profiles profileService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, profiles: profiles}
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authSvc.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Session handles POST /v1/auth/session. The caller has already signed the
// user in with its social or guest provider; this records the profile and
// issues the token the survey routes expect.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	var req model.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.profiles.EnsureProfile(r.Context(), req); err != nil {
		writeServiceError(w, err)
		return
	}
	token, err := h.authSvc.IssueUserToken(req.UserID, req.LoginType)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.SessionResponse{Token: token, UserID: req.UserID})
}

// Me handles GET /v1/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	summary, err := h.profiles.Summary(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
