package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"in8/internal/model"
	"in8/internal/transport/rest/middleware"
)

type templatePublisher interface {
	Publish(ctx context.Context, tpl *model.SurveyTemplate) error
}

type statsReader interface {
	Statistics(ctx context.Context) (*model.SurveyStatistics, error)
}

type userAdmin interface {
	ListUsers(ctx context.Context) ([]*model.UserListEntry, error)
	DeleteUser(ctx context.Context, userID string) (int64, error)
}

type summaryReconciler interface {
	ReconcileSummary(ctx context.Context, userID string) (*model.UserSummary, error)
}

// AdminHandler handles the admin dashboard endpoints
type AdminHandler struct {
	templates templatePublisher
	stats     statsReader
	users     userAdmin
	results   summaryReconciler
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(templates templatePublisher, stats statsReader, users userAdmin, results summaryReconciler) *AdminHandler {
	return &AdminHandler{templates: templates, stats: stats, users: users, results: results}
}

// PublishTemplate handles PUT /v1/admin/template
func (h *AdminHandler) PublishTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl model.SurveyTemplate
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.templates.Publish(r.Context(), &tpl); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"questions":   tpl.TotalQuestions(),
		"publishedBy": middleware.GetAdminID(r.Context()),
	})
}

// Stats handles GET /v1/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Statistics(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListUsers handles GET /v1/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// DeleteUser handles DELETE /v1/admin/users/{userId}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	deleted, err := h.users.DeleteUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"userId": userID, "deletedResults": deleted})
}

// Reconcile handles POST /v1/admin/users/{userId}/reconcile
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	summary, err := h.results.ReconcileSummary(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
