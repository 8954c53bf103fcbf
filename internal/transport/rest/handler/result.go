package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"in8/internal/model"
	"in8/internal/transport/rest/middleware"
)

const maxHistoryLimit = 200

type historyReader interface {
	History(ctx context.Context, userID string, limit int) ([]*model.StoredResult, error)
}

// ResultHandler serves a user's result history
type ResultHandler struct {
	results historyReader
}

// NewResultHandler creates a new result handler
func NewResultHandler(results historyReader) *ResultHandler {
	return &ResultHandler{results: results}
}

// History handles GET /v1/results?limit=
func (h *ResultHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	results, err := h.results.History(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if results == nil {
		results = []*model.StoredResult{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// GuideHandler serves constitution guidance
type GuideHandler struct {
	guides guideLookup
}

// NewGuideHandler creates a new guide handler
func NewGuideHandler(guides guideLookup) *GuideHandler {
	return &GuideHandler{guides: guides}
}

// Get handles GET /v1/guides/{constitution}
func (h *GuideHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := model.ConstitutionName(mux.Vars(r)["constitution"])
	g, err := h.guides.Guide(name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
