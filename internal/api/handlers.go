package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/road-crawl-cli/internal/model"
)

const maxResultsBody = 5 << 20

type handlers struct {
	svc Service
}

type recordResultsRequest struct {
	Businesses []model.Business `json:"businesses" validate:"required,min=1,dive"`
}

type recordResultsResponse struct {
	SessionID string `json:"session_id"`
	Saved     int    `json:"saved"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func roadID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "road id must be a positive integer")
		return 0, false
	}
	return id, true
}

// intQuery parses an optional non-negative integer query parameter.
func intQuery(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(w, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func (h *handlers) roadScore(w http.ResponseWriter, r *http.Request) {
	id, ok := roadID(w, r)
	if !ok {
		return
	}
	out, err := h.svc.GetRoadScore(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) crawlPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := roadID(w, r)
	if !ok {
		return
	}
	out, err := h.svc.GetCrawlPlan(r.Context(), id, r.URL.Query().Get("keyword"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) executeCrawl(w http.ResponseWriter, r *http.Request) {
	id, ok := roadID(w, r)
	if !ok {
		return
	}
	out, err := h.svc.ExecuteCrawl(r.Context(), id, r.URL.Query().Get("keyword"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) recordResults(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var req recordResultsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxResultsBody))
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := model.Validate(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	saved, err := h.svc.RecordCrawlResult(r.Context(), sessionID, req.Businesses)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordResultsResponse{SessionID: sessionID, Saved: saved})
}

func (h *handlers) percentiles(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetPercentiles(r.Context(), chi.URLParam(r, "state"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) breakdown(w http.ResponseWriter, r *http.Request) {
	minSample, ok := intQuery(w, r, "min_sample")
	if !ok {
		return
	}
	out, err := h.svc.GetHighwayTypeBreakdown(r.Context(), chi.URLParam(r, "state"), minSample)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) buckets(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetCountBuckets(r.Context(), chi.URLParam(r, "state"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) priorityRoads(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(w, r, "limit")
	if !ok {
		return
	}
	if limit == 0 {
		limit = 100
	}
	out, err := h.svc.GetPriorityRoads(r.Context(), chi.URLParam(r, "state"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
