package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/road-crawl-cli/internal/service"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Category service.Category `json:"category"`
	Message  string           `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func statusFor(c service.Category) int {
	switch c {
	case service.CategoryValidation:
		return http.StatusBadRequest
	case service.CategoryNotFound:
		return http.StatusNotFound
	case service.CategoryConflict:
		return http.StatusConflict
	case service.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": {"category", "message"}}. Internal
// errors are logged and their detail withheld.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	cat := service.CategoryOf(err)
	if cat == "" {
		cat = service.CategoryInternal
	}
	msg := err.Error()
	if cat == service.CategoryInternal {
		zap.L().Error("api: internal error", zap.String("path", r.URL.Path), zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, statusFor(cat), errorBody{Error: errorDetail{Category: cat, Message: msg}})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{Category: service.CategoryValidation, Message: msg}})
}
