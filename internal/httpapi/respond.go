package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/caredraft/internal/jsonx"
	"github.com/caredraft/internal/llm"
	"github.com/caredraft/internal/supabase"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error   string   `json:"error"`
	Type    string   `json:"type,omitempty"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	data, err := jsonx.Marshal(v)
	if err != nil {
		// Nothing sensible left to send; the status line already went out.
		return
	}
	w.Write(data)
}

// writeError maps an error to the HTTP taxonomy: validation 400, auth 401,
// rate limit 429, provider unavailable 503, everything else 500. Messages for
// 5xx are generic; the detail goes to the log, not the client.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldMessage(fe))
		}
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "Validation failed",
			Type:    "VALIDATION",
			Details: details,
		})
		return
	}

	var merr *llm.ModelError
	if errors.As(err, &merr) {
		switch merr.Kind {
		case llm.KindAuthentication:
			logger.Error("provider credentials rejected", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody{
				Error: "AI provider is misconfigured",
				Type:  "INTERNAL",
			})
		case llm.KindRateLimit:
			w.Header().Set("Retry-After", "30")
			writeJSON(w, http.StatusTooManyRequests, errorBody{
				Error: "AI provider rate limit reached, try again shortly",
				Type:  "RATE_LIMIT",
			})
		case llm.KindValidation:
			writeJSON(w, http.StatusBadRequest, errorBody{
				Error: "AI provider rejected the request",
				Type:  "VALIDATION",
			})
		default:
			logger.Warn("provider unavailable", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, errorBody{
				Error: "AI provider is temporarily unavailable",
				Type:  "UNAVAILABLE",
			})
		}
		return
	}

	var aerr *supabase.APIError
	if errors.As(err, &aerr) {
		switch aerr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			writeJSON(w, http.StatusUnauthorized, errorBody{
				Error: "Not authorized for this resource",
				Type:  "AUTHENTICATION",
			})
		case http.StatusNotFound:
			writeJSON(w, http.StatusNotFound, errorBody{Error: "Resource not found"})
		case http.StatusConflict:
			writeJSON(w, http.StatusConflict, errorBody{Error: "Resource conflict"})
		default:
			logger.Error("backend request failed", zap.Int("status", aerr.Status), zap.Error(err))
			writeJSON(w, http.StatusBadGateway, errorBody{
				Error: "Data backend request failed",
				Type:  "UNAVAILABLE",
			})
		}
		return
	}

	logger.Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorBody{
		Error: "Internal server error",
		Type:  "INTERNAL",
	})
}

// fieldMessage renders one validation failure in a form the frontend can show.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// writeRateLimited answers a locally throttled request.
func writeRateLimited(w http.ResponseWriter, wait time.Duration) {
	secs := int(wait.Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeJSON(w, http.StatusTooManyRequests, errorBody{
		Error: "Too many requests, slow down",
		Type:  "RATE_LIMIT",
	})
}
