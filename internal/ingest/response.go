// Package ingest implements the HTTP intake and read-side query surface:
// the agent-facing POST that drives persist -> detect -> escalate, and the
// dashboard-facing GET endpoints over the same store (§4.3, §4.7, §6).
package ingest

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/ashgrover/insiderwatch/internal/logging"
)

// APIResponse is the envelope every handler in this package returns.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response observability fields.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the structured error payload for a failed request.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest runs struct-tag validation and converts the first failure
// into an APIError; nil if v passes.
func validateRequest(v interface{}) *APIError {
	if err := validate.Struct(v); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return &APIError{
				Code:    "VALIDATION_ERROR",
				Message: "field " + fe.Field() + " failed " + fe.Tag(),
				Details: map[string]interface{}{"field": fe.Field(), "tag": fe.Tag()},
			}
		}
		return &APIError{Code: "VALIDATION_ERROR", Message: err.Error()}
	}
	return nil
}

// sanitizeLogValue strips control characters from untrusted strings before
// they reach a log line, preventing log-injection via forged entries.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			b.WriteString("\\x")
			b.WriteString(strconv.FormatInt(int64(r), 16))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func respondJSON(w http.ResponseWriter, status int, resp *APIResponse) {
	resp.Metadata.Timestamp = time.Now().UTC()

	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("ETag", generateETag(data))
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write response")
	}
}

func respondOK(w http.ResponseWriter, status string, data interface{}) {
	respondJSON(w, http.StatusOK, &APIResponse{Status: status, Data: data})
}

func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Str("error", sanitizeLogValue(err.Error())).Msg("request failed")
	}
	respondJSON(w, status, &APIResponse{
		Status: "error",
		Error:  &APIError{Code: code, Message: message},
	})
}

// generateETag computes an FNV-1a hash of the response body.
func generateETag(data []byte) string {
	var hash uint32 = 2166136261
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return strconv.FormatUint(uint64(hash), 16)
}

func intParam(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
