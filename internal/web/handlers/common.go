package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/constants"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response with the given code.
func respondError(w http.ResponseWriter, status int, code apperr.Code, message string) {
	respondJSON(w, status, map[string]string{"error": message, "code": string(code)})
}

// statusForCode maps error codes to HTTP statuses.
func statusForCode(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalid, apperr.CodeDimensionMismatch:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeEnrichment:
		return http.StatusUnprocessableEntity
	case apperr.CodeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondAppError maps err to a status and writes {"error", "code"}.
// Internal failures are logged and their details hidden from the client.
func respondAppError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := apperr.CodeOf(err)
	status := statusForCode(code)

	message := err.Error()
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "code", code, "error", err)
		if code == apperr.CodeInternal {
			message = "internal error"
		}
	}
	respondError(w, status, code, message)
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, apperr.CodeInvalid, errInvalidRequestBody)
		return false
	}
	return true
}

// queryInt parses an optional positive integer query parameter, capped at maxVal.
func queryInt(r *http.Request, key string, defaultVal, maxVal int) (int, bool) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return min(n, maxVal), true
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
