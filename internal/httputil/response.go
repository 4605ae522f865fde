package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// Fallback messages for responses without an explicit error.
const (
	MessageUnknownError  = "An unknown error occurred!"
	MessageRouteNotFound = "Could not find this route."
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Message string `json:"message"`
}

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// RespondError sends a JSON error envelope. An empty message or a zero status
// falls back to the unknown-error defaults.
func RespondError(w http.ResponseWriter, message string, statusCode int) {
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	if message == "" {
		message = MessageUnknownError
	}
	RespondJSON(w, ErrorResponse{Message: message}, statusCode)
}

// NotFound is the fallback handler for unmatched routes and methods.
func NotFound(w http.ResponseWriter, r *http.Request) {
	RespondError(w, MessageRouteNotFound, http.StatusNotFound)
}
