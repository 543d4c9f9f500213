package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// JSON writes data as the JSON response body with the given status. An encode
// failure after the header has gone out can only be logged.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// ErrorResponse is the error envelope of the catalog API. Error carries a
// machine-readable code (video_not_found, invalid_aid, ...); Message is the
// human-readable detail.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Error writes an ErrorResponse with the given status.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
