package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/uaesivakumar/agenthub/pkg/errors"
)

// WriteJSON writes a JSON response with the given status code and data.
// If encoding fails, it logs the error.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", slog.Any("error", err))
	}
}

// ErrorBody is the common failure envelope.
type ErrorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp string         `json:"timestamp"`
	RequestID string         `json:"request_id,omitempty"`
}

// WriteError writes the common error envelope, mapping the error's kind to
// an HTTP status.
func WriteError(w http.ResponseWriter, requestID string, err error) {
	kind := errors.KindOf(err)
	WriteJSON(w, errors.HTTPStatus(kind), map[string]any{
		"error": ErrorBody{
			Code:      string(kind),
			Message:   err.Error(),
			Details:   errors.DetailsOf(err),
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RequestID: requestID,
		},
	})
}

// WriteErrorMessage writes the envelope for a request that failed before an
// error value existed (e.g. unreadable body).
func WriteErrorMessage(w http.ResponseWriter, requestID string, kind errors.Kind, message string) {
	WriteError(w, requestID, errors.New(kind, message))
}
