package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/iota-uz/kanban/pkg/constants"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// RequestID returns the id assigned by the logging middleware, then the raw header, then a fresh uuid.
func RequestID(r *http.Request, header string) string {
	if r == nil {
		return ""
	}
	if v, ok := r.Context().Value(constants.RequestIDKey).(string); ok && v != "" {
		return v
	}
	if header == "" {
		header = "X-Request-ID"
	}
	if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
		return v
	}
	return uuid.NewString()
}

// WriteRequestError writes the envelope with meta.request_id set.
func WriteRequestError(w http.ResponseWriter, requestID string, status int, code, message string) error {
	meta := map[string]string{}
	if requestID != "" {
		meta["request_id"] = requestID
	}
	return WriteError(w, status, code, message, meta)
}
