package httppresentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
)

const maxBodyBytes = 1 << 20

// envelope is the single response shape of every route.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// legacyFields are sent by older clients and ignored; identity comes from the token.
type legacyFields struct {
	UserID string `json:"userId"`
}

// decodeJSON decodes a bounded body into dst, rejecting unknown fields. An
// empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return failure.Wrap(failure.ErrValidation, "request body too large", err)
		}
		return failure.Wrap(failure.ErrValidation, fmt.Sprintf("invalid request body: %v", err), err)
	}
	if decoder.More() {
		return failure.Validation("invalid request body: trailing data")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, success bool, msg string) {
	writeJSON(w, status, envelope{Success: success, Message: msg})
}

// statusOf maps an error kind to its HTTP status. Placement failures wrap
// store and gateway kinds, so they are matched first.
func statusOf(err error) int {
	switch {
	case errors.Is(err, failure.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, failure.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, failure.ErrOrderPlacement):
		if errors.Is(err, failure.ErrGateway) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	case errors.Is(err, failure.ErrGateway):
		return http.StatusBadGateway
	case errors.Is(err, failure.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, failure.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError answers with the mapped status and the error's client-safe
// message. Causes never reach the client.
func writeDomainError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	msg := failure.Message(err)
	if status == http.StatusInternalServerError && !errors.Is(err, failure.ErrOrderPlacement) {
		msg = ""
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeMessage(w, status, false, msg)
}
