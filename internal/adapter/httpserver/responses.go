// Package httpserver contains HTTP handlers and middleware.
//
// It provides the REST endpoints for triggering section re-evaluations and
// reading their audit history, keeping HTTP concerns out of the business logic.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairyhunter13/sheet-reeval/internal/domain"
)

// errorEnvelope is the failure wire shape. Error carries the human-readable
// message as a plain string; Code and Details are auxiliary.
type errorEnvelope struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, _ *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
		codeStr = "NOT_FOUND"
	case errors.Is(err, domain.ErrModelTransient):
		code = http.StatusServiceUnavailable
		codeStr = "MODEL_UNAVAILABLE"
	case errors.Is(err, domain.ErrModelHard):
		code = http.StatusBadGateway
		codeStr = "MODEL_FAILED"
	case errors.Is(err, domain.ErrParse):
		code = http.StatusBadGateway
		codeStr = "RESPONSE_UNPARSEABLE"
	case errors.Is(err, domain.ErrPersistence):
		code = http.StatusInternalServerError
		codeStr = "PERSISTENCE"
	}
	writeJSON(w, code, errorEnvelope{Success: false, Error: err.Error(), Code: codeStr, Details: details})
}
