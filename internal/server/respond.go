package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/events"
)

type errorBody struct {
	Error *events.ErrorPayload `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError renders err with the status its type maps to. Errors outside
// the studio taxonomy are internal errors.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)

	status := http.StatusInternalServerError
	var e *domain.Error
	if errors.As(err, &e) {
		status = e.HTTPStatusCode()
	}
	writeJSON(w, status, errorBody{Error: events.NewErrorPayload(err)})
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	err := domain.ErrConfiguration(msg).WithCode(domain.ErrorCodeInvalidParameter)
	AddError(r.Context(), err)
	writeJSON(w, http.StatusBadRequest, errorBody{Error: events.NewErrorPayload(err)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}
