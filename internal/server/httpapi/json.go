package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"authkeeper/internal/common"
)

// errorEnvelope is the wire shape of a taxonomy error.
type errorEnvelope struct {
	Errors struct {
		Body []string `json:"body"`
	} `json:"errors"`
	Type common.ErrorKind `json:"type"`
}

// internalEnvelope is the wire shape of an unexpected failure. The real
// error is logged, never sent to the caller.
type internalEnvelope struct {
	Message string           `json:"message"`
	Type    common.ErrorKind `json:"type"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error(r.Context(), "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *common.Error
	if errors.As(err, &e) {
		h.log.Error(r.Context(), "request failed", "kind", e.Kind, "error", err)
		env := errorEnvelope{Type: e.Kind}
		env.Errors.Body = e.Messages
		h.writeJSON(w, r, e.Status, env)
		return
	}

	h.log.Error(r.Context(), "unexpected error", "error", err)
	h.writeJSON(w, r, http.StatusInternalServerError, internalEnvelope{
		Message: common.InternalErrorMessage,
		Type:    common.KindInternal,
	})
}
