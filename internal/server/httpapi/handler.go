// Package httpapi exposes the identity service as a JSON HTTP API and
// translates the error taxonomy into response envelopes. It is a thin
// boundary: request parsing in, envelope out, no business rules.
package httpapi

import (
	"encoding/json"
	"net/http"

	"authkeeper/internal/logging"
	"authkeeper/internal/server/users"
)

type Handler struct {
	service *users.Service
	log     logging.Logger
}

func NewHandler(service *users.Service, log logging.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Routes returns the API route table.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users", h.register)
	mux.HandleFunc("POST /api/users/login", h.login)
	mux.HandleFunc("GET /api/user", h.getCurrentUser)
	mux.HandleFunc("PUT /api/user", h.update)
	mux.HandleFunc("DELETE /api/users/{email}", h.del)
	return mux
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	// A body that fails to parse is handed to the service as an empty
	// wrapper; the service answers with its fixed validation message.
	var body users.AuthBody
	_ = json.NewDecoder(r.Body).Decode(&body)

	resp, err := h.service.Register(r.Context(), &body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body users.AuthBody
	_ = json.NewDecoder(r.Body).Decode(&body)

	resp, err := h.service.Login(r.Context(), &body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetUserByToken(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var body users.UpdateBody
	_ = json.NewDecoder(r.Body).Decode(&body)

	resp, err := h.service.Update(r.Context(), r.Header.Get("Authorization"), &body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) del(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Del(r.Context(), r.PathValue("email"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, result)
}
