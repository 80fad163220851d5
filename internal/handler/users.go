package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ianibaeva/explore-with-me/internal/model"
)

// CreateUser handles POST /admin/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req newUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.users.CreateUser(r.Context(), model.NewUser{Name: req.Name, Email: req.Email})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// GetUser handles GET /admin/users/{userId}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// ListUsers handles GET /admin/users?ids=&from=&size=
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	from, size, err := pageParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	users, err := h.users.ListUsers(r.Context(), queryList(r, "ids"), from, size)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
