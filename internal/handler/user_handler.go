package handler

import (
	"net/http"

	"clinic-appointments-api/internal/model"
)

// ListUsers handles GET /users: every profile, secret never included.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if users == nil {
		users = []model.PublicUser{}
	}
	writeJSON(w, http.StatusOK, users)
}
