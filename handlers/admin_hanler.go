package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/services"
)

type AdminUserHandler struct {
	adminService services.AdminService
}

func NewAdminUserHandler(s services.AdminService) *AdminUserHandler {
	return &AdminUserHandler{adminService: s}
}

// GrantRole - PUT /admin/users/{userID}/role, тело {"role": "moderator"}
func (h *AdminUserHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	granterID, ok := currentUser(w, r)
	if !ok {
		return
	}
	targetID, err := getUserIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Role string `json:"role"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	role, ok := models.ParseAdminRole(input.Role)
	if !ok {
		failedValidationResponse(w, r, "unknown role "+strconv.Quote(input.Role))
		return
	}

	if err := h.adminService.SetRole(r.Context(), granterID, targetID, &role); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"user_id": targetID, "role": role.String()})
}

// RevokeRole - DELETE /admin/users/{userID}/role
func (h *AdminUserHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	granterID, ok := currentUser(w, r)
	if !ok {
		return
	}
	targetID, err := getUserIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.adminService.SetRole(r.Context(), granterID, targetID, nil); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListLogs - GET /admin/logs?limit=N
func (h *AdminUserHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit := toInt(r.URL.Query().Get("limit"), 50)
	if limit <= 0 {
		badRequestResponse(w, r, errors.New("invalid limit query parameter"))
		return
	}

	logs, err := h.adminService.RecentLogs(r.Context(), limit)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"logs": logs})
}

func toInt(s string, def int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return def
}
