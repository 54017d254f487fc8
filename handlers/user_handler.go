package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/tleague/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(us services.UserService) *UserHandler {
	return &UserHandler{
		userService: us,
	}
}

// EnsureMe регистрирует текущего пользователя или обновляет его имя.
// POST /users/me
func (h *UserHandler) EnsureMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input struct {
		Username *string `json:"username"`
		FullName string  `json:"full_name"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if strings.TrimSpace(input.FullName) == "" {
		badRequestResponse(w, r, errors.New("full_name must be provided"))
		return
	}

	user, err := h.userService.EnsureUser(r.Context(), userID, input.Username, input.FullName)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"user": user})
}

// GetMe - GET /users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.profile(w, r, userID)
}

// GetUserByID - GET /users/{userID}
func (h *UserHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.profile(w, r, userID)
}

func (h *UserHandler) profile(w http.ResponseWriter, r *http.Request, userID int64) {
	user, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"user": user})
}
