package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/services"
)

const defaultHistoryLimit = 10

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

type scoreInput struct {
	Score string `json:"score"`
}

func readScore(w http.ResponseWriter, r *http.Request) (string, bool) {
	var input scoreInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return "", false
	}
	if strings.TrimSpace(input.Score) == "" {
		badRequestResponse(w, r, errors.New("score must be provided"))
		return "", false
	}
	return input.Score, true
}

// GetByIDHandler обрабатывает GET /matches/{matchID}
func (h *MatchHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"match": match})
}

// ReportHandler обрабатывает POST /matches/{matchID}/report
// Счёт указывается с точки зрения отправителя: "свои:соперника".
func (h *MatchHandler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	score, ok := readScore(w, r)
	if !ok {
		return
	}

	match, err := h.matchService.ReportScore(r.Context(), id, userID, score)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"match": match})
}

// ConfirmHandler обрабатывает POST /matches/{matchID}/confirm
func (h *MatchHandler) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	h.playerAction(w, r, h.matchService.Confirm)
}

// DisputeHandler обрабатывает POST /matches/{matchID}/dispute
func (h *MatchHandler) DisputeHandler(w http.ResponseWriter, r *http.Request) {
	h.playerAction(w, r, h.matchService.Dispute)
}

func (h *MatchHandler) playerAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, matchID int, userID int64) (*models.Match, error),
) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := action(r.Context(), id, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"match": match})
}

// ResolveHandler обрабатывает POST /admin/matches/{matchID}/resolve
// Счёт указывается как "игрок1:игрок2".
func (h *MatchHandler) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	score, ok := readScore(w, r)
	if !ok {
		return
	}

	match, err := h.matchService.ResolveDispute(r.Context(), id, adminID, score)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"match": match})
}

// DisputedHandler обрабатывает GET /admin/matches/disputed
func (h *MatchHandler) DisputedHandler(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matchService.ListDisputed(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"matches": matches})
}

// HistoryHandler обрабатывает GET /users/me/matches?limit=N
func (h *MatchHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", defaultHistoryLimit)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.UserHistory(r.Context(), userID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"matches": matches})
}
