package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/services"
)

type ScheduleHandler struct {
	scheduleService services.ScheduleService
}

func NewScheduleHandler(ss services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: ss}
}

// RoundsHandler обрабатывает GET /tournaments/{tournamentID}/rounds?with_deadline=true
func (h *ScheduleHandler) RoundsHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var rounds []models.RoundInfo
	if r.URL.Query().Get("with_deadline") == "true" {
		rounds, err = h.scheduleService.RoundsWithDeadline(r.Context(), tournamentID)
	} else {
		rounds, err = h.scheduleService.Rounds(r.Context(), tournamentID)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"rounds": rounds})
}

// ScheduleHandler обрабатывает GET /tournaments/{tournamentID}/matches?round=N
func (h *ScheduleHandler) ScheduleHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var round *int
	if r.URL.Query().Has("round") {
		n, err := queryInt(r, "round", 0)
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		round = &n
	}

	matches, err := h.scheduleService.RoundMatches(r.Context(), tournamentID, round)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"matches": matches})
}

// SetDeadlineHandler обрабатывает PUT /tournaments/{tournamentID}/rounds/{round}/deadline
// Тело: {"deadline": "DD.MM.YYYY HH:MM"} во временной зоне отображения.
func (h *ScheduleHandler) SetDeadlineHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	round, err := getIDFromURL(r, "round")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Deadline string `json:"deadline"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if strings.TrimSpace(input.Deadline) == "" {
		badRequestResponse(w, r, errors.New("deadline must be provided"))
		return
	}

	result, err := h.scheduleService.SetRoundDeadlineFromText(r.Context(), adminID, tournamentID, round, input.Deadline)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"deadline": result})
}

// MyMatchHandler обрабатывает GET /tournaments/{tournamentID}/rounds/{round}/my-match
func (h *ScheduleHandler) MyMatchHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	round, err := getIDFromURL(r, "round")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.scheduleService.ReportableMatch(r.Context(), userID, tournamentID, round)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"match": match})
}
