package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	standingsService  services.StandingsService
	recordsService    services.RecordsService
}

func NewTournamentHandler(ts services.TournamentService, ss services.StandingsService, rs services.RecordsService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: ts,
		standingsService:  ss,
		recordsService:    rs,
	}
}

// CreateHandler обрабатывает POST /tournaments
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), adminID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusCreated, jsonResponse{"tournament": tournament})
}

// GetByIDHandler обрабатывает GET /tournaments/{tournamentID}
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"tournament": tournament})
}

// ListHandler обрабатывает GET /tournaments?active=true
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	switch r.URL.Query().Get("active") {
	case "", "false", "0":
	case "true", "1":
		activeOnly = true
	default:
		badRequestResponse(w, r, errors.New("invalid active query parameter"))
		return
	}
	h.list(w, r, activeOnly)
}

// ListActiveHandler обрабатывает GET /tournaments/active
func (h *TournamentHandler) ListActiveHandler(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *TournamentHandler) list(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	tournaments, err := h.tournamentService.ListTournaments(r.Context(), activeOnly)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"tournaments": tournaments})
}

// OverviewHandler обрабатывает GET /tournaments/{tournamentID}/overview
func (h *TournamentHandler) OverviewHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	overview, err := h.tournamentService.GetOverview(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"overview": overview})
}

// ToggleRegistrationHandler обрабатывает POST /tournaments/{tournamentID}/registration/toggle
func (h *TournamentHandler) ToggleRegistrationHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tournamentService.ToggleRegistration)
}

// StartHandler обрабатывает POST /tournaments/{tournamentID}/start
func (h *TournamentHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tournamentService.StartTournament)
}

// FinishHandler обрабатывает POST /tournaments/{tournamentID}/finish
func (h *TournamentHandler) FinishHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tournamentService.FinishTournament)
}

func (h *TournamentHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, adminID int64, id int) (*models.Tournament, error),
) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := action(r.Context(), adminID, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"tournament": tournament})
}

// DrawHandler обрабатывает POST /tournaments/{tournamentID}/draw
func (h *TournamentHandler) DrawHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		MeetingsCount int `json:"meetings_count"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.tournamentService.ConductDraw(r.Context(), adminID, id, input.MeetingsCount)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusCreated, jsonResponse{"draw": result})
}

// DeleteHandler обрабатывает DELETE /tournaments/{tournamentID}
func (h *TournamentHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.DeleteTournament(r.Context(), adminID, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StandingsHandler обрабатывает GET /tournaments/{tournamentID}/standings
func (h *TournamentHandler) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	table, err := h.standingsService.Table(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"standings": table})
}

// RecomputeStandingsHandler обрабатывает POST /tournaments/{tournamentID}/standings/recompute
func (h *TournamentHandler) RecomputeStandingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	table, err := h.standingsService.Recompute(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"standings": table})
}

// RecordsHandler обрабатывает GET /tournaments/{tournamentID}/records
func (h *TournamentHandler) RecordsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	records, err := h.recordsService.List(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"records": records})
}

// CalculateRecordsHandler обрабатывает POST /tournaments/{tournamentID}/records
func (h *TournamentHandler) CalculateRecordsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	records, err := h.recordsService.Calculate(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"records": records})
}
