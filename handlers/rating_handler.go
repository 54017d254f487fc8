package handlers

import (
	"net/http"

	"github.com/Dosada05/tleague/services"
)

const defaultTopLimit = 10

type RatingHandler struct {
	ratingService  services.RatingService
	recordsService services.RecordsService
}

func NewRatingHandler(rs services.RatingService, recs services.RecordsService) *RatingHandler {
	return &RatingHandler{ratingService: rs, recordsService: recs}
}

// TopHandler обрабатывает GET /ratings/top?limit=N
func (h *RatingHandler) TopHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultTopLimit)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	players, err := h.ratingService.TopPlayers(r.Context(), limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"players": players})
}

// AllHandler обрабатывает GET /ratings
func (h *RatingHandler) AllHandler(w http.ResponseWriter, r *http.Request) {
	players, err := h.ratingService.AllRanked(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"players": players, "points": h.ratingService.Points()})
}

// RecalculateHandler обрабатывает POST /admin/ratings/recalculate
func (h *RatingHandler) RecalculateHandler(w http.ResponseWriter, r *http.Request) {
	processed, err := h.ratingService.RecalculateAll(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"matches_processed": processed})
}

// RecalculateRecordsHandler обрабатывает POST /admin/records/recalculate
func (h *RatingHandler) RecalculateRecordsHandler(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.recordsService.RecalculateFinished(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, jsonResponse{"tournaments_processed": tournaments})
}
