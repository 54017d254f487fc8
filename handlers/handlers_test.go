package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tleague/middleware"
	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/services"
	"github.com/Dosada05/tleague/utils"
)

var testSecret = []byte("handlers-test-secret")

type reportCall struct {
	matchID  int
	reporter int64
	score    string
}

type stubMatchService struct {
	matches map[int]*models.Match
	reports []reportCall
	err     error
}

func (s *stubMatchService) GetMatch(_ context.Context, id int) (*models.Match, error) {
	if m, ok := s.matches[id]; ok {
		return m, nil
	}
	return nil, services.ErrMatchNotFound
}

func (s *stubMatchService) ReportScore(_ context.Context, matchID int, reporterID int64, score string) (*models.Match, error) {
	s.reports = append(s.reports, reportCall{matchID, reporterID, score})
	if s.err != nil {
		return nil, s.err
	}
	m := *s.matches[matchID]
	m.Status = models.MatchPending
	return &m, nil
}

func (s *stubMatchService) Confirm(_ context.Context, matchID int, userID int64) (*models.Match, error) {
	if s.err != nil {
		return nil, s.err
	}
	m := *s.matches[matchID]
	m.Status = models.MatchConfirmed
	return &m, nil
}

func (s *stubMatchService) Dispute(context.Context, int, int64) (*models.Match, error) {
	return nil, s.err
}

func (s *stubMatchService) ResolveDispute(context.Context, int, int64, string) (*models.Match, error) {
	return nil, s.err
}

func (s *stubMatchService) ListDisputed(context.Context) ([]*models.Match, error) {
	return nil, s.err
}

func (s *stubMatchService) UserHistory(_ context.Context, userID int64, limit int) ([]*models.Match, error) {
	out := make([]*models.Match, 0, limit)
	for _, m := range s.matches {
		if m.HasPlayer(userID) && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func newMatchRouter(svc services.MatchService) http.Handler {
	h := NewMatchHandler(svc)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testSecret, logger))
	r.Get("/matches/{matchID}", h.GetByIDHandler)
	r.Post("/matches/{matchID}/report", h.ReportHandler)
	r.Post("/matches/{matchID}/confirm", h.ConfirmHandler)
	r.Get("/users/me/matches", h.HistoryHandler)
	return r
}

func doRequest(t *testing.T, handler http.Handler, method, target string, userID int64, body string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := utils.GenerateJWT(testSecret, userID, time.Hour)
	require.NoError(t, err)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func sampleMatches() map[int]*models.Match {
	return map[int]*models.Match{
		7: {ID: 7, TournamentID: 1, RoundNumber: 1, Player1ID: 1, Player2ID: 2, Status: models.MatchScheduled},
	}
}

func TestMatchHandlerReport(t *testing.T) {
	svc := &stubMatchService{matches: sampleMatches()}
	router := newMatchRouter(svc)

	rec := doRequest(t, router, http.MethodPost, "/matches/7/report", 2, `{"score":"1:3"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var match models.Match
	require.NoError(t, json.Unmarshal(decodeBody(t, rec)["match"], &match))
	assert.Equal(t, models.MatchPending, match.Status)
	require.Len(t, svc.reports, 1)
	assert.Equal(t, reportCall{matchID: 7, reporter: 2, score: "1:3"}, svc.reports[0])
}

func TestMatchHandlerBadRequests(t *testing.T) {
	svc := &stubMatchService{matches: sampleMatches()}
	router := newMatchRouter(svc)

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"non numeric id", "/matches/abc/report", `{"score":"1:0"}`, http.StatusBadRequest},
		{"empty body", "/matches/7/report", "", http.StatusBadRequest},
		{"unknown field", "/matches/7/report", `{"score":"1:0","extra":1}`, http.StatusBadRequest},
		{"blank score", "/matches/7/report", `{"score":"  "}`, http.StatusBadRequest},
		{"two values", "/matches/7/report", `{"score":"1:0"}{"score":"2:0"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, tt.target, 1, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Contains(t, decodeBody(t, rec), "error")
		})
	}
	assert.Empty(t, svc.reports)
}

func TestMatchHandlerMapsServiceErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrMatchNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", services.ErrMatchNotPending), http.StatusConflict},
		{services.ErrInvalidScore, http.StatusUnprocessableEntity},
		{services.ErrDeadlineNotSet, http.StatusConflict},
		{services.ErrReporterCannotConfirm, http.StatusForbidden},
		{services.ErrNotMatchParticipant, http.StatusForbidden},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			router := newMatchRouter(&stubMatchService{matches: sampleMatches(), err: tt.err})
			rec := doRequest(t, router, http.MethodPost, "/matches/7/confirm", 1, "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMatchHandlerGetAndHistory(t *testing.T) {
	router := newMatchRouter(&stubMatchService{matches: sampleMatches()})

	rec := doRequest(t, router, http.MethodGet, "/matches/7", 5, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/matches/99", 5, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/users/me/matches?limit=5", 1, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []models.Match
	require.NoError(t, json.Unmarshal(decodeBody(t, rec)["matches"], &history))
	assert.Len(t, history, 1)

	rec = doRequest(t, router, http.MethodGet, "/users/me/matches?limit=-1", 1, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMatchHandlerRequiresToken(t *testing.T) {
	router := newMatchRouter(&stubMatchService{matches: sampleMatches()})

	req := httptest.NewRequest(http.MethodGet, "/matches/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=15&bad=x&zero=0", nil)

	v, err := queryInt(req, "limit", 10)
	require.NoError(t, err)
	assert.Equal(t, 15, v)

	v, err = queryInt(req, "missing", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	_, err = queryInt(req, "bad", 10)
	assert.Error(t, err)
	_, err = queryInt(req, "zero", 10)
	assert.Error(t, err)
}
