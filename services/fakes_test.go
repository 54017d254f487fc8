package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/tleague/brackets"
	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/repositories"
	"github.com/Dosada05/tleague/storage"
	"github.com/Dosada05/tleague/utils"
	"github.com/prometheus/client_golang/prometheus"
)

var errInjected = errors.New("injected failure")

// fakeStore is an in-memory replacement for the postgres repositories.
// Transactions are serialized and roll back by restoring a snapshot.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID       int
	tournaments  map[int]models.Tournament
	participants map[int]models.Participant
	matches      map[int]models.Match
	users        map[int64]models.User
	records      map[int]models.TournamentRecord
	logs         []models.AdminLog

	failOn map[string]bool
	clock  Clock
}

func newFakeStore(clock Clock) *fakeStore {
	return &fakeStore{
		tournaments:  make(map[int]models.Tournament),
		participants: make(map[int]models.Participant),
		matches:      make(map[int]models.Match),
		users:        make(map[int64]models.User),
		records:      make(map[int]models.TournamentRecord),
		failOn:       make(map[string]bool),
		clock:        clock,
	}
}

type fakeSnapshot struct {
	nextID       int
	tournaments  map[int]models.Tournament
	participants map[int]models.Participant
	matches      map[int]models.Match
	users        map[int64]models.User
	records      map[int]models.TournamentRecord
	logs         []models.AdminLog
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *fakeStore) snapshot() fakeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fakeSnapshot{
		nextID:       s.nextID,
		tournaments:  cloneMap(s.tournaments),
		participants: cloneMap(s.participants),
		matches:      cloneMap(s.matches),
		users:        cloneMap(s.users),
		records:      cloneMap(s.records),
		logs:         append([]models.AdminLog(nil), s.logs...),
	}
}

func (s *fakeStore) restore(snap fakeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.tournaments = snap.tournaments
	s.participants = snap.participants
	s.matches = snap.matches
	s.users = snap.users
	s.records = snap.records
	s.logs = snap.logs
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *fakeStore) fail(op string) error {
	if s.failOn[op] {
		return errInjected
	}
	return nil
}

func (s *fakeStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) addUser(id int64, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := models.User{ID: id, FullName: username, RatingRecord: models.RatingRecord{Rating: 100}}
	if username != "" {
		u.Username = &username
	}
	s.users[id] = u
}

func (s *fakeStore) user(id int64) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *fakeStore) match(id int) models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matches[id]
}

func (s *fakeStore) participant(tournamentID int, userID int64) models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants {
		if p.TournamentID == tournamentID && p.UserID == userID {
			return p
		}
	}
	return models.Participant{}
}

func (s *fakeStore) matchesOf(tournamentID int) []models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Match
	for _, m := range s.matches {
		if m.TournamentID == tournamentID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- tournaments ---

type fakeTournamentRepo struct{ s *fakeStore }

func (r fakeTournamentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.id()
	t.CreatedAt = r.s.clock.Now()
	r.s.tournaments[t.ID] = *t
	return nil
}

func (r fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (r fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r fakeTournamentRepo) List(ctx context.Context, exec repositories.SQLExecutor, statuses []models.TournamentStatus) ([]*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Tournament, 0)
	for _, t := range r.s.tournaments {
		if len(statuses) > 0 {
			match := false
			for _, st := range statuses {
				match = match || t.Status == st
			}
			if !match {
				continue
			}
		}
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r fakeTournamentRepo) SetRegistrationOpen(ctx context.Context, exec repositories.SQLExecutor, id int, open bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok || t.Status != models.StatusRegistration {
		return repositories.ErrTournamentStateConflict
	}
	t.RegistrationOpen = open
	r.s.tournaments[id] = t
	return nil
}

func (r fakeTournamentRepo) CompleteDraw(ctx context.Context, exec repositories.SQLExecutor, id int, totalRounds int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok || t.Status != models.StatusRegistration || t.DrawCompleted {
		return repositories.ErrTournamentStateConflict
	}
	t.DrawCompleted = true
	t.RegistrationOpen = false
	t.TotalRounds = totalRounds
	t.CurrentRound = 1
	r.s.tournaments[id] = t
	return nil
}

func (r fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, from, to models.TournamentStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok || t.Status != from {
		return repositories.ErrTournamentStateConflict
	}
	if to == models.StatusActive && !t.DrawCompleted {
		return repositories.ErrTournamentStateConflict
	}
	t.Status = to
	switch to {
	case models.StatusActive:
		t.StartedAt = &at
		t.RegistrationOpen = false
	case models.StatusFinished:
		t.FinishedAt = &at
	}
	r.s.tournaments[id] = t
	return nil
}

func (r fakeTournamentRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("tournament.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.s.tournaments, id)
	return nil
}

// --- participants ---

type fakeParticipantRepo struct{ s *fakeStore }

func (r fakeParticipantRepo) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.participants {
		if existing.TournamentID == p.TournamentID && existing.UserID == p.UserID {
			return repositories.ErrParticipantConflict
		}
	}
	p.ID = r.s.id()
	p.RegisteredAt = r.s.clock.Now()
	r.s.participants[p.ID] = *p
	return nil
}

func (r fakeParticipantRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, p := range r.s.participants {
		if p.TournamentID == tournamentID {
			n++
		}
	}
	return n, nil
}

func (r fakeParticipantRepo) GetByTournamentAndUser(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, userID int64, forUpdate bool) (*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.participants {
		if p.TournamentID == tournamentID && p.UserID == userID {
			p := p
			return &p, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r fakeParticipantRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Participant, 0)
	for _, p := range r.s.participants {
		if p.TournamentID == tournamentID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeParticipantRepo) UpdateStats(ctx context.Context, exec repositories.SQLExecutor, p *models.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("participant.UpdateStats"); err != nil {
		return err
	}
	if _, ok := r.s.participants[p.ID]; !ok {
		return repositories.ErrParticipantNotFound
	}
	stored := *p
	stored.User = nil
	r.s.participants[p.ID] = stored
	return nil
}

func (r fakeParticipantRepo) ResetStats(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.participants {
		if p.TournamentID == tournamentID {
			p.ResetStats()
			r.s.participants[id] = p
		}
	}
	return nil
}

func (r fakeParticipantRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.participants {
		if p.TournamentID == tournamentID {
			delete(r.s.participants, id)
		}
	}
	return nil
}

// --- matches ---

type fakeMatchRepo struct{ s *fakeStore }

func (r fakeMatchRepo) BatchCreate(ctx context.Context, exec repositories.SQLExecutor, matches []*models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, m := range matches {
		if i == len(matches)-1 {
			if err := r.s.fail("match.BatchCreate"); err != nil {
				return err
			}
		}
		m.ID = r.s.id()
		m.CreatedAt = r.s.clock.Now()
		if m.Status == "" {
			m.Status = models.MatchScheduled
		}
		r.s.matches[m.ID] = *m
	}
	return nil
}

func (r fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int, forUpdate bool) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return &m, nil
}

func (r fakeMatchRepo) List(ctx context.Context, exec repositories.SQLExecutor, f repositories.MatchFilter) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.s.matches {
		if f.TournamentID != nil && m.TournamentID != *f.TournamentID {
			continue
		}
		if f.Round != nil && m.RoundNumber != *f.Round {
			continue
		}
		if f.UserID != nil && !m.HasPlayer(*f.UserID) {
			continue
		}
		if f.DeadlineSet != nil && m.DeadlineSet != *f.DeadlineSet {
			continue
		}
		if len(f.Statuses) > 0 {
			ok := false
			for _, st := range f.Statuses {
				ok = ok || m.Status == st
			}
			if !ok {
				continue
			}
		}
		m := m
		out = append(out, &m)
	}

	settled := func(m *models.Match) time.Time {
		if m.ConfirmedAt != nil {
			return *m.ConfirmedAt
		}
		return m.CreatedAt
	}
	switch f.Order {
	case repositories.OrderByConfirmation:
		sort.Slice(out, func(i, j int) bool {
			a, b := settled(out[i]), settled(out[j])
			if !a.Equal(b) {
				return a.Before(b)
			}
			return out[i].ID < out[j].ID
		})
	case repositories.OrderByRecent:
		sort.Slice(out, func(i, j int) bool {
			a, b := settled(out[i]), settled(out[j])
			if !a.Equal(b) {
				return a.After(b)
			}
			return out[i].ID > out[j].ID
		})
	default:
		sort.Slice(out, func(i, j int) bool {
			if out[i].RoundNumber != out[j].RoundNumber {
				return out[i].RoundNumber < out[j].RoundNumber
			}
			return out[i].ID < out[j].ID
		})
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r fakeMatchRepo) ListRounds(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]models.RoundInfo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byRound := make(map[int]*models.RoundInfo)
	for _, m := range r.s.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		info, ok := byRound[m.RoundNumber]
		if !ok {
			info = &models.RoundInfo{RoundNumber: m.RoundNumber}
			byRound[m.RoundNumber] = info
		}
		info.MatchesCount++
		info.DeadlineSet = info.DeadlineSet || m.DeadlineSet
	}
	out := make([]models.RoundInfo, 0, len(byRound))
	for _, info := range byRound {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out, nil
}

func (r fakeMatchRepo) SetRoundDeadline(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int, deadline time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, m := range r.s.matches {
		if m.TournamentID == tournamentID && m.RoundNumber == round {
			d := deadline.UTC()
			m.Deadline = &d
			m.DeadlineSet = true
			r.s.matches[id] = m
			n++
		}
	}
	return n, nil
}

// transition applies update when the stored match satisfies guard, mirroring a conditional UPDATE.
func (r fakeMatchRepo) transition(id int, guard func(models.Match) bool, update func(*models.Match)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok || !guard(m) {
		return repositories.ErrMatchStateConflict
	}
	update(&m)
	r.s.matches[id] = m
	return nil
}

func (r fakeMatchRepo) ReportScore(ctx context.Context, exec repositories.SQLExecutor, id int, p1, p2 int, reportedBy int64, playedAt time.Time) error {
	return r.transition(id,
		func(m models.Match) bool { return m.Status == models.MatchScheduled && m.DeadlineSet },
		func(m *models.Match) {
			m.Player1Score, m.Player2Score = &p1, &p2
			m.Status = models.MatchPending
			m.ReportedBy = &reportedBy
			m.PlayedAt = &playedAt
		})
}

func (r fakeMatchRepo) Confirm(ctx context.Context, exec repositories.SQLExecutor, id int, confirmedAt time.Time) error {
	return r.transition(id,
		func(m models.Match) bool { return m.Status == models.MatchPending },
		func(m *models.Match) {
			m.Status = models.MatchConfirmed
			m.ConfirmedAt = &confirmedAt
		})
}

func (r fakeMatchRepo) Dispute(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	return r.transition(id,
		func(m models.Match) bool { return m.Status == models.MatchPending },
		func(m *models.Match) { m.Status = models.MatchDisputed })
}

func (r fakeMatchRepo) ResolveDispute(ctx context.Context, exec repositories.SQLExecutor, id int, p1, p2 int, confirmedAt time.Time) error {
	return r.transition(id,
		func(m models.Match) bool { return m.Status == models.MatchDisputed },
		func(m *models.Match) {
			m.Player1Score, m.Player2Score = &p1, &p2
			m.Status = models.MatchConfirmed
			m.ConfirmedAt = &confirmedAt
		})
}

func (r fakeMatchRepo) ExpireOverdue(ctx context.Context, exec repositories.SQLExecutor, now time.Time) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Match, 0)
	for id, m := range r.s.matches {
		if m.Status != models.MatchScheduled || !m.DeadlineSet || m.Deadline == nil || !m.Deadline.Before(now) {
			continue
		}
		zero1, zero2 := 0, 0
		at := now
		m.Status = models.MatchTechnical
		m.Player1Score, m.Player2Score = &zero1, &zero2
		m.PlayedAt, m.ConfirmedAt = &at, &at
		r.s.matches[id] = m
		m := m
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeMatchRepo) ListApproachingDeadline(ctx context.Context, exec repositories.SQLExecutor, now, until time.Time) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.s.matches {
		if m.Status != models.MatchScheduled || !m.DeadlineSet || m.Deadline == nil {
			continue
		}
		if m.Deadline.After(now) && !m.Deadline.After(until) {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeMatchRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, m := range r.s.matches {
		if m.TournamentID == tournamentID {
			delete(r.s.matches, id)
		}
	}
	return nil
}

// --- users ---

type fakeUserRepo struct{ s *fakeStore }

func (r fakeUserRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.users[u.ID]; ok {
		existing.Username = u.Username
		existing.FullName = u.FullName
		r.s.users[u.ID] = existing
		*u = existing
		return nil
	}
	u.CreatedAt = r.s.clock.Now()
	r.s.users[u.ID] = *u
	return nil
}

func (r fakeUserRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int64, forUpdate bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (r fakeUserRepo) ListByIDs(ctx context.Context, exec repositories.SQLExecutor, ids []int64) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, &u)
		}
	}
	return out, nil
}

func (r fakeUserRepo) ListRanked(ctx context.Context, exec repositories.SQLExecutor, limit int) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.User, 0)
	for _, u := range r.s.users {
		if u.MatchesPlayed > 0 {
			u := u
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeUserRepo) UpdateRating(ctx context.Context, exec repositories.SQLExecutor, id int64, rec models.RatingRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("user.UpdateRating"); err != nil {
		return err
	}
	u, ok := r.s.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.RatingRecord = rec
	r.s.users[id] = u
	return nil
}

func (r fakeUserRepo) ResetRatings(ctx context.Context, exec repositories.SQLExecutor, initial int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, u := range r.s.users {
		u.RatingRecord = models.RatingRecord{Rating: initial}
		r.s.users[id] = u
	}
	return nil
}

func (r fakeUserRepo) SetAdminRole(ctx context.Context, exec repositories.SQLExecutor, id int64, role *models.AdminRole) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.AdminRole = role
	r.s.users[id] = u
	return nil
}

// LockRatings is a no-op: fake transactions are already serialized.
func (r fakeUserRepo) LockRatings(ctx context.Context, exec repositories.SQLExecutor, exclusive bool) error {
	return nil
}

// --- records and logs ---

type fakeRecordRepo struct{ s *fakeStore }

func (r fakeRecordRepo) BatchCreate(ctx context.Context, exec repositories.SQLExecutor, records []*models.TournamentRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range records {
		rec.ID = r.s.id()
		rec.CreatedAt = r.s.clock.Now()
		r.s.records[rec.ID] = *rec
	}
	return nil
}

func (r fakeRecordRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.TournamentRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.TournamentRecord, 0)
	for _, rec := range r.s.records {
		if rec.TournamentID == tournamentID {
			rec := rec
			out = append(out, &rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeRecordRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, rec := range r.s.records {
		if rec.TournamentID == tournamentID {
			delete(r.s.records, id)
		}
	}
	return nil
}

type fakeAdminLogRepo struct{ s *fakeStore }

func (r fakeAdminLogRepo) Create(ctx context.Context, exec repositories.SQLExecutor, entry *models.AdminLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = r.s.id()
	entry.CreatedAt = r.s.clock.Now()
	r.s.logs = append(r.s.logs, *entry)
	return nil
}

func (r fakeAdminLogRepo) ListRecent(ctx context.Context, exec repositories.SQLExecutor, limit int) ([]*models.AdminLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.AdminLog, 0)
	for i := len(r.s.logs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		l := r.s.logs[i]
		out = append(out, &l)
	}
	return out, nil
}

// --- notifications, storage, clock ---

type sentMessage struct {
	UserID int64
	Text   string
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []sentMessage
	failFor  map[int64]bool
}

func (n *recordingNotifier) Notify(ctx context.Context, userID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[userID] {
		return errInjected
	}
	n.messages = append(n.messages, sentMessage{UserID: userID, Text: text})
	return nil
}

func (n *recordingNotifier) to(userID int64) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, m := range n.messages {
		if m.UserID == userID {
			out = append(out, m.Text)
		}
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) BroadcastToRoom(room string, message any) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if msg, ok := message.(brackets.Message); ok {
		p.events = append(p.events, msg.Type)
	}
	return 0
}

type memoryObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryObjectStore) Put(ctx context.Context, key string, contentType string, body io.Reader) (*storage.PutResult, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = buf.Bytes()
	return &storage.PutResult{Key: key, Location: m.PublicURL(key)}, nil
}

func (m *memoryObjectStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryObjectStore) PublicURL(key string) string {
	return "https://archive.example/" + key
}

func (m *memoryObjectStore) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, ok
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- wiring ---

type testEngine struct {
	store    *fakeStore
	clock    *testClock
	notifier *recordingNotifier
	archive  *memoryObjectStore
	events   *recordingPublisher
	zone     utils.DisplayZone

	tournaments  TournamentService
	participants ParticipantService
	matches      MatchService
	schedule     ScheduleService
	standings    StandingsService
	ratings      RatingService
	records      RecordsService
	admin        AdminService
}

const testOwnerID int64 = 900

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	clock := &testClock{now: time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)}
	store := newFakeStore(clock)
	store.addUser(testOwnerID, "owner")

	logger := discardLogger()
	zone := utils.NewDisplayZone(3)
	metrics := NewMetrics(prometheus.NewRegistry())
	notifier := &recordingNotifier{failFor: map[int64]bool{}}
	archive := &memoryObjectStore{}
	events := &recordingPublisher{}

	tournamentRepo := fakeTournamentRepo{store}
	participantRepo := fakeParticipantRepo{store}
	matchRepo := fakeMatchRepo{store}
	userRepo := fakeUserRepo{store}
	recordRepo := fakeRecordRepo{store}

	admin := NewAdminService(fakeAdminLogRepo{store}, userRepo, []int64{testOwnerID}, logger)
	notifications := NewNotificationService(notifier, events, userRepo, []int64{testOwnerID}, zone, metrics, logger)
	standings := NewStandingsService(store, tournamentRepo, participantRepo, matchRepo, userRepo, logger)
	ratings := NewRatingService(store, userRepo, matchRepo, DefaultRatingPoints(), metrics, logger)
	records := NewRecordsService(store, tournamentRepo, participantRepo, matchRepo, recordRepo, logger)
	bracketSvc := NewBracketService(store, tournamentRepo, participantRepo, matchRepo, nil, metrics, logger)

	e := &testEngine{
		store:     store,
		clock:     clock,
		notifier:  notifier,
		archive:   archive,
		events:    events,
		zone:      zone,
		standings: standings,
		ratings:   ratings,
		records:   records,
		admin:     admin,
	}
	e.participants = NewParticipantService(store, tournamentRepo, participantRepo, userRepo, logger)
	e.tournaments = NewTournamentService(TournamentServiceDeps{
		Tx:              store,
		TournamentRepo:  tournamentRepo,
		ParticipantRepo: participantRepo,
		MatchRepo:       matchRepo,
		RecordRepo:      recordRepo,
		Brackets:        bracketSvc,
		Standings:       standings,
		Records:         records,
		Archive:         NewArchiveService(archive, clock, logger),
		Admin:           admin,
		Notifications:   notifications,
		Clock:           clock,
		Logger:          logger,
	})
	e.matches = NewMatchService(MatchServiceDeps{
		Tx:             store,
		MatchRepo:      matchRepo,
		TournamentRepo: tournamentRepo,
		Standings:      standings,
		Ratings:        ratings,
		Notifications:  notifications,
		Admin:          admin,
		Clock:          clock,
		Metrics:        metrics,
		Logger:         logger,
	})
	e.schedule = NewScheduleService(ScheduleServiceDeps{
		Tx:             store,
		TournamentRepo: tournamentRepo,
		MatchRepo:      matchRepo,
		Notifications:  notifications,
		Admin:          admin,
		Zone:           zone,
		WarningWindow:  24 * time.Hour,
		Clock:          clock,
		Metrics:        metrics,
		Logger:         logger,
	})
	return e
}
