package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/repositories"
	"github.com/Dosada05/tleague/utils"
)

// DeadlineWarning - матч, у которого дедлайн наступит в пределах окна предупреждения.
type DeadlineWarning struct {
	Match     *models.Match `json:"match"`
	HoursLeft int           `json:"hours_left"`
}

type DeadlineResult struct {
	Round           int       `json:"round"`
	Deadline        time.Time `json:"deadline"`
	DeadlineLocal   string    `json:"deadline_local"`
	MatchesUpdated  int       `json:"matches_updated"`
	PlayersNotified int       `json:"players_notified"`
}

type ScheduleService interface {
	Rounds(ctx context.Context, tournamentID int) ([]models.RoundInfo, error)
	// RoundsWithDeadline returns only rounds players can already report in.
	RoundsWithDeadline(ctx context.Context, tournamentID int) ([]models.RoundInfo, error)
	RoundMatches(ctx context.Context, tournamentID int, round *int) ([]*models.Match, error)
	// ReportableMatch finds the user's scheduled match in a round with a deadline.
	ReportableMatch(ctx context.Context, userID int64, tournamentID int, round int) (*models.Match, error)

	// SetRoundDeadline stores the deadline given as display-zone wall clock time.
	SetRoundDeadline(ctx context.Context, tournamentID, round int, deadlineLocal time.Time) (int, time.Time, error)
	// SetRoundDeadlineFromText parses "DD.MM.YYYY HH:MM", stores it and notifies the round's players.
	SetRoundDeadlineFromText(ctx context.Context, adminID int64, tournamentID, round int, text string) (*DeadlineResult, error)

	// SweepExpired turns every overdue scheduled match into a technical result.
	SweepExpired(ctx context.Context, now time.Time) ([]*models.Match, error)
	DeadlineWarnings(ctx context.Context, now time.Time) ([]DeadlineWarning, error)
	// SendDeadlineWarnings notifies players once per match and deadline. Returns matches warned.
	SendDeadlineWarnings(ctx context.Context, now time.Time) (int, error)
}

type warnKey struct {
	matchID  int
	deadline int64
}

type scheduleService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	notifications  NotificationService
	admin          AdminService
	zone           utils.DisplayZone
	warningWindow  time.Duration
	clock          Clock
	metrics        *Metrics
	logger         *slog.Logger

	warnedMu sync.Mutex
	warned   map[warnKey]time.Time
}

type ScheduleServiceDeps struct {
	Tx             repositories.Transactor
	TournamentRepo repositories.TournamentRepository
	MatchRepo      repositories.MatchRepository
	Notifications  NotificationService
	Admin          AdminService
	Zone           utils.DisplayZone
	WarningWindow  time.Duration
	Clock          Clock
	Metrics        *Metrics
	Logger         *slog.Logger
}

func NewScheduleService(d ScheduleServiceDeps) ScheduleService {
	window := d.WarningWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &scheduleService{
		tx:             d.Tx,
		tournamentRepo: d.TournamentRepo,
		matchRepo:      d.MatchRepo,
		notifications:  d.Notifications,
		admin:          d.Admin,
		zone:           d.Zone,
		warningWindow:  window,
		clock:          d.Clock,
		metrics:        d.Metrics,
		logger:         d.Logger,
		warned:         make(map[warnKey]time.Time),
	}
}

func (s *scheduleService) Rounds(ctx context.Context, tournamentID int) ([]models.RoundInfo, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	return s.matchRepo.ListRounds(ctx, nil, tournamentID)
}

func (s *scheduleService) RoundsWithDeadline(ctx context.Context, tournamentID int) ([]models.RoundInfo, error) {
	rounds, err := s.Rounds(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	out := make([]models.RoundInfo, 0, len(rounds))
	for _, r := range rounds {
		if r.DeadlineSet {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *scheduleService) RoundMatches(ctx context.Context, tournamentID int, round *int) ([]*models.Match, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	return s.matchRepo.List(ctx, nil, repositories.MatchFilter{TournamentID: &tournamentID, Round: round})
}

func (s *scheduleService) ReportableMatch(ctx context.Context, userID int64, tournamentID int, round int) (*models.Match, error) {
	deadlineSet := true
	matches, err := s.matchRepo.List(ctx, nil, repositories.MatchFilter{
		TournamentID: &tournamentID,
		Round:        &round,
		UserID:       &userID,
		Statuses:     []models.MatchStatus{models.MatchScheduled},
		DeadlineSet:  &deadlineSet,
		Limit:        1,
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrMatchNotFound
	}
	return matches[0], nil
}

func (s *scheduleService) SetRoundDeadline(ctx context.Context, tournamentID, round int, deadlineLocal time.Time) (int, time.Time, error) {
	deadline := s.zone.ToUTC(deadlineLocal)
	if !deadline.After(s.clock.Now()) {
		return 0, time.Time{}, ErrDeadlineInPast
	}

	updated := 0
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.Status == models.StatusFinished {
			return ErrTournamentFinished
		}
		if !t.DrawCompleted {
			return ErrDrawNotCompleted
		}
		updated, err = s.matchRepo.SetRoundDeadline(ctx, exec, tournamentID, round, deadline)
		if err != nil {
			return err
		}
		if updated == 0 {
			return ErrRoundNotFound
		}
		return nil
	})
	if err != nil {
		return 0, time.Time{}, err
	}
	return updated, deadline, nil
}

func (s *scheduleService) SetRoundDeadlineFromText(ctx context.Context, adminID int64, tournamentID, round int, text string) (*DeadlineResult, error) {
	local, err := s.zone.Parse(text)
	if err != nil {
		return nil, ErrInvalidDeadline
	}
	updated, deadline, err := s.SetRoundDeadline(ctx, tournamentID, round, local)
	if err != nil {
		return nil, err
	}

	res := &DeadlineResult{
		Round:          round,
		Deadline:       deadline,
		DeadlineLocal:  s.zone.Format(deadline),
		MatchesUpdated: updated,
	}

	matches, err := s.matchRepo.List(ctx, nil, repositories.MatchFilter{TournamentID: &tournamentID, Round: &round})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load round matches for deadline notifications",
			slog.Int("tournament_id", tournamentID), slog.Int("round", round), slog.Any("error", err))
	} else {
		res.PlayersNotified = s.notifications.DeadlineSet(ctx, tournamentID, round, deadline, matches)
	}

	s.admin.Log(ctx, adminID, "set_deadline",
		fmt.Sprintf("tournament=%d round=%d deadline=%s", tournamentID, round, res.DeadlineLocal))
	return res, nil
}

func (s *scheduleService) SweepExpired(ctx context.Context, now time.Time) ([]*models.Match, error) {
	started := time.Now()
	var expired []*models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		expired, err = s.matchRepo.ExpireOverdue(ctx, exec, now)
		return err
	})
	s.metrics.ObserveSweep(time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("failed to expire overdue matches: %w", err)
	}
	if len(expired) == 0 {
		return expired, nil
	}

	s.metrics.MatchTransition(models.MatchTechnical, len(expired))
	s.logger.InfoContext(ctx, "overdue matches recorded as technical", slog.Int("count", len(expired)))
	for _, m := range expired {
		s.notifications.MatchTechnical(ctx, m)
	}
	return expired, nil
}

func (s *scheduleService) DeadlineWarnings(ctx context.Context, now time.Time) ([]DeadlineWarning, error) {
	matches, err := s.matchRepo.ListApproachingDeadline(ctx, nil, now, now.Add(s.warningWindow))
	if err != nil {
		return nil, err
	}
	warnings := make([]DeadlineWarning, 0, len(matches))
	for _, m := range matches {
		if m.Deadline == nil {
			continue
		}
		warnings = append(warnings, DeadlineWarning{
			Match:     m,
			HoursLeft: int(m.Deadline.Sub(now).Hours()),
		})
	}
	return warnings, nil
}

func (s *scheduleService) SendDeadlineWarnings(ctx context.Context, now time.Time) (int, error) {
	warnings, err := s.DeadlineWarnings(ctx, now)
	if err != nil {
		return 0, err
	}

	s.warnedMu.Lock()
	defer s.warnedMu.Unlock()
	for key, deadline := range s.warned {
		if deadline.Before(now) {
			delete(s.warned, key)
		}
	}

	sent := 0
	for _, w := range warnings {
		key := warnKey{matchID: w.Match.ID, deadline: w.Match.Deadline.Unix()}
		if _, ok := s.warned[key]; ok {
			continue
		}
		s.warned[key] = *w.Match.Deadline
		s.notifications.DeadlineApproaching(ctx, w.Match, w.HoursLeft)
		sent++
	}
	return sent, nil
}
