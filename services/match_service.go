package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/repositories"
	"github.com/Dosada05/tleague/utils"
)

type MatchService interface {
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	// ReportScore принимает счёт "свои:соперника" от одного из игроков.
	ReportScore(ctx context.Context, matchID int, reporterID int64, score string) (*models.Match, error)
	Confirm(ctx context.Context, matchID int, userID int64) (*models.Match, error)
	Dispute(ctx context.Context, matchID int, userID int64) (*models.Match, error)
	// ResolveDispute sets the final score in player1:player2 order and confirms the match.
	ResolveDispute(ctx context.Context, matchID int, adminID int64, score string) (*models.Match, error)
	ListDisputed(ctx context.Context) ([]*models.Match, error)
	UserHistory(ctx context.Context, userID int64, limit int) ([]*models.Match, error)
}

type matchService struct {
	tx             repositories.Transactor
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	standings      StandingsService
	ratings        RatingService
	notifications  NotificationService
	admin          AdminService
	clock          Clock
	metrics        *Metrics
	logger         *slog.Logger
}

type MatchServiceDeps struct {
	Tx             repositories.Transactor
	MatchRepo      repositories.MatchRepository
	TournamentRepo repositories.TournamentRepository
	Standings      StandingsService
	Ratings        RatingService
	Notifications  NotificationService
	Admin          AdminService
	Clock          Clock
	Metrics        *Metrics
	Logger         *slog.Logger
}

func NewMatchService(d MatchServiceDeps) MatchService {
	return &matchService{
		tx:             d.Tx,
		matchRepo:      d.MatchRepo,
		tournamentRepo: d.TournamentRepo,
		standings:      d.Standings,
		ratings:        d.Ratings,
		notifications:  d.Notifications,
		admin:          d.Admin,
		clock:          d.Clock,
		metrics:        d.Metrics,
		logger:         d.Logger,
	}
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, id, false)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return m, nil
}

// loadForTransition locks the match and rejects results for finished tournaments.
func (s *matchService) loadForTransition(ctx context.Context, exec repositories.SQLExecutor, matchID int) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, exec, matchID, true)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	t, err := s.tournamentRepo.GetByID(ctx, exec, m.TournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if t.Status == models.StatusFinished {
		return nil, ErrTournamentFinished
	}
	return m, nil
}

func (s *matchService) ReportScore(ctx context.Context, matchID int, reporterID int64, score string) (*models.Match, error) {
	own, opponent, err := utils.ParseScore(score)
	if err != nil {
		return nil, ErrInvalidScore
	}

	var m *models.Match
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		m, err = s.loadForTransition(ctx, exec, matchID)
		if err != nil {
			return err
		}
		if !m.HasPlayer(reporterID) {
			return ErrNotMatchParticipant
		}
		if m.Status != models.MatchScheduled {
			return ErrMatchNotScheduled
		}
		if !m.DeadlineSet {
			return ErrDeadlineNotSet
		}

		p1, p2 := own, opponent
		if reporterID == m.Player2ID {
			p1, p2 = opponent, own
		}
		now := s.clock.Now()
		if err := s.matchRepo.ReportScore(ctx, exec, matchID, p1, p2, reporterID, now); err != nil {
			if errors.Is(err, repositories.ErrMatchStateConflict) {
				return ErrMatchNotScheduled
			}
			return err
		}
		m.Player1Score, m.Player2Score = &p1, &p2
		m.Status = models.MatchPending
		m.ReportedBy = &reporterID
		m.PlayedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.MatchTransition(models.MatchPending, 1)
	s.logger.InfoContext(ctx, "match result reported",
		slog.Int("match_id", matchID), slog.Int64("reporter_id", reporterID), slog.String("score", m.ScoreText()))
	s.notifications.MatchReported(ctx, m)
	return m, nil
}

func (s *matchService) Confirm(ctx context.Context, matchID int, userID int64) (*models.Match, error) {
	var m *models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		m, err = s.checkOpponentAction(ctx, exec, matchID, userID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if err := s.matchRepo.Confirm(ctx, exec, matchID, now); err != nil {
			if errors.Is(err, repositories.ErrMatchStateConflict) {
				return ErrMatchNotPending
			}
			return err
		}
		m.Status = models.MatchConfirmed
		m.ConfirmedAt = &now
		return s.processConfirmed(ctx, exec, m)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.MatchTransition(models.MatchConfirmed, 1)
	s.logger.InfoContext(ctx, "match confirmed", slog.Int("match_id", matchID), slog.Int64("user_id", userID))
	s.notifications.MatchConfirmed(ctx, m)
	return m, nil
}

func (s *matchService) Dispute(ctx context.Context, matchID int, userID int64) (*models.Match, error) {
	var m *models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		m, err = s.checkOpponentAction(ctx, exec, matchID, userID)
		if err != nil {
			return err
		}
		if err := s.matchRepo.Dispute(ctx, exec, matchID); err != nil {
			if errors.Is(err, repositories.ErrMatchStateConflict) {
				return ErrMatchNotPending
			}
			return err
		}
		m.Status = models.MatchDisputed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.MatchTransition(models.MatchDisputed, 1)
	s.logger.InfoContext(ctx, "match disputed", slog.Int("match_id", matchID), slog.Int64("user_id", userID))
	s.notifications.MatchDisputed(ctx, m, userID)
	return m, nil
}

// checkOpponentAction validates that userID may confirm or dispute a pending result.
func (s *matchService) checkOpponentAction(ctx context.Context, exec repositories.SQLExecutor, matchID int, userID int64) (*models.Match, error) {
	m, err := s.loadForTransition(ctx, exec, matchID)
	if err != nil {
		return nil, err
	}
	if !m.HasPlayer(userID) {
		return nil, ErrNotMatchParticipant
	}
	if m.Status != models.MatchPending {
		return nil, ErrMatchNotPending
	}
	if m.ReportedBy != nil && *m.ReportedBy == userID {
		return nil, ErrReporterCannotConfirm
	}
	return m, nil
}

func (s *matchService) ResolveDispute(ctx context.Context, matchID int, adminID int64, score string) (*models.Match, error) {
	p1, p2, err := utils.ParseScore(score)
	if err != nil {
		return nil, ErrInvalidScore
	}

	var m *models.Match
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		m, err = s.loadForTransition(ctx, exec, matchID)
		if err != nil {
			return err
		}
		if m.Status != models.MatchDisputed {
			return ErrMatchNotDisputed
		}
		now := s.clock.Now()
		if err := s.matchRepo.ResolveDispute(ctx, exec, matchID, p1, p2, now); err != nil {
			if errors.Is(err, repositories.ErrMatchStateConflict) {
				return ErrMatchNotDisputed
			}
			return err
		}
		m.Player1Score, m.Player2Score = &p1, &p2
		m.Status = models.MatchConfirmed
		m.ConfirmedAt = &now
		return s.processConfirmed(ctx, exec, m)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.MatchTransition(models.MatchConfirmed, 1)
	s.admin.Log(ctx, adminID, "resolve_dispute", fmt.Sprintf("match=%d score=%s", matchID, m.ScoreText()))
	s.notifications.DisputeResolved(ctx, m)
	return m, nil
}

// processConfirmed применяет результат к таблице и рейтингу в той же транзакции, что и подтверждение.
func (s *matchService) processConfirmed(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	if err := s.standings.ApplyMatch(ctx, exec, m); err != nil {
		return err
	}
	return s.ratings.ApplyMatch(ctx, exec, m)
}

func (s *matchService) ListDisputed(ctx context.Context) ([]*models.Match, error) {
	return s.matchRepo.List(ctx, nil, repositories.MatchFilter{
		Statuses: []models.MatchStatus{models.MatchDisputed},
	})
}

func (s *matchService) UserHistory(ctx context.Context, userID int64, limit int) ([]*models.Match, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.matchRepo.List(ctx, nil, repositories.MatchFilter{
		UserID:   &userID,
		Statuses: []models.MatchStatus{models.MatchConfirmed, models.MatchTechnical},
		Order:    repositories.OrderByRecent,
		Limit:    limit,
	})
}
