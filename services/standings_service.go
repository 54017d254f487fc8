package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/repositories"
)

const (
	PointsWin  = 3
	PointsDraw = 1
	PointsLoss = 0
)

// ApplyResult adds one played match to p's tournament stats.
func ApplyResult(p *models.Participant, goalsFor, goalsAgainst int) {
	p.MatchesPlayed++
	p.GoalsFor += goalsFor
	p.GoalsAgainst += goalsAgainst
	switch models.OutcomeFor(goalsFor, goalsAgainst) {
	case models.OutcomeWin:
		p.Wins++
		p.Points += PointsWin
	case models.OutcomeDraw:
		p.Draws++
		p.Points += PointsDraw
	default:
		p.Losses++
		p.Points += PointsLoss
	}
}

// SortStandings orders by points, goal difference, goals scored. Equal rows keep their order.
func SortStandings(ps []*models.Participant) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDifference() != b.GoalDifference() {
			return a.GoalDifference() > b.GoalDifference()
		}
		return a.GoalsFor > b.GoalsFor
	})
}

type StandingsService interface {
	// ApplyMatch updates both participants for a newly confirmed match inside exec's transaction.
	ApplyMatch(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error
	Table(ctx context.Context, tournamentID int) ([]*models.Participant, error)
	// Recompute rebuilds the table from confirmed matches in confirmation order.
	Recompute(ctx context.Context, tournamentID int) ([]*models.Participant, error)
}

type standingsService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	userRepo        repositories.UserRepository
	logger          *slog.Logger
}

func NewStandingsService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	userRepo repositories.UserRepository,
	logger *slog.Logger,
) StandingsService {
	return &standingsService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		userRepo:        userRepo,
		logger:          logger,
	}
}

func (s *standingsService) ApplyMatch(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	if !m.HasScore() {
		return fmt.Errorf("match %d has no score to apply", m.ID)
	}
	// фиксированный порядок блокировок
	for _, uid := range uniqueSortedIDs(m.Player1ID, m.Player2ID) {
		p, err := s.participantRepo.GetByTournamentAndUser(ctx, exec, m.TournamentID, uid, true)
		if err != nil {
			return fmt.Errorf("standings for user %d: %w", uid, handleRepositoryError(err))
		}
		scored, conceded := m.GoalsFor(uid)
		ApplyResult(p, scored, conceded)
		if err := s.participantRepo.UpdateStats(ctx, exec, p); err != nil {
			return fmt.Errorf("failed to update standings for user %d: %w", uid, err)
		}
	}
	return nil
}

func (s *standingsService) Table(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	s.attachUsers(ctx, participants)
	SortStandings(participants)
	return participants, nil
}

func (s *standingsService) attachUsers(ctx context.Context, participants []*models.Participant) {
	ids := make([]int64, len(participants))
	for i, p := range participants {
		ids[i] = p.UserID
	}
	users, err := s.userRepo.ListByIDs(ctx, nil, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load participant users", slog.Any("error", err))
		return
	}
	byID := make(map[int64]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, p := range participants {
		p.User = byID[p.UserID]
	}
}

func (s *standingsService) Recompute(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	var participants []*models.Participant
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID); err != nil {
			return handleRepositoryError(err)
		}
		var err error
		participants, err = s.participantRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		matches, err := s.matchRepo.List(ctx, exec, repositories.MatchFilter{
			TournamentID: &tournamentID,
			Statuses:     []models.MatchStatus{models.MatchConfirmed},
			Order:        repositories.OrderByConfirmation,
		})
		if err != nil {
			return err
		}

		byUser := make(map[int64]*models.Participant, len(participants))
		for _, p := range participants {
			p.ResetStats()
			byUser[p.UserID] = p
		}
		for _, m := range matches {
			for _, uid := range []int64{m.Player1ID, m.Player2ID} {
				p, ok := byUser[uid]
				if !ok {
					return fmt.Errorf("match %d references user %d outside the tournament: %w", m.ID, uid, ErrParticipantNotFound)
				}
				scored, conceded := m.GoalsFor(uid)
				ApplyResult(p, scored, conceded)
			}
		}
		for _, p := range participants {
			if err := s.participantRepo.UpdateStats(ctx, exec, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "standings recomputed", slog.Int("tournament_id", tournamentID))
	SortStandings(participants)
	return participants, nil
}
