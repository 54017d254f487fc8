package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tleague/brackets"
	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/repositories"
)

const maxMeetings = 2

type DrawResult struct {
	TournamentID   int    `json:"tournament_id"`
	Generator      string `json:"generator"`
	TotalRounds    int    `json:"total_rounds"`
	MatchesCreated int    `json:"matches_created"`
}

type BracketService interface {
	// ConductDraw generates and stores the whole schedule in one transaction.
	ConductDraw(ctx context.Context, tournamentID int, meetingsCount int) (*DrawResult, error)
}

type bracketService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	shuffler        brackets.Shuffler
	metrics         *Metrics
	logger          *slog.Logger
}

func NewBracketService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	shuffler brackets.Shuffler,
	metrics *Metrics,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		shuffler:        shuffler,
		metrics:         metrics,
		logger:          logger,
	}
}

func (s *bracketService) ConductDraw(ctx context.Context, tournamentID int, meetingsCount int) (*DrawResult, error) {
	if meetingsCount < 1 || meetingsCount > maxMeetings {
		return nil, fmt.Errorf("%w: meetings_count must be between 1 and %d", ErrValidationFailed, maxMeetings)
	}

	var result *DrawResult
	var format models.TournamentFormat
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.DrawCompleted {
			return ErrDrawAlreadyCompleted
		}
		if t.Status != models.StatusRegistration {
			return ErrTournamentInvalidStatusTransition
		}
		format = t.Format

		generator, err := brackets.ForFormat(t.Format, s.shuffler)
		if err != nil {
			return err
		}

		participants, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to list participants: %w", err)
		}
		ids := make([]int64, len(participants))
		for i, p := range participants {
			ids[i] = p.UserID
		}

		schedule, err := generator.Generate(ctx, brackets.GenerateParams{Participants: ids, MeetingsCount: meetingsCount})
		if err != nil {
			return err
		}

		matches := make([]*models.Match, len(schedule.Fixtures))
		for i, f := range schedule.Fixtures {
			matches[i] = &models.Match{
				TournamentID: tournamentID,
				RoundNumber:  f.Round,
				Player1ID:    f.Player1ID,
				Player2ID:    f.Player2ID,
				Status:       models.MatchScheduled,
			}
		}
		if err := s.matchRepo.BatchCreate(ctx, exec, matches); err != nil {
			return fmt.Errorf("failed to store schedule: %w", err)
		}

		if err := s.tournamentRepo.CompleteDraw(ctx, exec, tournamentID, schedule.TotalRounds); err != nil {
			if errors.Is(err, repositories.ErrTournamentStateConflict) {
				return ErrDrawAlreadyCompleted
			}
			return err
		}

		result = &DrawResult{
			TournamentID:   tournamentID,
			Generator:      generator.Name(),
			TotalRounds:    schedule.TotalRounds,
			MatchesCreated: len(matches),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.DrawCompleted(format)
	s.logger.InfoContext(ctx, "draw completed",
		slog.Int("tournament_id", tournamentID),
		slog.String("generator", result.Generator),
		slog.Int("rounds", result.TotalRounds),
		slog.Int("matches", result.MatchesCreated),
	)
	return result, nil
}
