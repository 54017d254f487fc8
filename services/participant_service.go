package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/repositories"
)

type ParticipantService interface {
	Register(ctx context.Context, tournamentID int, userID int64) (*models.Participant, error)
	List(ctx context.Context, tournamentID int) ([]*models.Participant, error)
}

type participantService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	userRepo        repositories.UserRepository
	logger          *slog.Logger
}

func NewParticipantService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	userRepo repositories.UserRepository,
	logger *slog.Logger,
) ParticipantService {
	return &participantService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		logger:          logger,
	}
}

func (s *participantService) Register(ctx context.Context, tournamentID int, userID int64) (*models.Participant, error) {
	participant := &models.Participant{TournamentID: tournamentID, UserID: userID}
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		// блокировка турнира сериализует проверку лимита участников
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.Status != models.StatusRegistration || !t.RegistrationOpen || t.DrawCompleted {
			return ErrRegistrationNotOpen
		}
		if _, err := s.userRepo.GetByID(ctx, exec, userID, false); err != nil {
			return handleRepositoryError(err)
		}
		if _, err := s.participantRepo.GetByTournamentAndUser(ctx, exec, tournamentID, userID, false); err == nil {
			return ErrRegistrationConflict
		} else if !errors.Is(err, repositories.ErrParticipantNotFound) {
			return err
		}

		count, err := s.participantRepo.CountByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if t.IsFull(count) {
			return ErrTournamentFull
		}
		return handleRepositoryError(s.participantRepo.Create(ctx, exec, participant))
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "participant registered",
		slog.Int("tournament_id", tournamentID), slog.Int64("user_id", userID))
	return participant, nil
}

func (s *participantService) List(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	return s.participantRepo.ListByTournament(ctx, nil, tournamentID)
}
