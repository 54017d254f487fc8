package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tleague/brackets"
	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/repositories"
)

type CreateTournamentInput struct {
	Name             string                  `json:"name"`
	Description      *string                 `json:"description,omitempty"`
	Format           models.TournamentFormat `json:"format"`
	MaxParticipants  *int                    `json:"max_participants,omitempty"`
	RegistrationOpen bool                    `json:"registration_open"`
}

// TournamentOverview - полный снимок турнира для экрана и архива.
type TournamentOverview struct {
	Tournament *models.Tournament         `json:"tournament"`
	Standings  []*models.Participant      `json:"standings"`
	Rounds     []models.RoundInfo         `json:"rounds"`
	Matches    []*models.Match            `json:"matches"`
	Records    []*models.TournamentRecord `json:"records"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, adminID int64, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	// ListTournaments returns all tournaments, or only unfinished ones when activeOnly is set.
	ListTournaments(ctx context.Context, activeOnly bool) ([]*models.Tournament, error)
	ToggleRegistration(ctx context.Context, adminID int64, id int) (*models.Tournament, error)
	ConductDraw(ctx context.Context, adminID int64, id int, meetingsCount int) (*DrawResult, error)
	StartTournament(ctx context.Context, adminID int64, id int) (*models.Tournament, error)
	FinishTournament(ctx context.Context, adminID int64, id int) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, adminID int64, id int) error
	GetOverview(ctx context.Context, id int) (*TournamentOverview, error)
}

type tournamentService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	recordRepo      repositories.RecordRepository
	bracketService  BracketService
	standings       StandingsService
	records         RecordsService
	archive         ArchiveService
	admin           AdminService
	notifications   NotificationService
	clock           Clock
	logger          *slog.Logger
}

type TournamentServiceDeps struct {
	Tx              repositories.Transactor
	TournamentRepo  repositories.TournamentRepository
	ParticipantRepo repositories.ParticipantRepository
	MatchRepo       repositories.MatchRepository
	RecordRepo      repositories.RecordRepository
	Brackets        BracketService
	Standings       StandingsService
	Records         RecordsService
	Archive         ArchiveService
	Admin           AdminService
	Notifications   NotificationService
	Clock           Clock
	Logger          *slog.Logger
}

func NewTournamentService(d TournamentServiceDeps) TournamentService {
	return &tournamentService{
		tx:              d.Tx,
		tournamentRepo:  d.TournamentRepo,
		participantRepo: d.ParticipantRepo,
		matchRepo:       d.MatchRepo,
		recordRepo:      d.RecordRepo,
		bracketService:  d.Brackets,
		standings:       d.Standings,
		records:         d.Records,
		archive:         d.Archive,
		admin:           d.Admin,
		notifications:   d.Notifications,
		clock:           d.Clock,
		logger:          d.Logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, adminID int64, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidationFailed)
	}
	if !input.Format.Valid() {
		return nil, fmt.Errorf("%w: unknown format %q", ErrValidationFailed, input.Format)
	}
	if input.MaxParticipants != nil && *input.MaxParticipants < 2 {
		return nil, fmt.Errorf("%w: max_participants must be at least 2", ErrValidationFailed)
	}

	t := &models.Tournament{
		Name:             name,
		Description:      input.Description,
		Format:           input.Format,
		Status:           models.StatusRegistration,
		RegistrationOpen: input.RegistrationOpen,
		MaxParticipants:  input.MaxParticipants,
	}
	if err := s.tournamentRepo.Create(ctx, nil, t); err != nil {
		return nil, err
	}

	s.admin.Log(ctx, adminID, "create_tournament", fmt.Sprintf("tournament=%d name=%q format=%s", t.ID, t.Name, t.Format))
	return t, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return t, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, activeOnly bool) ([]*models.Tournament, error) {
	var statuses []models.TournamentStatus
	if activeOnly {
		statuses = []models.TournamentStatus{models.StatusRegistration, models.StatusActive}
	}
	return s.tournamentRepo.List(ctx, nil, statuses)
}

func (s *tournamentService) ToggleRegistration(ctx context.Context, adminID int64, id int) (*models.Tournament, error) {
	var t *models.Tournament
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		t, err = s.tournamentRepo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.DrawCompleted {
			return ErrDrawAlreadyCompleted
		}
		if t.Status != models.StatusRegistration {
			return ErrTournamentInvalidStatusTransition
		}
		if err := s.tournamentRepo.SetRegistrationOpen(ctx, exec, id, !t.RegistrationOpen); err != nil {
			return err
		}
		t.RegistrationOpen = !t.RegistrationOpen
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.admin.Log(ctx, adminID, "toggle_registration", fmt.Sprintf("tournament=%d open=%t", id, t.RegistrationOpen))
	return t, nil
}

func (s *tournamentService) ConductDraw(ctx context.Context, adminID int64, id int, meetingsCount int) (*DrawResult, error) {
	result, err := s.bracketService.ConductDraw(ctx, id, meetingsCount)
	if err != nil {
		return nil, err
	}
	s.admin.Log(ctx, adminID, "conduct_draw",
		fmt.Sprintf("tournament=%d rounds=%d matches=%d", id, result.TotalRounds, result.MatchesCreated))
	s.notifications.Publish(id, brackets.EventDrawCompleted, result)
	return result, nil
}

func (s *tournamentService) StartTournament(ctx context.Context, adminID int64, id int) (*models.Tournament, error) {
	t, err := s.transition(ctx, id, models.StatusActive, nil)
	if err != nil {
		return nil, err
	}
	s.admin.Log(ctx, adminID, "start_tournament", fmt.Sprintf("tournament=%d", id))
	s.notifications.Publish(id, brackets.EventTournamentStatus, t)
	return t, nil
}

func (s *tournamentService) FinishTournament(ctx context.Context, adminID int64, id int) (*models.Tournament, error) {
	t, err := s.transition(ctx, id, models.StatusFinished, func(exec repositories.SQLExecutor) error {
		_, err := s.records.Rebuild(ctx, exec, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.admin.Log(ctx, adminID, "finish_tournament", fmt.Sprintf("tournament=%d", id))
	s.notifications.Publish(id, brackets.EventTournamentStatus, t)

	overview, err := s.GetOverview(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to build overview for archive", slog.Int("tournament_id", id), slog.Any("error", err))
		return t, nil
	}
	if _, err := s.archive.Archive(ctx, overview); err != nil {
		s.logger.WarnContext(ctx, "failed to archive tournament", slog.Int("tournament_id", id), slog.Any("error", err))
	}
	return t, nil
}

// transition moves the tournament forward and runs then in the same transaction.
func (s *tournamentService) transition(ctx context.Context, id int, next models.TournamentStatus, then func(exec repositories.SQLExecutor) error) (*models.Tournament, error) {
	var t *models.Tournament
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		t, err = s.tournamentRepo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			return handleRepositoryError(err)
		}
		if next == models.StatusActive && t.Status == models.StatusRegistration && !t.DrawCompleted {
			return ErrDrawNotCompleted
		}
		if !t.CanTransitionTo(next) {
			return ErrTournamentInvalidStatusTransition
		}

		from := t.Status
		now := s.clock.Now()
		if err := s.tournamentRepo.UpdateStatus(ctx, exec, id, from, next, now); err != nil {
			if errors.Is(err, repositories.ErrTournamentStateConflict) {
				return ErrTournamentInvalidStatusTransition
			}
			return err
		}
		t.Status = next
		switch next {
		case models.StatusActive:
			t.StartedAt = &now
			t.RegistrationOpen = false
		case models.StatusFinished:
			t.FinishedAt = &now
		}
		if then != nil {
			return then(exec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "tournament status changed", slog.Int("tournament_id", id), slog.String("status", string(next)))
	return t, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, adminID int64, id int) error {
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, id); err != nil {
			return handleRepositoryError(err)
		}
		if err := s.recordRepo.DeleteByTournament(ctx, exec, id); err != nil {
			return fmt.Errorf("failed to delete records: %w", err)
		}
		if err := s.matchRepo.DeleteByTournament(ctx, exec, id); err != nil {
			return fmt.Errorf("failed to delete matches: %w", err)
		}
		if err := s.participantRepo.DeleteByTournament(ctx, exec, id); err != nil {
			return fmt.Errorf("failed to delete participants: %w", err)
		}
		return handleRepositoryError(s.tournamentRepo.Delete(ctx, exec, id))
	})
	if err != nil {
		return err
	}

	if err := s.archive.Remove(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "failed to remove tournament archive", slog.Int("tournament_id", id), slog.Any("error", err))
	}
	s.admin.Log(ctx, adminID, "delete_tournament", fmt.Sprintf("tournament=%d", id))
	return nil
}

func (s *tournamentService) GetOverview(ctx context.Context, id int) (*TournamentOverview, error) {
	overview := &TournamentOverview{}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournamentRepo.GetByID(gCtx, nil, id)
		if err != nil {
			return handleRepositoryError(err)
		}
		overview.Tournament = t
		return nil
	})
	g.Go(func() error {
		table, err := s.standings.Table(gCtx, id)
		if err != nil {
			return err
		}
		overview.Standings = table
		return nil
	})
	g.Go(func() error {
		rounds, err := s.matchRepo.ListRounds(gCtx, nil, id)
		if err != nil {
			return fmt.Errorf("failed to load rounds: %w", err)
		}
		overview.Rounds = rounds
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.List(gCtx, nil, repositories.MatchFilter{TournamentID: &id})
		if err != nil {
			return fmt.Errorf("failed to load matches: %w", err)
		}
		overview.Matches = matches
		return nil
	})
	g.Go(func() error {
		records, err := s.recordRepo.ListByTournament(gCtx, nil, id)
		if err != nil {
			return fmt.Errorf("failed to load records: %w", err)
		}
		overview.Records = records
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return overview, nil
}
