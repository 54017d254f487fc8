package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tleague/models"
)

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrParticipantConflict = errors.New("user is already registered in this tournament")
	ErrParticipantUnknown  = errors.New("participant references unknown user or tournament")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, participant *models.Participant) error
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	GetByTournamentAndUser(ctx context.Context, exec SQLExecutor, tournamentID int, userID int64, forUpdate bool) (*models.Participant, error)
	// ListByTournament returns participants in registration order.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Participant, error)
	UpdateStats(ctx context.Context, exec SQLExecutor, participant *models.Participant) error
	ResetStats(ctx context.Context, exec SQLExecutor, tournamentID int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const participantColumns = `
	id, tournament_id, user_id, points, matches_played, wins, draws, losses,
	goals_for, goals_against, registered_at`

func scanParticipant(row interface{ Scan(...interface{}) error }) (*models.Participant, error) {
	p := &models.Participant{}
	err := row.Scan(
		&p.ID, &p.TournamentID, &p.UserID, &p.Points, &p.MatchesPlayed, &p.Wins, &p.Draws, &p.Losses,
		&p.GoalsFor, &p.GoalsAgainst, &p.RegisteredAt,
	)
	return p, err
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	query := `
		INSERT INTO tournament_participants (tournament_id, user_id)
		VALUES ($1, $2)
		RETURNING id, registered_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query, p.TournamentID, p.UserID).Scan(&p.ID, &p.RegisteredAt)
	return r.handleParticipantError(err)
}

func (r *postgresParticipantRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	return count, err
}

func (r *postgresParticipantRepository) GetByTournamentAndUser(ctx context.Context, exec SQLExecutor, tournamentID int, userID int64, forUpdate bool) (*models.Participant, error) {
	query := `SELECT` + participantColumns + ` FROM tournament_participants WHERE tournament_id = $1 AND user_id = $2`
	if forUpdate {
		query += " FOR UPDATE"
	}
	p, err := scanParticipant(r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	query := `SELECT` + participantColumns + `
		FROM tournament_participants
		WHERE tournament_id = $1
		ORDER BY registered_at ASC, id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p, scanErr := scanParticipant(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *postgresParticipantRepository) UpdateStats(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	query := `
		UPDATE tournament_participants SET
			points = $1, matches_played = $2, wins = $3, draws = $4, losses = $5,
			goals_for = $6, goals_against = $7
		WHERE id = $8`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		p.Points, p.MatchesPlayed, p.Wins, p.Draws, p.Losses, p.GoalsFor, p.GoalsAgainst, p.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) ResetStats(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	query := `
		UPDATE tournament_participants SET
			points = 0, matches_played = 0, wins = 0, draws = 0, losses = 0, goals_for = 0, goals_against = 0
		WHERE tournament_id = $1`
	_, err := r.getExecutor(exec).ExecContext(ctx, query, tournamentID)
	return err
}

func (r *postgresParticipantRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM tournament_participants WHERE tournament_id = $1`, tournamentID)
	return err
}

func (r *postgresParticipantRepository) handleParticipantError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok {
		switch pqErr.Code {
		case "23505":
			return ErrParticipantConflict
		case "23503":
			return ErrParticipantUnknown
		}
	}
	return fmt.Errorf("participant repository: %w", err)
}
