package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/tleague/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrTournamentStateConflict = errors.New("tournament state changed concurrently")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// GetByIDForUpdate блокирует строку турнира до конца транзакции.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// List returns tournaments newest first. Empty statuses means all.
	List(ctx context.Context, exec SQLExecutor, statuses []models.TournamentStatus) ([]*models.Tournament, error)
	SetRegistrationOpen(ctx context.Context, exec SQLExecutor, id int, open bool) error
	CompleteDraw(ctx context.Context, exec SQLExecutor, id int, totalRounds int) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus, at time.Time) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, description, format, status, registration_open, max_participants,
	current_round, total_rounds, draw_completed, created_at, started_at, finished_at`

func scanTournament(row interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	t := &models.Tournament{}
	var maxParticipants sql.NullInt64
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.Format, &t.Status, &t.RegistrationOpen, &maxParticipants,
		&t.CurrentRound, &t.TotalRounds, &t.DrawCompleted, &t.CreatedAt, &t.StartedAt, &t.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	if maxParticipants.Valid {
		v := int(maxParticipants.Int64)
		t.MaxParticipants = &v
	}
	return t, nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, description, format, status, registration_open, max_participants)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		t.Name, t.Description, t.Format, t.Status, t.RegistrationOpen, t.MaxParticipants,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.get(ctx, exec, id, false)
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.get(ctx, exec, id, true)
}

func (r *postgresTournamentRepository) get(ctx context.Context, exec SQLExecutor, id int, forUpdate bool) (*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	t, err := scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, exec SQLExecutor, statuses []models.TournamentStatus) ([]*models.Tournament, error) {
	var b strings.Builder
	b.WriteString(`SELECT` + tournamentColumns + ` FROM tournaments`)

	args := []interface{}{}
	if len(statuses) > 0 {
		raw := make([]string, len(statuses))
		for i, s := range statuses {
			raw[i] = string(s)
		}
		b.WriteString(" WHERE status = ANY($1)")
		args = append(args, pq.Array(raw))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")

	rows, err := r.getExecutor(exec).QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) SetRegistrationOpen(ctx context.Context, exec SQLExecutor, id int, open bool) error {
	query := `UPDATE tournaments SET registration_open = $1 WHERE id = $2 AND status = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, open, id, models.StatusRegistration)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentStateConflict)
}

// CompleteDraw marks the draw done exactly once while the tournament is still in registration.
func (r *postgresTournamentRepository) CompleteDraw(ctx context.Context, exec SQLExecutor, id int, totalRounds int) error {
	query := `
		UPDATE tournaments
		SET draw_completed = TRUE, registration_open = FALSE, total_rounds = $1, current_round = 1
		WHERE id = $2 AND status = $3 AND draw_completed = FALSE`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, totalRounds, id, models.StatusRegistration)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentStateConflict)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus, at time.Time) error {
	var query string
	switch to {
	case models.StatusActive:
		query = `UPDATE tournaments SET status = $1, started_at = $2, registration_open = FALSE
			WHERE id = $3 AND status = $4 AND draw_completed = TRUE`
	case models.StatusFinished:
		query = `UPDATE tournaments SET status = $1, finished_at = $2
			WHERE id = $3 AND status = $4`
	default:
		return fmt.Errorf("unsupported tournament status transition to %q", to)
	}

	result, err := r.getExecutor(exec).ExecContext(ctx, query, to, at, id, from)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentStateConflict)
}

// Delete удаляет только строку турнира; зависимые данные чистит сервис в той же транзакции.
func (r *postgresTournamentRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
