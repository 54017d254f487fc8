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
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchStateConflict = errors.New("match status changed concurrently")
)

// MatchOrder выбирает сортировку списка матчей.
type MatchOrder int

const (
	// OrderBySchedule: round ascending, then creation order.
	OrderBySchedule MatchOrder = iota
	// OrderByRecent: most recently settled first, used for player history.
	OrderByRecent
	// OrderByConfirmation: chronological replay order (confirmed_at, id).
	OrderByConfirmation
)

type MatchFilter struct {
	TournamentID *int
	Round        *int
	UserID       *int64
	Statuses     []models.MatchStatus
	DeadlineSet  *bool
	Order        MatchOrder
	Limit        int
}

type MatchRepository interface {
	BatchCreate(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int, forUpdate bool) (*models.Match, error)
	List(ctx context.Context, exec SQLExecutor, filter MatchFilter) ([]*models.Match, error)
	ListRounds(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.RoundInfo, error)
	// SetRoundDeadline returns how many matches were updated.
	SetRoundDeadline(ctx context.Context, exec SQLExecutor, tournamentID, round int, deadline time.Time) (int, error)

	// Переходы состояний. Каждый - условный UPDATE по ожидаемому статусу;
	// ноль затронутых строк возвращает ErrMatchStateConflict.
	ReportScore(ctx context.Context, exec SQLExecutor, id int, player1Score, player2Score int, reportedBy int64, playedAt time.Time) error
	Confirm(ctx context.Context, exec SQLExecutor, id int, confirmedAt time.Time) error
	Dispute(ctx context.Context, exec SQLExecutor, id int) error
	ResolveDispute(ctx context.Context, exec SQLExecutor, id int, player1Score, player2Score int, confirmedAt time.Time) error
	// ExpireOverdue moves every overdue scheduled match to technical in one statement.
	ExpireOverdue(ctx context.Context, exec SQLExecutor, now time.Time) ([]*models.Match, error)

	ListApproachingDeadline(ctx context.Context, exec SQLExecutor, now, until time.Time) ([]*models.Match, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, round_number, player1_id, player2_id, player1_score, player2_score,
	status, deadline, deadline_set, played_at, confirmed_at, reported_by, created_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	var p1, p2, reportedBy sql.NullInt64
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.RoundNumber, &m.Player1ID, &m.Player2ID, &p1, &p2,
		&m.Status, &m.Deadline, &m.DeadlineSet, &m.PlayedAt, &m.ConfirmedAt, &reportedBy, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p1.Valid && p2.Valid {
		s1, s2 := int(p1.Int64), int(p2.Int64)
		m.Player1Score, m.Player2Score = &s1, &s2
	}
	if reportedBy.Valid {
		m.ReportedBy = &reportedBy.Int64
	}
	return m, nil
}

func scanMatches(rows *sql.Rows) ([]*models.Match, error) {
	defer rows.Close()
	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) BatchCreate(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches (tournament_id, round_number, player1_id, player2_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	for _, m := range matches {
		if m.Status == "" {
			m.Status = models.MatchScheduled
		}
		err := executor.QueryRowContext(ctx, query, m.TournamentID, m.RoundNumber, m.Player1ID, m.Player2ID, m.Status).
			Scan(&m.ID, &m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert match (round %d, %d vs %d): %w", m.RoundNumber, m.Player1ID, m.Player2ID, err)
		}
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int, forUpdate bool) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	m, err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) List(ctx context.Context, exec SQLExecutor, filter MatchFilter) ([]*models.Match, error) {
	var b strings.Builder
	b.WriteString(`SELECT` + matchColumns + ` FROM matches WHERE 1=1`)

	var p placeholders
	if filter.TournamentID != nil {
		b.WriteString(" AND tournament_id = " + p.add(*filter.TournamentID))
	}
	if filter.Round != nil {
		b.WriteString(" AND round_number = " + p.add(*filter.Round))
	}
	if filter.UserID != nil {
		ph := p.add(*filter.UserID)
		b.WriteString(" AND (player1_id = " + ph + " OR player2_id = " + ph + ")")
	}
	if len(filter.Statuses) > 0 {
		raw := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			raw[i] = string(s)
		}
		b.WriteString(" AND status = ANY(" + p.add(pq.Array(raw)) + ")")
	}
	if filter.DeadlineSet != nil {
		b.WriteString(" AND deadline_set = " + p.add(*filter.DeadlineSet))
	}

	switch filter.Order {
	case OrderByRecent:
		b.WriteString(" ORDER BY COALESCE(confirmed_at, created_at) DESC, id DESC")
	case OrderByConfirmation:
		b.WriteString(" ORDER BY confirmed_at ASC, id ASC")
	default:
		b.WriteString(" ORDER BY round_number ASC, id ASC")
	}
	if filter.Limit > 0 {
		b.WriteString(" LIMIT " + p.add(filter.Limit))
	}

	rows, err := r.getExecutor(exec).QueryContext(ctx, b.String(), p.args...)
	if err != nil {
		return nil, err
	}
	return scanMatches(rows)
}

func (r *postgresMatchRepository) ListRounds(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.RoundInfo, error) {
	query := `
		SELECT round_number, COUNT(*), BOOL_OR(deadline_set)
		FROM matches
		WHERE tournament_id = $1
		GROUP BY round_number
		ORDER BY round_number`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := make([]models.RoundInfo, 0)
	for rows.Next() {
		var info models.RoundInfo
		if err := rows.Scan(&info.RoundNumber, &info.MatchesCount, &info.DeadlineSet); err != nil {
			return nil, err
		}
		rounds = append(rounds, info)
	}
	return rounds, rows.Err()
}

func (r *postgresMatchRepository) SetRoundDeadline(ctx context.Context, exec SQLExecutor, tournamentID, round int, deadline time.Time) (int, error) {
	query := `UPDATE matches SET deadline = $1, deadline_set = TRUE WHERE tournament_id = $2 AND round_number = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, deadline.UTC(), tournamentID, round)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return int(n), nil
}

func (r *postgresMatchRepository) ReportScore(ctx context.Context, exec SQLExecutor, id int, player1Score, player2Score int, reportedBy int64, playedAt time.Time) error {
	query := `
		UPDATE matches
		SET player1_score = $1, player2_score = $2, status = $3, reported_by = $4, played_at = $5
		WHERE id = $6 AND status = $7 AND deadline_set = TRUE`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		player1Score, player2Score, models.MatchPending, reportedBy, playedAt.UTC(), id, models.MatchScheduled,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchStateConflict)
}

func (r *postgresMatchRepository) Confirm(ctx context.Context, exec SQLExecutor, id int, confirmedAt time.Time) error {
	query := `UPDATE matches SET status = $1, confirmed_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.MatchConfirmed, confirmedAt.UTC(), id, models.MatchPending)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchStateConflict)
}

func (r *postgresMatchRepository) Dispute(ctx context.Context, exec SQLExecutor, id int) error {
	query := `UPDATE matches SET status = $1 WHERE id = $2 AND status = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.MatchDisputed, id, models.MatchPending)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchStateConflict)
}

func (r *postgresMatchRepository) ResolveDispute(ctx context.Context, exec SQLExecutor, id int, player1Score, player2Score int, confirmedAt time.Time) error {
	query := `
		UPDATE matches
		SET player1_score = $1, player2_score = $2, status = $3, confirmed_at = $4
		WHERE id = $5 AND status = $6`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		player1Score, player2Score, models.MatchConfirmed, confirmedAt.UTC(), id, models.MatchDisputed,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchStateConflict)
}

func (r *postgresMatchRepository) ExpireOverdue(ctx context.Context, exec SQLExecutor, now time.Time) ([]*models.Match, error) {
	query := `
		UPDATE matches
		SET status = $1, player1_score = 0, player2_score = 0, played_at = $2, confirmed_at = $2
		WHERE status = $3 AND deadline_set = TRUE AND deadline < $2
		RETURNING` + matchColumns

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, models.MatchTechnical, now.UTC(), models.MatchScheduled)
	if err != nil {
		return nil, err
	}
	return scanMatches(rows)
}

func (r *postgresMatchRepository) ListApproachingDeadline(ctx context.Context, exec SQLExecutor, now, until time.Time) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE status = $1 AND deadline_set = TRUE AND deadline > $2 AND deadline <= $3
		ORDER BY deadline ASC, id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, models.MatchScheduled, now.UTC(), until.UTC())
	if err != nil {
		return nil, err
	}
	return scanMatches(rows)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	return err
}
