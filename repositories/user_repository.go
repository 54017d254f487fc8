package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/tleague/models"
	"github.com/lib/pq"
)

var ErrUserNotFound = errors.New("user not found")

// ratingLockKey - ключ advisory-блокировки, разделяющей живые обновления рейтинга и полный пересчёт.
const ratingLockKey = 7_340_001

type UserRepository interface {
	// Upsert создаёт пользователя или обновляет имя; рейтинг существующего пользователя не меняется.
	Upsert(ctx context.Context, exec SQLExecutor, user *models.User) error
	GetByID(ctx context.Context, exec SQLExecutor, id int64, forUpdate bool) (*models.User, error)
	ListByIDs(ctx context.Context, exec SQLExecutor, ids []int64) ([]*models.User, error)
	// ListRanked returns players with at least one match, best rating first. limit <= 0 means all.
	ListRanked(ctx context.Context, exec SQLExecutor, limit int) ([]*models.User, error)
	UpdateRating(ctx context.Context, exec SQLExecutor, id int64, record models.RatingRecord) error
	ResetRatings(ctx context.Context, exec SQLExecutor, initial int) error
	SetAdminRole(ctx context.Context, exec SQLExecutor, id int64, role *models.AdminRole) error
	// LockRatings takes a transaction-scoped advisory lock: shared for live updates,
	// exclusive for a full recalculation.
	LockRatings(ctx context.Context, exec SQLExecutor, exclusive bool) error
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const userColumns = `
	id, username, full_name, admin_role, created_at,
	rating, matches_played, wins, draws, losses, current_streak`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	u := &models.User{}
	var role sql.NullInt64
	err := row.Scan(
		&u.ID, &u.Username, &u.FullName, &role, &u.CreatedAt,
		&u.Rating, &u.MatchesPlayed, &u.Wins, &u.Draws, &u.Losses, &u.CurrentStreak,
	)
	if err != nil {
		return nil, err
	}
	if role.Valid {
		r := models.AdminRole(role.Int64)
		u.AdminRole = &r
	}
	return u, nil
}

func scanUsers(rows *sql.Rows) ([]*models.User, error) {
	defer rows.Close()
	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *postgresUserRepository) Upsert(ctx context.Context, exec SQLExecutor, u *models.User) error {
	query := `
		INSERT INTO users (id, username, full_name, rating)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, full_name = EXCLUDED.full_name
		RETURNING` + userColumns

	stored, err := scanUser(r.getExecutor(exec).QueryRowContext(ctx, query, u.ID, u.Username, u.FullName, u.Rating))
	if err != nil {
		return err
	}
	*u = *stored
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, exec SQLExecutor, id int64, forUpdate bool) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	u, err := scanUser(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *postgresUserRepository) ListByIDs(ctx context.Context, exec SQLExecutor, ids []int64) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	query := `SELECT` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY id`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

func (r *postgresUserRepository) ListRanked(ctx context.Context, exec SQLExecutor, limit int) ([]*models.User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE matches_played > 0
		ORDER BY rating DESC, wins DESC, id ASC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

func (r *postgresUserRepository) UpdateRating(ctx context.Context, exec SQLExecutor, id int64, rec models.RatingRecord) error {
	query := `
		UPDATE users SET
			rating = $1, matches_played = $2, wins = $3, draws = $4, losses = $5, current_streak = $6
		WHERE id = $7`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		rec.Rating, rec.MatchesPlayed, rec.Wins, rec.Draws, rec.Losses, rec.CurrentStreak, id,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) ResetRatings(ctx context.Context, exec SQLExecutor, initial int) error {
	query := `
		UPDATE users SET
			rating = $1, matches_played = 0, wins = 0, draws = 0, losses = 0, current_streak = 0`
	_, err := r.getExecutor(exec).ExecContext(ctx, query, initial)
	return err
}

func (r *postgresUserRepository) SetAdminRole(ctx context.Context, exec SQLExecutor, id int64, role *models.AdminRole) error {
	var value interface{}
	if role != nil {
		value = int(*role)
	}
	result, err := r.getExecutor(exec).ExecContext(ctx, `UPDATE users SET admin_role = $1 WHERE id = $2`, value, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) LockRatings(ctx context.Context, exec SQLExecutor, exclusive bool) error {
	query := `SELECT pg_advisory_xact_lock_shared($1)`
	if exclusive {
		query = `SELECT pg_advisory_xact_lock($1)`
	}
	_, err := r.getExecutor(exec).ExecContext(ctx, query, ratingLockKey)
	return err
}
