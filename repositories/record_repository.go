package repositories

import (
	"context"
	"database/sql"

	"github.com/Dosada05/tleague/models"
)

type RecordRepository interface {
	BatchCreate(ctx context.Context, exec SQLExecutor, records []*models.TournamentRecord) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.TournamentRecord, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresRecordRepository struct {
	db *sql.DB
}

func NewPostgresRecordRepository(db *sql.DB) RecordRepository {
	return &postgresRecordRepository{db: db}
}

func (r *postgresRecordRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRecordRepository) BatchCreate(ctx context.Context, exec SQLExecutor, records []*models.TournamentRecord) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_records (tournament_id, record_type, user_id, value, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	for _, rec := range records {
		err := executor.QueryRowContext(ctx, query, rec.TournamentID, rec.RecordType, rec.UserID, rec.Value, rec.Description).
			Scan(&rec.ID, &rec.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresRecordRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.TournamentRecord, error) {
	query := `
		SELECT id, tournament_id, record_type, user_id, value, description, created_at
		FROM tournament_records
		WHERE tournament_id = $1
		ORDER BY id`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*models.TournamentRecord, 0)
	for rows.Next() {
		rec := &models.TournamentRecord{}
		if err := rows.Scan(&rec.ID, &rec.TournamentID, &rec.RecordType, &rec.UserID, &rec.Value, &rec.Description, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *postgresRecordRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM tournament_records WHERE tournament_id = $1`, tournamentID)
	return err
}
