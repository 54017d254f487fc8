package repositories

import (
	"context"
	"database/sql"

	"github.com/Dosada05/tleague/models"
)

type AdminLogRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entry *models.AdminLog) error
	ListRecent(ctx context.Context, exec SQLExecutor, limit int) ([]*models.AdminLog, error)
}

type postgresAdminLogRepository struct {
	db *sql.DB
}

func NewPostgresAdminLogRepository(db *sql.DB) AdminLogRepository {
	return &postgresAdminLogRepository{db: db}
}

func (r *postgresAdminLogRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAdminLogRepository) Create(ctx context.Context, exec SQLExecutor, entry *models.AdminLog) error {
	query := `INSERT INTO admin_logs (admin_id, action, details) VALUES ($1, $2, $3) RETURNING id, created_at`
	return r.getExecutor(exec).QueryRowContext(ctx, query, entry.AdminID, entry.Action, entry.Details).
		Scan(&entry.ID, &entry.CreatedAt)
}

func (r *postgresAdminLogRepository) ListRecent(ctx context.Context, exec SQLExecutor, limit int) ([]*models.AdminLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, admin_id, action, details, created_at FROM admin_logs ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*models.AdminLog, 0)
	for rows.Next() {
		l := &models.AdminLog{}
		if err := rows.Scan(&l.ID, &l.AdminID, &l.Action, &l.Details, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
