package repositories

import (
	"context"

	"tripseal-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MetricsRepository struct {
	DB *pgxpool.Pool
}

func NewMetricsRepository(db *pgxpool.Pool) *MetricsRepository {
	return &MetricsRepository{DB: db}
}

// InsertAPILog writes one request log row (called from the async middleware writer)
func (r *MetricsRepository) InsertAPILog(ctx context.Context, l *models.APIRequestLog) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO api_request_logs (
			time, method, path, status_code, duration_ms,
			request_size, response_size, user_id, user_role,
			ip_address, user_agent, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		l.Time, l.Method, l.Path, l.StatusCode, l.DurationMs,
		l.RequestSize, l.ResponseSize, l.UserID, l.UserRole,
		l.IPAddress, l.UserAgent, l.ErrorMessage,
	)
	return err
}

// RequestStats returns request count and error rate over the last hour (monitoring)
func (r *MetricsRepository) RequestStats(ctx context.Context) (total int64, errors int64, err error) {
	err = r.DB.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status_code >= 500)
		FROM api_request_logs
		WHERE time > NOW() - INTERVAL '1 hour'
	`).Scan(&total, &errors)
	return total, errors, err
}
