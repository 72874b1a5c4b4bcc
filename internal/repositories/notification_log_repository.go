package repositories

import (
	"context"

	"tripseal-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationLogRepository struct {
	DB *pgxpool.Pool
}

func NewNotificationLogRepository(db *pgxpool.Pool) *NotificationLogRepository {
	return &NotificationLogRepository{DB: db}
}

// Create records one delivery attempt, success or failure
func (r *NotificationLogRepository) Create(ctx context.Context, n *models.NotificationLog) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO notification_logs (company_id, session_id, kind, success, error)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, n.CompanyID, n.SessionID, n.Kind, n.Success, n.Error).Scan(&n.ID, &n.CreatedAt)
}

// RecentFailures counts failed deliveries in the last 24 hours (monitoring)
func (r *NotificationLogRepository) RecentFailures(ctx context.Context) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM notification_logs
		WHERE success = FALSE AND created_at > NOW() - INTERVAL '24 hours'
	`).Scan(&count)
	return count, err
}
