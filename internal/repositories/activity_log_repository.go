package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"tripseal-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ActivityLogRepository struct {
	DB *pgxpool.Pool
}

func NewActivityLogRepository(db *pgxpool.Pool) *ActivityLogRepository {
	return &ActivityLogRepository{DB: db}
}

// Create appends one activity entry. The table is append-only; there is no
// update or delete path anywhere in the codebase.
func (r *ActivityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	var details []byte
	if entry.Details != nil {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal activity details: %w", err)
		}
	}

	return r.DB.QueryRow(ctx, `
		INSERT INTO activity_logs (user_id, action, target_type, target_id, details, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, entry.UserID, entry.Action, entry.TargetType, entry.TargetID, details, entry.IPAddress,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// ListScoped returns entries visible to the actor under the role visibility
// rules: superadmin sees all, an admin sees entries authored by accounts it
// transitively provisioned, a company sees itself and its employees, an
// employee sees only itself.
func (r *ActivityLogRepository) ListScoped(ctx context.Context, actor *models.Account, filter models.ActivityLogFilter) ([]models.ActivityLog, error) {
	where := ""
	args := []any{}

	switch actor.Role {
	case models.RoleSuperAdmin:
		where = "TRUE"
	case models.RoleAdmin:
		args = append(args, actor.ID)
		where = `al.user_id IN (
			WITH RECURSIVE created AS (
				SELECT id FROM accounts WHERE id = $1
				UNION ALL
				SELECT a.id FROM accounts a JOIN created c ON a.created_by_id = c.id
			)
			SELECT id FROM created
		)`
	case models.RoleCompany:
		args = append(args, actor.ID)
		where = `(al.user_id = $1 OR al.user_id IN (
			SELECT id FROM accounts WHERE company_id = $1 AND role = 'EMPLOYEE'))`
	default:
		args = append(args, actor.ID)
		where = `al.user_id = $1`
	}

	if filter.Action != "" {
		args = append(args, filter.Action)
		where += " AND al.action = $" + strconv.Itoa(len(args))
	}
	if filter.TargetType != "" {
		args = append(args, filter.TargetType)
		where += " AND al.target_type = $" + strconv.Itoa(len(args))
	}
	if filter.TargetID != nil {
		args = append(args, *filter.TargetID)
		where += " AND al.target_id = $" + strconv.Itoa(len(args))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		where += " AND al.user_id = $" + strconv.Itoa(len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	limitPos := len(args)
	args = append(args, filter.Offset)
	offsetPos := len(args)

	query := fmt.Sprintf(`
		SELECT al.id, al.user_id, al.action, al.target_type, al.target_id,
		       al.details, al.ip_address, al.created_at, a.name, a.role
		FROM activity_logs al
		JOIN accounts a ON al.user_id = a.id
		WHERE %s
		ORDER BY al.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, limitPos, offsetPos)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ActivityLog
	for rows.Next() {
		var e models.ActivityLog
		var details []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.TargetType, &e.TargetID,
			&details, &e.IPAddress, &e.CreatedAt, &e.ActorName, &e.ActorRole); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				// A malformed historical payload should not break the listing
				e.Details = map[string]any{"_raw": string(details)}
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListSessionCreateEntries returns CREATE entries targeting a session. The
// reconciliation pass mines these for declared tag ids of sessions predating
// the seal_tags table.
func (r *ActivityLogRepository) ListSessionCreateEntries(ctx context.Context, sessionID int) ([]models.ActivityLog, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, action, target_type, target_id, details, ip_address, created_at
		FROM activity_logs
		WHERE action = $1 AND target_type = 'session' AND target_id = $2
		ORDER BY id
	`, models.ActionCreate, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ActivityLog
	for rows.Next() {
		var e models.ActivityLog
		var details []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.TargetType, &e.TargetID,
			&details, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			_ = json.Unmarshal(details, &e.Details)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
