package repositories

import (
	"context"
	"fmt"

	"tripseal-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type SealTagRepository struct {
	DB *pgxpool.Pool
}

func NewSealTagRepository(db *pgxpool.Pool) *SealTagRepository {
	return &SealTagRepository{DB: db}
}

// Declare records a batch of declared tags for a session. Re-declaring an
// existing tag id is a no-op.
func (r *SealTagRepository) Declare(ctx context.Context, sessionID int, tags []models.DeclaredTag) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tag declaration: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, tag := range tags {
		_, err := tx.Exec(ctx, `
			INSERT INTO seal_tags (session_id, tag_id, capture_method)
			VALUES ($1, $2, $3)
			ON CONFLICT (session_id, tag_id) DO NOTHING
		`, sessionID, tag.TagID, tag.CaptureMethod)
		if err != nil {
			return fmt.Errorf("declare tag %s: %w", tag.TagID, err)
		}
	}

	return tx.Commit(ctx)
}

// ListBySession returns declared tags for a session in declaration order
func (r *SealTagRepository) ListBySession(ctx context.Context, sessionID int) ([]models.SealTag, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, session_id, tag_id, capture_method, declared_at
		FROM seal_tags WHERE session_id = $1 ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []models.SealTag
	for rows.Next() {
		var t models.SealTag
		if err := rows.Scan(&t.ID, &t.SessionID, &t.TagID, &t.CaptureMethod, &t.DeclaredAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CountBySession returns how many tags a session declared. Sessions with any
// declared tags complete through reconciliation rather than direct seal
// verification.
func (r *SealTagRepository) CountBySession(ctx context.Context, sessionID int) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM seal_tags WHERE session_id = $1`, sessionID).Scan(&count)
	return count, err
}
