package repositories

import (
	"context"
	"errors"
	"fmt"

	"tripseal-backend/internal/apperrors"
	"tripseal-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SealRepository struct {
	DB *pgxpool.Pool
}

func NewSealRepository(db *pgxpool.Pool) *SealRepository {
	return &SealRepository{DB: db}
}

const sealColumns = `id, session_id, barcode, verified, verified_by_id, scanned_at, status, status_comment, status_updated_at, status_evidence, created_at`

func scanSeal(row pgx.Row) (*models.Seal, error) {
	var s models.Seal
	var status *string
	err := row.Scan(
		&s.ID, &s.SessionID, &s.Barcode, &s.Verified, &s.VerifiedByID,
		&s.ScannedAt, &status, &s.StatusComment, &s.StatusUpdatedAt,
		&s.StatusEvidence, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	if status != nil {
		st := models.SealStatus(*status)
		s.Status = &st
	}
	return &s, nil
}

// GetByBarcode retrieves a seal by its barcode
func (r *SealRepository) GetByBarcode(ctx context.Context, barcode string) (*models.Seal, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+sealColumns+` FROM seals WHERE barcode = $1`, barcode)
	return scanSeal(row)
}

// Get retrieves a seal by id
func (r *SealRepository) Get(ctx context.Context, id int) (*models.Seal, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+sealColumns+` FROM seals WHERE id = $1`, id)
	return scanSeal(row)
}

// GetPrimaryBySession retrieves the primary seal of a session
func (r *SealRepository) GetPrimaryBySession(ctx context.Context, sessionID int) (*models.Seal, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+sealColumns+` FROM seals WHERE session_id = $1 ORDER BY id LIMIT 1`, sessionID)
	return scanSeal(row)
}

// Verify marks a seal as verified by a guard. The seal row is locked for the
// duration of the transaction, so a second guard racing on the same barcode
// observes the committed verification and fails AlreadyVerified. When
// completeSession is set the parent session is moved to COMPLETED in the same
// transaction (the single-seal flow).
func (r *SealRepository) Verify(ctx context.Context, barcode string, guardID int, completeSession bool) (*models.Seal, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin verify: %w", err)
	}
	defer tx.Rollback(ctx)

	seal, err := scanSeal(tx.QueryRow(ctx, `SELECT `+sealColumns+` FROM seals WHERE barcode = $1 FOR UPDATE`, barcode))
	if err != nil {
		return nil, err
	}
	if seal.Verified {
		return nil, apperrors.ErrAlreadyVerified
	}
	if seal.Status != nil {
		// A terminal status (MISSING from a previous reconciliation)
		// cannot become VERIFIED.
		return nil, apperrors.NewInvalidTransition("seal", string(*seal.Status), string(models.SealVerified))
	}

	row := tx.QueryRow(ctx, `
		UPDATE seals
		SET verified = TRUE, verified_by_id = $1, scanned_at = NOW(),
		    status = $2, status_updated_at = NOW()
		WHERE id = $3
		RETURNING `+sealColumns, guardID, models.SealVerified, seal.ID)
	seal, err = scanSeal(row)
	if err != nil {
		return nil, fmt.Errorf("update seal %s: %w", barcode, err)
	}

	if completeSession {
		if _, err := tx.Exec(ctx, `UPDATE sessions SET status = $1 WHERE id = $2`,
			models.SessionCompleted, seal.SessionID); err != nil {
			return nil, fmt.Errorf("complete session %d: %w", seal.SessionID, err)
		}
	} else {
		// Multi-tag flow: first scan moves the trip underway
		if _, err := tx.Exec(ctx, `UPDATE sessions SET status = $1 WHERE id = $2 AND status = $3`,
			models.SessionInProgress, seal.SessionID, models.SessionPending); err != nil {
			return nil, fmt.Errorf("progress session %d: %w", seal.SessionID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit verify: %w", err)
	}
	return seal, nil
}

// UpdateStatus escalates a verified seal to BROKEN or TAMPERED. The row lock
// serializes racing guards; the transition table is re-checked against the
// locked row, so the loser of a race gets InvalidStateTransition rather than
// overwriting the winner's status.
func (r *SealRepository) UpdateStatus(ctx context.Context, sealID, sessionID int, to models.SealStatus, comment, evidence string) (*models.Seal, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback(ctx)

	seal, err := scanSeal(tx.QueryRow(ctx,
		`SELECT `+sealColumns+` FROM seals WHERE id = $1 AND session_id = $2 FOR UPDATE`, sealID, sessionID))
	if err != nil {
		return nil, err
	}

	if !models.CanTransitionSeal(seal.Status, to) {
		from := ""
		if seal.Status != nil {
			from = string(*seal.Status)
		}
		return nil, apperrors.NewInvalidTransition("seal", from, string(to))
	}

	row := tx.QueryRow(ctx, `
		UPDATE seals
		SET status = $1, status_comment = $2, status_evidence = $3, status_updated_at = NOW()
		WHERE id = $4
		RETURNING `+sealColumns, to, comment, evidence, sealID)
	seal, err = scanSeal(row)
	if err != nil {
		return nil, fmt.Errorf("update seal %d status: %w", sealID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit status update: %w", err)
	}
	return seal, nil
}

// UpsertMissing marks an unscanned tag's seal MISSING, inserting the row if
// the tag never had one. Seals already carrying a status are left untouched.
func (r *SealRepository) UpsertMissing(ctx context.Context, sessionID int, barcode, comment string) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert missing: %w", err)
	}
	defer tx.Rollback(ctx)

	seal, err := scanSeal(tx.QueryRow(ctx,
		`SELECT `+sealColumns+` FROM seals WHERE session_id = $1 AND barcode = $2 FOR UPDATE`, sessionID, barcode))
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		_, err = tx.Exec(ctx, `
			INSERT INTO seals (session_id, barcode, status, status_comment, status_updated_at)
			VALUES ($1, $2, $3, $4, NOW())
		`, sessionID, barcode, models.SealMissing, comment)
		if err != nil {
			return fmt.Errorf("insert missing seal %s: %w", barcode, err)
		}
	case err != nil:
		return err
	default:
		if seal.Status != nil {
			return apperrors.NewInvalidTransition("seal", string(*seal.Status), string(models.SealMissing))
		}
		_, err = tx.Exec(ctx, `
			UPDATE seals SET status = $1, status_comment = $2, status_updated_at = NOW()
			WHERE id = $3
		`, models.SealMissing, comment, seal.ID)
		if err != nil {
			return fmt.Errorf("mark seal %s missing: %w", barcode, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert missing: %w", err)
	}
	return nil
}

// CountByStatus returns how many of the session's seals hold each status
func (r *SealRepository) CountByStatus(ctx context.Context, sessionID int) (map[models.SealStatus]int, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT status, COUNT(*) FROM seals
		WHERE session_id = $1 AND status IS NOT NULL
		GROUP BY status
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.SealStatus]int)
	for rows.Next() {
		var status models.SealStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// ListBySession returns all seals for a session
func (r *SealRepository) ListBySession(ctx context.Context, sessionID int) ([]*models.Seal, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+sealColumns+` FROM seals WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seals []*models.Seal
	for rows.Next() {
		s, err := scanSeal(rows)
		if err != nil {
			return nil, err
		}
		seals = append(seals, s)
	}
	return seals, rows.Err()
}
