package repositories

import (
	"context"
	"errors"
	"fmt"

	"tripseal-backend/internal/apperrors"
	"tripseal-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	DB *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{DB: db}
}

// CreateWithSeal creates the session, its primary seal, the 1-coin spend and
// the SESSION_CREATION ledger row as one transaction. Running the whole
// sequence inside a single transaction makes partial application (session
// without seal, debit without session) structurally impossible.
func (r *SessionRepository) CreateWithSeal(ctx context.Context, session *models.Session, barcode string) (*models.Seal, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin session creation: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1-coin spend, modeled as a self-transfer. Balance is re-validated
	// inside the transaction.
	if _, err := transferInTx(ctx, tx, session.CreatedByID, session.CreatedByID, 1,
		models.ReasonSessionCreation, "session creation spend"); err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO sessions (created_by_id, company_id, source, destination, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, session.CreatedByID, session.CompanyID, session.Source, session.Destination, models.SessionPending,
	).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	session.Status = models.SessionPending

	seal := &models.Seal{SessionID: session.ID, Barcode: barcode}
	err = tx.QueryRow(ctx, `
		INSERT INTO seals (session_id, barcode)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, session.ID, barcode).Scan(&seal.ID, &seal.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperrors.ErrDuplicateBarcode
		}
		return nil, fmt.Errorf("insert seal: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit session creation: %w", err)
	}
	return seal, nil
}

// Get retrieves a session by id
func (r *SessionRepository) Get(ctx context.Context, id int) (*models.Session, error) {
	var s models.Session
	err := r.DB.QueryRow(ctx, `
		SELECT id, created_by_id, company_id, source, destination, status, created_at
		FROM sessions WHERE id = $1
	`, id).Scan(&s.ID, &s.CreatedByID, &s.CompanyID, &s.Source, &s.Destination, &s.Status, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateStatus moves a session between lifecycle states. COMPLETED is
// terminal: the predicate refuses to leave it, so a raced second completion
// surfaces as an invalid transition instead of a silent overwrite.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id int, to models.SessionStatus) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE sessions SET status = $1
		WHERE id = $2 AND status <> $3
	`, to, id, models.SessionCompleted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing session from a terminal one
		var current models.SessionStatus
		err := r.DB.QueryRow(ctx, `SELECT status FROM sessions WHERE id = $1`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		if err != nil {
			return err
		}
		return apperrors.NewInvalidTransition("session", string(current), string(to))
	}
	return nil
}

// ListByCompany returns sessions for a company, newest first
func (r *SessionRepository) ListByCompany(ctx context.Context, companyID, limit, offset int) ([]models.Session, error) {
	return r.list(ctx, `company_id = $1`, companyID, limit, offset)
}

// ListByOperator returns sessions created by an operator, newest first
func (r *SessionRepository) ListByOperator(ctx context.Context, operatorID, limit, offset int) ([]models.Session, error) {
	return r.list(ctx, `created_by_id = $1`, operatorID, limit, offset)
}

func (r *SessionRepository) list(ctx context.Context, where string, arg, limit, offset int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, created_by_id, company_id, source, destination, status, created_at
		FROM sessions WHERE `+where+`
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, arg, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.CreatedByID, &s.CompanyID, &s.Source, &s.Destination, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// CountByStatus returns session counts per lifecycle state (dashboard/monitoring)
func (r *SessionRepository) CountByStatus(ctx context.Context) (map[models.SessionStatus]int, error) {
	rows, err := r.DB.Query(ctx, `SELECT status, COUNT(*) FROM sessions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.SessionStatus]int)
	for rows.Next() {
		var status models.SessionStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
