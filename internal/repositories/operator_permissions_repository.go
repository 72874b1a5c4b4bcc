package repositories

import (
	"context"
	"errors"

	"tripseal-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OperatorPermissionsRepository struct {
	DB *pgxpool.Pool
}

func NewOperatorPermissionsRepository(db *pgxpool.Pool) *OperatorPermissionsRepository {
	return &OperatorPermissionsRepository{DB: db}
}

// Get returns the permissions row for an operator, or nil if none exists.
// A missing row is a policy decision (default-deny), not an error.
func (r *OperatorPermissionsRepository) Get(ctx context.Context, accountID int) (*models.OperatorPermissions, error) {
	var p models.OperatorPermissions
	err := r.DB.QueryRow(ctx, `
		SELECT id, account_id, can_create, can_modify, can_delete, updated_at
		FROM operator_permissions WHERE account_id = $1
	`, accountID).Scan(&p.ID, &p.AccountID, &p.CanCreate, &p.CanModify, &p.CanDelete, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert creates the permissions row lazily on first write
func (r *OperatorPermissionsRepository) Upsert(ctx context.Context, p *models.OperatorPermissions) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO operator_permissions (account_id, can_create, can_modify, can_delete)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE
		SET can_create = EXCLUDED.can_create,
		    can_modify = EXCLUDED.can_modify,
		    can_delete = EXCLUDED.can_delete,
		    updated_at = NOW()
		RETURNING id, updated_at
	`, p.AccountID, p.CanCreate, p.CanModify, p.CanDelete).Scan(&p.ID, &p.UpdatedAt)
}
