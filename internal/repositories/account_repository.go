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

type AccountRepository struct {
	DB *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{DB: db}
}

const accountColumns = `id, name, email, password_hash, role, sub_role, company_id, created_by_id, coins, is_root, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	var subRole *string
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &subRole,
		&a.CompanyID, &a.CreatedByID, &a.Coins, &a.IsRoot, &a.IsActive,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	if subRole != nil {
		sr := models.SubRole(*subRole)
		a.SubRole = &sr
	}
	return &a, nil
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, a *models.Account) error {
	var subRole *string
	if a.SubRole != nil {
		s := string(*a.SubRole)
		subRole = &s
	}

	err := r.DB.QueryRow(ctx, `
		INSERT INTO accounts (name, email, password_hash, role, sub_role, company_id, created_by_id, coins, is_root, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`,
		a.Name, a.Email, a.PasswordHash, a.Role, subRole,
		a.CompanyID, a.CreatedByID, a.Coins, a.IsRoot, a.IsActive,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: email %s", apperrors.ErrInvalidArgument, a.Email)
	}
	return err
}

// Get retrieves an account by id
func (r *AccountRepository) Get(ctx context.Context, id int) (*models.Account, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByEmail retrieves an account by email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

// GetRoot retrieves the bootstrap superadmin account
func (r *AccountRepository) GetRoot(ctx context.Context) (*models.Account, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE is_root = TRUE LIMIT 1`)
	return scanAccount(row)
}

// ListCreatedBy returns accounts directly provisioned by creatorID
func (r *AccountRepository) ListCreatedBy(ctx context.Context, creatorID int) ([]*models.Account, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE created_by_id = $1 ORDER BY id`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// ListByCompany returns employee accounts affiliated with a company
func (r *AccountRepository) ListByCompany(ctx context.Context, companyID int) ([]*models.Account, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id = $1 AND role = 'EMPLOYEE' ORDER BY id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func collectAccounts(rows pgx.Rows) ([]*models.Account, error) {
	var accounts []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// CreatorChain returns the provisioning ancestry of an account: its creator,
// the creator's creator, and so on up to the root. Used by the policy layer
// for transitive visibility and permission-management checks.
func (r *AccountRepository) CreatorChain(ctx context.Context, accountID int) ([]int, error) {
	rows, err := r.DB.Query(ctx, `
		WITH RECURSIVE chain AS (
			SELECT id, created_by_id, 0 AS depth FROM accounts WHERE id = $1
			UNION ALL
			SELECT a.id, a.created_by_id, c.depth + 1
			FROM accounts a
			JOIN chain c ON a.id = c.created_by_id
			WHERE c.depth < 16
		)
		SELECT id FROM chain WHERE depth > 0 ORDER BY depth
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chain []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		chain = append(chain, id)
	}
	return chain, rows.Err()
}

// SetActive toggles the active flag
func (r *AccountRepository) SetActive(ctx context.Context, id int, active bool) error {
	tag, err := r.DB.Exec(ctx, `UPDATE accounts SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetCompany fixes an account's company affiliation. Used once after a
// COMPANY account is created: its own record points at itself.
func (r *AccountRepository) SetCompany(ctx context.Context, id, companyID int) error {
	tag, err := r.DB.Exec(ctx, `UPDATE accounts SET company_id = $1, updated_at = NOW() WHERE id = $2`, companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// TotalCoins returns the sum of all balances (used by monitoring to watch
// ledger conservation)
func (r *AccountRepository) TotalCoins(ctx context.Context) (int64, error) {
	var total int64
	err := r.DB.QueryRow(ctx, `SELECT COALESCE(SUM(coins), 0) FROM accounts`).Scan(&total)
	return total, err
}
