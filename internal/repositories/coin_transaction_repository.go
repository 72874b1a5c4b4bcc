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

type CoinTransactionRepository struct {
	DB *pgxpool.Pool
}

func NewCoinTransactionRepository(db *pgxpool.Pool) *CoinTransactionRepository {
	return &CoinTransactionRepository{DB: db}
}

// Transfer moves amount coins from one account to another and records the
// ledger row, all inside one transaction. The debit re-validates the balance
// inside the transaction (coins >= amount in the UPDATE predicate) so two
// concurrent transfers cannot drain the same balance below zero.
func (r *CoinTransactionRepository) Transfer(ctx context.Context, fromID, toID, amount int, reason models.TransactionReason, notes string) (*models.CoinTransaction, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transfer: %w", err)
	}
	defer tx.Rollback(ctx)

	txn, err := transferInTx(ctx, tx, fromID, toID, amount, reason, notes)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transfer: %w", err)
	}
	return txn, nil
}

// transferInTx is the shared debit+credit+ledger-row sequence, also used by
// the session creation transaction for the 1-coin spend.
func transferInTx(ctx context.Context, tx pgx.Tx, fromID, toID, amount int, reason models.TransactionReason, notes string) (*models.CoinTransaction, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE accounts SET coins = coins - $1, updated_at = NOW()
		WHERE id = $2 AND coins >= $1
	`, amount, fromID)
	if err != nil {
		return nil, fmt.Errorf("debit account %d: %w", fromID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.ErrInsufficientFunds
	}

	// Self-transfers (spends) must not credit back
	if toID != fromID {
		tag, err = tx.Exec(ctx, `
			UPDATE accounts SET coins = coins + $1, updated_at = NOW()
			WHERE id = $2
		`, amount, toID)
		if err != nil {
			return nil, fmt.Errorf("credit account %d: %w", toID, err)
		}
		if tag.RowsAffected() == 0 {
			return nil, apperrors.ErrNotFound
		}
	}

	txn := &models.CoinTransaction{
		FromUserID: fromID,
		ToUserID:   toID,
		Amount:     amount,
		Reason:     reason,
		Notes:      notes,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO coin_transactions (from_user_id, to_user_id, amount, reason, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, fromID, toID, amount, reason, notes).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert coin transaction: %w", err)
	}
	return txn, nil
}

// ListByAccount returns transactions where the account is sender or receiver,
// newest first
func (r *CoinTransactionRepository) ListByAccount(ctx context.Context, accountID, limit, offset int) ([]models.CoinTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, from_user_id, to_user_id, amount, reason, notes, created_at
		FROM coin_transactions
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.CoinTransaction
	for rows.Next() {
		var t models.CoinTransaction
		if err := rows.Scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.Amount, &t.Reason, &t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// Get retrieves a single transaction
func (r *CoinTransactionRepository) Get(ctx context.Context, id int) (*models.CoinTransaction, error) {
	var t models.CoinTransaction
	err := r.DB.QueryRow(ctx, `
		SELECT id, from_user_id, to_user_id, amount, reason, notes, created_at
		FROM coin_transactions WHERE id = $1
	`, id).Scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.Amount, &t.Reason, &t.Notes, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
