package services

import (
	"context"
	"fmt"
	"log"

	"tripseal-backend/internal/apperrors"
	"tripseal-backend/internal/authz"
	"tripseal-backend/internal/models"
)

type CoinService struct {
	Accounts AccountStore
	Ledger   LedgerStore
	Activity ActivityStore
}

func NewCoinService(accounts AccountStore, ledger LedgerStore, activity ActivityStore) *CoinService {
	return &CoinService{Accounts: accounts, Ledger: ledger, Activity: activity}
}

// Allocate moves coins from the actor's balance to a target account. The
// debit, credit and ledger row commit as one unit inside the store; the
// balance is re-validated there, so a concurrent allocation cannot take the
// source negative.
func (s *CoinService) Allocate(ctx context.Context, actorID, fromID, toID, amount int, reason models.TransactionReason, notes string) (*models.CoinTransaction, error) {
	// Resource existence is checked before authorization
	actor, err := s.Accounts.Get(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}
	target, err := s.Accounts.Get(ctx, toID)
	if err != nil {
		return nil, fmt.Errorf("load target: %w", err)
	}

	// Accounts only move their own funds
	if fromID != actorID {
		return nil, fmt.Errorf("%w: cannot allocate from account %d", apperrors.ErrUnauthorized, fromID)
	}

	if d := authz.CanAllocate(actor, target); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, d.Reason)
	}

	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", apperrors.ErrInvalidArgument, amount)
	}

	if reason == "" {
		reason = models.ReasonCoinAllocation
	}

	txn, err := s.Ledger.Transfer(ctx, fromID, toID, amount, reason, notes)
	if err != nil {
		return nil, err
	}

	// The audit entry is appended after the committed transfer; a failure
	// here must not undo the transfer, it only loses the display entry (the
	// ledger row itself is the durable audit trail).
	entry := &models.ActivityLog{
		UserID:     actorID,
		Action:     models.ActionAllocate,
		TargetType: "coin_transaction",
		TargetID:   &txn.ID,
		Details: map[string]any{
			"to_user_id": toID,
			"amount":     amount,
			"reason":     string(reason),
		},
	}
	if err := s.Activity.Create(ctx, entry); err != nil {
		log.Printf("[CoinService] activity log for transaction %d failed: %v", txn.ID, err)
	}

	return txn, nil
}

// History returns an account's transaction history. Admins may read accounts
// they transitively created; everyone reads their own.
func (s *CoinService) History(ctx context.Context, actorID, accountID, limit, offset int) ([]models.CoinTransaction, error) {
	actor, err := s.Accounts.Get(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}
	target, err := s.Accounts.Get(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	chain, err := s.Accounts.CreatorChain(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("resolve creation chain: %w", err)
	}
	if d := authz.CanViewLogs(actor, target, chain); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, d.Reason)
	}

	return s.Ledger.ListByAccount(ctx, accountID, limit, offset)
}
