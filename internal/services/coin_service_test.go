package services

import (
	"context"
	"errors"
	"testing"

	"tripseal-backend/internal/apperrors"
	"tripseal-backend/internal/models"
)

func newCoinService(m *memStore) *CoinService {
	return NewCoinService(m, m, activityStore{m})
}

func TestAllocateSuperadminToAdmin(t *testing.T) {
	m := newMemStore()
	root, admin, _, _, _ := seedHierarchy(m)
	svc := newCoinService(m)

	txn, err := svc.Allocate(context.Background(), root.ID, root.ID, admin.ID, 1000, models.ReasonAdminCreation, "")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if admin.Coins != 1000 {
		t.Fatalf("admin coins = %d, want 1000", admin.Coins)
	}
	if root.Coins != 999000 {
		t.Fatalf("root coins = %d, want 999000", root.Coins)
	}
	if txn.Amount != 1000 || txn.Reason != models.ReasonAdminCreation {
		t.Fatalf("unexpected transaction %+v", txn)
	}
	if len(m.activity) != 1 || m.activity[0].Action != models.ActionAllocate {
		t.Fatalf("expected one ALLOCATE activity entry, got %+v", m.activity)
	}
}

func TestAllocateConservesTotal(t *testing.T) {
	m := newMemStore()
	root, admin, _, _, _ := seedHierarchy(m)
	svc := newCoinService(m)

	before := totalCoins(m)
	if _, err := svc.Allocate(context.Background(), root.ID, root.ID, admin.ID, 500, "", ""); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if after := totalCoins(m); after != before {
		t.Fatalf("total coins changed: %d -> %d", before, after)
	}
}

func TestAllocateInsufficientFunds(t *testing.T) {
	m := newMemStore()
	_, admin, _, op, _ := seedHierarchy(m)
	admin.Coins = 10
	svc := newCoinService(m)

	_, err := svc.Allocate(context.Background(), admin.ID, admin.ID, op.ID, 50, "", "")
	if !errors.Is(err, apperrors.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if op.Coins != 0 || admin.Coins != 10 {
		t.Fatal("failed allocation must not move coins")
	}
}

func TestAllocateAdminToForeignOperatorDenied(t *testing.T) {
	m := newMemStore()
	seedHierarchy(m)
	otherAdmin := m.addAccount(&models.Account{ID: 9, Role: models.RoleAdmin, Coins: 500, IsActive: true})
	svc := newCoinService(m)

	// operator 4 was created by admin 2, not 9; balance is irrelevant
	_, err := svc.Allocate(context.Background(), otherAdmin.ID, otherAdmin.ID, 4, 100, "", "")
	if !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestAllocateRejectsNonPositiveAmount(t *testing.T) {
	m := newMemStore()
	root, admin, _, _, _ := seedHierarchy(m)
	svc := newCoinService(m)

	for _, amount := range []int{0, -5} {
		_, err := svc.Allocate(context.Background(), root.ID, root.ID, admin.ID, amount, "", "")
		if !errors.Is(err, apperrors.ErrInvalidArgument) {
			t.Fatalf("amount %d: want ErrInvalidArgument, got %v", amount, err)
		}
	}
}

func TestAllocateFromForeignAccountDenied(t *testing.T) {
	m := newMemStore()
	root, admin, _, op, _ := seedHierarchy(m)
	admin.Coins = 100
	svc := newCoinService(m)

	// actor root, but debit targets admin's balance
	_, err := svc.Allocate(context.Background(), root.ID, admin.ID, op.ID, 10, "", "")
	if !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestAllocateMissingTargetIsNotFound(t *testing.T) {
	m := newMemStore()
	root, _, _, _, _ := seedHierarchy(m)
	svc := newCoinService(m)

	_, err := svc.Allocate(context.Background(), root.ID, root.ID, 404, 10, "", "")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestAllocateSurvivesActivityLogFailure(t *testing.T) {
	m := newMemStore()
	root, admin, _, _, _ := seedHierarchy(m)
	m.failActivity = true
	svc := newCoinService(m)

	if _, err := svc.Allocate(context.Background(), root.ID, root.ID, admin.ID, 100, "", ""); err != nil {
		t.Fatalf("allocation should succeed despite activity failure: %v", err)
	}
	if admin.Coins != 100 {
		t.Fatalf("admin coins = %d, want 100", admin.Coins)
	}
}

func TestHistoryScoping(t *testing.T) {
	m := newMemStore()
	root, admin, _, op, guard := seedHierarchy(m)
	svc := newCoinService(m)

	if _, err := svc.Allocate(context.Background(), root.ID, root.ID, admin.ID, 100, "", ""); err != nil {
		t.Fatalf("seed allocation: %v", err)
	}

	if _, err := svc.History(context.Background(), admin.ID, admin.ID, 0, 0); err != nil {
		t.Fatalf("self history: %v", err)
	}
	// admin created the operator, so the operator's history is visible
	if _, err := svc.History(context.Background(), admin.ID, op.ID, 0, 0); err != nil {
		t.Fatalf("created-account history: %v", err)
	}
	// the guard may not read the operator's history
	if _, err := svc.History(context.Background(), guard.ID, op.ID, 0, 0); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}
