package services

import (
	"context"

	"tripseal-backend/internal/models"
)

// Store interfaces consumed by the services. The pgx repositories satisfy
// them; tests substitute in-memory implementations.

type AccountStore interface {
	Get(ctx context.Context, id int) (*models.Account, error)
	Create(ctx context.Context, a *models.Account) error
	CreatorChain(ctx context.Context, accountID int) ([]int, error)
	SetActive(ctx context.Context, id int, active bool) error
	SetCompany(ctx context.Context, id, companyID int) error
}

type OperatorPermissionsStore interface {
	Get(ctx context.Context, accountID int) (*models.OperatorPermissions, error)
	Upsert(ctx context.Context, p *models.OperatorPermissions) error
}

type LedgerStore interface {
	Transfer(ctx context.Context, fromID, toID, amount int, reason models.TransactionReason, notes string) (*models.CoinTransaction, error)
	ListByAccount(ctx context.Context, accountID, limit, offset int) ([]models.CoinTransaction, error)
}

type SessionStore interface {
	CreateWithSeal(ctx context.Context, session *models.Session, barcode string) (*models.Seal, error)
	Get(ctx context.Context, id int) (*models.Session, error)
	UpdateStatus(ctx context.Context, id int, to models.SessionStatus) error
}

type SealStore interface {
	GetByBarcode(ctx context.Context, barcode string) (*models.Seal, error)
	Get(ctx context.Context, id int) (*models.Seal, error)
	GetPrimaryBySession(ctx context.Context, sessionID int) (*models.Seal, error)
	Verify(ctx context.Context, barcode string, guardID int, completeSession bool) (*models.Seal, error)
	UpdateStatus(ctx context.Context, sealID, sessionID int, to models.SealStatus, comment, evidence string) (*models.Seal, error)
	UpsertMissing(ctx context.Context, sessionID int, barcode, comment string) error
	CountByStatus(ctx context.Context, sessionID int) (map[models.SealStatus]int, error)
	ListBySession(ctx context.Context, sessionID int) ([]*models.Seal, error)
}

type SealTagStore interface {
	Declare(ctx context.Context, sessionID int, tags []models.DeclaredTag) error
	ListBySession(ctx context.Context, sessionID int) ([]models.SealTag, error)
	CountBySession(ctx context.Context, sessionID int) (int, error)
}

type ActivityStore interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	ListSessionCreateEntries(ctx context.Context, sessionID int) ([]models.ActivityLog, error)
}

// EvidenceStore persists opaque evidence blobs and returns a storage reference
type EvidenceStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// Notifier delivers best-effort completion notices to the owning company
type Notifier interface {
	SessionCompleted(ctx context.Context, companyID, sessionID int, summary *models.VerificationSummary) error
}
