package models

import "time"

// TransactionReason classifies a coin movement
type TransactionReason string

const (
	ReasonAdminCreation    TransactionReason = "ADMIN_CREATION"    // initial grant when a new admin is provisioned
	ReasonCoinAllocation   TransactionReason = "COIN_ALLOCATION"   // superadmin->admin or admin->operator top-up
	ReasonSessionCreation  TransactionReason = "SESSION_CREATION"  // 1 coin spent by the operator (self-transfer)
	ReasonManualAdjustment TransactionReason = "MANUAL_ADJUSTMENT" // correction entered by superadmin
	ReasonSystem           TransactionReason = "SYSTEM"            // automated entries
)

// CoinTransaction is one immutable row in the coin ledger. It is the audit
// trail for every balance change and is never updated or deleted. A spend is
// modeled as a self-transfer (FromUserID == ToUserID) with SESSION_CREATION.
type CoinTransaction struct {
	ID         int               `json:"id"`
	FromUserID int               `json:"from_user_id"`
	ToUserID   int               `json:"to_user_id"`
	Amount     int               `json:"amount"` // always positive
	Reason     TransactionReason `json:"reason"`
	Notes      string            `json:"notes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// AllocateCoinsRequest represents the request body for a coin allocation
type AllocateCoinsRequest struct {
	ToUserID int               `json:"to_user_id"`
	Amount   int               `json:"amount"`
	Reason   TransactionReason `json:"reason,omitempty"` // defaults to COIN_ALLOCATION
	Notes    string            `json:"notes,omitempty"`
}
