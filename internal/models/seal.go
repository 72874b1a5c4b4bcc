package models

import "time"

// SealStatus is the verification outcome of a physical seal. The zero value
// (unset) means the seal has not been inspected yet.
type SealStatus string

const (
	SealVerified SealStatus = "VERIFIED"
	SealMissing  SealStatus = "MISSING"  // terminal, assigned only by reconciliation
	SealBroken   SealStatus = "BROKEN"   // terminal, requires evidence
	SealTampered SealStatus = "TAMPERED" // terminal, requires evidence
)

// ValidSealStatus reports whether s names a known seal status
func ValidSealStatus(s SealStatus) bool {
	switch s {
	case SealVerified, SealMissing, SealBroken, SealTampered:
		return true
	}
	return false
}

// CanTransitionSeal reports whether a seal status change is legal. A nil from
// means the seal is uninspected. MISSING, BROKEN and TAMPERED are terminal.
// Note that unset -> MISSING is legal only for the reconciliation pass; the
// direct status API additionally rejects MISSING as a target.
func CanTransitionSeal(from *SealStatus, to SealStatus) bool {
	if from == nil {
		return to == SealVerified || to == SealMissing
	}
	switch *from {
	case SealVerified:
		return to == SealBroken || to == SealTampered
	}
	return false
}

// Seal is the tamper-evident seal attached to a session. Created unset at
// session creation; a guard's verification moves it to VERIFIED, after which
// it may only be escalated to BROKEN or TAMPERED. MISSING is set by the
// reconciliation pass for declared tags that were never scanned.
type Seal struct {
	ID              int         `json:"id"`
	SessionID       int         `json:"session_id"`
	Barcode         string      `json:"barcode"`
	Verified        bool        `json:"verified"`
	VerifiedByID    *int        `json:"verified_by_id,omitempty"` // guard account
	ScannedAt       *time.Time  `json:"scanned_at,omitempty"`
	Status          *SealStatus `json:"status,omitempty"` // nil until inspected
	StatusComment   string      `json:"status_comment,omitempty"`
	StatusUpdatedAt *time.Time  `json:"status_updated_at,omitempty"`
	StatusEvidence  string      `json:"status_evidence,omitempty"` // object key or inline payload
	CreatedAt       time.Time   `json:"created_at"`
}

// UpdateSealStatusRequest represents the request body for a status escalation
type UpdateSealStatusRequest struct {
	SessionID int        `json:"session_id"`
	Status    SealStatus `json:"status"`
	Comment   string     `json:"comment,omitempty"`
	Evidence  string     `json:"evidence,omitempty"` // base64 payload, required for BROKEN/TAMPERED
}

// VerifySealRequest represents the request body for verifying a seal by barcode
type VerifySealRequest struct {
	Barcode string `json:"barcode"`
}

// VerificationSummary aggregates the outcome of a multi-tag reconciliation
type VerificationSummary struct {
	SessionID   int            `json:"session_id"`
	Total       int            `json:"total"`    // declared tags
	Verified    int            `json:"verified"` // total - missing
	Missing     int            `json:"missing"`
	Broken      int            `json:"broken"`
	Tampered    int            `json:"tampered"`
	Fields      map[string]any `json:"fields,omitempty"` // caller-supplied per-field payload
	NotifyError string         `json:"notify_error,omitempty"`
}

// CompleteVerificationRequest represents the request body for reconciliation
type CompleteVerificationRequest struct {
	UnscannedTagIDs []string       `json:"unscanned_tag_ids"`
	Fields          map[string]any `json:"fields,omitempty"`
}
