package models

import "time"

// SessionStatus is the lifecycle state of a trip
type SessionStatus string

const (
	SessionPending    SessionStatus = "PENDING"
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionCompleted  SessionStatus = "COMPLETED" // terminal
)

// Session is one vehicle trip. Every session owns exactly one primary seal;
// multi-tag trips additionally declare SealTag rows.
type Session struct {
	ID          int           `json:"id"`
	CreatedByID int           `json:"created_by_id"` // always an EMPLOYEE/OPERATOR
	CompanyID   int           `json:"company_id"`    // copied from the operator at creation time
	Source      string        `json:"source"`
	Destination string        `json:"destination"`
	Status      SessionStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// SealTag is one ad-hoc tag declared for a session, recorded at declaration
// time. Historical sessions predating this table carry their tags only inside
// CREATE activity-log payloads; reconciliation falls back to mining those.
type SealTag struct {
	ID            int       `json:"id"`
	SessionID     int       `json:"session_id"`
	TagID         string    `json:"tag_id"`
	CaptureMethod string    `json:"capture_method"` // "scan" or "manual"
	DeclaredAt    time.Time `json:"declared_at"`
}

// CreateSessionRequest represents the request body for session creation
type CreateSessionRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Barcode     string `json:"barcode"` // primary seal barcode
}

// DeclareSealTagsRequest represents the request body for tag declaration
type DeclareSealTagsRequest struct {
	Tags []DeclaredTag `json:"tags"`
}

type DeclaredTag struct {
	TagID         string `json:"tag_id"`
	CaptureMethod string `json:"capture_method"`
}

// SessionDetail bundles a session with its primary seal and declared tags
type SessionDetail struct {
	Session *Session  `json:"session"`
	Seal    *Seal     `json:"seal"`
	Tags    []SealTag `json:"tags,omitempty"`
}
