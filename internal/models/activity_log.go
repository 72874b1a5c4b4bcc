package models

import "time"

// ActivityAction classifies an activity log entry
type ActivityAction string

const (
	ActionCreate   ActivityAction = "CREATE"
	ActionUpdate   ActivityAction = "UPDATE"
	ActionDelete   ActivityAction = "DELETE"
	ActionLogin    ActivityAction = "LOGIN"
	ActionLogout   ActivityAction = "LOGOUT"
	ActionTransfer ActivityAction = "TRANSFER"
	ActionAllocate ActivityAction = "ALLOCATE"
	ActionView     ActivityAction = "VIEW"
)

// ActivityLog is one append-only audit entry. Details is an action-specific
// JSON payload; for session CREATE entries it also carries the declared
// seal-tag identifiers of historical sessions (three payload shapes exist,
// see the reconciliation service).
type ActivityLog struct {
	ID           int            `json:"id"`
	UserID       int            `json:"user_id"` // actor
	Action       ActivityAction `json:"action"`
	TargetType   string         `json:"target_type"`
	TargetID     *int           `json:"target_id,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	IPAddress    *string        `json:"ip_address,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	ActorName    string         `json:"actor_name,omitempty"`  // joined for display
	ActorRole    string         `json:"actor_role,omitempty"`
}

// ActivityLogFilter narrows a scoped activity listing
type ActivityLogFilter struct {
	Action     ActivityAction
	TargetType string
	TargetID   *int
	UserID     *int
	Limit      int
	Offset     int
}

// APIRequestLog is one row of the async request log written by middleware
type APIRequestLog struct {
	Time         time.Time `json:"time"`
	Method       string    `json:"method"`
	Path         string    `json:"path"`
	StatusCode   int       `json:"status_code"`
	DurationMs   float64   `json:"duration_ms"`
	RequestSize  int       `json:"request_size"`
	ResponseSize int       `json:"response_size"`
	UserID       *int      `json:"user_id,omitempty"`
	UserRole     *string   `json:"user_role,omitempty"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	ErrorMessage *string   `json:"error_message,omitempty"`
}

// NotificationLog records one best-effort webhook delivery attempt
type NotificationLog struct {
	ID        int       `json:"id"`
	CompanyID int       `json:"company_id"`
	SessionID int       `json:"session_id"`
	Kind      string    `json:"kind"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
