package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the core operations. Handlers map these to HTTP status
// codes with errors.Is; services wrap them with context via fmt.Errorf("%w").
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientFunds = errors.New("insufficient coins")
	ErrAlreadyVerified   = errors.New("seal already verified")
	ErrDuplicateBarcode  = errors.New("barcode already in use")
	ErrMissingEvidence   = errors.New("evidence required for this status")
	ErrInternal          = errors.New("internal error")
)

// InvalidStateTransitionError names the rejected transition so the caller can
// reconstruct an audit trail even for denied operations.
type InvalidStateTransitionError struct {
	Resource string
	From     string
	To       string
}

func (e *InvalidStateTransitionError) Error() string {
	from := e.From
	if from == "" {
		from = "unset"
	}
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Resource, from, e.To)
}

// NewInvalidTransition builds an InvalidStateTransitionError for a seal or session
func NewInvalidTransition(resource, from, to string) error {
	return &InvalidStateTransitionError{Resource: resource, From: from, To: to}
}

// IsInvalidTransition reports whether err is an InvalidStateTransitionError
func IsInvalidTransition(err error) bool {
	var t *InvalidStateTransitionError
	return errors.As(err, &t)
}
