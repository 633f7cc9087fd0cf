package services

import (
	"errors"
	"fmt"
)

var (
	// ErrBidTooLow rejects an OPEN bid below the current bid plus the
	// minimum increment (or below the reserve for the first bid).
	ErrBidTooLow = errors.New("bid below required increment")
	// ErrConflict surfaces a concurrent-mutation race that survived the
	// transactional retry. Safe for the caller to retry once.
	ErrConflict = errors.New("concurrent modification")
	ErrNotFound = errors.New("not found")
)

// ValidationError marks malformed or missing input. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidStateError marks an operation that is not valid for the entity's
// current lifecycle state. Surfaced verbatim, never retried.
type InvalidStateError struct {
	Entity string
	State  string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s is %s: cannot %s", e.Entity, e.State, e.Op)
}

func invalidState(entity, state, op string) error {
	return &InvalidStateError{Entity: entity, State: state, Op: op}
}

// EligibilityError marks a bidder failing a KYC/fee/EMD precondition.
type EligibilityError struct {
	Reason string
}

func (e *EligibilityError) Error() string {
	return "not eligible to bid: " + e.Reason
}

// PaymentVerificationError marks a gateway callback whose signature or
// amount did not check out. The ledger entry stays DUE.
type PaymentVerificationError struct {
	Reference string
	Reason    string
}

func (e *PaymentVerificationError) Error() string {
	return fmt.Sprintf("payment verification failed for %s: %s", e.Reference, e.Reason)
}
