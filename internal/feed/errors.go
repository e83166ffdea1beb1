package feed

import (
	"errors"
	"fmt"
)

// ErrAuthRequired is returned when a mutating action is attempted without
// a signed-in viewer. The gateway is never contacted in that case.
var ErrAuthRequired = errors.New("authentication required")

// ErrUnknownListing is returned for actions on a listing that is not part
// of the current feed
var ErrUnknownListing = errors.New("listing is not in the feed")

// ErrListingNotFound is returned when a requested listing does not exist
var ErrListingNotFound = errors.New("listing not found")

// GatewayError wraps any failed remote call
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// gatewayError wraps err for op unless it is nil or already a GatewayError
func gatewayError(op string, err error) error {
	if err == nil {
		return nil
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return err
	}
	return &GatewayError{Op: op, Err: err}
}

// Validation reasons
const (
	ReasonEmptyContent = "emptyContent"
	ReasonTooShort     = "tooShort"
	ReasonInvalid      = "invalid"
	ReasonTooMany      = "tooMany"
)

// ValidationError rejects user input before anything is sent
type ValidationError struct {
	Field  string
	Reason string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error for field
func NewValidationError(field, reason, detail string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Detail: detail}
}

// ActionKind names an optimistic mutation
type ActionKind string

const (
	ActionLike    ActionKind = "like"
	ActionUnlike  ActionKind = "unlike"
	ActionComment ActionKind = "comment"
)

// ActionFailedError reports an optimistic mutation that was rolled back
// because its write failed
type ActionFailedError struct {
	Kind      ActionKind
	ListingID string
	Err       error
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("%s on listing %s failed: %v", e.Kind, e.ListingID, e.Err)
}

func (e *ActionFailedError) Unwrap() error {
	return e.Err
}

// IsActionFailed reports whether err is an ActionFailedError of kind k
func IsActionFailed(err error, k ActionKind) bool {
	var af *ActionFailedError
	return errors.As(err, &af) && af.Kind == k
}
