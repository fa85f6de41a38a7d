package application

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable discriminant carried by every DomainError.
// The HTTP layer maps kinds to status codes; the idempotency coordinator
// caches them alongside success outcomes.
type Kind string

const (
	// KindInvalidInput covers missing or malformed request fields,
	// including bad timestamps, durations, and business-window violations.
	KindInvalidInput Kind = "invalid_input"
	// KindNotFound covers absent rooms and bookings.
	KindNotFound Kind = "not_found"
	// KindConflict covers overlapping bookings and in-flight idempotency keys.
	KindConflict Kind = "conflict"
	// KindPolicyViolation covers rejections by domain policy, such as
	// cancelling inside the cutoff window.
	KindPolicyViolation Kind = "policy_violation"
	// KindDuplicateName covers room name collisions.
	KindDuplicateName Kind = "duplicate_name"
	// KindInternal covers unexpected storage failures.
	KindInternal Kind = "internal"
)

// DomainError is the single tagged error type crossing the engine boundary.
// Reason, when set, identifies the specific validation rule that fired so
// callers and tests can distinguish failures without parsing messages.
type DomainError struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *DomainError) Unwrap() error {
	return e.Err
}

func invalidInput(reason, message string) *DomainError {
	return &DomainError{Kind: KindInvalidInput, Reason: reason, Message: message}
}

func notFound(message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Message: message}
}

func conflict(message string) *DomainError {
	return &DomainError{Kind: KindConflict, Message: message}
}

func policyViolation(message string) *DomainError {
	return &DomainError{Kind: KindPolicyViolation, Message: message}
}

func duplicateName(message string) *DomainError {
	return &DomainError{Kind: KindDuplicateName, Message: message}
}

func internalError(message string, err error) *DomainError {
	return &DomainError{Kind: KindInternal, Message: message, Err: err}
}

// KindOf extracts the discriminant from an error chain. Errors that are not
// DomainErrors report KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var dErr *DomainError
	if errors.As(err, &dErr) {
		return dErr.Kind
	}
	return KindInternal
}

// ErrorKind maps an error to a stable label suitable for log attributes.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	return string(KindOf(err))
}

// Validation rule reasons, in the order the validator applies them.
const (
	ReasonRoomIDRequired   = "room_id_required"
	ReasonTitleRequired    = "title_required"
	ReasonEmailInvalid     = "email_invalid"
	ReasonTimesRequired    = "times_required"
	ReasonStartUnparseable = "start_time_format"
	ReasonEndUnparseable   = "end_time_format"
	ReasonTimeOrder        = "time_order"
	ReasonDurationTooShort = "duration_too_short"
	ReasonDurationTooLong  = "duration_too_long"
	ReasonOutsideWeekdays  = "outside_weekdays"
	ReasonOutsideHours     = "outside_business_hours"
)
