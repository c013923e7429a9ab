// Package apperr provides the typed domain errors returned by the game core.
//
// Every failure a caller can correct carries a Kind (what class of problem it is)
// and a Reason (which rule was hit). Infrastructure failures are plain wrapped
// errors and have no Kind.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error class.
type Kind string

const (
	// KindUnknown is reported for errors that did not originate in the domain layer.
	KindUnknown Kind = "UNKNOWN"

	KindNotFound           Kind = "NOT_FOUND"
	KindRoleNotEligible    Kind = "ROLE_NOT_ELIGIBLE"
	KindInvariantViolation Kind = "INVARIANT_VIOLATION"
	KindConflict           Kind = "CONFLICT"
	KindAlreadyDone        Kind = "ALREADY_DONE"
)

// Reason identifies the rule that rejected an operation.
type Reason string

const (
	// Missing rows
	ReasonPrincipalNotFound Reason = "PRINCIPAL_NOT_FOUND"
	ReasonItemNotFound      Reason = "ITEM_NOT_FOUND"
	ReasonHoldingNotFound   Reason = "HOLDING_NOT_FOUND"
	ReasonCourseNotFound    Reason = "COURSE_NOT_FOUND"
	ReasonMagicNotFound     Reason = "MAGIC_NOT_FOUND"
	ReasonNoSubmission      Reason = "NO_SUBMISSION"
	ReasonNotEnrolled       Reason = "NOT_ENROLLED"
	ReasonNoGameSession     Reason = "NO_GAME_SESSION"
	ReasonUnknownGame       Reason = "UNKNOWN_GAME"

	// Role gates
	ReasonRoleNotEligible     Reason = "ROLE_NOT_ELIGIBLE"
	ReasonNotAuthor           Reason = "NOT_AUTHOR"
	ReasonCombatRoleRequired  Reason = "COMBAT_ROLE_REQUIRED"
	ReasonCourseNotAccessible Reason = "COURSE_NOT_ACCESSIBLE"

	// Bounds
	ReasonInsufficientFunds    Reason = "INSUFFICIENT_FUNDS"
	ReasonInsufficientHoldings Reason = "INSUFFICIENT_HOLDINGS"
	ReasonInsufficientResource Reason = "INSUFFICIENT_RESOURCE"
	ReasonInsufficientHeart    Reason = "INSUFFICIENT_HEART"
	ReasonMaxHeartReached      Reason = "MAX_HEART_REACHED"
	ReasonIneligibleCombatant  Reason = "INELIGIBLE_COMBATANT"
	ReasonSelfCombat           Reason = "SELF_COMBAT"
	ReasonCourseFull           Reason = "COURSE_FULL"
	ReasonScoreOutOfRange      Reason = "SCORE_OUT_OF_RANGE"
	ReasonInvalidQuantity      Reason = "INVALID_QUANTITY"
	ReasonInvalidCapacity      Reason = "INVALID_CAPACITY"
	ReasonInvalidName          Reason = "INVALID_NAME"
	ReasonInvalidMove          Reason = "INVALID_MOVE"
	ReasonNotFallen            Reason = "NOT_FALLEN"

	// Write-once
	ReasonAlreadyEnrolled Reason = "ALREADY_ENROLLED"
	ReasonAlreadyGraded   Reason = "ALREADY_GRADED"

	// Concurrency
	ReasonConcurrentUpdate Reason = "CONCURRENT_UPDATE"
)

// Error is a domain error with a kind, a reason and a human-readable message.
type Error struct {
	Kind     Kind
	Reason   Reason
	Message  string
	Metadata map[string]string
	cause    error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error with the same kind and reason, so sentinel values
// built with New can be used with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

// With returns a copy of the error carrying an extra metadata entry.
func (e *Error) With(key, value string) *Error {
	md := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	return &Error{Kind: e.Kind, Reason: e.Reason, Message: e.Message, Metadata: md, cause: e.cause}
}

// New creates a domain error.
func New(kind Kind, reason Reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(kind Kind, reason Reason, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a domain error that keeps cause in its chain.
func Wrap(cause error, kind Kind, reason Reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message, cause: cause}
}

func NotFound(reason Reason, message string) *Error {
	return New(KindNotFound, reason, message)
}

func RoleNotEligible(reason Reason, message string) *Error {
	return New(KindRoleNotEligible, reason, message)
}

func Invariant(reason Reason, message string) *Error {
	return New(KindInvariantViolation, reason, message)
}

func AlreadyDone(reason Reason, message string) *Error {
	return New(KindAlreadyDone, reason, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, ReasonConcurrentUpdate, message)
}

// KindOf extracts the kind from any error, returning KindUnknown for
// errors that are not domain errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// ReasonOf extracts the reason from any error, or "" when err is not a domain error.
func ReasonOf(err error) Reason {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsReason reports whether err is a domain error with the given reason.
func IsReason(err error, reason Reason) bool {
	return ReasonOf(err) == reason
}

// Retryable reports whether a caller may retry the operation unchanged.
// Only concurrent-modification conflicts qualify.
func Retryable(err error) bool {
	return IsKind(err, KindConflict)
}
