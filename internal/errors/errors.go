package errors

import "fmt"

// ErrorCode represents a Spyglass error code.
type ErrorCode string

const (
	ErrMalformedState        ErrorCode = "MALFORMED_STATE"        // descriptor blob unreadable
	ErrMalformedContinuation ErrorCode = "MALFORMED_CONTINUATION" // footer token unreadable or stale
	ErrOutOfRange            ErrorCode = "OUT_OF_RANGE"           // jump target outside 1..total
	ErrInvalidSortMethod     ErrorCode = "INVALID_SORT_METHOD"    // unknown sort selection
	ErrNotAuthorized         ErrorCode = "NOT_AUTHORIZED"         // principal not allow-listed
	ErrNotFound              ErrorCode = "NOT_FOUND"              // empty result set
	ErrTargetOffline         ErrorCode = "TARGET_OFFLINE"         // join target stale or unreachable
	ErrActionFailed          ErrorCode = "ACTION_FAILED"          // protocol action failed, terminal
	ErrExchangeFailed        ErrorCode = "EXCHANGE_FAILED"        // token exchange rejected, terminal
	ErrTimedOut              ErrorCode = "TIMED_OUT"              // modal or step window elapsed
	ErrProbeFailure          ErrorCode = "PROBE_FAILURE"          // transient; degrades a slow render
	ErrInternal              ErrorCode = "INTERNAL"
)

// SpyglassError represents a structured error with code and details.
type SpyglassError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *SpyglassError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Terminal reports whether the error ends its workflow instance.
// Terminal errors are rendered once and the message accepts no further steps.
func (e *SpyglassError) Terminal() bool {
	switch e.Code {
	case ErrTargetOffline, ErrActionFailed, ErrExchangeFailed, ErrTimedOut:
		return true
	}
	return false
}

// NewMalformedState creates an error for an unreadable descriptor blob.
// Callers treat this as "cannot resume" and fall back to a default browse.
func NewMalformedState(cause string) *SpyglassError {
	return &SpyglassError{
		Code:    ErrMalformedState,
		Message: fmt.Sprintf("cannot decode browse state: %s", cause),
	}
}

// NewMalformedContinuation creates an error for a missing or unreadable
// continuation token. The workflow step aborts with a user-visible error.
func NewMalformedContinuation(cause string) *SpyglassError {
	return &SpyglassError{
		Code:    ErrMalformedContinuation,
		Message: fmt.Sprintf("cannot resume workflow: %s", cause),
	}
}

// NewOutOfRange creates an error for a jump target outside 1..total.
func NewOutOfRange(target, total int) *SpyglassError {
	return &SpyglassError{
		Code:    ErrOutOfRange,
		Message: fmt.Sprintf("index must be between 1 and %d, got %d", total, target),
		Details: map[string]any{"target": target, "total": total},
	}
}

// NewInvalidSortMethod creates an error for an unknown sort selection.
func NewInvalidSortMethod(method string) *SpyglassError {
	return &SpyglassError{
		Code:    ErrInvalidSortMethod,
		Message: fmt.Sprintf("unknown sort method: %q", method),
		Details: map[string]any{"method": method},
	}
}

// NewNotAuthorized creates an error for a principal outside the allow list.
func NewNotAuthorized() *SpyglassError {
	return &SpyglassError{
		Code:    ErrNotAuthorized,
		Message: "you are not allowed to use this feature, as it is in alpha testing",
	}
}

// NewNotFound creates an error for an empty result set.
func NewNotFound() *SpyglassError {
	return &SpyglassError{
		Code:    ErrNotFound,
		Message: "no servers found",
	}
}

// NewTargetOffline creates a terminal error for a stale join target.
func NewTargetOffline(address string) *SpyglassError {
	return &SpyglassError{
		Code:    ErrTargetOffline,
		Message: fmt.Sprintf("server %s is offline", address),
		Details: map[string]any{"address": address},
	}
}

// NewActionFailed wraps a protocol action failure. Terminal, no retry.
func NewActionFailed(err error) *SpyglassError {
	msg := "action failed"
	if err != nil {
		msg = err.Error()
	}
	return &SpyglassError{
		Code:    ErrActionFailed,
		Message: msg,
	}
}

// NewExchangeFailed wraps a structured error from the account-linking
// collaborator. Terminal for the workflow instance.
func NewExchangeFailed(cause string) *SpyglassError {
	return &SpyglassError{
		Code:    ErrExchangeFailed,
		Message: fmt.Sprintf("token exchange failed: %s", cause),
	}
}

// NewTimedOut creates a terminal error for an elapsed prompt window.
func NewTimedOut() *SpyglassError {
	return &SpyglassError{
		Code:    ErrTimedOut,
		Message: "timed out",
	}
}

// NewProbeFailure wraps a transient prober error. Slow renders absorb it
// into an unknown-liveness snapshot instead of failing.
func NewProbeFailure(err error) *SpyglassError {
	msg := "probe failed"
	if err != nil {
		msg = err.Error()
	}
	return &SpyglassError{
		Code:    ErrProbeFailure,
		Message: msg,
	}
}

// NewInternal creates an error for unexpected internal failures.
func NewInternal(err error) *SpyglassError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SpyglassError{
		Code:    ErrInternal,
		Message: msg,
	}
}

// Is checks if an error is a SpyglassError with the given code.
func Is(err error, code ErrorCode) bool {
	if sErr, ok := err.(*SpyglassError); ok {
		return sErr.Code == code
	}
	return false
}
