package lifecycle

import "errors"

// Typed lifecycle errors. Every coordinator operation that fails a gate
// wraps one of these; callers match with errors.Is.
var (
	// ErrPermissionDenied reports a failed role or ownership check.
	ErrPermissionDenied = errors.New("lifecycle: permission denied")
	// ErrInvalidStateTransition reports an operation whose status
	// precondition is unmet.
	ErrInvalidStateTransition = errors.New("lifecycle: invalid state transition")
	// ErrApprovalRequired reports a release attempted before every approval
	// row is approved.
	ErrApprovalRequired = errors.New("lifecycle: approval required")
)
