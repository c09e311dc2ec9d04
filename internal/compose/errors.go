package compose

import (
	"errors"
	"fmt"

	"pagemgr-cli/internal/model"
)

var (
	// ErrInvalidOperation is matched by every structurally disallowed request.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrMalformedSetup is matched by every LoadSetup rejection.
	ErrMalformedSetup = model.ErrMalformedSetup

	// ErrCancelled is returned when the caller's confirmation step declines a destructive action.
	ErrCancelled = errors.New("cancelled")
)

type InvalidOperationError struct {
	Op     string
	Reason string
}

func (e InvalidOperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e InvalidOperationError) Is(target error) bool {
	return target == ErrInvalidOperation
}

func invalidOp(op, format string, args ...any) error {
	return InvalidOperationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

type MalformedSetupError struct {
	Document string
	Key      string
	Reason   string
}

func (e MalformedSetupError) Error() string {
	switch {
	case e.Document != "" && e.Key != "":
		return fmt.Sprintf("malformed setup: document %q position %q: %s", e.Document, e.Key, e.Reason)
	case e.Document != "":
		return fmt.Sprintf("malformed setup: document %q: %s", e.Document, e.Reason)
	default:
		return "malformed setup: " + e.Reason
	}
}

func (e MalformedSetupError) Is(target error) bool {
	return target == ErrMalformedSetup
}
