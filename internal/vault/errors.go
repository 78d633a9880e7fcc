package vault

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("operation not permitted")
	ErrLocked            = errors.New("resource is locked")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrValidation        = errors.New("validation failed")
	ErrPartialDelete     = errors.New("recursive delete aborted")
	ErrTreeCycle         = errors.New("folder tree contains a cycle")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// LockedError is returned when a non-owner reaches a locked node without the
// right secret. It matches ErrLocked, and ErrInvalidCredential as well when a
// secret was supplied but did not verify.
type LockedError struct {
	NodeID      string
	LockedAt    time.Time
	Reason      string
	WrongSecret bool
}

func (e *LockedError) Error() string {
	if e.WrongSecret {
		return fmt.Sprintf("node %s is locked: wrong secret", e.NodeID)
	}
	return fmt.Sprintf("node %s is locked", e.NodeID)
}

func (e *LockedError) Is(target error) bool {
	return target == ErrLocked || (e.WrongSecret && target == ErrInvalidCredential)
}

// PartialDeleteError reports a recursive delete that stopped part way.
// Removed lists the ids deleted before the failure; when RolledBack is set
// the surrounding transaction undid them and the tree is intact.
type PartialDeleteError struct {
	RootID     string
	Removed    []string
	FailedID   string
	RolledBack bool
	Err        error
}

func (e *PartialDeleteError) Error() string {
	msg := fmt.Sprintf("recursive delete of %s aborted after %d nodes", e.RootID, len(e.Removed))
	if e.FailedID != "" {
		msg += fmt.Sprintf(" at %s", e.FailedID)
	}
	if e.RolledBack {
		msg += " (rolled back)"
	}
	return msg + ": " + e.Err.Error()
}

func (e *PartialDeleteError) Unwrap() []error {
	return []error{ErrPartialDelete, e.Err}
}
