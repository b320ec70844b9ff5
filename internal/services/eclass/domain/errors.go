package domain

import (
	"errors"
	"fmt"

	apperrors "github.com/eclassroom/eclass/internal/platform/errors"
)

var (
	// ErrNotFound indicates an e-class record was not found.
	ErrNotFound = errors.New("eclass not found")
	// ErrConflict indicates a write conflicted with an existing record.
	ErrConflict = errors.New("eclass conflict")
	// ErrStatusConflict indicates a status compare-and-set lost against the stored status.
	ErrStatusConflict = errors.New("eclass status changed concurrently")
	// ErrMessageNotFound indicates a chat message or its channel no longer exists.
	ErrMessageNotFound = errors.New("message not found")
	// ErrRoleNotFound indicates a chat role no longer exists.
	ErrRoleNotFound = errors.New("role not found")
	// ErrStoreNotConfigured indicates the manager is missing persistence wiring.
	ErrStoreNotConfigured = errors.New("eclass store is not configured")
)

// IntegrityError reports that persisted state and the chat platform diverged.
// It is never repaired automatically.
type IntegrityError struct {
	ClassID string
	Op      string
	Err     error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("eclass %s: %s: integrity fault: %v", e.ClassID, e.Op, e.Err)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// IsIntegrityFault reports whether err is an integrity fault.
func IsIntegrityFault(err error) bool {
	var target *IntegrityError
	return errors.As(err, &target)
}

func reject(code apperrors.Code, message string) error {
	return apperrors.New(code, message)
}

func rejectTransition(e Eclass, to Status) error {
	return apperrors.WithMetadata(
		apperrors.CodeEclassInvalidStatusTransition,
		fmt.Sprintf("eclass %s cannot move from %s to %s", e.ID, e.Status, to),
		map[string]string{"ClassID": e.ID, "From": string(e.Status), "To": string(to)},
	)
}

func rejectNotFound(classID string) error {
	return apperrors.Wrap(apperrors.CodeNotFound, fmt.Sprintf("eclass %s not found", classID), ErrNotFound)
}
