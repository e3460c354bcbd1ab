package vfs

import (
	"errors"
	"fmt"
)

// Sentinel errors, match with errors.Is.
var (
	ErrNameConflict     = errors.New("name conflict")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrNotFound         = errors.New("not found")

	// ErrLocked is returned by drag-style moves of locked nodes. It also matches ErrInvalidOperation.
	ErrLocked = fmt.Errorf("%w: node is locked", ErrInvalidOperation)
)

// ConflictError reports a destination name that is already taken by a different sibling.
type ConflictError struct {
	Path     string     // Path that could not be claimed
	Existing Identifier // Identifier of the node occupying it
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("name conflict: %q is already taken by node %d", e.Path, e.Existing)
}

// Is allows errors.Is() to match against ErrNameConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrNameConflict
}

// OperationError reports a structurally impossible request, such as merging a folder into its own descendant.
type OperationError struct {
	Op     string
	Path   string
	Reason string
}

func (e *OperationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Op, e.Path, e.Reason)
}

// Is allows errors.Is() to match against ErrInvalidOperation
func (e *OperationError) Is(target error) bool {
	return target == ErrInvalidOperation
}

// NotFoundError reports a path that resolves to nothing, or a node that was removed from its tree.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %q", e.Path)
}

// Is allows errors.Is() to match against ErrNotFound
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func invalidOp(op, path, reason string) error {
	return &OperationError{Op: op, Path: path, Reason: reason}
}
