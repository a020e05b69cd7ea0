package models

import "fmt"

// ValidationError reports missing or malformed required input. It is raised
// synchronously at the action boundary, before any network or storage call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PermissionError reports a denied camera grant. It aborts the capture
// session that raised it.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string {
	return "camera permission denied: " + e.Reason
}

// StorageError wraps a persistence read/write failure. Non-fatal: the caller
// surfaces it and continues with its in-memory state untouched.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("profile storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
