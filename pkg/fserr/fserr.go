// Package fserr defines the typed error families for the workspace
// filesystem layer. SecurityError is raised by path validation before any
// backend call runs; FileOperationError wraps a backend failure after
// validation has already passed.
package fserr

import (
	"errors"
	"fmt"
)

// SecurityReason is a machine-readable reason code for a rejected path.
type SecurityReason string

const (
	// ReasonPathTraversal marks a literal or encoded ".." traversal signature.
	ReasonPathTraversal SecurityReason = "PATH_TRAVERSAL"

	// ReasonSymlinkEscape marks a symlink whose resolved target leaves the workspace.
	ReasonSymlinkEscape SecurityReason = "SYMLINK_ESCAPE"

	// ReasonOutsideWorkspace marks a resolved path outside the workspace root.
	ReasonOutsideWorkspace SecurityReason = "OUTSIDE_WORKSPACE"

	// ReasonInvalidPath marks a malformed path or name.
	ReasonInvalidPath SecurityReason = "INVALID_PATH"

	// ReasonAbsolutePathInRelativeContext marks an absolute path supplied
	// where a workspace-relative path was expected.
	ReasonAbsolutePathInRelativeContext SecurityReason = "ABSOLUTE_PATH_IN_RELATIVE_CONTEXT"
)

// SecurityError reports a path rejected during validation. It is terminal
// for the triggering call: no backend I/O has happened when it is raised.
type SecurityError struct {
	Reason SecurityReason
	Path   string
	Detail string
}

// Error implements the error interface.
func (e *SecurityError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %q (%s)", e.Reason, e.Path, e.Detail)
	}
	return fmt.Sprintf("%s: %q", e.Reason, e.Path)
}

// NewSecurityError creates a SecurityError.
func NewSecurityError(reason SecurityReason, path, detail string) *SecurityError {
	return &SecurityError{Reason: reason, Path: path, Detail: detail}
}

// Op identifies the file operation that failed.
type Op string

const (
	OpRead   Op = "read"
	OpWrite  Op = "write"
	OpDelete Op = "delete"
	OpMove   Op = "move"
	OpCopy   Op = "copy"
	OpRename Op = "rename"
	OpMkdir  Op = "mkdir"
	OpList   Op = "list"
	OpStat   Op = "stat"
	OpOpen   Op = "open"
)

// FileOperationError reports a backend I/O failure for a validated path.
// It carries the logical (workspace-relative) path, the operation kind,
// and the underlying cause. This layer never retries.
type FileOperationError struct {
	Op   Op
	Path string
	Err  error
}

// Error implements the error interface.
func (e *FileOperationError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FileOperationError) Unwrap() error {
	return e.Err
}

// NewOpError creates a FileOperationError.
func NewOpError(op Op, path string, err error) *FileOperationError {
	return &FileOperationError{Op: op, Path: path, Err: err}
}

// IsSecurity reports whether err is (or wraps) a SecurityError.
func IsSecurity(err error) bool {
	var se *SecurityError
	return errors.As(err, &se)
}

// SecurityReasonOf returns the reason code of a wrapped SecurityError,
// or "" when err carries none.
func SecurityReasonOf(err error) SecurityReason {
	var se *SecurityError
	if errors.As(err, &se) {
		return se.Reason
	}
	return ""
}

// IsOperation reports whether err is (or wraps) a FileOperationError.
func IsOperation(err error) bool {
	var fe *FileOperationError
	return errors.As(err, &fe)
}
