// Package fserr classifies filesystem failures into the small set of kinds
// reported by the copy engine and the snapshot builder.
package fserr

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Kind identifies the category of a failure.
// Kinds are string-based so they serialize naturally into result documents.
type Kind string

const (
	// InvalidArgument indicates a malformed path, filter or list entry.
	InvalidArgument Kind = "INVALID_ARGUMENT"

	// NotFound indicates a missing root, directory or source file.
	NotFound Kind = "NOT_FOUND"

	// PermissionDenied indicates the caller lacks access rights.
	PermissionDenied Kind = "PERMISSION_DENIED"

	// IOError indicates a read or write failure, including a full disk.
	IOError Kind = "IO_ERROR"

	// PathTooLong indicates a path exceeding platform limits.
	PathTooLong Kind = "PATH_TOO_LONG"

	// ResourceUnavailable indicates a closed handle or a locked file.
	ResourceUnavailable Kind = "RESOURCE_UNAVAILABLE"
)

// Error is a classified filesystem failure.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with op and path, classifying it unless it already carries a Kind.
func New(op, path string, err error) *Error {
	return &Error{Kind: Classify(err), Op: op, Path: path, Err: err}
}

// Newf builds an Error of an explicit kind from a formatted message.
func Newf(kind Kind, op, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

// Classify maps err onto a Kind. A nil error has no kind.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	var fe *Error
	if errors.As(err, &fe) && fe.Kind != "" {
		return fe.Kind
	}

	switch {
	case errors.Is(err, syscall.ENAMETOOLONG):
		return PathTooLong
	case errors.Is(err, fs.ErrNotExist):
		return NotFound
	case errors.Is(err, fs.ErrPermission):
		return PermissionDenied
	case errors.Is(err, fs.ErrClosed),
		errors.Is(err, syscall.EAGAIN),
		errors.Is(err, syscall.EWOULDBLOCK),
		errors.Is(err, syscall.EBUSY):
		return ResourceUnavailable
	case errors.Is(err, fs.ErrInvalid):
		return InvalidArgument
	default:
		return IOError
	}
}

// IsKind reports whether err classifies as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && Classify(err) == kind
}
