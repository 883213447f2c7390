package inject

import (
	"errors"
	"fmt"
)

// Kind classifies injection failures.
type Kind int

const (
	// FileAccess: a file is missing, unreadable or unwritable.
	FileAccess Kind = iota + 1
	// MissingConfiguration: the secrets section or a key is absent.
	MissingConfiguration
)

func (k Kind) String() string {
	switch k {
	case FileAccess:
		return "file access"
	case MissingConfiguration:
		return "missing configuration"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrFileAccess           = errors.New("file access")
	ErrMissingConfiguration = errors.New("missing configuration")
)

// Error is returned by InjectCredentials for every failure.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrFileAccess:
		return e.Kind == FileAccess
	case ErrMissingConfiguration:
		return e.Kind == MissingConfiguration
	}
	return false
}

func fileAccess(op, path string, err error) error {
	return &Error{Kind: FileAccess, Op: op, Path: path, Err: err}
}

func missingConfig(op, path string, err error) error {
	return &Error{Kind: MissingConfiguration, Op: op, Path: path, Err: err}
}
