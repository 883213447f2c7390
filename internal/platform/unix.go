//go:build unix

package platform

import (
	"context"
	"errors"
	"io/fs"

	"golang.org/x/sys/unix"
)

// UnixPlatform implements Platform for Linux, macOS and the BSDs.
type UnixPlatform struct{}

// New creates a new unix platform instance.
func New() Platform {
	return &UnixPlatform{}
}

// Name returns the platform identifier.
func (p *UnixPlatform) Name() string { return "unix" }

// CheckWritable asks the kernel whether the real user may write path.
func (p *UnixPlatform) CheckWritable(path string) error {
	err := unix.Access(path, unix.W_OK)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EROFS), errors.Is(err, unix.EPERM):
		return &fs.PathError{Op: "access", Path: path, Err: fs.ErrPermission}
	default:
		return &fs.PathError{Op: "access", Path: path, Err: err}
	}
}

// FreeBytes returns the free space on the filesystem holding dir.
func (p *UnixPlatform) FreeBytes(ctx context.Context, dir string) (uint64, error) {
	return freeBytes(ctx, dir)
}

// Invoker returns the parent process name.
func (p *UnixPlatform) Invoker(ctx context.Context) string {
	return invoker(ctx)
}
