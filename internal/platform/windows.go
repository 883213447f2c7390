//go:build windows

// Windows-specific Platform implementation.
package platform

import (
	"context"
	"io/fs"

	"golang.org/x/sys/windows"
)

// WindowsPlatform implements Platform for Windows systems.
type WindowsPlatform struct{}

// New creates a new Windows platform instance.
func New() Platform {
	return &WindowsPlatform{}
}

// Name returns the platform identifier.
func (p *WindowsPlatform) Name() string { return "windows" }

// CheckWritable reports the read-only attribute of a file as a permission error.
// ACL denials surface later from the write itself.
func (p *WindowsPlatform) CheckWritable(path string) error {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return &fs.PathError{Op: "access", Path: path, Err: err}
	}
	attrs, err := windows.GetFileAttributes(name)
	if err != nil {
		return &fs.PathError{Op: "access", Path: path, Err: err}
	}
	// Explorer sets READONLY on some folders without meaning it.
	if attrs&windows.FILE_ATTRIBUTE_DIRECTORY == 0 && attrs&windows.FILE_ATTRIBUTE_READONLY != 0 {
		return &fs.PathError{Op: "access", Path: path, Err: fs.ErrPermission}
	}
	return nil
}

// FreeBytes returns the free space on the volume holding dir.
func (p *WindowsPlatform) FreeBytes(ctx context.Context, dir string) (uint64, error) {
	return freeBytes(ctx, dir)
}

// Invoker returns the parent process name.
func (p *WindowsPlatform) Invoker(ctx context.Context) string {
	return invoker(ctx)
}
