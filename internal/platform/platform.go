// Package platform provides an OS abstraction layer for the filesystem and
// process checks the injector runs before it rewrites a source file.
// Each supported OS implements the Platform interface.
package platform

import (
	"context"
	"os"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/process"
)

// Platform provides OS-specific preflight checks.
type Platform interface {
	// CheckWritable returns an error wrapping fs.ErrPermission if the current
	// user cannot write path.
	CheckWritable(path string) error

	// FreeBytes returns the space available to unprivileged users on the
	// filesystem holding dir.
	FreeBytes(ctx context.Context, dir string) (uint64, error)

	// Invoker returns the name of the parent process, or "" if unknown.
	Invoker(ctx context.Context) string

	// Name returns the platform name (unix, windows, generic).
	Name() string
}

// freeBytes is shared by every platform; gopsutil handles the statfs /
// GetDiskFreeSpaceEx differences.
func freeBytes(ctx context.Context, dir string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// invoker looks up the parent process name. Lookup failures are not errors;
// the name is informational only.
func invoker(ctx context.Context) string {
	ppid := os.Getppid()
	if ppid <= 0 {
		return ""
	}
	p, err := process.NewProcessWithContext(ctx, int32(ppid))
	if err != nil {
		return ""
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return ""
	}
	return name
}
