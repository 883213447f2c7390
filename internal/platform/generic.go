//go:build !unix && !windows

// Fallback Platform for targets without x/sys support (plan9, wasip1).
package platform

import (
	"context"
	"os"
)

// GenericPlatform probes writability by opening the file.
type GenericPlatform struct{}

// New creates a generic platform instance.
func New() Platform {
	return &GenericPlatform{}
}

// Name returns the platform identifier.
func (p *GenericPlatform) Name() string { return "generic" }

// CheckWritable opens path for writing without truncating it.
// Directories only need to exist.
func (p *GenericPlatform) CheckWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	return f.Close()
}

// FreeBytes returns the free space on the filesystem holding dir.
func (p *GenericPlatform) FreeBytes(ctx context.Context, dir string) (uint64, error) {
	return freeBytes(ctx, dir)
}

// Invoker returns the parent process name.
func (p *GenericPlatform) Invoker(ctx context.Context) string {
	return invoker(ctx)
}
