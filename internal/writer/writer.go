// Package writer persists rewritten source files.
//
// WriteAtomic stages the new contents in a temp file next to the target and
// renames it into place, so a crash leaves either the old or the new file.
// WriteInPlace truncates and rewrites the target directly.
package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const defaultPerm os.FileMode = 0644

// WriteAtomic replaces path with data via a temp file in the same directory.
// The target's permission bits are kept. The temp file is removed on failure.
// A symlinked path is written through: the file it points to is replaced and
// the link is left in place.
func WriteAtomic(path string, data []byte) error {
	path, err := Resolve(path)
	if err != nil {
		return err
	}
	perm := existingPerm(path)

	// Same directory so os.Rename stays on one filesystem.
	tmpPath := TempName(path)
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	// OpenFile applies the umask; restore the target's exact bits.
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// WriteInPlace truncates path and writes data to it. A failure part way
// through can leave the file partially written.
func WriteInPlace(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, existingPerm(path))
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Resolve follows symlinks in path. A path that does not exist yet is
// returned unchanged.
func Resolve(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return path, nil
		}
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return resolved, nil
}

// TempName returns the staging path used for an atomic write of path.
func TempName(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", base, uuid.NewString()))
}

func existingPerm(path string) os.FileMode {
	info, err := os.Stat(path)
	if err != nil {
		return defaultPerm
	}
	return info.Mode().Perm()
}
