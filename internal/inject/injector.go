// Package inject rewrites a firmware source file, replacing the "SSID" and
// "PASSWORD" placeholder literals with the credentials from secrets.ini.
// It runs once per build, before compilation, on behalf of the build
// orchestrator.
package inject

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Guliveer/secretsinject/internal/config"
	"github.com/Guliveer/secretsinject/internal/platform"
	"github.com/Guliveer/secretsinject/internal/secrets"
	"github.com/Guliveer/secretsinject/internal/writer"
)

var errNoSpace = errors.New("not enough free space")

// Result describes a completed injection.
type Result struct {
	Target  string
	Counts  Counts
	Written bool
}

// Injector substitutes credentials into one target source file.
type Injector struct {
	cfg      *config.Config
	logger   *zap.Logger
	platform platform.Platform
}

// New creates an Injector for the paths and write settings in cfg.
func New(cfg *config.Config, logger *zap.Logger) *Injector {
	return &Injector{
		cfg:      cfg,
		logger:   logger.Named("inject"),
		platform: platform.New(),
	}
}

// InjectCredentials reads the credential pair, substitutes it into the target
// file and writes the file back. Nothing is written unless both the secrets
// and the target were read successfully.
func (i *Injector) InjectCredentials(ctx context.Context) (Result, error) {
	secretsPath := i.cfg.SecretsPath()
	target := i.cfg.TargetPath()
	res := Result{Target: target}

	// The invoker lookup walks the process table; skip it unless debugging.
	if ce := i.logger.Check(zap.DebugLevel, "Starting credential injection"); ce != nil {
		ce.Write(
			zap.String("secrets", secretsPath),
			zap.String("target", target),
			zap.String("platform", i.platform.Name()),
			zap.String("invoker", i.platform.Invoker(ctx)))
	}

	creds, err := secrets.Load(secretsPath)
	if err != nil {
		if isConfigError(err) {
			return res, missingConfig("load", secretsPath, err)
		}
		return res, fileAccess("load", secretsPath, err)
	}

	original, err := os.ReadFile(target)
	if err != nil {
		return res, fileAccess("read", target, err)
	}

	updated, counts := Substitute(string(original), creds)
	res.Counts = counts

	if counts.SSID == 0 && counts.Password == 0 {
		i.logger.Info("No placeholders found in target",
			zap.String("target", target))
	}

	if updated == string(original) && i.cfg.Write.SkipUnchanged {
		i.logger.Debug("Target unchanged, skipping write", zap.String("target", target))
		return res, nil
	}

	if err := i.preflight(ctx, target, len(original), len(updated)); err != nil {
		return res, fileAccess("preflight", target, err)
	}

	if err := i.write(target, []byte(updated)); err != nil {
		return res, fileAccess("write", target, err)
	}
	res.Written = true

	i.logger.Info("Injected credentials",
		zap.String("target", target),
		zap.Int("ssid_replacements", counts.SSID),
		zap.Int("password_replacements", counts.Password),
		zap.Bool("atomic", i.cfg.Write.Atomic))
	return res, nil
}

// preflight rejects writes that would fail part way through.
func (i *Injector) preflight(ctx context.Context, target string, oldSize, newSize int) error {
	if err := i.platform.CheckWritable(target); err != nil {
		return err
	}

	// Atomic writes land next to the symlink's destination, not the link.
	resolved, err := writer.Resolve(target)
	if err != nil {
		return err
	}
	dir := filepath.Dir(resolved)

	if i.cfg.Write.Atomic {
		// Rename needs write access to the directory.
		if err := i.platform.CheckWritable(dir); err != nil {
			return err
		}
	}

	if !i.cfg.Write.CheckFreeSpace {
		return nil
	}
	need := newSize
	if !i.cfg.Write.Atomic {
		need = newSize - oldSize
	}
	if need <= 0 {
		return nil
	}
	free, err := i.platform.FreeBytes(ctx, dir)
	if err != nil {
		i.logger.Warn("Could not determine free space, continuing",
			zap.String("dir", dir),
			zap.Error(err))
		return nil
	}
	if free < uint64(need) {
		return fmt.Errorf("%w: need %d bytes, %d available", errNoSpace, need, free)
	}
	return nil
}

func (i *Injector) write(target string, data []byte) error {
	if i.cfg.Write.Atomic {
		return writer.WriteAtomic(target, data)
	}
	return writer.WriteInPlace(target, data)
}

func isConfigError(err error) bool {
	return errors.Is(err, secrets.ErrMalformed) ||
		errors.Is(err, secrets.ErrSectionNotFound) ||
		errors.Is(err, secrets.ErrKeyNotFound)
}
