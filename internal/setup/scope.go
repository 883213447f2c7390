package setup

import (
	"fmt"
	"path/filepath"

	"github.com/Guliveer/secretsinject/internal/config"
)

// Scope selects where setup writes the hook configuration file.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeProject
	ScopeUser
)

func (s Scope) String() string {
	switch s {
	case ScopeNone:
		return "none"
	case ScopeProject:
		return "project"
	case ScopeUser:
		return "user"
	default:
		return "unknown"
	}
}

func ParseScope(s string) (Scope, error) {
	switch s {
	case "", "none":
		return ScopeNone, nil
	case "project":
		return ScopeProject, nil
	case "user":
		return ScopeUser, nil
	default:
		return 0, fmt.Errorf("invalid config scope %q (expected \"none\", \"project\" or \"user\")", s)
	}
}

// Paths are the files setup creates or updates.
type Paths struct {
	Secrets    string
	GitIgnore  string
	ConfigPath string // empty for ScopeNone
}

// ResolvePaths returns the setup paths for a project rooted at workDir.
func ResolvePaths(workDir string, scope Scope) Paths {
	p := Paths{
		Secrets:   filepath.Join(workDir, config.DefaultSecretsPath),
		GitIgnore: filepath.Join(workDir, ".gitignore"),
	}
	switch scope {
	case ScopeProject:
		p.ConfigPath = filepath.Join(workDir, config.DefaultConfigName)
	case ScopeUser:
		if path, err := config.UserConfigPath(); err == nil {
			p.ConfigPath = path
		}
	}
	return p
}
