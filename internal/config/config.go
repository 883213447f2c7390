// Package config handles hook configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the hook reads.
const EnvPrefix = "INJECT_"

// Default file names, relative to the working directory.
const (
	DefaultSecretsPath = "secrets.ini"
	DefaultTargetPath  = "src/main.cpp"
	DefaultConfigName  = "inject.yaml"
)

// Config holds all hook configuration.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Write   WriteSettings `yaml:"write"`
	Logging LoggingConfig `yaml:"logging"`
}

// PathsConfig holds the files the hook reads and rewrites.
// Relative paths are resolved against WorkDir.
type PathsConfig struct {
	WorkDir string `yaml:"workdir" env:"WORKDIR"`
	Secrets string `yaml:"secrets" env:"SECRETS_PATH"`
	Target  string `yaml:"target" env:"TARGET_PATH"`
}

// WriteSettings controls how the substituted source is persisted.
type WriteSettings struct {
	Atomic         bool `yaml:"atomic" env:"ATOMIC"`
	SkipUnchanged  bool `yaml:"skip_unchanged" env:"SKIP_UNCHANGED"`
	CheckFreeSpace bool `yaml:"check_free_space" env:"CHECK_FREE_SPACE"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
	File  string `yaml:"file" env:"LOG_FILE"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			WorkDir: "",
			Secrets: DefaultSecretsPath,
			Target:  DefaultTargetPath,
		},
		Write: WriteSettings{
			Atomic:         true,
			SkipUnchanged:  true,
			CheckFreeSpace: true,
		},
		Logging: LoggingConfig{
			// Quiet on success; the build orchestrator owns console output.
			Level: "warn",
			File:  "",
		},
	}
}

// LoadFromBytes parses YAML configuration from a byte slice and merges with defaults.
// Environment variables take highest precedence and override values from the byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, only defaults and environment
// variables are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return LoadFromBytes(nil)
	}

	return LoadFromBytes(data)
}

// CLIOverrides holds values from command-line flags.
// Empty strings are treated as "not set" and skipped.
type CLIOverrides struct {
	WorkDir  string
	Secrets  string
	Target   string
	LogLevel string
}

// Locate searches the standard config file locations and returns the first one found.
// Returns empty string if no config file exists.
func Locate(workDir string) string {
	for _, p := range configSearchPaths(workDir) {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func configSearchPaths(workDir string) []string {
	paths := []string{filepath.Join(workDir, DefaultConfigName)}
	if p, err := UserConfigPath(); err == nil {
		paths = append(paths, p)
	}
	return paths
}

// UserConfigPath returns the per-user config file location.
func UserConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "inject-secrets", "config.yaml"), nil
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > YAML file > defaults.
//
// An optional configPath argument controls file discovery:
//   - omitted        → auto-discover via Locate() in the CLI or INJECT_WORKDIR
//     directory; a missing file is ignored
//   - explicit value  → use that path, which must exist ("" means no file)
func LoadLayered(cli CLIOverrides, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	var filePath string
	explicit := len(configPath) > 0
	if explicit {
		filePath = configPath[0]
	} else {
		workDir := cli.WorkDir
		if workDir == "" {
			workDir = os.Getenv(EnvPrefix + "WORKDIR")
		}
		filePath = Locate(workDir)
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			// Discovered paths are optional; a path the user named is not.
			if explicit || !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file %s: %w", filePath, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if cli.WorkDir != "" {
		cfg.Paths.WorkDir = cli.WorkDir
	}
	if cli.Secrets != "" {
		cfg.Paths.Secrets = cli.Secrets
	}
	if cli.Target != "" {
		cfg.Paths.Target = cli.Target
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides applies INJECT_* environment variables on top of cfg.
// Unset variables leave the current value alone.
func applyEnvOverrides(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}

// SecretsPath returns the secrets file path resolved against the working directory.
func (c *Config) SecretsPath() string {
	return c.resolve(c.Paths.Secrets)
}

// TargetPath returns the target source path resolved against the working directory.
func (c *Config) TargetPath() string {
	return c.resolve(c.Paths.Target)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.Paths.WorkDir == "" {
		return p
	}
	return filepath.Join(c.Paths.WorkDir, p)
}

// Validate checks that the configuration can drive an injection run.
func (c *Config) Validate() error {
	if c.Paths.Secrets == "" {
		return fmt.Errorf("secrets path is required")
	}
	if c.Paths.Target == "" {
		return fmt.Errorf("target path is required")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", c.Logging.Level)
	}
	return nil
}
