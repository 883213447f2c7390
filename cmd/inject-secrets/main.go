// Package main is the entry point for inject-secrets, the pre-build hook that
// writes Wi-Fi credentials from secrets.ini into the firmware source before
// the build orchestrator compiles it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Guliveer/secretsinject/internal/config"
	"github.com/Guliveer/secretsinject/internal/inject"
	"github.com/Guliveer/secretsinject/internal/setup"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath  = flag.String("config", "", "Path to hook configuration file (default: auto-discover)")
	workDir     = flag.String("workdir", "", "Project directory the secrets and target paths are relative to")
	secretsPath = flag.String("secrets", "", "Path to the secrets INI file (default \"secrets.ini\")")
	targetPath  = flag.String("target", "", "Path to the source file to rewrite (default \"src/main.cpp\")")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
	showVersion = flag.Bool("version", false, "Show version and exit")
	printHook   = flag.Bool("print-hook", false, "Print the PlatformIO extra script and exit")

	runSetup   = flag.Bool("setup", false, "Create secrets.ini interactively and exit")
	setupSSID  = flag.String("ssid", "", "SSID for -setup (prompted if empty)")
	setupPass  = flag.String("password", "", "Password for -setup (prompted if empty)")
	setupScope = flag.String("write-config", "none", "Where -setup writes a hook config: none, project, user")
	setupForce = flag.Bool("force", false, "Let -setup overwrite an existing secrets.ini")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("inject-secrets %s\n", version)
		os.Exit(0)
	}

	if *printHook {
		os.Stdout.Write(hookScript)
		os.Exit(0)
	}

	if *runSetup {
		opts := setup.Options{
			WorkDir:  *workDir,
			SSID:     *setupSSID,
			Password: *setupPass,
			Scope:    *setupScope,
			Force:    *setupForce,
		}
		if err := setup.Run(version, opts, os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration
	cli := config.CLIOverrides{
		WorkDir:  *workDir,
		Secrets:  *secretsPath,
		Target:   *targetPath,
		LogLevel: *logLevel,
	}
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadLayered(cli, *configPath)
	} else {
		cfg, err = config.LoadLayered(cli)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	defer logger.Sync()

	logger.Debug("Starting inject-secrets",
		zap.String("version", version),
		zap.String("workdir", cfg.Paths.WorkDir))

	res, err := inject.New(cfg, logger).InjectCredentials(context.Background())
	if err != nil {
		logger.Error("Credential injection failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Debug("Done",
		zap.String("target", res.Target),
		zap.Bool("written", res.Written))
}

// initLogger creates a zap logger based on the configuration.
// It writes human-readable output to stderr and optionally a JSON log file.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.WarnLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// Console output (human-readable)
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	// File output (structured JSON, if configured)
	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
