package setup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Guliveer/secretsinject/internal/config"
	"github.com/Guliveer/secretsinject/internal/secrets"
)

// Options holds the CLI flags passed to -setup.
type Options struct {
	WorkDir  string // Project root; "" means the current directory
	SSID     string // Network name or "" (interactive)
	Password string // Passphrase or "" (interactive)
	Scope    string // "none", "project", "user"; where to write a hook config
	Force    bool   // Overwrite an existing secrets.ini
}

// Run executes the setup wizard. Missing SSID or password are prompted for on in.
func Run(version string, opts Options, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "\ninject-secrets setup %s\n", version)
	fmt.Fprintln(out, strings.Repeat("─", 30))
	fmt.Fprintln(out)

	reader := bufio.NewReader(in)

	// 1. Determine where the hook config goes
	scope, err := ParseScope(opts.Scope)
	if err != nil {
		return err
	}
	paths := ResolvePaths(opts.WorkDir, scope)
	if scope == ScopeUser && paths.ConfigPath == "" {
		return errors.New("cannot determine user config directory")
	}

	// 2. Check for an existing secrets file before prompting
	if !opts.Force {
		if _, err := os.Stat(paths.Secrets); err == nil {
			return fmt.Errorf("%w: %s (use -force to replace it)", secrets.ErrExists, paths.Secrets)
		}
	}

	// 3. Get credentials
	ssid, err := resolveValue(opts.SSID, "Wi-Fi SSID", reader, out)
	if err != nil {
		return err
	}
	pass, err := resolveValue(opts.Password, "Wi-Fi password", reader, out)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\nWriting...")

	// 4. Write secrets.ini
	creds := secrets.Credentials{SSID: ssid, Password: pass}
	if err := secrets.Write(paths.Secrets, creds, opts.Force); err != nil {
		return fmt.Errorf("writing secrets: %w", err)
	}
	fmt.Fprintf(out, "  ✓ Written secrets → %s\n", paths.Secrets)

	// 5. Keep secrets out of version control
	added, err := ensureIgnored(paths.GitIgnore, config.DefaultSecretsPath)
	if err != nil {
		return fmt.Errorf("updating .gitignore: %w", err)
	}
	if added {
		fmt.Fprintf(out, "  ✓ Added %s to %s\n", config.DefaultSecretsPath, paths.GitIgnore)
	}

	// 6. Write hook config
	if paths.ConfigPath != "" {
		cfg := config.DefaultConfig()
		if err := config.WriteConfig(cfg, paths.ConfigPath); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		fmt.Fprintf(out, "  ✓ Written %s config → %s\n", scope, paths.ConfigPath)
	}

	fmt.Fprintln(out, "\nDone! Credentials will be injected on the next build.")
	return nil
}

// resolveValue gets a value from flag or interactive prompt.
// An empty answer is an error; the injector needs both values.
func resolveValue(flagValue, prompt string, reader *bufio.Reader, out io.Writer) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprintf(out, "%s: ", prompt)
	val, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading %s: %w", prompt, err)
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return "", fmt.Errorf("%s is required", prompt)
	}
	return val, nil
}

// ensureIgnored appends entry to the .gitignore at path unless a line already
// matches it. Reports whether the file was changed.
func ensureIgnored(path, entry string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == entry || line == "/"+entry {
			return false, nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	prefix := ""
	if len(data) > 0 && data[len(data)-1] != '\n' {
		prefix = "\n"
	}
	if _, err := fmt.Fprintf(f, "%s%s\n", prefix, entry); err != nil {
		return false, err
	}
	return true, f.Close()
}
