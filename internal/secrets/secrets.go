// Package secrets reads the Wi-Fi credential pair from an INI secrets file.
// The reader follows the conventions of the INI files PlatformIO projects
// keep next to platformio.ini: case-insensitive keys, "=" or ":" delimiters,
// full-line comments only, and a [DEFAULT] section visible from every section.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// Section and key names the credential pair is read from.
const (
	Section     = "env:secrets"
	KeySSID     = "SSID"
	KeyPassword = "PASSWORD"
)

var (
	ErrMalformed       = errors.New("malformed secrets file")
	ErrSectionNotFound = errors.New("section not found")
	ErrKeyNotFound     = errors.New("key not found")
	ErrExists          = errors.New("secrets file already exists")
)

// Credentials is the network name and passphrase injected into the firmware.
// Values are taken verbatim; no format or length checks are applied.
type Credentials struct {
	SSID     string
	Password string
}

var loadOptions = ini.LoadOptions{
	InsensitiveKeys:            true,
	IgnoreInlineComment:        true,
	PreserveSurroundedQuote:    true,
	AllowPythonMultilineValues: true,
}

// Load reads path and returns the credential pair from the [env:secrets] section.
// File errors are returned wrapped so errors.Is(err, fs.ErrNotExist) keeps working.
func Load(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("reading secrets file: %w", err)
	}
	return Parse(data)
}

// Parse extracts the credential pair from INI-formatted data.
func Parse(data []byte) (Credentials, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	sec, err := f.GetSection(Section)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: [%s]", ErrSectionNotFound, Section)
	}

	ssid, err := lookup(f, sec, KeySSID)
	if err != nil {
		return Credentials{}, err
	}
	pass, err := lookup(f, sec, KeyPassword)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{SSID: ssid, Password: pass}, nil
}

// lookup finds name in sec, falling back to the DEFAULT section.
func lookup(f *ini.File, sec *ini.Section, name string) (string, error) {
	if sec.HasKey(name) {
		return dedent(sec.Key(name).String()), nil
	}
	if def := f.Section(ini.DefaultSection); def.HasKey(name) {
		return dedent(def.Key(name).String()), nil
	}
	return "", fmt.Errorf("%w: %s in [%s]", ErrKeyNotFound, name, Section)
}

// dedent strips the indentation that marks continuation lines of a
// multi-line value.
func dedent(v string) string {
	if !strings.Contains(v, "\n") {
		return v
	}
	lines := strings.Split(v, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = strings.TrimLeft(lines[i], " \t\f")
	}
	return strings.Join(lines, "\n")
}

// Write creates a secrets file at path holding creds.
// An existing file is only replaced when force is set. Surrounding
// whitespace is dropped since the reader would strip it anyway.
func Write(path string, creds Credentials, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}

	// Without IgnoreInlineComment the writer wraps values holding # or ; in
	// backticks, which other INI readers keep as part of the value.
	f := ini.Empty(ini.LoadOptions{IgnoreInlineComment: true})
	sec, err := f.NewSection(Section)
	if err != nil {
		return fmt.Errorf("creating section: %w", err)
	}
	if _, err := sec.NewKey(KeySSID, strings.TrimSpace(creds.SSID)); err != nil {
		return fmt.Errorf("setting %s: %w", KeySSID, err)
	}
	if _, err := sec.NewKey(KeyPassword, strings.TrimSpace(creds.Password)); err != nil {
		return fmt.Errorf("setting %s: %w", KeyPassword, err)
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("writing secrets file: %w", err)
	}
	return out.Close()
}
