package inject

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Guliveer/secretsinject/internal/config"
	"github.com/Guliveer/secretsinject/internal/platform"
	"github.com/Guliveer/secretsinject/internal/secrets"
)

const (
	scenarioSecrets = "[env:secrets]\nSSID=HomeNet\nPASSWORD=secret123\n"
	scenarioSource  = "const char* ssid = \"SSID\";\nconst char* pass = \"PASSWORD\";\n"
	scenarioWant    = "const char* ssid = \"HomeNet\";\nconst char* pass = \"secret123\";\n"
)

// project lays out a firmware project in a temp dir and returns a config
// pointing at it.
func project(t *testing.T, secretsINI, source string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if secretsINI != "" {
		if err := os.WriteFile(filepath.Join(dir, "secrets.ini"), []byte(secretsINI), 0600); err != nil {
			t.Fatal(err)
		}
	}
	if source != "" {
		if err := os.MkdirAll(filepath.Join(dir, "src"), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "src", "main.cpp"), []byte(source), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.DefaultConfig()
	cfg.Paths.WorkDir = dir
	return cfg
}

func readTarget(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := os.ReadFile(cfg.TargetPath())
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestInjectCredentials_Scenario(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		name := "in-place"
		if atomic {
			name = "atomic"
		}
		t.Run(name, func(t *testing.T) {
			cfg := project(t, scenarioSecrets, scenarioSource)
			cfg.Write.Atomic = atomic

			res, err := New(cfg, zap.NewNop()).InjectCredentials(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if got := readTarget(t, cfg); got != scenarioWant {
				t.Errorf("target =\n%q\nwant\n%q", got, scenarioWant)
			}
			if !res.Written {
				t.Error("Result.Written = false")
			}
			if res.Counts != (Counts{SSID: 1, Password: 1}) {
				t.Errorf("Result.Counts = %+v", res.Counts)
			}
			if res.Target != cfg.TargetPath() {
				t.Errorf("Result.Target = %q, want %q", res.Target, cfg.TargetPath())
			}
		})
	}
}

func TestInjectCredentials_MultipleOccurrences(t *testing.T) {
	src := "// connect to \"SSID\"\nWiFi.begin(\"SSID\", \"PASSWORD\");\nSerial.println(\"SSID\");\n"
	cfg := project(t, "[env:secrets]\nSSID=MyNet\nPASSWORD=MyPass\n", src)

	res, err := New(cfg, zap.NewNop()).InjectCredentials(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := "// connect to \"MyNet\"\nWiFi.begin(\"MyNet\", \"MyPass\");\nSerial.println(\"MyNet\");\n"
	if got := readTarget(t, cfg); got != want {
		t.Errorf("target =\n%q\nwant\n%q", got, want)
	}
	if res.Counts.SSID != 3 {
		t.Errorf("SSID replacements = %d, want 3", res.Counts.SSID)
	}
}

func TestInjectCredentials_MissingKeyLeavesTarget(t *testing.T) {
	cfg := project(t, "[env:secrets]\nSSID=HomeNet\n", scenarioSource)

	_, err := New(cfg, zap.NewNop()).InjectCredentials(context.Background())
	if !errors.Is(err, ErrMissingConfiguration) {
		t.Fatalf("err = %v, want ErrMissingConfiguration", err)
	}
	if !errors.Is(err, secrets.ErrKeyNotFound) {
		t.Errorf("err = %v, want it to wrap secrets.ErrKeyNotFound", err)
	}
	if errors.Is(err, ErrFileAccess) {
		t.Error("missing key also matched ErrFileAccess")
	}
	if got := readTarget(t, cfg); got != scenarioSource {
		t.Errorf("target modified: %q", got)
	}
}

func TestInjectCredentials_MissingSection(t *testing.T) {
	cfg := project(t, "[env:other]\nSSID=a\nPASSWORD=b\n", scenarioSource)

	_, err := New(cfg, zap.NewNop()).InjectCredentials(context.Background())
	if !errors.Is(err, ErrMissingConfiguration) {
		t.Fatalf("err = %v, want ErrMissingConfiguration", err)
	}
	if got := readTarget(t, cfg); got != scenarioSource {
		t.Errorf("target modified: %q", got)
	}
}

func TestInjectCredentials_MissingSecretsFile(t *testing.T) {
	cfg := project(t, "", scenarioSource)

	_, err := New(cfg, zap.NewNop()).InjectCredentials(context.Background())
	if !errors.Is(err, ErrFileAccess) {
		t.Fatalf("err = %v, want ErrFileAccess", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want it to wrap fs.ErrNotExist", err)
	}
	var ierr *Error
	if !errors.As(err, &ierr) || ierr.Path != cfg.SecretsPath() {
		t.Errorf("err = %#v, want *Error for %s", err, cfg.SecretsPath())
	}
	if got := readTarget(t, cfg); got != scenarioSource {
		t.Errorf("target modified: %q", got)
	}
}

func TestInjectCredentials_MissingTarget(t *testing.T) {
	cfg := project(t, scenarioSecrets, "")

	_, err := New(cfg, zap.NewNop()).InjectCredentials(context.Background())
	if !errors.Is(err, ErrFileAccess) {
		t.Fatalf("err = %v, want ErrFileAccess", err)
	}
	if _, statErr := os.Stat(cfg.TargetPath()); !os.IsNotExist(statErr) {
		t.Error("target was created")
	}
}

func TestInjectCredentials_ReadOnlyTarget(t *testing.T) {
	if runtime.GOOS != "windows" && os.Geteuid() == 0 {
		t.Skip("root bypasses file permission bits")
	}
	cfg := project(t, scenarioSecrets, scenarioSource)
	if err := os.Chmod(cfg.TargetPath(), 0444); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(cfg.TargetPath(), 0644) })

	_, err := New(cfg, zap.NewNop()).InjectCredentials(context.Background())
	if !errors.Is(err, ErrFileAccess) {
		t.Fatalf("err = %v, want ErrFileAccess", err)
	}
	if got := readTarget(t, cfg); got != scenarioSource {
		t.Errorf("target modified: %q", got)
	}
}

func TestInjectCredentials_SecondRunIsNoop(t *testing.T) {
	cfg := project(t, scenarioSecrets, scenarioSource)
	inj := New(cfg, zap.NewNop())

	if _, err := inj.InjectCredentials(context.Background()); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(cfg.TargetPath(), past, past); err != nil {
		t.Fatal(err)
	}

	res, err := inj.InjectCredentials(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Written {
		t.Error("second run rewrote an unchanged target")
	}
	if got := readTarget(t, cfg); got != scenarioWant {
		t.Errorf("target = %q, want %q", got, scenarioWant)
	}
	info, err := os.Stat(cfg.TargetPath())
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(past) {
		t.Errorf("mtime = %v, want untouched %v", info.ModTime(), past)
	}
}

func TestInjectCredentials_UnchangedWrittenWhenSkipDisabled(t *testing.T) {
	cfg := project(t, scenarioSecrets, "int x;\n")
	cfg.Write.SkipUnchanged = false

	res, err := New(cfg, zap.NewNop()).InjectCredentials(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Written {
		t.Error("Result.Written = false with skip_unchanged off")
	}
	if got := readTarget(t, cfg); got != "int x;\n" {
		t.Errorf("target = %q", got)
	}
}

// fakePlatform reports a fixed amount of free space.
type fakePlatform struct {
	platform.Platform
	free uint64
}

func (f fakePlatform) CheckWritable(string) error { return nil }

func (f fakePlatform) FreeBytes(context.Context, string) (uint64, error) { return f.free, nil }

func (f fakePlatform) Invoker(context.Context) string { return "pio" }

func (f fakePlatform) Name() string { return "fake" }

// invokerCounter records how often the invoker is looked up.
type invokerCounter struct {
	fakePlatform
	calls *int
}

func (c invokerCounter) Invoker(ctx context.Context) string {
	*c.calls++
	return c.fakePlatform.Invoker(ctx)
}

func TestInjectCredentials_InvokerOnlyAtDebug(t *testing.T) {
	cfg := project(t, scenarioSecrets, scenarioSource)
	cfg.Write.SkipUnchanged = false
	var calls int

	inj := New(cfg, zap.NewNop())
	inj.platform = invokerCounter{fakePlatform{free: 1 << 20}, &calls}
	if _, err := inj.InjectCredentials(context.Background()); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Errorf("invoker looked up %d times with debug disabled", calls)
	}

	core, logs := observer.New(zap.DebugLevel)
	inj = New(cfg, zap.New(core))
	inj.platform = invokerCounter{fakePlatform{free: 1 << 20}, &calls}
	if _, err := inj.InjectCredentials(context.Background()); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("invoker looked up %d times at debug, want 1", calls)
	}
	entries := logs.FilterMessage("Starting credential injection").All()
	if len(entries) != 1 {
		t.Fatalf("got %d start entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["platform"] != "fake" || fields["invoker"] != "pio" {
		t.Errorf("start entry fields = %v", fields)
	}
}

func TestInjectCredentials_NotEnoughSpace(t *testing.T) {
	cfg := project(t, scenarioSecrets, scenarioSource)
	inj := New(cfg, zap.NewNop())
	inj.platform = fakePlatform{free: 8}

	_, err := inj.InjectCredentials(context.Background())
	if !errors.Is(err, ErrFileAccess) {
		t.Fatalf("err = %v, want ErrFileAccess", err)
	}
	if !errors.Is(err, errNoSpace) {
		t.Errorf("err = %v, want errNoSpace", err)
	}
	if got := readTarget(t, cfg); got != scenarioSource {
		t.Errorf("target modified: %q", got)
	}

	cfg.Write.CheckFreeSpace = false
	if _, err := inj.InjectCredentials(context.Background()); err != nil {
		t.Fatalf("with free-space check off: %v", err)
	}
	if got := readTarget(t, cfg); got != scenarioWant {
		t.Errorf("target = %q, want %q", got, scenarioWant)
	}
}

func TestErrorKinds(t *testing.T) {
	err := fileAccess("read", "src/main.cpp", fs.ErrNotExist)
	if got := err.Error(); got != "read src/main.cpp: file access: file does not exist" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrFileAccess) || errors.Is(err, ErrMissingConfiguration) {
		t.Error("fileAccess error matched the wrong sentinel")
	}
	if MissingConfiguration.String() != "missing configuration" {
		t.Errorf("Kind.String() = %q", MissingConfiguration.String())
	}
}

func TestInjectCredentials_SymlinkedTarget(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		name := "in-place"
		if atomic {
			name = "atomic"
		}
		t.Run(name, func(t *testing.T) {
			cfg := project(t, scenarioSecrets, scenarioSource)
			cfg.Write.Atomic = atomic
			link := cfg.TargetPath()
			dest := filepath.Join(cfg.Paths.WorkDir, "dest.cpp")
			if err := os.Rename(link, dest); err != nil {
				t.Fatal(err)
			}
			if err := os.Symlink(dest, link); err != nil {
				t.Skipf("symlinks unavailable: %v", err)
			}

			if _, err := New(cfg, zap.NewNop()).InjectCredentials(context.Background()); err != nil {
				t.Fatal(err)
			}

			info, err := os.Lstat(link)
			if err != nil {
				t.Fatal(err)
			}
			if info.Mode()&os.ModeSymlink == 0 {
				t.Errorf("%s is no longer a symlink", link)
			}
			data, err := os.ReadFile(dest)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != scenarioWant {
				t.Errorf("link destination =\n%s\nwant\n%s", data, scenarioWant)
			}
		})
	}
}
