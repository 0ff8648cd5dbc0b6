package locator

import (
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib"
)

func linuxGnu() Platform {
	return Platform{GOOS: "linux", GOARCH: "amd64", Machine: "x86_64", Libc: "gnu"}
}

func fixedWd(dir string) func() (string, error) {
	return func() (string, error) { return dir, nil }
}

func TestResolveBinaryPath_Packaged(t *testing.T) {
	for _, env := range []string{"", "PROD", "dev", "DEVELOPMENT"} {
		l := New("broker", lib.ParseDeploymentMode(env), WithGetwd(fixedWd("/app")), WithPlatform(linuxGnu))

		path, err := l.ResolveBinaryPath()
		if err != nil {
			t.Fatalf("ResolveBinaryPath failed: %v", err)
		}
		want := filepath.Join("/app", "broker-x86_64-unknown-linux-gnu")
		if path != want {
			t.Fatalf("ENVIRONMENT=%q: expected %q, got %q", env, want, path)
		}
	}
}

func TestResolveBinaryPath_Development(t *testing.T) {
	l := New("broker", lib.ParseDeploymentMode("DEV"), WithGetwd(fixedWd("/app")), WithPlatform(linuxGnu))

	path, err := l.ResolveBinaryPath()
	if err != nil {
		t.Fatalf("ResolveBinaryPath failed: %v", err)
	}
	want := filepath.Join("/app", "binaries", "broker-x86_64-unknown-linux-gnu")
	if path != want {
		t.Fatalf("expected %q, got %q", want, path)
	}
}

func TestResolveBinaryPath_CustomDevDir(t *testing.T) {
	l := New("mosquitto", lib.ModeDevelopment, WithDevDir("sidecars"), WithGetwd(fixedWd("/opt/shell")), WithPlatform(linuxGnu))

	path, err := l.ResolveBinaryPath()
	if err != nil {
		t.Fatalf("ResolveBinaryPath failed: %v", err)
	}
	want := filepath.Join("/opt/shell", "sidecars", "mosquitto-x86_64-unknown-linux-gnu")
	if path != want {
		t.Fatalf("expected %q, got %q", want, path)
	}
}

func TestResolveBinaryPath_WorkingDirectoryError(t *testing.T) {
	cause := errors.New("getwd: no such file or directory")
	l := New("broker", lib.ModePackaged, WithGetwd(func() (string, error) { return "", cause }))

	_, err := l.ResolveBinaryPath()
	if !errors.Is(err, ErrWorkingDirectory) {
		t.Fatalf("expected ErrWorkingDirectory, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected the getwd cause to be wrapped, got %v", err)
	}
}

func TestResolveBinaryPath_RecomputesEachCall(t *testing.T) {
	calls := 0
	platforms := []Platform{
		linuxGnu(),
		{GOOS: "darwin", GOARCH: "arm64", Machine: "arm64"},
	}
	dirs := []string{"/first", "/second"}
	i := 0
	l := New("broker", lib.ModePackaged,
		WithGetwd(func() (string, error) { return dirs[i], nil }),
		WithPlatform(func() Platform { calls++; return platforms[i] }),
	)

	first, _ := l.ResolveBinaryPath()
	i = 1
	second, _ := l.ResolveBinaryPath()

	if calls != 2 {
		t.Fatalf("expected platform to be introspected on each call, got %d calls", calls)
	}
	if first != filepath.Join("/first", "broker-x86_64-unknown-linux-gnu") {
		t.Fatalf("unexpected first path %q", first)
	}
	if second != filepath.Join("/second", "broker-aarch64-apple-darwin") {
		t.Fatalf("unexpected second path %q", second)
	}
}

func TestResolveBinaryPath_DefaultsUseHost(t *testing.T) {
	l := New("broker", lib.ModePackaged)
	path, err := l.ResolveBinaryPath()
	if err != nil {
		t.Fatalf("ResolveBinaryPath failed: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Fatalf("expected absolute path, got %q", path)
	}
	if !strings.HasSuffix(filepath.Base(path), HostPlatform().BinaryName("broker")) {
		t.Fatalf("expected host binary name in %q", path)
	}
	if runtime.GOOS == "windows" && !strings.HasSuffix(path, ".exe") {
		t.Fatalf("expected .exe suffix on windows, got %q", path)
	}
}
