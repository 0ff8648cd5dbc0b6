package locator

import (
	"runtime"
	"strings"
	"testing"
)

func TestPlatformTriple(t *testing.T) {
	cases := []struct {
		platform Platform
		want     string
	}{
		{Platform{GOOS: "linux", GOARCH: "amd64", Libc: "gnu"}, "x86_64-unknown-linux-gnu"},
		{Platform{GOOS: "linux", GOARCH: "amd64", Libc: "musl"}, "x86_64-unknown-linux-musl"},
		{Platform{GOOS: "linux", GOARCH: "arm64"}, "aarch64-unknown-linux-gnu"},
		{Platform{GOOS: "linux", GOARCH: "arm", Machine: "armv7l", Libc: "gnu"}, "armv7-unknown-linux-gnueabihf"},
		{Platform{GOOS: "linux", GOARCH: "arm", Machine: "armv6l", Libc: "gnu"}, "arm-unknown-linux-gnueabihf"},
		{Platform{GOOS: "linux", GOARCH: "386", Libc: "gnu"}, "i686-unknown-linux-gnu"},
		{Platform{GOOS: "linux", GOARCH: "riscv64", Libc: "gnu"}, "riscv64gc-unknown-linux-gnu"},
		{Platform{GOOS: "darwin", GOARCH: "arm64"}, "aarch64-apple-darwin"},
		{Platform{GOOS: "darwin", GOARCH: "amd64"}, "x86_64-apple-darwin"},
		{Platform{GOOS: "windows", GOARCH: "amd64"}, "x86_64-pc-windows-msvc"},
		{Platform{GOOS: "windows", GOARCH: "arm64"}, "aarch64-pc-windows-msvc"},
		{Platform{GOOS: "freebsd", GOARCH: "amd64"}, "x86_64-unknown-freebsd"},
		{Platform{GOOS: "android", GOARCH: "arm64"}, "aarch64-linux-android"},
	}
	for _, tc := range cases {
		if got := tc.platform.Triple(); got != tc.want {
			t.Fatalf("%+v: expected %q, got %q", tc.platform, tc.want, got)
		}
	}
}

func TestPlatformBinaryName(t *testing.T) {
	linux := Platform{GOOS: "linux", GOARCH: "amd64", Libc: "gnu"}
	if got := linux.BinaryName("mosquitto"); got != "mosquitto-x86_64-unknown-linux-gnu" {
		t.Fatalf("unexpected linux binary name %q", got)
	}
	windows := Platform{GOOS: "windows", GOARCH: "amd64"}
	if got := windows.BinaryName("mosquitto"); got != "mosquitto-x86_64-pc-windows-msvc.exe" {
		t.Fatalf("unexpected windows binary name %q", got)
	}
}

func TestHostPlatform(t *testing.T) {
	p := HostPlatform()
	if p.GOOS != runtime.GOOS || p.GOARCH != runtime.GOARCH {
		t.Fatalf("host platform mismatch: %+v", p)
	}
	if runtime.GOOS == "linux" && p.Libc != "gnu" && p.Libc != "musl" {
		t.Fatalf("expected libc to be detected on linux, got %q", p.Libc)
	}
	if strings.Count(p.Triple(), "-") < 2 {
		t.Fatalf("triple %q does not look like arch-vendor-os", p.Triple())
	}
}
