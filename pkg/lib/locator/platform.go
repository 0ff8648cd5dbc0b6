package locator

import (
	"runtime"
	"strings"
)

// Platform identifies the host the broker has to run on.
type Platform struct {
	GOOS   string
	GOARCH string
	// Machine is the kernel reported hardware name (uname -m), empty when unknown.
	Machine string
	// Libc is "gnu" or "musl" on Linux and empty elsewhere.
	Libc string
}

// HostPlatform introspects the current host. It is evaluated on every call.
func HostPlatform() Platform {
	return Platform{
		GOOS:    runtime.GOOS,
		GOARCH:  runtime.GOARCH,
		Machine: hostMachine(),
		Libc:    hostLibc(),
	}
}

// Triple renders the platform as an arch-vendor-os-abi target triple,
// e.g. x86_64-unknown-linux-gnu or aarch64-apple-darwin.
func (p Platform) Triple() string {
	arch := p.arch()
	switch p.GOOS {
	case "linux":
		libc := p.Libc
		if libc == "" {
			libc = "gnu"
		}
		if p.GOARCH == "arm" {
			libc += "eabihf"
		}
		return arch + "-unknown-linux-" + libc
	case "android":
		if p.GOARCH == "arm" {
			return arch + "-linux-androideabi"
		}
		return arch + "-linux-android"
	case "darwin":
		return arch + "-apple-darwin"
	case "ios":
		return arch + "-apple-ios"
	case "windows":
		return arch + "-pc-windows-msvc"
	default:
		return arch + "-unknown-" + p.GOOS
	}
}

// ExecutableSuffix is appended to binary names on the platform.
func (p Platform) ExecutableSuffix() string {
	if p.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

// BinaryName qualifies component with the platform triple.
func (p Platform) BinaryName(component string) string {
	return component + "-" + p.Triple() + p.ExecutableSuffix()
}

func (p Platform) arch() string {
	switch p.GOARCH {
	case "amd64":
		return "x86_64"
	case "386":
		return "i686"
	case "arm64":
		return "aarch64"
	case "arm":
		if strings.HasPrefix(p.Machine, "armv6") || strings.HasPrefix(p.Machine, "armv5") {
			return "arm"
		}
		return "armv7"
	case "riscv64":
		return "riscv64gc"
	case "ppc64le":
		return "powerpc64le"
	case "ppc64":
		return "powerpc64"
	case "mips64le":
		return "mips64el"
	case "mipsle":
		return "mipsel"
	case "loong64":
		return "loongarch64"
	default:
		return p.GOARCH
	}
}
