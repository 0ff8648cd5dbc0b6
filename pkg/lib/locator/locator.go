package locator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib"
)

// DefaultDevDir is the folder holding broker binaries in development mode.
const DefaultDevDir = "binaries"

// ErrWorkingDirectory is returned when the working directory cannot be determined.
// Callers cannot recover from it: without a base directory there is no binary to run.
var ErrWorkingDirectory = errors.New("cannot determine working directory")

// Locator computes the filesystem path of the platform specific broker binary.
type Locator struct {
	component string
	mode      lib.DeploymentMode
	devDir    string
	getwd     func() (string, error)
	platform  func() Platform
}

type Option func(*Locator)

// WithDevDir overrides the development mode subfolder.
func WithDevDir(dir string) Option {
	return func(l *Locator) {
		if dir != "" {
			l.devDir = dir
		}
	}
}

// WithGetwd replaces os.Getwd as the source of the base directory.
func WithGetwd(getwd func() (string, error)) Option {
	return func(l *Locator) {
		if getwd != nil {
			l.getwd = getwd
		}
	}
}

// WithPlatform replaces host introspection.
func WithPlatform(platform func() Platform) Option {
	return func(l *Locator) {
		if platform != nil {
			l.platform = platform
		}
	}
}

// New creates a Locator for the named component in the given deployment mode.
func New(component string, mode lib.DeploymentMode, opts ...Option) *Locator {
	l := &Locator{
		component: component,
		mode:      mode,
		devDir:    DefaultDevDir,
		getwd:     os.Getwd,
		platform:  HostPlatform,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Locator) Component() string { return l.component }

func (l *Locator) Mode() lib.DeploymentMode { return l.mode }

// ResolveBinaryPath returns <cwd>/<component>-<triple> in packaged mode and
// <cwd>/<devDir>/<component>-<triple> in development mode. The working
// directory and host platform are read on every call.
func (l *Locator) ResolveBinaryPath() (string, error) {
	base, err := l.getwd()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWorkingDirectory, err)
	}

	sub := ""
	if l.mode == lib.ModeDevelopment {
		sub = l.devDir
	}

	return filepath.Join(base, sub, l.platform().BinaryName(l.component)), nil
}
