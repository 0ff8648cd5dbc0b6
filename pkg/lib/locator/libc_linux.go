//go:build linux

package locator

import (
	"path/filepath"
)

// musl installs its dynamic loader as /lib/ld-musl-<arch>.so.1.
func hostLibc() string {
	matches, err := filepath.Glob("/lib/ld-musl-*.so.1")
	if err == nil && len(matches) > 0 {
		return "musl"
	}
	return "gnu"
}
