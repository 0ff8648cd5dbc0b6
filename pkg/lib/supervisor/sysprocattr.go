package supervisor

import (
	"os"
	"syscall"
)

// SysProcAttr carries the platform process attributes for one broker start.
// File, when set, must be closed by the caller once the process has started.
type SysProcAttr struct {
	File   *os.File
	Raw    *syscall.SysProcAttr
	Cgroup bool
}
