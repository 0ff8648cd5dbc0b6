//go:build unix && !linux

package supervisor

import (
	"syscall"
)

func defaultSysProcAttr() *SysProcAttr {
	return &SysProcAttr{
		Raw: &syscall.SysProcAttr{
			// New process group to manage children as a unit
			Setpgid: true,
		},
	}
}

// GetSysProcAttr ignores useCgroup, cgroups only exist on Linux.
func GetSysProcAttr(id string, useCgroup bool) (*SysProcAttr, error) {
	return defaultSysProcAttr(), nil
}

func KillCgroup(id string) (bool, error) {
	return false, nil
}

func CleanupCgroup(id string) error {
	return nil
}
