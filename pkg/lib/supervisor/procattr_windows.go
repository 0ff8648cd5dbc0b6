//go:build windows

package supervisor

import (
	"os"
	"syscall"
)

func defaultSysProcAttr() *SysProcAttr {
	return &SysProcAttr{
		Raw: &syscall.SysProcAttr{
			CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
		},
	}
}

func GetSysProcAttr(id string, useCgroup bool) (*SysProcAttr, error) {
	return defaultSysProcAttr(), nil
}

func KillCgroup(id string) (bool, error) {
	return false, nil
}

func CleanupCgroup(id string) error {
	return nil
}

// Windows has no SIGTERM for console-less children, so both paths kill.
func terminate(p *os.Process) error {
	return p.Kill()
}

func forceKill(p *os.Process) error {
	return p.Kill()
}
