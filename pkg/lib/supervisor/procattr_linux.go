//go:build linux

package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
)

const (
	cgroupRoot = "/sys/fs/cgroup/brokershell"
	// brokerMemoryHigh throttles a runaway broker before the host feels it.
	brokerMemoryHigh = int64(512) * 1024 * 1024
)

var (
	cgroupInitOnce sync.Once
	cgroupInitErr  error
)

// initCgroups prepares the shared cgroup root. Real work happens only once.
func initCgroups() error {
	cgroupInitOnce.Do(func() {
		cgroupInitErr = initCgroupsImpl()
	})
	return cgroupInitErr
}

func initCgroupsImpl() error {
	if err := os.MkdirAll(cgroupRoot, 0755); err != nil {
		return err
	}

	// Determine which controllers are available and already enabled on this cgroup
	available, err := readControllerSet(filepath.Join(cgroupRoot, "cgroup.controllers"))
	if err != nil {
		return err
	}
	enabled, err := readControllerSet(filepath.Join(cgroupRoot, "cgroup.subtree_control"))
	if err != nil {
		return err
	}

	var toAdd []string
	for _, ctrl := range []string{"cpu", "io", "memory"} {
		if available[ctrl] && !enabled[ctrl] {
			toAdd = append(toAdd, "+"+ctrl)
		}
	}
	if len(toAdd) > 0 {
		if err := writeString(filepath.Join(cgroupRoot, "cgroup.subtree_control"), strings.Join(toAdd, " ")); err != nil {
			return err
		}
	}

	return nil
}

func readControllerSet(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for _, f := range strings.Fields(string(data)) {
		set[strings.TrimPrefix(f, "+")] = true
	}
	return set, nil
}

func defaultSysProcAttr() *SysProcAttr {
	return &SysProcAttr{
		Raw: &syscall.SysProcAttr{
			// New process group so the broker and its children are signalled as a unit
			Setpgid: true,
		},
	}
}

// GetSysProcAttr returns the attributes for attempt id. With useCgroup set and
// root privileges the broker is started directly inside its own cgroup.
func GetSysProcAttr(id string, useCgroup bool) (*SysProcAttr, error) {
	if !useCgroup || os.Geteuid() != 0 {
		return defaultSysProcAttr(), nil
	}

	if err := initCgroups(); err != nil {
		return nil, err
	}
	cgPath, err := setupCgroupFor(id)
	if err != nil {
		return nil, err
	}
	cgroupFile, err := os.Open(cgPath)
	if err != nil {
		_ = os.Remove(cgPath)
		return nil, err
	}

	return &SysProcAttr{
		File: cgroupFile,
		Raw: &syscall.SysProcAttr{
			Setpgid:     true,
			UseCgroupFD: true,
			CgroupFD:    int(cgroupFile.Fd()),
		},
		Cgroup: true,
	}, nil
}

// KillCgroup kills every process in the attempt's cgroup.
func KillCgroup(id string) (bool, error) {
	err := writeString(filepath.Join(cgroupRoot, id, "cgroup.kill"), "1")
	return err == nil, err
}

func CleanupCgroup(id string) error {
	return os.Remove(filepath.Join(cgroupRoot, id))
}

func setupCgroupFor(id string) (string, error) {
	dir := filepath.Join(cgroupRoot, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	// Only write controller-specific files if controllers are enabled
	if controllerEnabled(cgroupRoot, "cpu") {
		if err := writeString(filepath.Join(dir, "cpu.weight"), "100"); err != nil {
			return "", err
		}
	}
	if controllerEnabled(cgroupRoot, "io") {
		if err := writeString(filepath.Join(dir, "io.weight"), "100"); err != nil {
			return "", err
		}
	}
	if controllerEnabled(cgroupRoot, "memory") {
		if err := writeString(filepath.Join(dir, "memory.high"), fmt.Sprint(brokerMemoryHigh)); err != nil {
			return "", err
		}
	}

	return dir, nil
}

func controllerEnabled(cgPath, controller string) bool {
	enabled, err := readControllerSet(filepath.Join(cgPath, "cgroup.subtree_control"))
	if err != nil {
		return false
	}
	return enabled[controller]
}

func writeString(path, val string) error {
	return os.WriteFile(path, []byte(val), 0644)
}
