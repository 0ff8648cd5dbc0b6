//go:build unix

package locator

import (
	"golang.org/x/sys/unix"
)

func hostMachine() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uts.Machine[:])
}
