//go:build !linux

package locator

func hostLibc() string {
	return ""
}
