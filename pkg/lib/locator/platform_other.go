//go:build !unix

package locator

func hostMachine() string {
	return ""
}
