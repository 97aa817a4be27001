//go:build windows

package cmd

import (
	"os"
	"os/exec"
	"syscall"
)

// setDaemonAttrs is a no-op on Windows (no Setsid equivalent).
func setDaemonAttrs(_ *exec.Cmd) {}

// shutdownSignals are the signals that make a foreground server drain and exit.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// stopSignals returns the signals used by 'serve stop'. Only a kill is
// delivered reliably on Windows, so both are SIGKILL.
func stopSignals() (term, kill syscall.Signal) {
	return syscall.SIGKILL, syscall.SIGKILL
}
