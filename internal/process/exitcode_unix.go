//go:build unix

package process

import (
	"os"
	"syscall"
)

// exitCode follows the shell convention: the exit status if the child exited,
// 128+N if it was killed by signal N, and 1 otherwise.
func exitCode(state *os.ProcessState) (int, string) {
	status, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		return fallbackExitCode(state), ""
	}
	switch {
	case status.Exited():
		return status.ExitStatus(), ""
	case status.Signaled():
		return 128 + int(status.Signal()), status.Signal().String()
	}
	return 1, ""
}
