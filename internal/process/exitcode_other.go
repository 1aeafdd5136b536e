//go:build !unix

package process

import "os"

// exitCode uses the platform exit code. There is no signal termination to
// map here, so a missing code becomes 1.
func exitCode(state *os.ProcessState) (int, string) {
	return fallbackExitCode(state), ""
}
