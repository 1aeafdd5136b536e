package runner

import (
	"fmt"

	"failfast/internal/process"
)

// Kind classifies why a command could not be run to completion.
type Kind int

const (
	// KindParse: the command string did not tokenize, or was empty.
	KindParse Kind = iota + 1
	// KindSpawn: the OS refused to start the program.
	KindSpawn
	// KindMissingPipe: a stdout/stderr pipe for the child could not be set up.
	KindMissingPipe
	// KindRead: reading the child's output failed.
	KindRead
	// KindReaderPanic: an output reader goroutine terminated abnormally.
	KindReaderPanic
	// KindWait: the child's final status could not be obtained.
	KindWait
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindSpawn:
		return "spawn"
	case KindMissingPipe:
		return "missing-pipe"
	case KindRead:
		return "read"
	case KindReaderPanic:
		return "reader-panic"
	case KindWait:
		return "wait"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is returned by Runner.Run when the runner itself could not do its
// job. A command that ran and exited nonzero is not an Error.
type Error struct {
	Kind    Kind
	Command string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRead:
		return fmt.Sprintf("error reading child output: %v", e.Err)
	case KindWait:
		return fmt.Sprintf("error waiting for child: %v", e.Err)
	case KindReaderPanic:
		return fmt.Sprintf("output reader terminated abnormally: %v", e.Err)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode maps the error to the exit code of the failfast process:
// 2 for unusable command strings, 127 for a missing program, 126 for other
// launch failures and 125 for failures while capturing or reaping.
func (e *Error) ExitCode() int {
	switch e.Kind {
	case KindParse:
		return 2
	case KindSpawn:
		if process.IsNotFound(e.Err) {
			return 127
		}
		return 126
	}
	return 125
}
