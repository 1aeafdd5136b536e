// Package process starts child processes with piped stdout and stderr and
// turns their final status into a shell-style exit code.
package process

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"time"
)

// Process is a started child whose stdout and stderr are readable pipes.
type Process struct {
	Argv      []string
	PID       int
	StartTime time.Time
	EndTime   time.Time
	Stdout    io.ReadCloser
	Stderr    io.ReadCloser

	cmd    *exec.Cmd
	signal string
}

// PipeError reports that a pipe handle for the child could not be set up.
type PipeError struct {
	Stream string // "stdout" or "stderr"
	Err    error
}

func (e *PipeError) Error() string {
	return fmt.Sprintf("missing child %s pipe: %v", e.Stream, e.Err)
}

func (e *PipeError) Unwrap() error { return e.Err }

// Start launches argv[0] with the remaining elements as arguments. The
// program is looked up in PATH unless it contains a path separator.
func Start(argv []string) (*Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty argv")
	}

	cmd := exec.Command(argv[0], argv[1:]...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &PipeError{Stream: "stdout", Err: err}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		_ = stdoutPipe.Close()
		return nil, &PipeError{Stream: "stderr", Err: err}
	}

	if err := cmd.Start(); err != nil {
		// Start closes the parent ends of the pipes on failure.
		return nil, err
	}

	return &Process{
		Argv:      argv,
		PID:       cmd.Process.Pid,
		StartTime: time.Now(),
		Stdout:    stdoutPipe,
		Stderr:    stderrPipe,
		cmd:       cmd,
	}, nil
}

// IsNotFound reports whether err from Start means the program does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

// Wait waits for the child to exit and returns its exit code. A child that
// ran and failed is not an error: its status is folded into the code. The
// error is only set when the status could not be obtained at all.
//
// Both pipes must be read to EOF before calling Wait.
func (p *Process) Wait() (int, error) {
	err := p.cmd.Wait()
	p.EndTime = time.Now()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return 0, err
		}
	}
	if p.cmd.ProcessState == nil {
		return 1, nil
	}
	code, signal := exitCode(p.cmd.ProcessState)
	p.signal = signal
	return code, nil
}

// Signal returns the name of the signal that terminated the child, or "" if
// it exited normally. Only meaningful after Wait.
func (p *Process) Signal() string {
	return p.signal
}

// Duration returns how long the child ran. Only meaningful after Wait.
func (p *Process) Duration() time.Duration {
	return p.EndTime.Sub(p.StartTime)
}

// Kill terminates the child and reaps it. It is used when capturing its
// output failed and the exit status no longer matters.
func (p *Process) Kill() {
	_ = p.cmd.Process.Kill()
	_ = p.cmd.Wait()
	p.EndTime = time.Now()
}
