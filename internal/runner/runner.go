// Package runner runs a single command to completion while capturing a
// bounded excerpt of its interleaved stdout and stderr.
package runner

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"failfast/internal/capture"
	"failfast/internal/process"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
)

// Result describes a command that ran to completion.
type Result struct {
	ID       string
	Command  string
	Argv     []string
	ExitCode int
	Signal   string // set if the child was killed by a signal
	Duration time.Duration
	// Output is empty for successful commands.
	Output capture.Captured
}

// Succeeded reports whether the command exited with code 0.
func (r *Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Runner runs commands, keeping at most BufferSize bytes of their output.
type Runner struct {
	BufferSize int
}

func New(bufferSize int) *Runner {
	return &Runner{BufferSize: bufferSize}
}

// ParseCommand splits command into argv using shell quoting rules. No other
// shell features are interpreted.
func ParseCommand(command string) ([]string, error) {
	argv, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %s: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	return argv, nil
}

// Run parses, starts and waits for command. The returned error is always a
// *Error; a nonzero exit of the command itself is reported in Result.
func (r *Runner) Run(command string) (*Result, error) {
	argv, err := ParseCommand(command)
	if err != nil {
		return nil, &Error{Kind: KindParse, Command: command, Err: err}
	}

	id := uuid.NewString()
	slog.Debug("Running command", "id", id, "command", command, "argv", argv)

	proc, err := process.Start(argv)
	if err != nil {
		var pipeErr *process.PipeError
		if errors.As(err, &pipeErr) {
			return nil, &Error{Kind: KindMissingPipe, Command: command, Err: err}
		}
		return nil, &Error{Kind: KindSpawn, Command: command, Err: err}
	}

	buf, err := collect(proc.Stdout, proc.Stderr, r.BufferSize)
	if err != nil {
		proc.Kill()
		var runErr *Error
		if errors.As(err, &runErr) {
			runErr.Command = command
		}
		return nil, err
	}

	code, err := proc.Wait()
	if err != nil {
		return nil, &Error{Kind: KindWait, Command: command, Err: err}
	}

	result := &Result{
		ID:       id,
		Command:  command,
		Argv:     argv,
		ExitCode: code,
		Signal:   proc.Signal(),
		Duration: proc.Duration(),
	}
	if code == 0 {
		result.Output = capture.EmptyCaptured(r.BufferSize)
	} else {
		result.Output = buf.Finish()
	}

	slog.Debug("Command finished",
		"id", id,
		"exit_code", code,
		"signal", result.Signal,
		"duration", result.Duration,
		"total_bytes", buf.TotalLen(),
		"truncated", result.Output.Truncated)

	return result, nil
}

// collect reads stdout and stderr concurrently until both reach EOF and
// feeds everything, in arrival order, into a new OutputBuffer.
func collect(stdout, stderr io.ReadCloser, limit int) (*capture.OutputBuffer, error) {
	merge := capture.NewMerge()
	results := make(chan error, 2)

	start := func(pipe io.ReadCloser, stream capture.Stream) {
		producer := merge.Producer()
		go func() {
			defer producer.Close()
			// Closing our end makes a child still writing to it fail instead
			// of blocking forever on a full pipe, which would also keep the
			// other stream from reaching EOF.
			defer func() { _ = pipe.Close() }()
			defer func() {
				if v := recover(); v != nil {
					results <- &Error{Kind: KindReaderPanic, Err: fmt.Errorf("%s reader: %v", stream, v)}
				}
			}()
			if err := capture.ReadStream(pipe, stream, producer.Send); err != nil {
				results <- &Error{Kind: KindRead, Err: fmt.Errorf("%s: %w", stream, err)}
				return
			}
			results <- nil
		}()
	}
	start(stdout, capture.Stdout)
	start(stderr, capture.Stderr)

	buf := capture.NewOutputBuffer(limit)
	for chunk := range merge.Chunks() {
		buf.Push(chunk.Stream, chunk.Data)
	}

	var firstErr error
	for range 2 {
		if err := <-results; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return buf, firstErr
}
