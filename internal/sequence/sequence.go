// Package sequence runs a list of commands one after another and stops at
// the first one that fails.
package sequence

import (
	"errors"
	"fmt"
	"log/slog"

	"failfast/internal/config"
	"failfast/internal/render"
	"failfast/internal/report"
	"failfast/internal/runner"
)

// Runner runs one command. *runner.Runner implements it.
type Runner interface {
	Run(command string) (*runner.Result, error)
}

var _ Runner = (*runner.Runner)(nil)

// Sequence holds everything needed for one failfast run.
type Sequence struct {
	Config   config.Config
	Runner   Runner
	Renderer *render.Renderer
}

func New(cfg config.Config, r Runner, renderer *render.Renderer) *Sequence {
	return &Sequence{Config: cfg, Runner: r, Renderer: renderer}
}

// Run executes the configured commands in order and returns the exit code
// for the failfast process. Commands after the first failure are not run.
func (s *Sequence) Run() int {
	for i, command := range s.Config.Commands {
		result, err := s.Runner.Run(command)
		if err != nil {
			return s.runnerFailed(command, err)
		}
		if result.Succeeded() {
			slog.Debug("Command succeeded", "index", i, "command", command)
			continue
		}

		if err := s.Renderer.Failure(command, result.Output); err != nil {
			slog.Warn("Failed to render output", "error", err)
		}
		if s.Config.SaveOutput != "" {
			if err := report.Save(s.Config.SaveOutput, report.FromResult(result)); err != nil {
				_, _ = fmt.Fprintf(s.Renderer.Stderr, "Error: %v\n", err)
			}
		}
		return s.Config.Exit.Code(result.ExitCode)
	}
	return 0
}

func (s *Sequence) runnerFailed(command string, err error) int {
	if rerr := s.Renderer.Error(command, err); rerr != nil {
		slog.Warn("Failed to render error", "error", rerr)
	}
	var runErr *runner.Error
	if errors.As(err, &runErr) {
		return runErr.ExitCode()
	}
	return 125
}
