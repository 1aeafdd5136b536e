package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"failfast/internal/config"
	"failfast/internal/render"
	"failfast/internal/report"
	"failfast/internal/runner"
	"failfast/internal/sequence"

	"github.com/spf13/cobra"
)

// flags holds the values of one command line.
type flags struct {
	exitMode     string
	bufferSize   string
	colorMode    string
	pipelineFile string
	saveOutput   string
	verbose      bool
}

// exitError carries the exit code of a run that completed but must not
// exit with 0. The report has been printed already.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:   "failfast [flags] <command> [<command>...]",
		Short: "Run commands sequentially, stopping on first failure",
		Long: `failfast runs each command in order and stops at the first one that fails.

Each command is a single argument, split into words with shell-like quoting.
No other shell features (pipes, redirects, globs) are supported; wrap the
command in "sh -c '...'" if you need them.

Output of a command is only shown if it fails. Then the first and the last
part of its combined stdout and stderr are printed, up to --buffer-size bytes
in total, each part on the stream it was written to.

"show" is a subcommand. To run a program called show, put "--" before it:
failfast -- show.

Exit codes: 0 if all commands succeeded; the --exit value (or the command's
own code with --exit mirror) if a command failed; 2 for invalid options or
command strings; 127 if a program was not found; 126 if it could not be
started; 125 if its output could not be captured.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Options{
				Exit:          f.exitMode,
				ExitSet:       cmd.Flags().Changed("exit"),
				BufferSize:    f.bufferSize,
				BufferSizeSet: cmd.Flags().Changed("buffer-size"),
				Color:         f.colorMode,
				ColorSet:      cmd.Flags().Changed("color"),
				File:          f.pipelineFile,
				SaveOutput:    f.saveOutput,
				Verbose:       f.verbose,
				Commands:      args,
			}, os.Getenv)
			if err != nil {
				return err
			}

			setupLogging(stderr, cfg.Verbose)

			renderer := render.New(stdout, stderr, useColor(cfg.Color, stderr))
			code := sequence.New(cfg, runner.New(cfg.BufferSize), renderer).Run()
			if code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <capture-file>",
		Short: "Print a failure report saved with --save-output",
		Long: `Print a failure report saved with --save-output, exactly as it was
printed when the command failed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := os.Getenv(config.EnvColor)
			if cmd.Flags().Changed("color") {
				mode = f.colorMode
			} else if mode == "" {
				mode = string(config.ColorAuto)
			}
			color, err := config.ParseColorMode(mode)
			if err != nil {
				return err
			}

			setupLogging(stderr, f.verbose)

			rep, err := report.Load(args[0])
			if err != nil {
				return err
			}
			slog.Debug("Loaded capture file", "id", rep.ID, "command", rep.Command, "exit_code", rep.ExitCode)

			renderer := render.New(stdout, stderr, useColor(color, stderr))
			return renderer.Failure(rep.Command, rep.Output)
		},
	}

	rootCmd.Flags().StringVarP(&f.exitMode, "exit", "e", "", `Exit code on failure: an integer or "mirror" (default: $FAILFAST_EXIT or 1)`)
	rootCmd.Flags().StringVarP(&f.bufferSize, "buffer-size", "b", "", fmt.Sprintf("Maximum number of output characters to retain on failure (default: $FAILFAST_BUFFER_SIZE or %d)", config.DefaultBufferSize))
	rootCmd.Flags().StringVarP(&f.pipelineFile, "file", "f", "", "YAML pipeline file with commands and defaults; its commands run before the ones given as arguments")
	rootCmd.Flags().StringVarP(&f.saveOutput, "save-output", "o", "", "Also write the failure report to this file (read it with 'failfast show')")

	rootCmd.PersistentFlags().StringVar(&f.colorMode, "color", "", "Color failfast's own messages: auto, always or never (default: $FAILFAST_COLOR or auto)")
	rootCmd.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "Log every command to stderr")

	rootCmd.AddCommand(showCmd)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func useColor(mode config.ColorMode, w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return render.UseColor(mode, f)
	}
	return mode == config.ColorAlways
}

// execute runs the command line args and returns the exit code of failfast.
func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
	return 2
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
