// Package render writes the failure report of a command to the real stdout
// and stderr.
package render

import (
	"fmt"
	"io"
	"os"

	"failfast/internal/capture"
	"failfast/internal/config"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// MiddleOmitted separates head and tail of truncated output.
const MiddleOmitted = "[... output in the middle omitted ...]"

// Renderer prints failure reports. Captured fragments go to the stream they
// were read from; failfast's own messages always go to Stderr.
type Renderer struct {
	Stdout io.Writer
	Stderr io.Writer

	banner *color.Color
	notice *color.Color
}

func New(stdout, stderr io.Writer, colored bool) *Renderer {
	r := &Renderer{
		Stdout: stdout,
		Stderr: stderr,
		banner: color.New(color.FgRed, color.Bold),
		notice: color.New(color.FgYellow),
	}
	if colored {
		r.banner.EnableColor()
		r.notice.EnableColor()
	} else {
		r.banner.DisableColor()
		r.notice.DisableColor()
	}
	return r
}

// UseColor resolves mode for output going to f. In auto mode colors are used
// only on a terminal and only if NO_COLOR is unset.
func UseColor(mode config.ColorMode, f *os.File) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Failure prints the report for a command that exited nonzero.
func (r *Renderer) Failure(command string, out capture.Captured) error {
	w := &errWriter{}

	r.header(w, command)
	if out.Truncated {
		w.do(func() (int, error) {
			return r.notice.Fprintf(r.Stderr,
				"[Output truncated: omitted %d characters; showing first %d and last %d characters.]",
				out.Omitted(), out.HeadLimit, out.TailLimit)
		})
		w.do(func() (int, error) { return fmt.Fprintln(r.Stderr) })
	}

	r.fragments(w, out.Head)

	if out.Truncated {
		w.do(func() (int, error) { return fmt.Fprintln(r.Stderr) })
		w.do(func() (int, error) { return r.notice.Fprint(r.Stderr, MiddleOmitted) })
		w.do(func() (int, error) { return fmt.Fprintln(r.Stderr) })
	}

	r.fragments(w, out.Tail)
	return w.err
}

// Error prints the report for a command the runner could not run.
func (r *Renderer) Error(command string, err error) error {
	w := &errWriter{}
	r.header(w, command)
	w.do(func() (int, error) { return fmt.Fprintf(r.Stderr, "Error: %v\n", err) })
	return w.err
}

func (r *Renderer) header(w *errWriter, command string) {
	w.do(func() (int, error) { return r.banner.Fprintf(r.Stderr, "FAILED: %s", command) })
	w.do(func() (int, error) { return fmt.Fprintln(r.Stderr) })
}

func (r *Renderer) fragments(w *errWriter, fragments []capture.Fragment) {
	for _, f := range fragments {
		dst := r.Stdout
		if f.Stream == capture.Stderr {
			dst = r.Stderr
		}
		w.do(func() (int, error) { return dst.Write(f.Data) })
	}
}

// errWriter remembers the first write error and skips all writes after it.
type errWriter struct {
	err error
}

func (w *errWriter) do(write func() (int, error)) {
	if w.err != nil {
		return
	}
	_, w.err = write()
}
