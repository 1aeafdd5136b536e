package sequence

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"failfast/internal/capture"
	"failfast/internal/config"
	"failfast/internal/render"
	"failfast/internal/report"
	"failfast/internal/runner"

	"github.com/stretchr/testify/require"
)

// fakeRunner fails with the exit code found in codes, 0 otherwise.
type fakeRunner struct {
	codes map[string]int
	errs  map[string]error
	calls []string
}

func (f *fakeRunner) Run(command string) (*runner.Result, error) {
	f.calls = append(f.calls, command)
	if err, ok := f.errs[command]; ok {
		return nil, err
	}
	code := f.codes[command]
	result := &runner.Result{ID: "id-" + command, Command: command, ExitCode: code, Output: capture.EmptyCaptured(100)}
	if code != 0 {
		buf := capture.NewOutputBuffer(100)
		buf.Push(capture.Stdout, []byte("out of "+command))
		result.Output = buf.Finish()
	}
	return result, nil
}

func newSequence(cfg config.Config, r Runner) (*Sequence, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return New(cfg, r, render.New(&stdout, &stderr, false)), &stdout, &stderr
}

func commands(n int) []string {
	var out []string
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("cmd%d", i))
	}
	return out
}

func TestRun_AllSucceed(t *testing.T) {
	fake := &fakeRunner{}
	seq, stdout, stderr := newSequence(config.Config{Commands: commands(3), Exit: config.ExitMode{Fixed: 1}}, fake)

	require.Equal(t, 0, seq.Run())
	require.Equal(t, commands(3), fake.calls)
	require.Empty(t, stdout.String())
	require.Empty(t, stderr.String())
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for k := 0; k < n; k++ {
			cmds := commands(n)
			fake := &fakeRunner{codes: map[string]int{cmds[k]: 7}}
			seq, _, _ := newSequence(config.Config{Commands: cmds, Exit: config.ExitMode{Fixed: 1}}, fake)

			require.Equal(t, 1, seq.Run())
			require.Len(t, fake.calls, k+1, "n=%d k=%d", n, k)
		}
	}
}

func TestRun_RendersFailure(t *testing.T) {
	fake := &fakeRunner{codes: map[string]int{"cmd1": 3}}
	seq, stdout, stderr := newSequence(config.Config{Commands: commands(3), Exit: config.ExitMode{Fixed: 1}}, fake)

	require.Equal(t, 1, seq.Run())
	require.Equal(t, "FAILED: cmd1\n", stderr.String())
	require.Equal(t, "out of cmd1", stdout.String())
}

func TestRun_ExitModes(t *testing.T) {
	fake := &fakeRunner{codes: map[string]int{"cmd0": 143}}
	seq, _, _ := newSequence(config.Config{Commands: commands(1), Exit: config.ExitMode{Mirror: true}}, fake)
	require.Equal(t, 143, seq.Run())

	fake = &fakeRunner{codes: map[string]int{"cmd0": 143}}
	seq, _, _ = newSequence(config.Config{Commands: commands(1), Exit: config.ExitMode{Fixed: 300}}, fake)
	require.Equal(t, 300, seq.Run())
}

func TestRun_RunnerErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "parse", err: &runner.Error{Kind: runner.KindParse, Err: errors.New("empty command")}, want: 2},
		{name: "not found", err: &runner.Error{Kind: runner.KindSpawn, Err: exec.ErrNotFound}, want: 127},
		{name: "spawn", err: &runner.Error{Kind: runner.KindSpawn, Err: errors.New("permission denied")}, want: 126},
		{name: "read", err: &runner.Error{Kind: runner.KindRead, Err: errors.New("broken")}, want: 125},
		{name: "untyped", err: errors.New("weird"), want: 125},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeRunner{errs: map[string]error{"cmd1": tt.err}}
			seq, _, stderr := newSequence(config.Config{Commands: commands(3), Exit: config.ExitMode{Mirror: true}}, fake)

			require.Equal(t, tt.want, seq.Run())
			require.Equal(t, []string{"cmd0", "cmd1"}, fake.calls)
			require.Contains(t, stderr.String(), "FAILED: cmd1\nError: ")
		})
	}
}

func TestRun_SavesOutputOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log")
	fake := &fakeRunner{codes: map[string]int{"cmd0": 4}}
	seq, _, _ := newSequence(config.Config{Commands: commands(1), Exit: config.ExitMode{Mirror: true}, SaveOutput: path}, fake)

	require.Equal(t, 4, seq.Run())

	rep, err := report.Load(path)
	require.NoError(t, err)
	require.Equal(t, "cmd0", rep.Command)
	require.Equal(t, 4, rep.ExitCode)
	require.Equal(t, "id-cmd0", rep.ID)
	require.Equal(t, "out of cmd0", string(rep.Output.Bytes()))
}

func TestRun_SaveErrorKeepsExitCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "capture.log")
	fake := &fakeRunner{codes: map[string]int{"cmd0": 4}}
	seq, _, stderr := newSequence(config.Config{Commands: commands(1), Exit: config.ExitMode{Fixed: 9}, SaveOutput: path}, fake)

	require.Equal(t, 9, seq.Run())
	require.Contains(t, stderr.String(), "Error: failed to create capture file")
}

func TestRun_RealCommands(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}

	cfg := config.Config{
		Commands:   []string{"true", `sh -c 'echo visible; exit 5'`, "false"},
		Exit:       config.ExitMode{Mirror: true},
		BufferSize: 100,
	}
	seq, stdout, stderr := newSequence(cfg, runner.New(cfg.BufferSize))

	require.Equal(t, 5, seq.Run())
	require.Equal(t, "visible\n", stdout.String())
	require.Equal(t, "FAILED: sh -c 'echo visible; exit 5'\n", stderr.String())
}
