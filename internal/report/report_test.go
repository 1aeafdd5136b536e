package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"failfast/internal/capture"
	"failfast/internal/runner"
	"failfast/pkg/outputlog"

	"github.com/stretchr/testify/require"
)

func truncatedReport() *Report {
	buf := capture.NewOutputBuffer(10)
	buf.Push(capture.Stdout, []byte("01234"))
	buf.Push(capture.Stderr, []byte("middle"))
	buf.Push(capture.Stdout, []byte("ABCDE"))
	return &Report{
		ID:       "3f1c",
		Command:  `sh -c 'exit 3'`,
		ExitCode: 3,
		Output:   buf.Finish(),
	}
}

func TestSaveLoad_Truncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log")
	rep := truncatedReport()

	require.NoError(t, Save(path, rep))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, rep, loaded)
	require.Equal(t, 6, loaded.Output.Omitted())
}

func TestWriteRead_NotTruncated(t *testing.T) {
	buf := capture.NewOutputBuffer(100)
	buf.Push(capture.Stdout, []byte("hello"))
	buf.Push(capture.Stderr, []byte("!"))
	rep := &Report{ID: "x", Command: "make", ExitCode: 2, Output: buf.Finish()}

	var out bytes.Buffer
	require.NoError(t, Write(&out, rep))

	loaded, err := Read(&out)
	require.NoError(t, err)
	require.Equal(t, rep, loaded)
	require.False(t, loaded.Output.Truncated)
}

func TestWrite_RecordLayout(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Write(&out, truncatedReport()))

	var streams []string
	for chunk := range outputlog.NewReader(&out).Channel() {
		require.NoError(t, chunk.Error)
		streams = append(streams, chunk.Stream)
	}
	require.Equal(t, []string{"meta", "command", "stdout", "omitted", "stdout"}, streams)
}

func TestFromResult(t *testing.T) {
	result := &runner.Result{ID: "id", Command: "false", ExitCode: 1, Output: capture.EmptyCaptured(8)}
	rep := FromResult(result)
	require.Equal(t, "id", rep.ID)
	require.Equal(t, "false", rep.Command)
	require.Equal(t, 1, rep.ExitCode)
	require.Equal(t, 8, rep.Output.Limit)
}

func record(stream, data string) string {
	return string(outputlog.FormatChunk(outputlog.Chunk{Stream: stream, Data: []byte(data)}))
}

func TestRead_Errors(t *testing.T) {
	meta := record("meta", "id=a limit=10 total=4 exit=1")
	truncatedMeta := record("meta", "id=a limit=10 total=40 exit=1")
	command := record("command", "make")

	tests := map[string]string{
		"empty":                  "",
		"no meta":                command,
		"no command":             meta,
		"meta lacks exit":        record("meta", "limit=10 total=4") + command,
		"bad limit":              record("meta", "limit=x total=4 exit=1") + command,
		"zero limit":             record("meta", "limit=0 total=4 exit=1") + command,
		"unknown stream":         meta + command + record("stdin", "x"),
		"error before more data": meta + command + record("stdin", "x") + record("stdout", "y") + record("stderr", "z"),
		"omitted not truncated":  meta + command + record("omitted", "3"),
		"truncated no omitted":   truncatedMeta + command + record("stdout", "x"),
		"garbage":                meta + command + "garbage",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(input))
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
