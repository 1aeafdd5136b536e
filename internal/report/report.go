// Package report stores the failure report of a command in a capture file
// and loads it back.
//
// A capture file is an outputlog stream. It starts with a "meta" record
// ("id=... limit=... total=... exit=...") and a "command" record, followed by
// the head fragments as "stdout"/"stderr" records, an "omitted" record if the
// output was truncated, and the tail fragments.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"failfast/internal/capture"
	"failfast/internal/runner"
	"failfast/pkg/outputlog"
)

const (
	streamMeta    = "meta"
	streamCommand = "command"
	streamOmitted = "omitted"
)

// Report is what gets shown for a failed command.
type Report struct {
	ID       string
	Command  string
	ExitCode int
	Output   capture.Captured
}

func FromResult(result *runner.Result) *Report {
	return &Report{
		ID:       result.ID,
		Command:  result.Command,
		ExitCode: result.ExitCode,
		Output:   result.Output,
	}
}

// Save writes rep to path, replacing an existing file.
func Save(path string, rep *Report) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	if err := Write(f, rep); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write capture file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close capture file %s: %w", path, err)
	}
	return nil
}

// Write encodes rep in outputlog format.
func Write(w io.Writer, rep *Report) error {
	out := outputlog.NewWriter(w)

	meta := fmt.Sprintf("id=%s limit=%d total=%d exit=%d",
		rep.ID, rep.Output.Limit, rep.Output.TotalLen, rep.ExitCode)
	// Write only fails for invalid stream names, and ours are constants.
	_ = out.Write(outputlog.Chunk{Stream: streamMeta, Data: []byte(meta)})
	_ = out.Write(outputlog.Chunk{Stream: streamCommand, Data: []byte(rep.Command)})

	writeFragments(out, rep.Output.Head)
	if rep.Output.Truncated {
		_ = out.Write(outputlog.Chunk{Stream: streamOmitted, Data: []byte(strconv.Itoa(rep.Output.Omitted()))})
	}
	writeFragments(out, rep.Output.Tail)

	return out.Close()
}

func writeFragments(out *outputlog.Writer, fragments []capture.Fragment) {
	for _, f := range fragments {
		_, _ = out.StreamWriter(f.Stream.String()).Write(f.Data)
	}
}

// Load reads a capture file written by Save.
func Load(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer func() { _ = f.Close() }()

	rep, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture file %s: %w", path, err)
	}
	return rep, nil
}

// Read decodes a report from r.
func Read(r io.Reader) (*Report, error) {
	chunks := outputlog.NewReader(r).Channel()
	// Drain on early return so the reader goroutine can finish.
	defer func() {
		for range chunks {
		}
	}()

	chunk, err := expect(chunks, streamMeta)
	if err != nil {
		return nil, err
	}
	rep := &Report{}
	var limit, total int
	if err := parseMeta(string(chunk.Data), rep, &limit, &total); err != nil {
		return nil, err
	}
	rep.Output = capture.EmptyCaptured(limit)
	rep.Output.TotalLen = total
	rep.Output.Truncated = total > limit

	chunk, err = expect(chunks, streamCommand)
	if err != nil {
		return nil, err
	}
	rep.Command = string(chunk.Data)

	inTail := false
	for chunk := range chunks {
		if chunk.Error != nil {
			return nil, chunk.Error
		}

		if chunk.Stream == streamOmitted {
			if inTail || !rep.Output.Truncated {
				return nil, fmt.Errorf("unexpected %s record", streamOmitted)
			}
			inTail = true
			continue
		}

		stream, err := capture.ParseStream(chunk.Stream)
		if err != nil {
			return nil, err
		}
		if inTail {
			rep.Output.Tail = appendFragment(rep.Output.Tail, stream, chunk.Data)
		} else {
			rep.Output.Head = appendFragment(rep.Output.Head, stream, chunk.Data)
		}
	}

	if rep.Output.Truncated && !inTail {
		return nil, fmt.Errorf("missing %s record", streamOmitted)
	}
	return rep, nil
}

// expect receives the next record and checks that it belongs to stream.
func expect(chunks <-chan outputlog.Chunk, stream string) (outputlog.Chunk, error) {
	chunk, ok := <-chunks
	if !ok {
		return chunk, fmt.Errorf("missing %s record", stream)
	}
	if chunk.Error != nil {
		return chunk, chunk.Error
	}
	if chunk.Stream != stream {
		return chunk, fmt.Errorf("expected %s record, got %q", stream, chunk.Stream)
	}
	return chunk, nil
}

func parseMeta(meta string, rep *Report, limit, total *int) error {
	seen := map[string]bool{}
	for _, field := range strings.Fields(meta) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return fmt.Errorf("invalid meta field %q", field)
		}
		var err error
		switch key {
		case "id":
			rep.ID = value
		case "limit":
			*limit, err = strconv.Atoi(value)
		case "total":
			*total, err = strconv.Atoi(value)
		case "exit":
			rep.ExitCode, err = strconv.Atoi(value)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("invalid meta field %q: %w", field, err)
		}
		seen[key] = true
	}
	for _, key := range []string{"limit", "total", "exit"} {
		if !seen[key] {
			return fmt.Errorf("meta record lacks %q", key)
		}
	}
	if *limit < 1 || *total < 0 {
		return fmt.Errorf("invalid meta record %q", meta)
	}
	return nil
}

func appendFragment(fragments []capture.Fragment, stream capture.Stream, data []byte) []capture.Fragment {
	if len(data) == 0 {
		return fragments
	}
	if n := len(fragments); n > 0 && fragments[n-1].Stream == stream {
		fragments[n-1].Data = append(fragments[n-1].Data, data...)
		return fragments
	}
	return append(fragments, capture.Fragment{Stream: stream, Data: data})
}
