// Package capture collects the stdout and stderr of a child process into one
// interleaved sequence and keeps a bounded head and tail of it.
package capture

import (
	"fmt"
	"time"
)

// Stream identifies which output channel of a child process a byte range
// came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	}
	return fmt.Sprintf("Stream(%d)", int(s))
}

// ParseStream is the inverse of Stream.String.
func ParseStream(name string) (Stream, error) {
	switch name {
	case "stdout":
		return Stdout, nil
	case "stderr":
		return Stderr, nil
	}
	return 0, fmt.Errorf("unknown stream %q", name)
}

// Chunk is one read from a stream, in transit to the OutputBuffer.
type Chunk struct {
	Stream    Stream
	Timestamp time.Time // UTC arrival time
	Data      []byte
}
