package outputlog

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Writer writes chunks in outputlog format. A single goroutine owns the
// underlying io.Writer, so StreamWriters may be used concurrently.
type Writer struct {
	chunks chan Chunk
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// NewWriter creates a Writer on w. The internal goroutine runs until Close
// is called.
func NewWriter(w io.Writer) *Writer {
	o := &Writer{
		chunks: make(chan Chunk, 100),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(o.done)
		for chunk := range o.chunks {
			if o.failed() {
				continue // keep draining so senders never block
			}
			if _, err := w.Write(FormatChunk(chunk)); err != nil {
				o.setErr(err)
			}
		}
	}()

	return o
}

// Write queues one chunk. The stream name is checked here so a bad record
// never reaches the output.
func (o *Writer) Write(chunk Chunk) error {
	if !ValidStream(chunk.Stream) {
		return fmt.Errorf("invalid stream name %q", chunk.Stream)
	}
	if chunk.Timestamp.IsZero() {
		chunk.Timestamp = time.Now().UTC()
	}
	o.chunks <- chunk
	return nil
}

// StreamWriter returns an io.Writer that turns every Write into one record
// of stream. Timestamps get added automatically.
func (o *Writer) StreamWriter(stream string) io.Writer {
	return &streamWriter{stream: stream, out: o}
}

// Close waits for all queued chunks to be written and returns the first
// write error, if any. The Writer must not be used afterwards.
func (o *Writer) Close() error {
	close(o.chunks)
	<-o.done
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

func (o *Writer) failed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err != nil
}

func (o *Writer) setErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err == nil {
		o.err = err
	}
}

type streamWriter struct {
	stream string
	out    *Writer
}

func (sw *streamWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	chunk := Chunk{
		Stream:    sw.stream,
		Timestamp: time.Now().UTC(),
		Data:      append([]byte(nil), p...), // p may be reused by the caller
	}
	if err := sw.out.Write(chunk); err != nil {
		return 0, err
	}
	return len(p), nil
}
