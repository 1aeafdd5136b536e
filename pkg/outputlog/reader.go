package outputlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// MaxChunkSize bounds the length field accepted by the reader.
const MaxChunkSize = 64 << 20

// Reader parses records written by Writer.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next chunk. At the end of the input it returns io.EOF;
// input that ends inside a record is an error.
func (o *Reader) Next() (Chunk, error) {
	var chunk Chunk

	stream, err := o.readUntil(' ')
	if err != nil {
		if errors.Is(err, io.EOF) && stream == "" {
			return chunk, io.EOF
		}
		return chunk, fmt.Errorf("reading stream: %w", unexpected(err))
	}
	if !ValidStream(stream) {
		return chunk, fmt.Errorf("invalid stream name %q", stream)
	}
	chunk.Stream = stream

	timestampStr, err := o.readUntil(' ')
	if err != nil {
		return chunk, fmt.Errorf("reading timestamp: %w", unexpected(err))
	}
	chunk.Timestamp, err = time.Parse(time.RFC3339Nano, timestampStr)
	if err != nil {
		return chunk, fmt.Errorf("parsing timestamp: %w", err)
	}

	lengthStr, err := o.readUntil(':')
	if err != nil {
		return chunk, fmt.Errorf("reading length: %w", unexpected(err))
	}
	length, err := strconv.Atoi(lengthStr)
	if err != nil || length < 0 || length > MaxChunkSize {
		return chunk, fmt.Errorf("invalid length %q", lengthStr)
	}

	if b, err := o.r.ReadByte(); err != nil {
		return chunk, fmt.Errorf("reading space after colon: %w", unexpected(err))
	} else if b != ' ' {
		return chunk, fmt.Errorf("expected space after colon, got %q", b)
	}

	chunk.Data = make([]byte, length)
	if _, err := io.ReadFull(o.r, chunk.Data); err != nil {
		return chunk, fmt.Errorf("reading content (%d bytes): %w", length, unexpected(err))
	}

	if b, err := o.r.ReadByte(); err != nil {
		return chunk, fmt.Errorf("reading final newline: %w", unexpected(err))
	} else if b != '\n' {
		return chunk, fmt.Errorf("expected newline separator, got %q", b)
	}

	return chunk, nil
}

// Channel emits all chunks and closes when the input is exhausted. A parse
// error is delivered as a final chunk with Error set.
func (o *Reader) Channel() <-chan Chunk {
	channel := make(chan Chunk)
	go func() {
		defer close(channel)
		for {
			chunk, err := o.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				channel <- Chunk{Error: err}
				return
			}
			channel <- chunk
		}
	}()
	return channel
}

func (o *Reader) readUntil(delim byte) (string, error) {
	s, err := o.r.ReadString(delim)
	if err != nil {
		return s, err
	}
	return s[:len(s)-1], nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
