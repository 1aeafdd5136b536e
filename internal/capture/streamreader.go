package capture

import (
	"errors"
	"io"
	"time"
)

// BlockSize is the maximum number of bytes taken from a pipe per read.
const BlockSize = 4096

// ReadStream reads r in blocks of at most BlockSize bytes and hands every
// non-empty read to send as a Chunk tagged with stream. It returns nil at end
// of stream and the read error otherwise. Bytes returned together with an
// error are still sent.
func ReadStream(r io.Reader, stream Stream, send func(Chunk)) error {
	buf := make([]byte, BlockSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			send(Chunk{
				Stream:    stream,
				Timestamp: time.Now().UTC(),
				Data:      append([]byte(nil), buf[:n]...), // buf is reused by the next read
			})
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if n == 0 {
			// Pipes never return (0, nil); treat it like EOF rather than spin.
			return nil
		}
	}
}
