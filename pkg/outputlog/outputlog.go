// Package outputlog defines a simple protocol to multiplex several streams into one stream. See
// doc.go for docs.
package outputlog

import (
	"fmt"
	"regexp"
	"time"
)

// TimeFormat is the layout of the timestamp field.
const TimeFormat = "2006-01-02T15:04:05.000000000Z"

var streamNameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_./-]{1,64}$`)

// Chunk is one record: a piece of one stream.
type Chunk struct {
	Stream    string
	Timestamp time.Time // UTC timestamp
	Data      []byte
	// Error is set by the reader when the record could not be parsed. It is
	// the last chunk on the channel.
	Error error
}

// ValidStream reports whether name can be used as a stream name.
func ValidStream(name string) bool {
	return streamNameRegexp.MatchString(name)
}

// FormatChunk formats a Chunk as one record.
// Format: "stream timestamp length: content\n"
func FormatChunk(chunk Chunk) []byte {
	timestamp := chunk.Timestamp.UTC().Format(TimeFormat)
	record := fmt.Appendf(nil, "%s %s %d: ", chunk.Stream, timestamp, len(chunk.Data))
	record = append(record, chunk.Data...)
	return append(record, '\n')
}
