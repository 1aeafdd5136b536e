// Package outputlog defines a simple protocol to multiplex several streams into one stream.
//
// failfast uses it for capture files: the report of a failed command, written
// with --save-output and read back by "failfast show".
//
// # Format
//
// Each record follows this format:
//
//	stream timestamp length: content\n
//
// The trailing \n is a separator and always present, even if content itself
// ends with a newline.
//
// # Fields
//
//   - stream: Matches regex [a-zA-Z0-9_./-]{1,64}. For example: stdout, stderr or meta.
//   - timestamp: UTC timestamp, written as 2006-01-02T15:04:05.000000000Z. Any
//     RFC 3339 timestamp is accepted when reading.
//   - length: Decimal byte length of content.
//   - content: Exactly length bytes. Content can contain newlines and any other byte value.
//
// # Examples
//
//	stdout 2025-01-07T12:00:00.000000000Z 4: foo
//
//	stderr 2025-01-07T12:00:02.000000000Z 13: error message
//
// The first record carries "foo\n", the second "error message" without a
// newline.
package outputlog
