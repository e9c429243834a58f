package utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxSSELineSize is the maximum size of a single SSE line (1 MB).
// The default bufio.Scanner limit is 64 KiB, which is too small for large
// SSE events such as long completions. If a line exceeds this limit the
// scanner returns a wrapped bufio.ErrTooLong via the Next() error path.
const maxSSELineSize = 1 * 1024 * 1024

// sseDataPrefix marks candidate payload lines. Only lines carrying this
// literal prefix are treated as data; everything else (comments, event ids,
// blank keep-alive lines) is skipped.
const sseDataPrefix = "data: "

// sseDoneSentinel terminates an OpenAI-compatible SSE stream.
const sseDoneSentinel = "[DONE]"

// SSEScanner reads Server-Sent-Events payloads from an io.Reader. It skips
// comments, blank lines, and non-data fields, and detects the [DONE]
// sentinel used by OpenAI-compatible APIs.
type SSEScanner struct {
	scanner *bufio.Scanner
}

// NewSSEScanner creates an SSEScanner reading from the given reader. The
// scanner supports individual lines up to maxSSELineSize.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{scanner: scanner}
}

// Next returns the next SSE data payload as a string.
// Returns io.EOF when no more events are available, and io.EOF when the
// [DONE] sentinel is encountered — the sentinel itself is never surfaced.
func (sseScanner *SSEScanner) Next() (string, error) {
	for sseScanner.scanner.Scan() {
		line := sseScanner.scanner.Text()

		// Only lines with the literal "data: " prefix are candidate payloads.
		if !strings.HasPrefix(line, sseDataPrefix) {
			continue
		}

		payload := strings.TrimPrefix(line, sseDataPrefix)
		if payload == sseDoneSentinel {
			return "", io.EOF
		}

		return payload, nil
	}

	if err := sseScanner.scanner.Err(); err != nil {
		return "", fmt.Errorf("SSE scanner error: %w", err)
	}

	return "", io.EOF
}
