package chatclient

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// streamEvent mirrors the server's stream event wire format.
type streamEvent struct {
	Type    string `json:"type"`
	Delta   string `json:"delta,omitempty"`
	Message string `json:"message,omitempty"`
}

// sseReader parses `data:` frames off a text/event-stream body.
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(r io.Reader) *sseReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseReader{scanner: scanner}
}

// Next returns the next event on the stream, io.EOF when the stream ends
// cleanly, or the transport error that interrupted it.
func (r *sseReader) Next() (streamEvent, error) {
	var data strings.Builder
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if data.Len() == 0 {
				continue
			}
			var ev streamEvent
			if err := json.Unmarshal([]byte(data.String()), &ev); err != nil {
				// Skip unparseable frames; the terminal event still arrives.
				data.Reset()
				continue
			}
			return ev, nil
		}
		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			data.WriteString(strings.TrimPrefix(payload, " "))
		}
	}
	if err := r.scanner.Err(); err != nil {
		return streamEvent{}, err
	}
	return streamEvent{}, io.EOF
}
