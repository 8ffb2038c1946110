package anthropic

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// RawEvent is one Server-Sent Event before decoding.
type RawEvent struct {
	Name string
	Data []byte
}

// EventSource yields stream events one at a time. Next returns io.EOF when
// the stream is exhausted.
type EventSource interface {
	Next() (RawEvent, error)
	Close() error
}

// sseReader parses a Server-Sent Events body lazily, one event per Next.
type sseReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func newSSEReader(body io.ReadCloser) *sseReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseReader{body: body, scanner: scanner}
}

func (r *sseReader) Next() (RawEvent, error) {
	var eventName string
	var data bytes.Buffer

	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if data.Len() == 0 {
				eventName = ""
				continue
			}
			return RawEvent{Name: eventName, Data: data.Bytes()}, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "event:") {
			eventName = strings.TrimSpace(line[6:])
			continue
		}
		if strings.HasPrefix(line, "data:") {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(line[5:]))
		}
	}
	if err := r.scanner.Err(); err != nil {
		return RawEvent{}, err
	}
	if data.Len() > 0 {
		return RawEvent{Name: eventName, Data: data.Bytes()}, nil
	}
	return RawEvent{}, io.EOF
}

func (r *sseReader) Close() error {
	return r.body.Close()
}
