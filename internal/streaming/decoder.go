// Package streaming normalizes upstream stream bodies to server-sent events.
// Bodies that already speak SSE pass through; AWS binary event-stream
// bodies are re-framed as "data: {json}" events.
package streaming

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws/protocol/eventstream"

	"gatewire/internal/observability"
)

const (
	// DefaultMaxResyncBytes caps the bytes a session may skip while looking
	// for a valid frame.
	DefaultMaxResyncBytes = 64 << 10

	preludeLen     = 12
	messageCRCLen  = 4
	minFrameLen    = preludeLen + messageCRCLen
	maxFrameLength = 1_000_000
)

// ErrResyncLimit is returned once a session has skipped more than its
// resync budget.
var ErrResyncLimit = errors.New("streaming: binary resync limit exceeded")

var (
	doneEvent = []byte("data: [DONE]\n\n")
	sseMarks  = [][]byte{[]byte("data:"), []byte("event:")}
)

type mode uint8

const (
	modeUnknown mode = iota
	modeSSE
	modeBinary
)

func (m mode) String() string {
	switch m {
	case modeSSE:
		return "sse"
	case modeBinary:
		return "binary"
	}
	return "unknown"
}

// Decoder is one stream's decoding session. It buffers partial frames
// between chunks and must not be shared between streams or used from more
// than one goroutine.
type Decoder struct {
	buf       []byte
	mode      mode
	maxResync int
	resynced  int
	frames    *eventstream.Decoder
}

// NewDecoder returns a session that skips at most maxResyncBytes while
// resynchronizing. Zero or less uses DefaultMaxResyncBytes.
func NewDecoder(maxResyncBytes int) *Decoder {
	if maxResyncBytes <= 0 {
		maxResyncBytes = DefaultMaxResyncBytes
	}
	return &Decoder{maxResync: maxResyncBytes, frames: eventstream.NewDecoder()}
}

// Mode reports "unknown", "sse" or "binary".
func (d *Decoder) Mode() string { return d.mode.String() }

// Transform consumes the next chunk and returns the SSE bytes it completes.
func (d *Decoder) Transform(chunk []byte) ([]byte, error) {
	switch d.mode {
	case modeSSE:
		return chunk, nil
	case modeBinary:
		d.buf = append(d.buf, chunk...)
		return d.drain()
	}

	d.buf = append(d.buf, chunk...)
	if !d.detect() {
		return nil, nil
	}
	if d.mode == modeSSE {
		out := d.buf
		d.buf = nil
		return out, nil
	}
	return d.drain()
}

// Flush ends the session. Pending SSE bytes are returned before the final
// [DONE] event; an incomplete binary frame is discarded.
func (d *Decoder) Flush() []byte {
	var out []byte
	if len(d.buf) > 0 {
		if d.mode == modeBinary {
			slog.Warn("discarding incomplete event-stream frame", "bytes", len(d.buf))
			observability.StreamFrames.WithLabelValues("dropped").Inc()
		} else {
			out = append(out, d.buf...)
		}
		d.buf = nil
	}
	return append(out, doneEvent...)
}

// detect decides the mode from the buffered prefix. It reports false while
// more bytes are needed.
func (d *Decoder) detect() bool {
	for _, mark := range sseMarks {
		if bytes.Contains(d.buf, mark) {
			d.mode = modeSSE
			return true
		}
	}
	if len(d.buf) < 4 {
		return false
	}
	if n := binary.BigEndian.Uint32(d.buf); n > 0 && n < maxFrameLength {
		d.mode = modeBinary
	} else {
		d.mode = modeSSE
	}
	return true
}

// drain emits every complete frame in the buffer.
func (d *Decoder) drain() ([]byte, error) {
	var out []byte
	for len(d.buf) >= preludeLen {
		total := binary.BigEndian.Uint32(d.buf[0:4])
		headersLen := binary.BigEndian.Uint32(d.buf[4:8])
		if total < minFrameLen || total >= maxFrameLength || headersLen > total-minFrameLen {
			if err := d.skip(); err != nil {
				return out, err
			}
			continue
		}
		if uint32(len(d.buf)) < total {
			break
		}

		frame := d.buf[:total]
		out = d.emit(out, frame, headersLen)
		d.buf = d.buf[total:]
	}
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return out, nil
}

func (d *Decoder) skip() error {
	d.buf = d.buf[1:]
	d.resynced++
	observability.StreamResyncBytes.Inc()
	if d.resynced > d.maxResync {
		slog.Error("event-stream resync limit exceeded", "skipped_bytes", d.resynced)
		return ErrResyncLimit
	}
	return nil
}

func (d *Decoder) emit(out, frame []byte, headersLen uint32) []byte {
	payload := frame[preludeLen+headersLen : len(frame)-messageCRCLen]

	msg, err := d.frames.Decode(bytes.NewReader(frame), nil)
	switch {
	case err != nil:
		slog.Warn("event-stream frame failed validation, using raw payload", "error", err, "length", len(frame))
	default:
		payload = msg.Payload
		if v := msg.Headers.Get(":message-type"); v != nil && v.String() != "event" {
			slog.Warn("event-stream exception frame", "message_type", v.String(), "exception_type", headerString(msg.Headers, ":exception-type"))
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, payload); err != nil {
		slog.Warn("dropping event-stream frame with invalid JSON payload", "error", err, "event_type", headerString(msg.Headers, ":event-type"))
		observability.StreamFrames.WithLabelValues("dropped").Inc()
		return out
	}
	observability.StreamFrames.WithLabelValues("decoded").Inc()

	out = append(out, "data: "...)
	out = append(out, compact.Bytes()...)
	return append(out, "\n\n"...)
}

func headerString(h eventstream.Headers, name string) string {
	if v := h.Get(name); v != nil {
		return v.String()
	}
	return ""
}
