package streaming

import "io"

// Reader wraps an upstream body with a Decoder, yielding SSE bytes and a
// final [DONE] event.
type Reader struct {
	body    io.ReadCloser
	decoder *Decoder
	buffer  []byte
	readBuf []byte
	done    bool
	closed  bool
	// err is returned once buffered output is drained.
	err error
}

// NewReader wraps body with a session using DefaultMaxResyncBytes.
func NewReader(body io.ReadCloser) io.ReadCloser {
	return NewDecoder(0).Wrap(body)
}

// Wrap returns a Reader that feeds body through d.
func (d *Decoder) Wrap(body io.ReadCloser) *Reader {
	return &Reader{
		body:    body,
		decoder: d,
		readBuf: make([]byte, 4096),
	}
}

func (r *Reader) Read(p []byte) (int, error) {
	for {
		if len(r.buffer) > 0 {
			n := copy(p, r.buffer)
			r.buffer = r.buffer[n:]
			return n, nil
		}
		if r.err != nil {
			return 0, r.err
		}
		if r.done || r.closed {
			return 0, io.EOF
		}

		nr, readErr := r.body.Read(r.readBuf)
		if nr > 0 {
			out, err := r.decoder.Transform(r.readBuf[:nr])
			r.buffer = append(r.buffer, out...)
			if err != nil {
				r.done = true
				r.err = err
				continue
			}
		}
		if readErr == io.EOF {
			r.done = true
			r.buffer = append(r.buffer, r.decoder.Flush()...)
			continue
		}
		if readErr != nil {
			return 0, readErr
		}
	}
}

func (r *Reader) Close() error {
	r.closed = true
	return r.body.Close()
}
