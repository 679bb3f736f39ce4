package httpwire

import (
	"fmt"
	"io"
)

// BodyChunks is a lazy sequence of response body chunks. Next returns the
// next chunk, or io.EOF once the sequence is exhausted. A sequence is not
// restartable; iterate it exactly once.
type BodyChunks interface {
	Next() ([]byte, error)
}

type sliceChunks struct {
	chunks [][]byte
}

func (s *sliceChunks) Next() ([]byte, error) {
	if len(s.chunks) == 0 {
		return nil, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

// Chunks wraps fixed byte slices as a BodyChunks sequence.
func Chunks(chunks ...[]byte) BodyChunks {
	return &sliceChunks{chunks: chunks}
}

// WriteResponse serializes a response onto w: the status line, each header
// in the order supplied, a blank line, then the body chunks in iteration
// order. It never invents headers; if the application did not set
// Content-Length the response goes out without one.
func WriteResponse(w io.Writer, status string, headers []Header, body BodyChunks) error {
	if _, err := fmt.Fprintf(w, "HTTP/1.1 %s\r\n", status); err != nil {
		return err
	}
	for _, h := range headers {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", h.Name, h.Value); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}
	if body == nil {
		return nil
	}
	for {
		chunk, err := body.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			continue
		}
		if _, err := w.Write(chunk); err != nil {
			return err
		}
	}
}
