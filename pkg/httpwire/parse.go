package httpwire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// DefaultMaxRequestBytes bounds a request (header block plus body) when the
// caller does not supply a limit.
const DefaultMaxRequestBytes = 1 << 20

// ReadRequest reads one full request from br: the request line, the header
// block up to the blank line, then the body until the declared
// Content-Length is satisfied. It loops on the reader rather than assuming
// the request arrived in a single read.
//
// It fails with ErrMalformedRequest for a request line that is not exactly
// three tokens or a header line without a colon, ErrTruncatedRead when the
// peer closes before the request is complete, and ErrRequestTooLarge when
// maxBytes is exceeded. io.EOF is returned untouched when the peer closed
// without sending anything.
func ReadRequest(br *bufio.Reader, maxBytes int64) (*Request, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestBytes
	}

	var read int64
	readLine := func() (string, error) {
		line, err := br.ReadString('\n')
		read += int64(len(line))
		if read > maxBytes {
			return "", ErrRequestTooLarge
		}
		if err != nil {
			if err == io.EOF && line == "" {
				return "", io.EOF
			}
			if err == io.EOF {
				return "", ErrTruncatedRead
			}
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	reqLine, err := readLine()
	if err != nil {
		return nil, err
	}

	tokens := strings.Fields(reqLine)
	if len(tokens) != 3 {
		return nil, fmt.Errorf("%w: request line %q", ErrMalformedRequest, reqLine)
	}
	req := &Request{Method: tokens[0], Proto: tokens[2]}
	req.Path, req.Query, _ = strings.Cut(tokens[1], "?")

	for {
		line, err := readLine()
		if err != nil {
			if err == io.EOF {
				return nil, ErrTruncatedRead
			}
			return nil, err
		}
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: header line %q", ErrMalformedRequest, line)
		}
		// duplicates are kept as repeated entries, never merged
		req.Headers = append(req.Headers, Header{Name: name, Value: strings.TrimSpace(value)})
	}

	cl, err := req.ContentLength()
	if err != nil {
		return nil, fmt.Errorf("%w: bad Content-Length", ErrMalformedRequest)
	}
	if cl > maxBytes-read {
		return nil, ErrRequestTooLarge
	}
	body := make([]byte, cl)
	if _, err := io.ReadFull(br, body); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrTruncatedRead
		}
		return nil, err
	}
	req.Body = bytes.NewReader(body)
	return req, nil
}
