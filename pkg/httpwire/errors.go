package httpwire

import "errors"

// Error kinds surfaced by parsing. The connection handler maps these to
// 4xx responses; everything else on the read path is a transport error.
var (
	// ErrMalformedRequest marks an unparseable request line or header block.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrTruncatedRead marks a request whose declared Content-Length was not
	// satisfied before the peer closed the connection.
	ErrTruncatedRead = errors.New("truncated request read")

	// ErrRequestTooLarge marks a request exceeding the configured read bound.
	ErrRequestTooLarge = errors.New("request too large")
)
