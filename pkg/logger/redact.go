package logger

import (
	"strings"

	"gatewayd/pkg/httpwire"
)

var sensitive = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"x-api-key":     {},
}

func redactHeaderValue(k, v string) string {
	if v == "" {
		return ""
	}
	if _, ok := sensitive[strings.ToLower(k)]; ok {
		return "<redacted>"
	}
	return v
}

// SafeHeaders returns a compact string representation of request headers
// suitable for logging, with sensitive values redacted.
func SafeHeaders(headers []httpwire.Header) string {
	parts := make([]string, 0, len(headers))
	for _, h := range headers {
		parts = append(parts, h.Name+"="+redactHeaderValue(h.Name, h.Value))
	}
	return strings.Join(parts, "; ")
}

// LogRequest logs a concise, safe summary of a parsed request at debug level.
func LogRequest(req *httpwire.Request, requestID string) {
	if Log == nil {
		return
	}
	Log.Debug("incoming_request",
		"request_id", requestID,
		"method", req.Method,
		"path", req.Path,
		"remote", req.RemoteAddr,
		"headers", SafeHeaders(req.Headers),
	)
}
