// Package server drives the transport side of the gateway: the listening
// socket, the accept loop, and the per-connection request/response cycle.
package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"

	"gatewayd/pkg/gateway"
	"gatewayd/pkg/httpwire"
	"gatewayd/pkg/logger"
	"gatewayd/pkg/telemetry"
)

// Statuses for handler-generated error responses. Application responses
// pass through untouched; these cover failures before or instead of the
// application.
const (
	statusBadRequest      = "400 Bad Request"
	statusRequestTimeout  = "408 Request Timeout"
	statusPayloadTooLarge = "413 Payload Too Large"
	statusInternalError   = "500 Internal Server Error"
)

// Handler drives one full request/response cycle per accepted connection:
// read, parse, invoke the application through the gateway adapter, write
// the serialized response, close. The connection is closed on every path;
// a failed exchange never leaks a descriptor or leaves the peer hanging.
type Handler struct {
	App             gateway.Application
	MaxRequestBytes int64
	ReadTimeout     time.Duration // zero disables the read deadline
	Metrics         *telemetry.Metrics
}

// Serve handles conn to completion. It owns conn exclusively and always
// closes it.
func (h *Handler) Serve(conn net.Conn) {
	start := time.Now()
	requestID := uuid.NewString()

	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler_panic", "request_id", requestID, "panic", fmt.Sprint(r))
		}
	}()

	if h.Metrics != nil {
		h.Metrics.ConnectionsInFlight.Inc()
		defer h.Metrics.ConnectionsInFlight.Dec()
	}

	if h.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(h.ReadTimeout))
	}

	req, err := httpwire.ReadRequest(bufio.NewReader(conn), h.MaxRequestBytes)
	if err != nil {
		h.rejectRequest(conn, requestID, start, err)
		return
	}
	req.RemoteAddr = conn.RemoteAddr().String()
	logger.LogRequest(req, requestID)

	resp, err := gateway.Invoke(h.App, req)
	if err != nil {
		// Nothing has been written yet; a 500 is still possible.
		if h.Metrics != nil {
			h.Metrics.ApplicationFailures.Inc()
		}
		logger.Error("application_failed", "request_id", requestID, "method", req.Method, "path", req.Path, "error", err)
		h.writeErrorResponse(conn, statusInternalError)
		h.logAccess(requestID, req.Method, req.Path, statusInternalError, req.RemoteAddr, start)
		return
	}

	bw := bufio.NewWriter(conn)
	if err := httpwire.WriteResponse(bw, resp.Status, resp.Headers, safeBody{resp.Body}); err != nil {
		// The response is committed once serialization starts; deliver what
		// was produced, then close.
		_ = bw.Flush()
		logger.Warn("response_write_failed", "request_id", requestID, "status", resp.Status, "error", err)
		h.logAccess(requestID, req.Method, req.Path, resp.Status, req.RemoteAddr, start)
		return
	}
	if err := bw.Flush(); err != nil {
		logger.Warn("response_flush_failed", "request_id", requestID, "error", err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.ObserveRequest(resp.Status, time.Since(start))
	}
	h.logAccess(requestID, req.Method, req.Path, resp.Status, req.RemoteAddr, start)
}

// rejectRequest answers a request that never reached the application.
func (h *Handler) rejectRequest(conn net.Conn, requestID string, start time.Time, err error) {
	if err == io.EOF {
		// peer connected and sent nothing
		logger.Debug("empty_connection", "request_id", requestID, "remote", conn.RemoteAddr().String())
		return
	}

	var status string
	switch {
	case errors.Is(err, httpwire.ErrMalformedRequest), errors.Is(err, httpwire.ErrTruncatedRead):
		status = statusBadRequest
	case errors.Is(err, httpwire.ErrRequestTooLarge):
		status = statusPayloadTooLarge
	default:
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			status = statusRequestTimeout
		} else {
			// transport error; no response is feasible
			logger.Warn("request_read_failed", "request_id", requestID, "error", err)
			return
		}
	}

	if h.Metrics != nil {
		h.Metrics.ParseFailures.Inc()
		h.Metrics.ObserveRequest(status, time.Since(start))
	}
	logger.Info("request_rejected", "request_id", requestID, "status", status, "remote", conn.RemoteAddr().String(), "error", err)
	h.writeErrorResponse(conn, status)
}

// writeErrorResponse sends a minimal plain-text error response, best effort.
func (h *Handler) writeErrorResponse(conn net.Conn, status string) {
	body := []byte(status + "\r\n")
	headers := []httpwire.Header{
		{Name: "Content-Type", Value: "text/plain"},
		{Name: "Content-Length", Value: fmt.Sprint(len(body))},
		{Name: "Connection", Value: "close"},
	}
	_ = httpwire.WriteResponse(conn, status, headers, httpwire.Chunks(body))
}

func (h *Handler) logAccess(requestID, method, path, status, remote string, start time.Time) {
	args := []any{
		"request_id", requestID,
		"method", method,
		"path", path,
		"status", status,
		"remote", remote,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if logger.Access != nil {
		logger.Access.Info("request", args...)
		return
	}
	logger.Info("request_completed", args...)
}

// safeBody shields the serializer from a panicking body sequence; the
// application boundary must never take down the worker.
type safeBody struct {
	inner httpwire.BodyChunks
}

func (s safeBody) Next() (chunk []byte, err error) {
	if s.inner == nil {
		return nil, io.EOF
	}
	defer func() {
		if r := recover(); r != nil {
			chunk = nil
			err = fmt.Errorf("%w: body panic: %v", gateway.ErrApplication, r)
		}
	}()
	return s.inner.Next()
}
