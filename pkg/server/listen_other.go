//go:build !unix

package server

import (
	"fmt"
	"net"
)

// Listen falls back to net.Listen on platforms without the unix socket API.
// The backlog is left at the kernel default and reusePort is unsupported.
func Listen(host string, port, backlog int, reusePort bool) (net.Listener, error) {
	if reusePort {
		return nil, fmt.Errorf("reuseport strategy is not supported on this platform")
	}
	if host == "" {
		host = "0.0.0.0"
	}
	return net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
}
