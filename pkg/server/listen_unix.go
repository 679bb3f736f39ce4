//go:build unix

package server

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// Listen creates a TCP listening socket bound to host:port with an explicit
// accept backlog. Connections beyond the backlog are refused by the kernel,
// not by this process. With reusePort set, SO_REUSEPORT is applied so that
// several sockets can bind the same address and the kernel load-balances
// incoming connections across them.
//
// The socket is built at the syscall level because net.Listen offers no
// backlog control, then wrapped with net.FileListener so the runtime poller
// drives accepts.
func Listen(host string, port, backlog int, reusePort bool) (net.Listener, error) {
	ip, err := resolveBindIP(host)
	if err != nil {
		return nil, err
	}

	family := unix.AF_INET
	var sa unix.Sockaddr
	if ip4 := ip.To4(); ip4 != nil {
		sa4 := &unix.SockaddrInet4{Port: port}
		copy(sa4.Addr[:], ip4)
		sa = sa4
	} else {
		family = unix.AF_INET6
		sa6 := &unix.SockaddrInet6{Port: port}
		copy(sa6.Addr[:], ip.To16())
		sa = sa6
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set nonblock: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set SO_REUSEADDR: %w", err)
	}
	if reusePort {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("set SO_REUSEPORT: %w", err)
		}
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s:%d: %w", host, port, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen: %w", err)
	}

	f := os.NewFile(uintptr(fd), "gatewayd-listener")
	ln, err := net.FileListener(f)
	// FileListener dups the descriptor; release ours either way.
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("file listener: %w", err)
	}
	return ln, nil
}

func resolveBindIP(host string) (net.IP, error) {
	if host == "" || host == "0.0.0.0" {
		return net.IPv4zero, nil
	}
	if host == "::" {
		return net.IPv6zero, nil
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}
	addr, err := net.ResolveIPAddr("ip", host)
	if err != nil {
		return nil, fmt.Errorf("resolve bind host %q: %w", host, err)
	}
	return addr.IP, nil
}
