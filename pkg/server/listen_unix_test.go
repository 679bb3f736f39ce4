//go:build unix

package server

import (
	"io"
	"net"
	"strings"
	"testing"
)

func TestListenBacklogSocket(t *testing.T) {
	ln, err := Listen("127.0.0.1", 0, 1, false)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	// the socket must be a real accepting TCP listener
	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	accepted, err := ln.Accept()
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	accepted.Close()
	conn.Close()
}

func TestListenReusePortSharesAddress(t *testing.T) {
	ln1, err := Listen("127.0.0.1", 0, 16, true)
	if err != nil {
		t.Fatalf("first Listen: %v", err)
	}
	defer ln1.Close()

	port := ln1.Addr().(*net.TCPAddr).Port
	ln2, err := Listen("127.0.0.1", port, 16, true)
	if err != nil {
		t.Fatalf("second Listen on same port: %v", err)
	}
	defer ln2.Close()

	if ln2.Addr().(*net.TCPAddr).Port != port {
		t.Fatalf("ports differ: %v vs %v", ln1.Addr(), ln2.Addr())
	}
}

func TestListenWithoutReusePortRejectsRebind(t *testing.T) {
	ln1, err := Listen("127.0.0.1", 0, 16, false)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln1.Close()

	port := ln1.Addr().(*net.TCPAddr).Port
	ln2, err := Listen("127.0.0.1", port, 16, false)
	if err == nil {
		ln2.Close()
		t.Fatalf("second bind without SO_REUSEPORT unexpectedly succeeded")
	}
	if !strings.Contains(err.Error(), "bind") {
		t.Fatalf("err = %v, want bind failure", err)
	}
}

func TestListenServesBytes(t *testing.T) {
	ln, err := Listen("127.0.0.1", 0, 8, false)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		io.Copy(c, c)
		c.Close()
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Write([]byte("ping"))
	conn.(*net.TCPConn).CloseWrite()
	out, _ := io.ReadAll(conn)
	conn.Close()
	if string(out) != "ping" {
		t.Fatalf("echo = %q", out)
	}
}
