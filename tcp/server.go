// Package tcp accepts connections and runs a single read/handle/write
// exchange on each of them. It knows nothing about HTTP; the protocol is
// supplied as a Handler.
package tcp

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/runocan/basic-server/internal"
)

const (
	// Backlog is the number of pending connections the kernel queues.
	Backlog = 5

	// DefaultReadBuffer is the size of the one read done per connection.
	// Anything the peer sends beyond it is never read.
	DefaultReadBuffer = 1024
)

// Handler turns the bytes read from a connection into the bytes to write
// back. An empty result writes nothing.
type Handler interface {
	Handle(data []byte) []byte
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(data []byte) []byte

// Handle calls f(data).
func (f HandlerFunc) Handle(data []byte) []byte {
	return f(data)
}

// Server accepts connections one at a time. Each connection is read once,
// answered once and closed before the next Accept.
type Server struct {
	Handler    Handler
	ReadBuffer int
	Log        *internal.TSLog

	mu     sync.Mutex
	ln     net.Listener
	closed bool
}

// ListenAndServe listens on addr and serves until Close.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := Listen(addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve runs the accept loop on ln. It returns nil after Close and the
// accept error otherwise. ln is closed on return.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.ln = ln
	s.mu.Unlock()

	defer ln.Close()

	s.Log.Log("listening at %s", ln.Addr())

	var delay time.Duration

	for {
		s.Log.Gray("waiting for connection...")

		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay *= 2
			}
			if delay > time.Second {
				delay = time.Second
			}
			s.Log.Red("accept error: %v; retrying in %v", err, delay)
			time.Sleep(delay)
			continue
		}
		delay = 0

		s.handle(conn)
	}
}

// Close stops Serve. Connections already accepted are not interrupted.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// handle owns conn and closes it on every path.
func (s *Server) handle(conn net.Conn) (err error) {
	defer conn.Close()

	addr := conn.RemoteAddr()

	defer func() {
		if r := recover(); r != nil {
			s.Log.Red("panic while serving %s: %v", addr, r)
		}
		if err != nil {
			s.Log.Red("%s: %v", addr, err)
		}
		s.Log.Gray("closed %s", addr)
	}()

	s.Log.Gray("connected by %s", addr)

	size := s.ReadBuffer
	if size <= 0 {
		size = DefaultReadBuffer
	}
	buf := make([]byte, size)

	n, err := conn.Read(buf)
	if n == 0 {
		s.Log.Gray("no data from %s", addr)
		if err == io.EOF {
			err = nil
		}
		return err
	}
	err = nil

	s.Log.Log("received %d bytes from %s", n, addr)

	res := s.Handler.Handle(buf[:n])
	if len(res) == 0 {
		return nil
	}

	_, err = conn.Write(res)
	return err
}
