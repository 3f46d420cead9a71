package tcp

import (
	"bytes"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/runocan/basic-server/internal"
)

type mockAddr struct {
	str string
}

func (m mockAddr) Network() string { return "" }
func (m mockAddr) String() string  { return m.str }

type mockConn struct {
	in       *bytes.Reader
	out      bytes.Buffer
	reads    int
	closed   bool
	readErr  error
	writeErr error
}

func newMockConn(data string) *mockConn {
	return &mockConn{in: bytes.NewReader([]byte(data))}
}

func (m *mockConn) Read(b []byte) (int, error) {
	m.reads++
	if m.readErr != nil {
		return 0, m.readErr
	}
	return m.in.Read(b)
}

func (m *mockConn) Write(b []byte) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	return m.out.Write(b)
}

func (m *mockConn) Close() error {
	m.closed = true
	return nil
}

func (m *mockConn) LocalAddr() net.Addr                { return nil }
func (m *mockConn) RemoteAddr() net.Addr               { return mockAddr{"(client)"} }
func (m *mockConn) SetDeadline(t time.Time) error      { return nil }
func (m *mockConn) SetReadDeadline(t time.Time) error  { return nil }
func (m *mockConn) SetWriteDeadline(t time.Time) error { return nil }

func quietLog() *internal.TSLog {
	return &internal.TSLog{Out: io.Discard, NoColor: true}
}

func upper(data []byte) []byte {
	return bytes.ToUpper(data)
}

func TestHandleSingleRead(t *testing.T) {
	var got []byte
	s := &Server{
		Handler: HandlerFunc(func(data []byte) []byte {
			got = append([]byte(nil), data...)
			return []byte("ok")
		}),
		Log: quietLog(),
	}

	c := newMockConn(strings.Repeat("a", 3000))
	if err := s.handle(c); err != nil {
		t.Fatal(err)
	}

	if len(got) != DefaultReadBuffer {
		t.Errorf("handler saw %d bytes, want %d", len(got), DefaultReadBuffer)
	}
	if c.reads != 1 {
		t.Errorf("got %d reads, want 1", c.reads)
	}
	if c.out.String() != "ok" {
		t.Errorf("got %q", c.out.String())
	}
	if !c.closed {
		t.Errorf("connection left open")
	}
}

func TestHandleNoData(t *testing.T) {
	called := false
	s := &Server{
		Handler: HandlerFunc(func(data []byte) []byte {
			called = true
			return data
		}),
		Log: quietLog(),
	}

	c := newMockConn("")
	if err := s.handle(c); err != nil {
		t.Fatal(err)
	}
	if called || c.out.Len() != 0 || !c.closed {
		t.Errorf("called=%v wrote=%d closed=%v", called, c.out.Len(), c.closed)
	}
}

func TestHandleErrorsStillClose(t *testing.T) {
	s := &Server{Handler: HandlerFunc(upper), Log: quietLog()}

	c := newMockConn("")
	c.readErr = errors.New("connection reset by peer")
	if err := s.handle(c); err == nil {
		t.Errorf("read error not reported")
	}
	if !c.closed {
		t.Errorf("connection left open after read error")
	}

	c = newMockConn("hello")
	c.writeErr = errors.New("broken pipe")
	if err := s.handle(c); err == nil {
		t.Errorf("write error not reported")
	}
	if !c.closed {
		t.Errorf("connection left open after write error")
	}
}

func TestHandlePanicStillCloses(t *testing.T) {
	s := &Server{
		Handler: HandlerFunc(func(data []byte) []byte {
			panic("boom")
		}),
		Log: quietLog(),
	}

	c := newMockConn("hello")
	s.handle(c)
	if !c.closed {
		t.Errorf("connection left open after panic")
	}
}

func roundTrip(t *testing.T, addr string, data string) string {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(data)); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	out, err := io.ReadAll(conn)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func TestServe(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	s := &Server{Handler: HandlerFunc(upper), Log: quietLog()}

	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ln)
	}()

	addr := ln.Addr().String()

	if got := roundTrip(t, addr, "first"); got != "FIRST" {
		t.Errorf("got %q", got)
	}

	// A connection that sends nothing must not stop the loop.
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()

	if got := roundTrip(t, addr, "second"); got != "SECOND" {
		t.Errorf("got %q", got)
	}

	s.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}

func TestListenBadAddress(t *testing.T) {
	if _, err := Listen("not an address"); err == nil {
		t.Errorf("bad address accepted")
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// flakyListener fails Accept with a timeout n times, then reports closed.
type flakyListener struct {
	n     int
	calls int
}

func (l *flakyListener) Accept() (net.Conn, error) {
	l.calls++
	if l.calls > l.n {
		return nil, net.ErrClosed
	}
	return nil, timeoutError{}
}

func (l *flakyListener) Close() error   { return nil }
func (l *flakyListener) Addr() net.Addr { return mockAddr{"(flaky)"} }

func TestServeBacksOffOnTimeouts(t *testing.T) {
	ln := &flakyListener{n: 4}
	s := &Server{Handler: HandlerFunc(upper), Log: quietLog()}

	start := time.Now()
	if err := s.Serve(ln); err != nil {
		t.Fatal(err)
	}

	// 5ms + 10ms + 20ms + 40ms between the five Accept calls.
	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Errorf("accept loop did not back off: %v for %d calls", elapsed, ln.calls)
	}
	if ln.calls != 5 {
		t.Errorf("got %d Accept calls, want 5", ln.calls)
	}
}
