package httpd

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/runocan/basic-server/config"
)

var (
	ErrEmptyRequest         = errors.New("empty request")
	ErrMalformedRequestLine = errors.New("malformed request line")
	ErrMalformedHeader      = errors.New("malformed header")
	ErrBadURI               = errors.New("bad request target")
)

var (
	crlf      = []byte("\r\n")
	space     = []byte(" ")
	headerSep = []byte(": ")
)

// RequestHeader is not map[string][]string, unlike http.Header: a repeated name
// replaces the earlier value.
type RequestHeader map[string]string

// Request is a parsed HTTP request. It is built once per connection and
// not modified afterwards.
type Request struct {
	Method  string
	URI     string
	Version string
	Headers RequestHeader
	Body    []byte
}

// ParseRequest parses one request out of data in a single pass.
//
// The body is everything after the first empty line, with its lines joined
// back with CRLF. Without an empty line the body is empty. The body length
// is not checked against Content-Length here.
func ParseRequest(data []byte) (*Request, error) {
	if len(data) == 0 {
		return nil, ErrEmptyRequest
	}

	lines := bytes.Split(data, crlf)

	req := &Request{
		Version: config.DefaultHTTPVersion,
		Headers: make(RequestHeader),
		Body:    []byte{},
	}

	words := bytes.Split(lines[0], space)
	req.Method = string(words[0])
	if req.Method == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRequestLine, lines[0])
	}
	if len(words) > 1 {
		req.URI = string(words[1])
	}
	if len(words) > 2 {
		req.Version = string(words[2])
	}

	rest := lines[1:]
	for i, line := range rest {
		if len(line) == 0 {
			req.Body = bytes.Join(rest[i+1:], crlf)
			break
		}
		k, v, ok := bytes.Cut(line, headerSep)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}
		req.Headers[string(k)] = string(v)
	}

	return req, nil
}
