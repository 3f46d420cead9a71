package httpd

import (
	"errors"
	"strconv"
	"strings"

	"github.com/runocan/basic-server/config"
	"github.com/runocan/basic-server/internal"
)

// HandlerFunc answers a parsed request.
type HandlerFunc func(req *Request) *Response

// Dispatcher routes requests by method. Only the methods registered in
// NewDispatcher are reachable; everything else gets 501.
type Dispatcher struct {
	cfg      *config.Config
	builder  *ResponseBuilder
	files    *StaticFiles
	log      *internal.TSLog
	handlers map[string]HandlerFunc
}

// NewDispatcher wires the GET and POST handlers for cfg. log may be nil.
func NewDispatcher(cfg *config.Config, log *internal.TSLog) *Dispatcher {
	d := &Dispatcher{
		cfg:     cfg,
		builder: NewResponseBuilder(cfg),
		files:   NewStaticFiles(cfg),
		log:     log,
	}
	d.handlers = map[string]HandlerFunc{
		"GET":  d.handleGET,
		"POST": d.handlePOST,
	}
	return d
}

// Handle parses data as one request and returns the serialized response.
// Malformed input gets 400.
func (d *Dispatcher) Handle(data []byte) []byte {
	req, err := ParseRequest(data)
	if err != nil {
		d.log.Red("bad request: %v", err)
		return d.builder.Error(config.StatusBadRequest).Bytes()
	}

	res := d.Dispatch(req)
	if res.Status == config.StatusOK {
		d.log.Green("%s %s -> %d %s", req.Method, req.URI, res.Status, res.Phrase)
	} else {
		d.log.Red("%s %s -> %d %s", req.Method, req.URI, res.Status, res.Phrase)
	}

	return res.Bytes()
}

// Dispatch picks the handler for req.Method.
func (d *Dispatcher) Dispatch(req *Request) *Response {
	h, ok := d.handlers[req.Method]
	if !ok {
		h = d.handleNotImplemented
	}
	return h(req)
}

func (d *Dispatcher) handleNotImplemented(req *Request) *Response {
	return d.builder.Error(config.StatusNotImplemented)
}

func (d *Dispatcher) handleGET(req *Request) *Response {
	f, err := d.files.Open(req.URI)
	switch {
	case err == nil:
	case errors.Is(err, ErrBadURI):
		d.log.Log("%v", err)
		return d.builder.Error(config.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		d.log.Log("%v", err)
		return d.builder.Error(config.StatusForbidden)
	default:
		d.log.Log("%v", err)
		return d.builder.Error(config.StatusNotFound)
	}

	d.log.Log("serving %s (%s, %d bytes)", f.Path, f.ContentType, len(f.Data))

	return d.builder.New(config.StatusOK, f.Data,
		config.Header{Name: "Content-Type", Value: f.ContentType},
	)
}

// handlePOST echoes the first Content-Length bytes of the body.
func (d *Dispatcher) handlePOST(req *Request) *Response {
	n := contentLength(req.Headers)

	body := req.Body
	if n < len(body) {
		body = body[:n]
	}
	echo := make([]byte, len(body))
	copy(echo, body)

	d.log.Log("echoing %d of %d body bytes", len(echo), len(req.Body))

	return d.builder.New(config.StatusOK, echo)
}

// contentLength reads Content-Length. Missing, non-numeric and negative
// values count as 0.
func contentLength(h RequestHeader) int {
	v, ok := h["Content-Length"]
	if !ok {
		for k, kv := range h {
			if strings.EqualFold(k, "Content-Length") {
				v, ok = kv, true
				break
			}
		}
	}
	if !ok {
		return 0
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
