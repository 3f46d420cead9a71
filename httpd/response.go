package httpd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/runocan/basic-server/config"
)

// Response is produced per request and discarded once written.
type Response struct {
	Version string
	Status  int
	Phrase  string
	Headers *Header
	Body    []byte
}

// ResponseBuilder makes responses carrying the configured base headers.
type ResponseBuilder struct {
	cfg *config.Config
}

// NewResponseBuilder returns a builder using cfg.
func NewResponseBuilder(cfg *config.Config) *ResponseBuilder {
	return &ResponseBuilder{cfg: cfg}
}

// New builds a response. Headers in extra override base headers of the
// same name; the rest are appended in order. Content-Length is always set to
// the length of body.
//
// status must be one of the known codes, anything else panics.
func (b *ResponseBuilder) New(status int, body []byte, extra ...config.Header) *Response {
	h := NewHeader(b.cfg.Headers())
	for _, f := range extra {
		h.Set(f.Name, f.Value)
	}
	h.Set("Content-Length", strconv.Itoa(len(body)))

	return &Response{
		Version: "HTTP/" + b.cfg.HTTPVersion(),
		Status:  status,
		Phrase:  config.Reason(status),
		Headers: h,
		Body:    body,
	}
}

// Error builds a response whose body is the canned "<h1>code reason</h1>".
func (b *ResponseBuilder) Error(status int) *Response {
	body := fmt.Sprintf("<h1>%d %s</h1>", status, config.Reason(status))
	return b.New(status, []byte(body))
}

// WriteResponse writes res to w in wire format. The body is copied byte
// for byte.
func WriteResponse(w io.Writer, res *Response) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s %d %s\r\n", res.Version, res.Status, res.Phrase)
	if res.Headers != nil {
		for _, f := range res.Headers.Fields() {
			fmt.Fprintf(bw, "%s: %s\r\n", f.Name, f.Value)
		}
	}
	bw.WriteString("\r\n")
	bw.Write(res.Body)

	return bw.Flush()
}

// Bytes returns the serialized response.
func (res *Response) Bytes() []byte {
	var buf bytes.Buffer
	WriteResponse(&buf, res)
	return buf.Bytes()
}
