package httpd

import (
	"github.com/runocan/basic-server/config"
)

// Header is an ordered set of response headers. Names are case-sensitive
// and unique; setting an existing name replaces its value in place.
type Header struct {
	fields []config.Header
}

// NewHeader starts a header set from base, in base order.
func NewHeader(base []config.Header) *Header {
	h := &Header{}
	for _, f := range base {
		h.Set(f.Name, f.Value)
	}
	return h
}

// Set replaces the value of name, or appends it if not present.
func (h *Header) Set(name, value string) {
	for i := range h.fields {
		if h.fields[i].Name == name {
			h.fields[i].Value = value
			return
		}
	}
	h.fields = append(h.fields, config.Header{Name: name, Value: value})
}

// Fields returns the headers in order.
func (h *Header) Fields() []config.Header {
	return h.fields
}
