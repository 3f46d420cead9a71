package config

// Status codes the server can emit.
const (
	StatusOK             = 200
	StatusBadRequest     = 400
	StatusForbidden      = 403
	StatusNotFound       = 404
	StatusNotImplemented = 501
)

var reasons = map[int]string{
	StatusOK:             "OK",
	StatusBadRequest:     "Bad Request",
	StatusForbidden:      "Forbidden",
	StatusNotFound:       "Not Found",
	StatusNotImplemented: "Not Implemented",
}

// Reason returns the reason phrase for code.
// Asking for a code outside the table is a programming error and panics.
func Reason(code int) string {
	r, ok := reasons[code]
	if !ok {
		panic("config: unknown status code")
	}
	return r
}

