//go:build !unix

package tcp

import (
	"net"
)

// Listen binds addr. The backlog is left to the platform here.
func Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
