package udp

import (
	"context"
	"net"
)

// Dialer acquires an outbound UDP socket connected to a remote address.
//
// The socket is send-only from the caller's perspective; nothing in this
// package reads from it.
type Dialer interface {
	Dial(ctx context.Context, ifaceName string, localAddr, remoteAddr *net.UDPAddr) (*net.UDPConn, error)
}
