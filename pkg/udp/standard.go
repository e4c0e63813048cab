package udp

import (
	"context"
	"fmt"
	"net"
)

// StandardDialer connects a UDP socket using the OS default routing. If an
// interface name is given it must exist; the local address, if given, pins
// the source address of every datagram sent on the socket.
type StandardDialer struct {
}

func NewStandardDialer() *StandardDialer {
	return &StandardDialer{}
}

func (d *StandardDialer) Dial(ctx context.Context, ifaceName string, localAddr, remoteAddr *net.UDPAddr) (*net.UDPConn, error) {
	if ifaceName != "" {
		_, err := net.InterfaceByName(ifaceName)
		if err != nil {
			return nil, fmt.Errorf("failed to dial: %w", err)
		}
	}
	if remoteAddr == nil {
		return nil, fmt.Errorf("failed to dial: remote address is required")
	}
	dialer := net.Dialer{
		LocalAddr: localAddr,
	}
	conn, err := dialer.DialContext(ctx, "udp", remoteAddr.String())
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	return conn.(*net.UDPConn), nil
}
