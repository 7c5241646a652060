package health

import (
	"context"
	"net"
)

// NewTCPCheck passes when a TCP connection to address can be opened
func NewTCPCheck(address string) *Check {
	var dialer net.Dialer
	probe := func(ctx context.Context) (bool, error) {
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return false, err
		}
		_ = conn.Close()
		return true, nil
	}
	return NewCheck("tcp "+address, probe)
}
