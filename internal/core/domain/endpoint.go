package domain

import (
	"net"
	"strconv"
)

const (
	StatusStringHealthy   = "healthy"
	StatusStringUnhealthy = "unhealthy"
)

// Endpoint identifies a candidate backend instance. Two endpoints are the
// same endpoint when host and port match, so it's used directly as a map key.
type Endpoint struct {
	Host string
	Port int
}

func NewEndpoint(host string, port int) Endpoint {
	return Endpoint{Host: host, Port: port}
}

// ParseEndpoint accepts host:port, the reverse of String
func ParseEndpoint(address string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return Endpoint{}, NewEndpointError("parse", address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Endpoint{}, NewEndpointError("parse", address, err)
	}
	return Endpoint{Host: host, Port: port}, nil
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) IsZero() bool {
	return e.Host == "" && e.Port == 0
}

// HealthString is used by logs and metrics labels
func HealthString(healthy bool) string {
	if healthy {
		return StatusStringHealthy
	}
	return StatusStringUnhealthy
}

// SelectionStrategy picks one endpoint out of the currently healthy set.
// Implementations must not assume the slice keeps its order between calls
// beyond what they impose themselves.
type SelectionStrategy interface {
	Select(endpoints []Endpoint) (Endpoint, bool)
	Name() string
}
