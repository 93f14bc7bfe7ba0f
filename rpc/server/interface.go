package server

import (
	"net"
)

// IService is the interface for all services. A service handles one accepted
// connection per call and may be called concurrently from several workers.
type IService interface {
	// Name returns the name of the service (e.g., "weather")
	Name() string
	// Handle processes one connection. The caller closes conn afterward.
	Handle(conn net.Conn) error
}
