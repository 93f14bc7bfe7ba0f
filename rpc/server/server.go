package server

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/ValentinKolb/climastro/rpc/serializer"
	"github.com/ValentinKolb/climastro/rpc/transport/base"
	"github.com/ValentinKolb/climastro/rpc/transport/tcp"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"os/signal"
	"runtime"
	"syscall"
)

var Logger = logger.GetLogger("server")

// NewServiceServer creates a TCP server that hands every accepted connection to service
//
// Usage:
//
//	s := server.NewServiceServer(config, server.NewEchoService())
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewServiceServer(config common.ServerConfig, service IService) *base.Server[IService] {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	Logger.Infof("Created %s service", service.Name())
	Logger.Infof("%s", config.String())

	return tcp.NewServer[IService](config, handleService, service)
}

// handleService is the transport.HandleFunc of every service server
func handleService(conn net.Conn, service IService) error {
	return service.Handle(conn)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// serviceMetrics counts the requests of one service
type serviceMetrics struct {
	requests *metrics.Counter
	invalid  *metrics.Counter
}

func newServiceMetrics(name string) serviceMetrics {
	label := fmt.Sprintf(`{service=%q}`, name)
	return serviceMetrics{
		requests: metrics.GetOrCreateCounter("climastro_service_requests_total" + label),
		invalid:  metrics.GetOrCreateCounter("climastro_service_invalid_requests_total" + label),
	}
}

// readRequest performs the single read of a length-implied request of at most max bytes
func readRequest(conn net.Conn, max int) ([]byte, error) {
	buf := make([]byte, max)
	n, err := conn.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}
	return nil, fmt.Errorf("failed to read request: empty read")
}

// writeResponse serializes msg and writes it to conn
func writeResponse(conn net.Conn, s serializer.IRPCSerializer, msg any) error {
	data, err := s.Serialize(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize response: %w", err)
	}
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}
	return nil
}
