package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
)

const (
	echoBufferSize = 255
	echoExit       = "salir"
)

// EchoService writes every chunk it reads back to the peer until the peer sends a chunk
// that is exactly "salir" (surrounding whitespace ignored) or closes the connection
type EchoService struct {
	metrics serviceMetrics
}

// NewEchoService creates the echo service
func NewEchoService() *EchoService {
	return &EchoService{metrics: newServiceMetrics("echo")}
}

func (s *EchoService) Name() string {
	return "echo"
}

func (s *EchoService) Handle(conn net.Conn) error {
	buf := make([]byte, echoBufferSize)
	messages := 0

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			s.metrics.requests.Inc()
			messages++
			if _, werr := conn.Write(buf[:n]); werr != nil {
				return fmt.Errorf("failed to send echo: %w", werr)
			}
			if bytes.Equal(bytes.TrimSpace(buf[:n]), []byte(echoExit)) {
				Logger.Debugf("Client %s left after %d messages", conn.RemoteAddr(), messages)
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			Logger.Debugf("Client %s closed after %d messages", conn.RemoteAddr(), messages)
			return nil
		}
		if err != nil {
			return err
		}
	}
}
