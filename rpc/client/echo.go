package client

import (
	"fmt"
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/ValentinKolb/climastro/rpc/transport/base"
	"github.com/ValentinKolb/climastro/rpc/transport/tcp"
	"io"
	"net"
)

// ExitCommand ends an echo session
const ExitCommand = "salir"

// EchoClient sends messages to the echo service
type EchoClient struct {
	connector *base.Connector[[]string, []string]
}

// NewEchoClient creates a client for the echo service at config's endpoint
func NewEchoClient(config common.ClientConfig) *EchoClient {
	return &EchoClient{connector: tcp.NewConnector[[]string, []string](config)}
}

// Echo sends every message on one connection, collects the echoes and ends the session
// with ExitCommand
func (c *EchoClient) Echo(messages ...string) ([]string, error) {
	return c.connector.RunSync(c.session, messages)
}

func (c *EchoClient) session(conn net.Conn, messages []string) ([]string, error) {
	echoes := make([]string, 0, len(messages))

	for _, msg := range append(messages[:len(messages):len(messages)], ExitCommand) {
		if len(msg) == 0 {
			continue
		}
		if _, err := conn.Write([]byte(msg)); err != nil {
			return echoes, fmt.Errorf("failed to send %q: %w", msg, err)
		}

		buf := make([]byte, len(msg))
		if _, err := io.ReadFull(conn, buf); err != nil {
			return echoes, fmt.Errorf("failed to read echo of %q: %w", msg, err)
		}

		if msg != ExitCommand {
			echoes = append(echoes, string(buf))
		}
	}

	return echoes, nil
}
