package tcp

import (
	"errors"
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/ValentinKolb/climastro/rpc/transport"
	"github.com/ValentinKolb/climastro/rpc/transport/base"
	"net"
	"os"
	"time"
)

// clientConnector implements the IClientConnector interface for TCP sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Connect(config common.ClientConfig) (net.Conn, error) {
	dialer := net.Dialer{}
	if config.TimeoutSecond > 0 {
		dialer.Timeout = time.Duration(config.TimeoutSecond) * time.Second
	}

	conn, err := dialer.Dial("tcp", config.Endpoint())
	if err != nil {
		return nil, transport.NewError(dialStep(err), config.Endpoint(), err)
	}
	return conn, nil
}

func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	return upgradeConnection(conn, config.TCPConf)
}

// dialStep classifies a dial error by the syscall that failed. Only a failing socket()
// is a creation error, everything else (resolution, refused, unreachable, timeout)
// counts as a failed connect.
func dialStep(err error) transport.Step {
	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) && sysErr.Syscall == "socket" {
		return transport.CreateFailed
	}
	return transport.ConnectFailed
}

// --------------------------------------------------------------------------
// Client Factory Method
// --------------------------------------------------------------------------

// NewConnector creates a TCP connector for the endpoint of config
func NewConnector[D, R any](config common.ClientConfig) *base.Connector[D, R] {
	return base.NewConnector[D, R](&clientConnector{}, config)
}
