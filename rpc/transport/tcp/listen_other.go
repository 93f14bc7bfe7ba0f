//go:build !linux

package tcp

import (
	"context"
	"errors"
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/ValentinKolb/climastro/rpc/transport"
	"net"
	"os"
)

// listen uses the standard listener, the backlog is the OS default on these platforms
func listen(config common.ServerConfig) (net.Listener, error) {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "tcp", config.Endpoint())
	if err != nil {
		return nil, transport.NewError(listenStep(err), config.Endpoint(), err)
	}
	return listener, nil
}

func listenStep(err error) transport.Step {
	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) {
		switch sysErr.Syscall {
		case "socket", "setsockopt":
			return transport.CreateFailed
		case "listen":
			return transport.ListenFailed
		}
	}
	return transport.BindFailed
}
