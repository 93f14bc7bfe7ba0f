//go:build linux

package tcp

import (
	"fmt"
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/ValentinKolb/climastro/rpc/transport"
	"golang.org/x/sys/unix"
	"net"
	"os"
)

// listen creates the listening socket step by step so the accept backlog is exactly
// config.MaxConn and every failure can be attributed to its step
func listen(config common.ServerConfig) (net.Listener, error) {
	endpoint := config.Endpoint()

	sa, family, err := sockaddr(config)
	if err != nil {
		return nil, transport.NewError(transport.BindFailed, endpoint, err)
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, transport.NewError(transport.CreateFailed, endpoint, os.NewSyscallError("socket", err))
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, transport.NewError(transport.CreateFailed, endpoint, os.NewSyscallError("setsockopt", err))
	}

	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, transport.NewError(transport.BindFailed, endpoint, os.NewSyscallError("bind", err))
	}

	if err := unix.Listen(fd, config.Backlog()); err != nil {
		_ = unix.Close(fd)
		return nil, transport.NewError(transport.ListenFailed, endpoint, os.NewSyscallError("listen", err))
	}

	// FileListener dups the descriptor, the file is closed either way
	f := os.NewFile(uintptr(fd), "tcp:"+endpoint)
	listener, err := net.FileListener(f)
	_ = f.Close()
	if err != nil {
		return nil, transport.NewError(transport.ListenFailed, endpoint, err)
	}

	return listener, nil
}

// sockaddr resolves the bind address. An empty address binds all IPv4 interfaces.
func sockaddr(config common.ServerConfig) (unix.Sockaddr, int, error) {
	addr, err := net.ResolveTCPAddr("tcp", config.Endpoint())
	if err != nil {
		return nil, 0, err
	}

	if addr.IP == nil {
		return &unix.SockaddrInet4{Port: addr.Port}, unix.AF_INET, nil
	}

	if ip4 := addr.IP.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return sa, unix.AF_INET, nil
	}

	if ip6 := addr.IP.To16(); ip6 != nil {
		sa := &unix.SockaddrInet6{Port: addr.Port}
		copy(sa.Addr[:], ip6)
		return sa, unix.AF_INET6, nil
	}

	return nil, 0, fmt.Errorf("unsupported address %q", config.Address)
}
