package common

import (
	"errors"
	"fmt"
	"net"
	"runtime"
	"strconv"
	"strings"
)

const (
	// MinServicePort is the first port a service may bind, ports up to 1024 are privileged
	MinServicePort = 1025
	MaxPort        = 65535

	DefaultMaxConn           = 10
	DefaultIdleTimeoutSecond = 15
)

var (
	// ErrInvalidPort is returned by Validate for ports outside the allowed range
	ErrInvalidPort = errors.New("invalid port")
	// ErrInvalidConfig is returned by Validate for negative limits or missing fields
	ErrInvalidConfig = errors.New("invalid config")
)

// --------------------------------------------------------------------------
// TCP socket options
// --------------------------------------------------------------------------

// TCPConf holds socket options applied to every accepted or dialed connection
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int // 0 keeps the OS default, < 0 discards unsent data on close (RST)
	WriteBufferSize int // 0 keeps the OS default
	ReadBufferSize  int // 0 keeps the OS default
}

// DefaultTCPConf returns the socket options used when nothing is configured
func DefaultTCPConf() TCPConf {
	return TCPConf{
		TCPNoDelay:      true,
		TCPKeepAliveSec: 30,
	}
}

func (c *TCPConf) addFields(addField func(name, value string)) {
	addField("TCP No Delay", strconv.FormatBool(c.TCPNoDelay))
	addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.TCPKeepAliveSec))
	switch {
	case c.TCPLingerSec == 0:
		addField("TCP Linger", "os default")
	case c.TCPLingerSec < 0:
		addField("TCP Linger", "discard (reset on close)")
	default:
		addField("TCP Linger", fmt.Sprintf("%d sec", c.TCPLingerSec))
	}
	addField("Read Buffer Size", bufferSize(c.ReadBufferSize))
	addField("Write Buffer Size", bufferSize(c.WriteBufferSize))
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of a service listener.
type ServerConfig struct {
	// Address is the bind address, "" or "0.0.0.0" binds all interfaces
	Address string
	// Port is the bind port, 0 lets the OS choose
	Port int

	// MaxConn is the accept backlog
	MaxConn int
	// MaxWorkers bounds the number of concurrently handled connections (0 = number of CPUs)
	MaxWorkers int
	// Exclusive dedicates an OS thread to each worker
	Exclusive bool
	// IdleTimeoutSecond retires idle shared workers
	IdleTimeoutSecond int

	// TimeoutSecond is the read/write deadline per operation (0 = none)
	TimeoutSecond int

	TCPConf TCPConf

	// Logging and metrics
	LogLevel        string
	MetricsEndpoint string
}

// DefaultServerConfig returns a config listening on all interfaces at port
func DefaultServerConfig(port int) ServerConfig {
	return ServerConfig{
		Port:              port,
		MaxConn:           DefaultMaxConn,
		IdleTimeoutSecond: DefaultIdleTimeoutSecond,
		TCPConf:           DefaultTCPConf(),
		LogLevel:          "info",
	}
}

// Endpoint returns the host:port the server binds
func (c *ServerConfig) Endpoint() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

// Workers returns the effective number of workers
func (c *ServerConfig) Workers() int {
	if c.MaxWorkers <= 0 {
		return runtime.NumCPU()
	}
	return c.MaxWorkers
}

// Backlog returns the effective accept backlog
func (c *ServerConfig) Backlog() int {
	if c.MaxConn <= 0 {
		return DefaultMaxConn
	}
	return c.MaxConn
}

// Validate checks the port range and limits. Port 0 is accepted and binds an ephemeral port.
func (c *ServerConfig) Validate() error {
	if c.Port != 0 && (c.Port < MinServicePort || c.Port > MaxPort) {
		return fmt.Errorf("%w: %d (must be 0 or in [%d, %d])", ErrInvalidPort, c.Port, MinServicePort, MaxPort)
	}
	if c.MaxConn < 0 {
		return fmt.Errorf("%w: negative max connections %d", ErrInvalidConfig, c.MaxConn)
	}
	if c.MaxWorkers < 0 {
		return fmt.Errorf("%w: negative max workers %d", ErrInvalidConfig, c.MaxWorkers)
	}
	if c.TimeoutSecond < 0 || c.IdleTimeoutSecond < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Server")
	addField("Endpoint", c.Endpoint())
	addField("Backlog", strconv.Itoa(c.Backlog()))
	addField("Timeout", timeout(c.TimeoutSecond))

	addSection("Workers")
	addField("Max Workers", strconv.Itoa(c.Workers()))
	addField("Exclusive", strconv.FormatBool(c.Exclusive))
	if !c.Exclusive {
		addField("Idle Timeout", fmt.Sprintf("%d sec", c.IdleTimeoutSecond))
	}

	addSection("Socket")
	c.TCPConf.addFields(addField)

	addSection("Logging")
	addField("Log Level", c.LogLevel)
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig describes one remote endpoint
type ClientConfig struct {
	Host string
	Port int

	// TimeoutSecond bounds connect and every read/write (0 = none)
	TimeoutSecond int

	TCPConf TCPConf
}

// DefaultClientConfig returns a config for host:port without timeout
func DefaultClientConfig(host string, port int) ClientConfig {
	return ClientConfig{
		Host:    host,
		Port:    port,
		TCPConf: DefaultTCPConf(),
	}
}

// Endpoint returns the host:port the client dials
func (c *ClientConfig) Endpoint() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks host and port
func (c *ClientConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: empty host", ErrInvalidConfig)
	}
	if c.Port < 1 || c.Port > MaxPort {
		return fmt.Errorf("%w: %d (must be in [1, %d])", ErrInvalidPort, c.Port, MaxPort)
	}
	if c.TimeoutSecond < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	return nil
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint())
	addField("Timeout", timeout(c.TimeoutSecond))

	addSection("Socket")
	c.TCPConf.addFields(addField)

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func timeout(sec int) string {
	if sec <= 0 {
		return "none"
	}
	return fmt.Sprintf("%d sec", sec)
}

func bufferSize(size int) string {
	if size <= 0 {
		return "os default"
	}
	return fmt.Sprintf("%d bytes", size)
}
