package util

import (
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. CLIMASTRO_PORT)
	EnvPrefix = "climastro"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads the env files and binds environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Server flags
// --------------------------------------------------------------------------

// SetupServerFlags adds the listener and worker flags to a serve command
func SetupServerFlags(cmd *cobra.Command, defaultPort int) {
	key := "addr"
	cmd.Flags().String(key, "0.0.0.0", WrapString("The address on which the service listens"))

	key = "port"
	cmd.Flags().Int(key, defaultPort, WrapString("The port on which the service listens (0 or 1025-65535)"))

	key = "max-conn"
	cmd.Flags().Int(key, common.DefaultMaxConn, WrapString("The accept backlog of the listener"))

	key = "max-workers"
	cmd.Flags().Int(key, 0, WrapString("Maximum number of connections handled at the same time (0 = number of CPUs)"))

	key = "exclusive"
	cmd.Flags().Bool(key, false, WrapString("Dedicate an OS thread to each worker instead of sharing workers between connections"))

	key = "idle-timeout"
	cmd.Flags().Int(key, common.DefaultIdleTimeoutSecond, WrapString("Seconds after which an idle shared worker is retired"))

	key = "timeout"
	cmd.Flags().Int(key, 0, WrapString("Read/write deadline per operation in seconds (0 = none)"))

	key = "metrics-endpoint"
	cmd.Flags().String(key, "", WrapString("Serve Prometheus metrics over HTTP on this address (e.g. localhost:9100), disabled if empty"))

	setupTCPFlags(cmd)
}

// GetServerConfig reads the server configuration from viper
func GetServerConfig() common.ServerConfig {
	return common.ServerConfig{
		Address:           viper.GetString("addr"),
		Port:              viper.GetInt("port"),
		MaxConn:           viper.GetInt("max-conn"),
		MaxWorkers:        viper.GetInt("max-workers"),
		Exclusive:         viper.GetBool("exclusive"),
		IdleTimeoutSecond: viper.GetInt("idle-timeout"),
		TimeoutSecond:     viper.GetInt("timeout"),
		TCPConf:           getTCPConf(),
		LogLevel:          viper.GetString("log-level"),
		MetricsEndpoint:   viper.GetString("metrics-endpoint"),
	}
}

// --------------------------------------------------------------------------
// Client flags
// --------------------------------------------------------------------------

// SetupClientFlags adds the connection flags of a remote service to a command. All flag
// names are prefixed with prefix (e.g. "weather-" for "weather-host")
func SetupClientFlags(cmd *cobra.Command, prefix string, defaultPort int) {
	key := prefix + "host"
	cmd.Flags().String(key, "localhost", WrapString("The host of the service"))

	key = prefix + "port"
	cmd.Flags().Int(key, defaultPort, WrapString("The port of the service"))
}

// GetClientConfig reads the configuration of the remote service registered with prefix
func GetClientConfig(prefix string) common.ClientConfig {
	return common.ClientConfig{
		Host:          viper.GetString(prefix + "host"),
		Port:          viper.GetInt(prefix + "port"),
		TimeoutSecond: viper.GetInt("timeout"),
		TCPConf:       getTCPConf(),
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func setupTCPFlags(cmd *cobra.Command) {
	key := "tcp-nodelay"
	cmd.Flags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY"))

	key = "tcp-keepalive"
	cmd.Flags().Int(key, 30, WrapString("The keepalive interval in seconds"))

	key = "tcp-linger"
	cmd.Flags().Int(key, 0, WrapString("The linger time in seconds (0 = os default, -1 = reset the connection on close)"))

	key = "write-buffer"
	cmd.Flags().Int(key, 0, WrapString("The size of the socket write buffer in KB (0 = os default)"))

	key = "read-buffer"
	cmd.Flags().Int(key, 0, WrapString("The size of the socket read buffer in KB (0 = os default)"))
}

func getTCPConf() common.TCPConf {
	return common.TCPConf{
		TCPNoDelay:      viper.GetBool("tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("tcp-linger"),
		WriteBufferSize: viper.GetInt("write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
	}
}

// SetupConnectionFlags adds the timeout and socket flags read by GetClientConfig
func SetupConnectionFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.Flags().Int(key, 10, WrapString("The timeout in seconds of connect and every read/write (0 = none)"))

	setupTCPFlags(cmd)
}
