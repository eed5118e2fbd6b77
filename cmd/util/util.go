package util

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/strandkv/strand/rpc/common"
	"github.com/strandkv/strand/rpc/serializer"
	"github.com/strandkv/strand/rpc/transport"
	"github.com/strandkv/strand/rpc/transport/http"
	"github.com/strandkv/strand/rpc/transport/kcp"
	"github.com/strandkv/strand/rpc/transport/tcp"
	"github.com/strandkv/strand/rpc/transport/unix"
)

// Wrap is the default width for wrapping flag usage strings
const Wrap = 50

// WrapString wraps a string to a default width of Wrap characters
func WrapString(s string) string {
	var result strings.Builder
	var lineLength int

	for _, word := range strings.Fields(s) {
		if lineLength+len(word)+1 > Wrap {
			result.WriteString("\n")
			lineLength = 0
		} else if lineLength > 0 {
			result.WriteString(" ")
			lineLength++
		}
		result.WriteString(word)
		lineLength += len(word)
	}

	return result.String()
}

// SetupRPCClientFlags registers the flags every client command needs to
// reach a server: endpoints, timeouts, retries and socket tuning.
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("Timeout in seconds for a single operation"))

	key = "transport-endpoints"
	cmd.PersistentFlags().String(key, "http://localhost:8080", WrapString("Comma separated list of endpoints to connect to"))

	key = "transport-conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Number of connections per endpoint"))

	key = "transport-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("Number of times an operation is retried before giving up"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the socket write buffer (in KB)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the socket read buffer (in KB)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval in seconds (0 disables)"))
}

// InitClientConfig loads the environment files and binds environment
// variables of the form STRAND_<flag> to the corresponding flags.
func InitClientConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("strand")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// GetClientConfig builds the client configuration from the bound flags.
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		Endpoints:              strings.Split(viper.GetString("transport-endpoints"), ","),
		TimeoutSecond:          viper.GetInt("timeout"),
		RetryCount:             viper.GetInt("transport-retries"),
		ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
		TCPNoDelay:             viper.GetBool("transport-tcp-nodelay"),
		TCPKeepAliveSec:        viper.GetInt("transport-tcp-keepalive"),
		ReadBufferSize:         viper.GetInt("transport-read-buffer") * 1024,
		WriteBufferSize:        viper.GetInt("transport-write-buffer") * 1024,
	}
}

// GetSerializer returns the serializer selected by the --serializer flag.
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch name := viper.GetString("serializer"); name {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	case "binary":
		return serializer.NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("unknown serializer: %s", name)
	}
}

// GetTransport returns the client transport selected by the --transport flag.
func GetTransport() (transport.IRPCClientTransport, error) {
	switch name := viper.GetString("transport"); name {
	case "http":
		return http.NewHttpClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	case "kcp":
		return kcp.NewKCPClientTransport(), nil
	default:
		return nil, fmt.Errorf("unknown transport: %s", name)
	}
}

// GetDatabaseID returns the database index selected by the --database flag.
func GetDatabaseID() uint64 {
	return uint64(viper.GetInt("database"))
}

// BindCommandFlags binds the flags of the given command to viper
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	return nil
}
