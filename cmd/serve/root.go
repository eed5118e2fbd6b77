package serve

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdUtil "github.com/strandkv/strand/cmd/util"
	"github.com/strandkv/strand/rpc/common"
	"github.com/strandkv/strand/rpc/serializer"
	"github.com/strandkv/strand/rpc/server"
	"github.com/strandkv/strand/rpc/transport"
	"github.com/strandkv/strand/rpc/transport/http"
	"github.com/strandkv/strand/rpc/transport/kcp"
	"github.com/strandkv/strand/rpc/transport/tcp"
	"github.com/strandkv/strand/rpc/transport/unix"
)

var (
	serveCmdConfig = common.ServerConfig{}

	// ServeCmd represents the serve command
	ServeCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the strand server",
		Long: cmdUtil.WrapString(
			`Start the strand server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is STRAND_<flag-name> (e.g. STRAND_ENDPOINT=localhost:9000)`,
		),
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address the server listens on (host:port, or a socket path for the unix transport)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int(key, 5, cmdUtil.WrapString("Timeout in seconds for handling a single request (0 disables)"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("Maximum number of requests processed concurrently per connection"))

	key = "buffer-size"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The size of the per-connection message buffer (in KB, 0 for the transport default)"))

	key = "databases"
	ServeCmd.PersistentFlags().Uint64(key, 1, cmdUtil.WrapString("Number of databases the server hosts, addressed by index starting at 0"))

	key = "engine"
	ServeCmd.PersistentFlags().String(key, "sisal", cmdUtil.WrapString("Storage engine backing each database: sisal (in-memory) or bolt (persistent)"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("Directory for database files (bolt engine only)"))

	key = "ops-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address serving prometheus metrics and pprof (e.g. localhost:6060, empty disables)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("The level at which logs are written (debug, info, warn, error)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY (tcp transport)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval in seconds (tcp transport, 0 disables)"))

	key = "tcp-linger"
	ServeCmd.PersistentFlags().Int(key, -1, cmdUtil.WrapString("The linger time in seconds on close (tcp transport, negative for the OS default)"))

	key = "read-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The size of the socket read buffer (in KB, 0 for the OS default)"))

	key = "write-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The size of the socket write buffer (in KB, 0 for the OS default)"))
}

func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("strand")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt("timeout")
	serveCmdConfig.WorkersPerConn = viper.GetInt("workers-per-conn")
	serveCmdConfig.BufferSize = viper.GetInt("buffer-size") * 1024
	serveCmdConfig.Databases = viper.GetUint64("databases")
	serveCmdConfig.Engine = viper.GetString("engine")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.OpsEndpoint = viper.GetString("ops-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.TCPNoDelay = viper.GetBool("tcp-nodelay")
	serveCmdConfig.TCPKeepAliveSec = viper.GetInt("tcp-keepalive")
	serveCmdConfig.TCPLingerSec = viper.GetInt("tcp-linger")
	serveCmdConfig.ReadBufferSize = viper.GetInt("read-buffer") * 1024
	serveCmdConfig.WriteBufferSize = viper.GetInt("write-buffer") * 1024

	return nil
}

func run(_ *cobra.Command, _ []string) error {
	var s serializer.IRPCSerializer
	switch name := viper.GetString("serializer"); name {
	case "json":
		s = serializer.NewJSONSerializer()
	case "gob":
		s = serializer.NewGOBSerializer()
	case "binary":
		s = serializer.NewBinarySerializer()
	default:
		return fmt.Errorf("unknown serializer: %s", name)
	}

	var t transport.IRPCServerTransport
	switch name := viper.GetString("transport"); name {
	case "http":
		t = http.NewHttpServerTransport()
	case "tcp":
		t = tcp.NewTCPServerTransport()
	case "unix":
		t = unix.NewUnixServerTransport()
	case "kcp":
		t = kcp.NewKCPServerTransport()
	default:
		return fmt.Errorf("unknown transport: %s", name)
	}

	rpcServer := server.NewRPCServer(serveCmdConfig, t, s)
	return rpcServer.Serve()
}
