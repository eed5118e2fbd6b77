package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for the RPC server.
type ServerConfig struct {
	// Transport settings
	Endpoint       string
	TimeoutSecond  int
	WorkersPerConn int
	BufferSize     int

	// Socket tuning for the tcp and kcp transports
	// (keep-alive and linger only apply to tcp)
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int // negative leaves the OS default
	ReadBufferSize  int
	WriteBufferSize int

	// Databases hosted by the server, addressed by index [0, Databases)
	Databases uint64

	// Storage engine settings
	Engine  string // "sisal" (in-memory) or "bolt" (persistent)
	DataDir string // data directory for persistent engines

	// Ops endpoint serving /metrics and pprof, empty disables it
	OpsEndpoint string

	// Logging configuration
	LogLevel string
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

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Connection", strconv.Itoa(c.WorkersPerConn))
	addField("Buffer Size", fmt.Sprintf("%d bytes", c.BufferSize))

	// Databases
	addSection("Databases")
	addField("Count", strconv.FormatUint(c.Databases, 10))
	addField("Engine", c.Engine)
	if c.DataDir != "" {
		addField("Data Directory", c.DataDir)
	}

	// Ops endpoint
	if c.OpsEndpoint != "" {
		addSection("Ops")
		addField("Endpoint", c.OpsEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters for RPC clients.
type ClientConfig struct {
	Endpoints              []string
	TimeoutSecond          int
	RetryCount             int
	ConnectionsPerEndpoint int

	// Socket tuning for the tcp and kcp transports
	// (keep-alive only applies to tcp)
	TCPNoDelay      bool
	TCPKeepAliveSec int
	ReadBufferSize  int
	WriteBufferSize int
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

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	connectionsPerEP := c.ConnectionsPerEndpoint
	if connectionsPerEP < 1 {
		connectionsPerEP = 1
	}
	addField("Connections Per Endpoint", strconv.Itoa(connectionsPerEP))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
