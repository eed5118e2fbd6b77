package kcp

import (
	"fmt"
	"net"

	"github.com/strandkv/strand/rpc/common"
	"github.com/strandkv/strand/rpc/transport"
	"github.com/strandkv/strand/rpc/transport/base"
	"github.com/xtaci/kcp-go/v5"
)

const (
	defaultBufferSize = 64 * 1024 // 64 KB
)

// serverConnector implements the IServerConnector interface for KCP sessions
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "kcp"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	listener, err := kcp.Listen(config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create KCP listener: %v", err)
	}

	// Accepted sessions share the listener's UDP socket, so the socket
	// buffers are set on the listener instead of per connection
	if kcpListener, ok := listener.(*kcp.Listener); ok {
		if config.ReadBufferSize > 0 {
			if err := kcpListener.SetReadBuffer(config.ReadBufferSize); err != nil {
				return nil, err
			}
		}
		if config.WriteBufferSize > 0 {
			if err := kcpListener.SetWriteBuffer(config.WriteBufferSize); err != nil {
				return nil, err
			}
		}
	}

	return listener, nil
}

// UpgradeConnection tunes an accepted KCP session, mirroring the client side
func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.ServerConfig) error {
	sess, ok := conn.(*kcp.UDPSession)
	if !ok {
		return nil // Not a KCP session, nothing to upgrade
	}

	sess.SetStreamMode(true)
	sess.SetWriteDelay(false)
	sess.SetWindowSize(1024, 1024)

	if config.TCPNoDelay {
		sess.SetNoDelay(1, 10, 2, 1)
	} else {
		sess.SetNoDelay(0, 40, 0, 0)
	}

	return nil
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewKCPServerTransport creates a new KCP server transport
func NewKCPServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, defaultBufferSize)
}
