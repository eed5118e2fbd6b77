package kcp

import (
	"net"

	"github.com/strandkv/strand/rpc/common"
	"github.com/strandkv/strand/rpc/transport"
	"github.com/strandkv/strand/rpc/transport/base"
	"github.com/xtaci/kcp-go/v5"
)

// clientConnector implements the IClientConnector interface for KCP sessions
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "kcp"
}

func (c *clientConnector) Connect(endpoint string) (net.Conn, error) {
	return kcp.Dial(endpoint)
}

// UpgradeConnection tunes the KCP session. The frame protocol is a byte
// stream, so stream mode is always enabled. The TCPNoDelay flag selects
// between the aggressive and the normal retransmission profile.
func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
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

	// The client session owns its UDP socket, so the socket buffers can be
	// set directly on it
	if config.ReadBufferSize > 0 {
		if err := sess.SetReadBuffer(config.ReadBufferSize); err != nil {
			return err
		}
	}
	if config.WriteBufferSize > 0 {
		if err := sess.SetWriteBuffer(config.WriteBufferSize); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewKCPClientTransport creates a new KCP client transport
func NewKCPClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{})
}
