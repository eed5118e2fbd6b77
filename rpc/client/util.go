package client

import (
	"context"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/strandkv/strand/lib/store"
	"github.com/strandkv/strand/rpc/common"
	"github.com/strandkv/strand/rpc/serializer"
	"github.com/strandkv/strand/rpc/transport"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
// Used by the RPCStringStore with composition pattern
type rpcClientAdapter struct {
	dbID       uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest is a helper function used for all RPC clients to send requests
// It takes a context, a database ID, a request message, a transport layer and a serializer
// It returns a response message and an error if any occurs
// This method also checks if the response is an error response and if the type of the response is the expected type
//
// Errors are typed: transport and protocol failures carry RetCConnection so
// callers (and the pipeline) can tell them apart from per-command failures,
// which are rebuilt from the response's error fields with their original code.
func invokeRPCRequest(
	ctx context.Context,
	dbID uint64,
	req *common.Message,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*common.Message, error) {
	// Don't dispatch on a dead context
	if err := ctx.Err(); err != nil {
		return nil, store.NewErrorf(store.RetCConnection, "invocation cancelled: %v", err)
	}

	// Serialize the request
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, store.NewErrorf(store.RetCInternalError, "failed to serialize request: %v", err)
	}

	// Send the request
	respBytes, err := transport.Send(dbID, reqBytes)
	if err != nil {
		return nil, store.NewErrorf(store.RetCConnection, "transport: %v", err)
	}

	// Deserialize the response
	resp := &common.Message{}
	if err = serializer.Deserialize(respBytes, resp); err != nil {
		return nil, store.NewErrorf(store.RetCConnection, "failed to deserialize response: %v", err)
	}

	// Check if the response is an error response
	if err := resp.Error(); err != nil {
		return nil, err
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, store.NewErrorf(store.RetCConnection,
			"unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	// Return the response
	return resp, nil
}

// stringKeys converts command key slices to the wire representation
func stringKeys(keys [][]byte) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
