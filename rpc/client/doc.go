// Package client implements the RPC client for the string key-value store
// system. It provides an implementation of the store.IStringStore interface
// that communicates with remote servers via RPC.
//
// The package focuses on:
//   - Transparent RPC access to a remote string store
//   - Integration with the transport and serialization layers
//   - Error handling and conversion between RPC and domain errors
//
// Key Components:
//
//   - NewRPCStringStore: Factory function that creates a client implementing the
//     store.IStringStore interface. This client forwards all operations to remote
//     servers via the configured transport layer. Per-command failures come back
//     with their original return codes, transport and protocol failures carry
//     RetCConnection so store.IsConnectionError can classify them.
//
// Usage Example:
//
//	// Configure the client
//	config := common.ClientConfig{
//	  Endpoints:              []string{"localhost:5000"},
//	  TimeoutSecond:          5,
//	  RetryCount:             3,
//	  ConnectionsPerEndpoint: 1,
//	}
//
//	// Create a serializer
//	serializer := serializer.NewBinarySerializer()
//
//	// Create the store client for database 0
//	str, _ := client.NewRPCStringStore(0, config, tcp.NewTCPClientTransport(), serializer)
//
//	// Use the store
//	cmd, _ := command.Set([]byte("mykey"))
//	cmd, _ = cmd.WithValue([]byte("myvalue"))
//	ok, _ := str.Set(ctx, cmd)
//
//	// Read it back
//	get, _ := command.NewKey([]byte("mykey"))
//	value, _ := str.Get(ctx, get)
//
// The client is the usual remote collaborator behind a pipeliner.Pipeliner,
// which overlaps many in-flight commands over the shared connections.
//
// Performance Considerations:
//
//   - For applications that frequently send large payloads, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - For small messages, a single connection per endpoint is often more efficient due to
//     reduced connection overhead.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	The client implementation is thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
