// Package server implements the RPC server for the strand key-value store.
// It provides the adapter translating wire messages into string store
// operations, along with the core server implementation that manages the
// hosted databases and request routing.
//
// The package focuses on:
//   - Server-side RPC request handling for the full string command set
//   - Adapter pattern to decouple store logic from RPC mechanisms
//   - Hosting any number of independent databases, addressed by index
//   - Pluggable storage engines (in-memory sisal, persistent bolt)
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server
//     adapters, with the Handle method that processes incoming requests
//     against a store.IStringStore.
//
//   - NewStringStoreServerAdapter: Factory function creating an adapter for
//     string store operations. It rebuilds the typed command values from the
//     wire fields and answers construction failures with invalid argument
//     errors, so malformed requests never reach the store.
//
//   - NewRPCServer: Factory function creating a configured server with the
//     specified transport and serializer mechanisms.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  Endpoint:      "0.0.0.0:8080",
//	  TimeoutSecond: 5,
//	  Databases:     2,
//	  Engine:        "sisal",
//	  LogLevel:      "info",
//	}
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	// Start the server
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// The server hosts Databases independent databases, addressed by the
// database ID carried in every request frame. Each database is backed by
// its own engine instance:
//
//   - "sisal": the in-memory engine. Data lives for the lifetime of the
//     process. Suitable for caching workloads and tests.
//
//   - "bolt": the persistent engine. Each database is stored in its own
//     file ("strand-<id>.db") under DataDir, which must be configured.
//
// When OpsEndpoint is configured, the server additionally exposes
// prometheus metrics under /metrics (request, error and latency series per
// operation) and the standard pprof handlers under /debug/pprof/ on that
// address.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent
//	requests across multiple connections. Each request is processed
//	independently. The Serve method is not thread-safe and should be
//	called only once.
package server
