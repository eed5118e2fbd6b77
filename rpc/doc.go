// Package rpc provides the remote access layer of strand. It carries the
// string store command set between clients and servers across network
// boundaries.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures used across the RPC system, including
//     the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions with pluggable
//     implementations (TCP, Unix sockets, KCP, HTTP).
//
//   - serializer: Message serialization with multiple format options
//     (Binary, JSON, GOB) for converting between Message objects and byte
//     arrays.
//
//   - client: An RPC-backed implementation of the store.IStringStore
//     interface, allowing applications to use a remote database through
//     the same interface as a local one.
//
//   - server: RPC server components that host databases and dispatch
//     incoming requests to them, including the per-operation adapter.
package rpc
