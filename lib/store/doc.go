// Package store provides a high-level interface for string key-value operations
// with expiration, conditional writes, range addressing, bit manipulation, and
// unified error handling. It serves as an abstraction layer over the lower-level
// db.StringDB implementations and is the collaborator boundary of the pipeline:
// one method call per command, the output value and an error per call.
//
// The package focuses on:
//   - A unified interface (IStringStore) for string commands across different backends
//   - Pluggable storage backend architecture through the DBFactory pattern
//
// Key Components:
//
//   - IStringStore Interface: The core abstraction defining one operation per
//     command (SET family, GET family, MGET/MSET, APPEND, ranges, bits, BITOP,
//     STRLEN, INFO). All implementations share this common interface, allowing
//     applications to switch between different backends without code changes.
//     Every method takes the invocation context and a command value built by
//     the lib/command package.
//
//   - Error System: A structured error reporting mechanism using typed return
//     codes (RetCode) and descriptive messages. IsConnectionError separates
//     per-command failures from connection-level failures, which is how the
//     pipeline decides between a failed envelope and early termination.
//
//   - DBFactory: A function type that abstracts the creation of underlying
//     db.StringDB instances, providing dependency injection and flexible
//     configuration of storage backends.
//
// Implementations:
//
//	The package includes two implementations of the IStringStore interface:
//
//	- Local Store (lstore): executes commands directly against an injected
//	  db.StringDB instance. Suitable for single-process use and as the
//	  server-side executor behind the RPC layer.
//	  Available in the "github.com/strandkv/strand/lib/store/lstore" package.
//
//	- RPC Client Store (rpc/client): forwards commands to a remote server
//	  over a pluggable transport and serializer, rebuilding typed errors and
//	  value presence from the response messages.
//	  Available in the "github.com/strandkv/strand/rpc/client" package.
//
// This interface-driven approach allows applications to:
//   - Switch between local and remote execution depending on deployment requirements
//   - Handle errors in a consistent and type-safe manner across implementations
//   - Abstract storage implementation details from application logic
package store
