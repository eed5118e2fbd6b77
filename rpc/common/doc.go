// Package common provides core data structures and utilities shared across
// the strand RPC system. It defines fundamental types, configuration
// structures, and protocol elements used by other packages.
//
// The package focuses on:
//   - Message protocol definition for client/server communication
//   - Configuration structures for client and server components
//   - Custom logging implementation with named per-package loggers
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication, with a
//     flexible field set that adapts to the different string operations.
//     Includes factory methods for creating every request and response
//     message, and helpers that fold typed store errors into the wire
//     representation and rebuild them on the receiving side.
//
//   - MessageType: Enumeration defining all supported operation types in
//     the system, categorized into write, read, range, and bit operations
//     plus control messages.
//
//   - ServerConfig: Configuration for the server, including transport
//     settings, hosted database count, storage engine selection, and the
//     optional ops endpoint.
//
//   - ClientConfig: Configuration for client components, controlling
//     connection parameters, timeouts, and retry behavior.
//
//   - Logger: Custom logging implementation with consistent formatting
//     across the application, installed as the global logger factory.
package common
