// Package kcp implements a transport layer for the string key-value store's
// RPC system using KCP, a reliable stream protocol on top of UDP. It trades
// some bandwidth for lower and more predictable latency on lossy links, where
// TCP's congestion handling causes long tail latencies.
//
// This package extends the base transport layer with KCP-specific connectors
// while inheriting all core functionality like connection pooling, request
// routing, and error handling from the base package.
//
// Key Components:
//
//   - clientConnector: Establishes KCP sessions to remote endpoints
//
//   - serverConnector: Creates KCP listeners and accepts sessions
//
// The sessions always run in stream mode since the frame protocol delimits
// messages itself. The TCPNoDelay configuration flag selects between the
// aggressive retransmission profile (lower latency, more redundant traffic)
// and the normal one.
package kcp
