// Package util provides utility components for
// database implementations that satisfy the db.StringDB interface.
//
// The package contains:
//   - hash: A seeded FNV-1a string hash for shard selection
//   - expiryheap: A deadline-ordered priority queue with key-based access,
//     used by garbage collectors to schedule and cancel key expirations
//   - lockfreempsc: A lock-free Multi-Producer Single-Consumer (MPSC) queue
//     built for high throughput and low latency
//   - statistics: Tools for analyzing value size and shard distribution
//
// This package is particularly useful for:
//   - Database developers implementing the StringDB interface
//   - Implementation of garbage collection or other priority queue systems
//   - Monitoring systems that need to track database size and distribution metrics
package util
