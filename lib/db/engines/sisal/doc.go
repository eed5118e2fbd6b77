// Package sisal provides an in-memory implementation of the db.StringDB
// interface, designed for high concurrency and low-latency access with
// real-time key expiration.
//
// Architecture:
//
// The database divides the key space into a power-of-two number of
// shards. A seeded FNV-1a hash assigns keys to shards, so the placement
// differs between instances and cannot be provoked from outside. Each
// shard owns a plain map guarded by a read-write mutex; all single-key
// operations (Set, SetCond, Update, Expire, Delete, Get, Has) touch
// exactly one shard and contend only with operations on the same shard.
//
// Expiration:
//
//  1. Writes that add, move, or remove a deadline publish an event to a
//     lock-free MPSC queue (util.LockFreeMPSC), keeping the write path
//     free of any shared timer structure.
//  2. A single collector goroutine consumes these events into a
//     deadline-ordered heap with key access (util.ExpiryHeap) and sleeps
//     until the earliest deadline.
//  3. When a deadline fires, the collector re-checks the entry under its
//     shard lock before dropping it; heap deadlines are advisory, the
//     entry's own expiration field is authoritative. Readers apply the
//     same check, so expired entries are invisible the moment their
//     deadline passes, not when the collector gets to them.
//
// Persistence:
//
// Save streams all live entries in a compact binary format (magic,
// version, length-prefixed key and value, absolute deadline); Load
// replaces the database state and skips entries that expired while the
// snapshot was at rest.
//
// The package reports shard distribution quality and value size
// statistics through GetInfo, using the histogram utilities of lib/db/util.
package sisal
