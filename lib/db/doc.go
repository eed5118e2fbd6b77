// Package db provides a standardized interface for string key-value database
// implementations. It defines a StringDB interface that allows for consistent
// interaction with various database backends while abstracting implementation
// details.
//
// The package focuses on:
//   - A unified interface for string key-value operations
//   - Feature discovery through capability flags
//   - Standardized persistence operations
//   - Comprehensive metadata reporting
//
// Key Components:
//
//   - StringDB Interface: The core interface that all database implementations
//     must satisfy. It provides methods for basic operations (Set, Get, Has,
//     Delete), conditional writes (SetCond), atomic read-modify-write (Update),
//     time-based operations (SetX, Expire, GarbageCollect), metadata retrieval
//     (GetDBInfo), and persistence operations (Save, Load).
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     can advertise through the SupportsFeature method. This allows clients to
//     discover supported operations at runtime.
//
//   - Implementation Identifiers: The Implementation type provides string constants
//     for the built-in database backends ("sisal", "bolt").
//
//   - Database Information: The DatabaseInfo structure provides standardized
//     reporting on database state, including size statistics, implementation type,
//     and implementation-specific metadata. Note: For most implementations all
//     size statistics will be estimated since a precise calculation can be
//     expensive.
//
// This interface-driven approach allows applications to:
//   - Swap database implementations without code changes
//   - Gracefully handle operations not supported by specific implementations
//   - Maintain consistent behavior across different storage backends
//   - Collect standardized metrics for monitoring and management
//
// Note on Expiration:
//   - Write operations take an optional time-to-live as a time.Duration, zero
//     or negative meaning no expiration. Deadlines are wall-clock based.
//   - External Consistency: Implementations must maintain strong external
//     consistency regardless of their internal garbage collection state:
//     Get() must never return an entry whose deadline has passed, and Has()
//     must never return true for one, even if the entry still exists
//     internally pending collection.
//   - This separation between logical state (expired) and physical state
//     (still present in memory) allows implementations to use efficient
//     background collection strategies without compromising the consistency
//     guarantees of the interface.
//
// Note on Atomicity:
//   - Update runs its mutation function while holding the key's write
//     exclusivity, which is what the store layer builds APPEND, SETRANGE,
//     SETBIT and the other read-modify-write commands on.
//
// Related Packages:
//
// The engines/sisal package (github.com/strandkv/strand/lib/db/engines/sisal)
// provides an in-memory implementation of the StringDB interface using a sharded
// architecture with a background garbage collector fed by a lock-free event queue,
// lazy expiry on read, and binary snapshot persistence. It is optimized for high
// throughput with concurrent operations.
//
// The engines/bolt package (github.com/strandkv/strand/lib/db/engines/bolt)
// provides a persistent implementation backed by bbolt with per-operation
// transactions and a periodic expiry sweep.
//
// The util package (github.com/strandkv/strand/lib/db/util) provides
// complementary tools for building StringDB implementations:
//   - SizeHistogram: Utilities for analyzing data size distributions
//   - ExpiryHeap: A priority queue over expiration deadlines
//   - LockFreeMPSC: A lock-free multi-producer single-consumer event queue
//   - Seeded hashing for shard selection
//
// The testing package (github.com/strandkv/strand/lib/db/testing) provides
// standardized tests and benchmarks for database implementations that satisfy
// the db.StringDB interface.
//   - RunStringDBTests: Runs a standardized test suite to validate implementations
//   - RunStringDBBenchmarks: Provides performance benchmarks for comparing implementations
package db
