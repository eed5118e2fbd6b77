// Package bolt provides a persistent db.StringDB implementation backed
// by a single-file bbolt database.
//
// The package focuses on:
//
//   - Durability: every write runs in its own bbolt transaction and is
//     fsynced before the operation returns
//   - Atomicity: conditional writes and read-modify-write updates are
//     plain transactions, no additional locking is needed
//   - Expiration: each record carries its expiration deadline in an
//     8-byte header; readers skip dead records and a background sweep
//     reclaims their space
//
// Compared to the sisal engine, bolt trades throughput for durability.
// It is intended for datasets that must survive restarts without the
// snapshot round-trip.
package bolt
