// Package lstore implements a local, single-node string store based on the
// store.IStringStore interface. It provides the full string and bit command
// semantics on top of any db.StringDB implementation injected through a
// store.DBFactory.
//
// Key Features:
//   - Complete string command set: plain, conditional and expiring writes,
//     multi-key reads and writes, append, ranged reads and writes
//   - Bit addressing: single-bit reads and writes, population counts over
//     byte ranges, bitwise combination of several source keys
//   - Feature detection to handle engines with partial operation support
//   - Thread-safe operations for concurrent access
//
// Implementation Details:
//
//   - Range semantics: ranged reads address inclusive start/end byte pairs
//     where negative indices count from the end of the value; out-of-bounds
//     ranges clamp to the value and empty ranges yield empty results. Ranged
//     writes grow values zero-padded up to a 512MB cap.
//
//   - Bit semantics: bit offsets address bits from the most significant bit
//     of the first byte. Reads beyond the end of a value return an unset
//     bit; writes grow the value to cover the addressed bit and report the
//     bit's previous state.
//
//   - Expiration: write commands either replace the expiration of a key
//     (plain and conditional sets) or preserve it (append, ranged and bit
//     writes), matching the command's overwrite-vs-modify character. The
//     engine enforces the deadlines.
//
//   - Concurrency: single-key mutations rely on the engine's per-key
//     atomicity and share a read lock. Operations whose read-check-write
//     span covers several keys or several engine calls (MSetNX, BitOp,
//     GetSet, GetDel, GetEx) take the write side of the lock, so they
//     cannot interleave with any other mutation. Plain reads do not lock
//     and observe per-key states.
//
// Usage Example:
//
//	// Create a store with a sisal database backend
//	factory := func() db.StringDB { return sisal.New(sisal.DefaultOptions()) }
//	str := lstore.NewLocalStore(factory)
//
//	// Store a value with a 5-minute expiration
//	cmd, _ := command.Set([]byte("session:123"))
//	cmd, _ = cmd.WithValue(sessionData)
//	ok, err := str.Set(ctx, cmd.Expiring(5*time.Minute))
//
// For access to a store running in another process, use the rpc/client
// package, which provides the same interface over a transport connection.
package lstore
