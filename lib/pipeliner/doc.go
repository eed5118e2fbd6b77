// Package pipeliner provides the two client surfaces over a
// store.IStringStore: streamed batches and single commands.
//
// The package focuses on:
//
//   - Pipeliner: one batch method per operation. Commands flow in through
//     a channel, response envelopes flow out through the returned channel
//     in submission order, while execution overlaps up to the configured
//     in-flight bound. Both channels carry backpressure: input is only
//     consumed when an in-flight slot is free, and slots are only freed
//     once the receiver has taken the corresponding envelope.
//
//   - Client: the same operations with scalar signatures, each call a
//     one-element batch. Client satisfies store.IStringStore, so code
//     written against the store interface can transparently run through
//     the pipeline machinery.
//
// Failure handling follows the store's error model: a store error fails
// only its own envelope, and the stream continues. Connection-level
// errors (store.IsConnectionError) end the invocation: the envelope of
// the first fatally-failed command is emitted, then the output closes
// and no further input is consumed. Works the same against a local
// store (lstore) and a remote one (rpc/client).
package pipeliner
