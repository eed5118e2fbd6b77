// Package pipeline implements ordered, bounded, overlapped execution of
// command streams.
//
// The package focuses on:
//   - One response envelope per consumed command, emitted in submission
//     order regardless of completion order
//   - A hard bound on consumed-but-unanswered commands, enforced with a
//     counting semaphore whose slots are freed on emission
//   - Backpressure in both directions through unbuffered channel handoff
//   - Failure isolation per command, with a separate classification hook
//     for connection-level errors that end the whole invocation
//
// Ordering:
//
// Each consumed command is tagged with a submission sequence number and
// handed to its own worker. Completions flow back to a single collector
// which buffers them in a resequencer keyed by sequence number and
// releases only the lowest unreleased index, so a slow early command
// holds back faster later ones instead of being overtaken.
//
// Flow control:
//
// An in-flight slot is acquired before a command is consumed and
// released only once its envelope has been received downstream. With a
// stalled consumer the pipeline therefore stops consuming input after
// MaxInFlight commands; it never buffers unboundedly.
//
// Failure model:
//
// A handler error fails its own envelope and the stream continues. If
// Options.Fatal classifies the error as connection-level, the envelope
// carrying it is the last one emitted: the output channel closes, the
// envelopes of other in-flight commands are discarded, and no further
// input is consumed. Context cancellation likewise ends the invocation
// by closing the output channel; consumed commands may go unanswered.
package pipeline
