package pipeline

import (
	"context"

	"github.com/strandkv/strand/lib/command"
)

const (
	// DefaultMaxInFlight is used when Options.MaxInFlight is not positive.
	DefaultMaxInFlight = 16
)

// Handler executes a single command and returns its output. Handlers run
// concurrently up to the in-flight bound and must be safe for concurrent
// use. The context is the invocation context: on cancellation in-flight
// handlers should return early.
type Handler[C, V any] func(ctx context.Context, cmd C) (V, error)

// Options configures a pipeline invocation.
type Options struct {
	// MaxInFlight bounds how many commands may be consumed but not yet
	// emitted at any moment. Defaults to DefaultMaxInFlight.
	MaxInFlight int

	// Fatal classifies handler errors that terminate the whole
	// invocation (e.g. a lost connection) as opposed to per-command
	// failures that only fail their own envelope. Nil treats every
	// error as per-command.
	Fatal func(error) bool
}

func (o Options) withDefaults() Options {
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = DefaultMaxInFlight
	}
	return o
}

// indexed carries a completed response together with its submission
// sequence number from a worker to the collector.
type indexed[C, V any] struct {
	seq  uint64
	resp command.Response[C, V]
}

// Run consumes commands from in, executes each with handle, and emits
// exactly one response envelope per consumed command on the returned
// channel, in submission order.
//
// Execution overlaps up to opts.MaxInFlight commands; completions that
// arrive out of order are buffered and released in order. A command is
// only consumed from in when an in-flight slot is free, and a slot is
// only freed when the command's envelope has been received downstream,
// so a slow consumer stalls consumption rather than growing a buffer.
//
// Handler errors become failed envelopes and the stream continues. An
// error classified fatal by opts.Fatal is emitted in its envelope and
// then ends the invocation: the output channel closes without the
// envelopes of other in-flight commands and no further input is
// consumed. Cancelling ctx closes the output channel after the current
// emission; it does not drain in.
//
// The output channel is closed once every consumed command has been
// answered, in receives no further sends, or the invocation ends early.
func Run[C, V any](ctx context.Context, in <-chan C, handle Handler[C, V], opts Options) <-chan command.Response[C, V] {
	opts = opts.withDefaults()
	out := make(chan command.Response[C, V])

	go func() {
		defer close(out)

		var (
			// counting semaphore over consumed-but-unemitted commands
			tokens = make(chan struct{}, opts.MaxInFlight)
			// sized so workers never block handing off a completion
			completions = make(chan indexed[C, V], opts.MaxInFlight)
			abort       = make(chan struct{})
			feederDone  = make(chan struct{})
			total       uint64
		)

		// feeder: pulls input and starts one worker per command
		go func() {
			defer close(feederDone)
			var seq uint64
			for {
				select {
				case tokens <- struct{}{}:
				case <-ctx.Done():
					total = seq
					return
				case <-abort:
					total = seq
					return
				}

				select {
				case cmd, ok := <-in:
					if !ok {
						total = seq
						return
					}
					go func(seq uint64, cmd C) {
						output, err := handle(ctx, cmd)
						if err != nil {
							completions <- indexed[C, V]{seq, command.NewErrorResponse[C, V](cmd, err)}
							return
						}
						completions <- indexed[C, V]{seq, command.NewResponse(cmd, output)}
					}(seq, cmd)
					seq++
				case <-ctx.Done():
					total = seq
					return
				case <-abort:
					total = seq
					return
				}
			}
		}()

		// collector: resequences completions and emits them in order
		var (
			buf        = newResequencer[command.Response[C, V]](opts.MaxInFlight)
			emitted    uint64
			feederExit = feederDone
			feeding    = true
		)
		for {
			if !feeding && emitted == total {
				return
			}

			select {
			case <-feederExit:
				// total is published before feederDone closes
				feederExit = nil
				feeding = false
			case comp := <-completions:
				buf.put(comp.seq, comp.resp)
				for {
					resp, ok := buf.pop()
					if !ok {
						break
					}
					select {
					case out <- resp:
					case <-ctx.Done():
						close(abort)
						return
					}
					emitted++
					if err := resp.Err(); err != nil && opts.Fatal != nil && opts.Fatal(err) {
						close(abort)
						return
					}
					<-tokens
				}
			case <-ctx.Done():
				close(abort)
				return
			}
		}
	}()

	return out
}
