package pipeline

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestRunPreservesSubmissionOrder forces maximal completion-order
// inversion: the first command only completes after every other command
// has finished. Emission order must still equal submission order.
func TestRunPreservesSubmissionOrder(t *testing.T) {
	const n = 8
	in := make(chan int, n)
	for i := 0; i < n; i++ {
		in <- i
	}
	close(in)

	var (
		gate    = make(chan struct{})
		pending atomic.Int32
	)
	pending.Store(n - 1)

	handle := func(ctx context.Context, cmd int) (int, error) {
		if cmd == 0 {
			<-gate
		} else if pending.Add(-1) == 0 {
			close(gate)
		}
		return cmd * 10, nil
	}

	out := Run(context.Background(), in, handle, Options{MaxInFlight: n})

	var got []int
	for resp := range out {
		if resp.Err() != nil {
			t.Fatalf("command %d failed: %v", resp.Input(), resp.Err())
		}
		if resp.Output() != resp.Input()*10 {
			t.Errorf("envelope pairs command %d with output %d", resp.Input(), resp.Output())
		}
		got = append(got, resp.Input())
	}

	if len(got) != n {
		t.Fatalf("emitted %d envelopes, want %d", len(got), n)
	}
	for i, cmd := range got {
		if cmd != i {
			t.Fatalf("emission order %v, want submission order", got)
		}
	}
}

// TestRunBoundsInFlight withholds downstream demand and verifies that no
// more than MaxInFlight commands are ever submitted to the handler.
func TestRunBoundsInFlight(t *testing.T) {
	const (
		bound = 3
		n     = 10
	)
	in := make(chan int, n)
	for i := 0; i < n; i++ {
		in <- i
	}
	close(in)

	var submitted atomic.Int32
	handle := func(ctx context.Context, cmd int) (int, error) {
		submitted.Add(1)
		return cmd, nil
	}

	out := Run(context.Background(), in, handle, Options{MaxInFlight: bound})

	time.Sleep(200 * time.Millisecond)
	if got := submitted.Load(); got != bound {
		t.Fatalf("submitted %d commands with demand withheld, want %d", got, bound)
	}

	var count int
	for resp := range out {
		if resp.Input() != count {
			t.Fatalf("envelope %d answers command %d", count, resp.Input())
		}
		count++
	}
	if count != n {
		t.Fatalf("emitted %d envelopes, want %d", count, n)
	}
	if got := submitted.Load(); got != n {
		t.Errorf("submitted %d commands in total, want %d", got, n)
	}
}

// TestRunIsolatesCommandFailures checks that a failing command fails its
// own envelope only, with commands before and after unaffected.
func TestRunIsolatesCommandFailures(t *testing.T) {
	opErr := errors.New("value out of range")
	in := make(chan string, 3)
	in <- "a"
	in <- "b"
	in <- "c"
	close(in)

	handle := func(ctx context.Context, cmd string) (string, error) {
		if cmd == "b" {
			return "", opErr
		}
		return strings.ToUpper(cmd), nil
	}

	out := Run(context.Background(), in, handle, Options{MaxInFlight: 2})

	var got []struct {
		cmd string
		val string
		err error
	}
	for resp := range out {
		got = append(got, struct {
			cmd string
			val string
			err error
		}{resp.Input(), resp.Output(), resp.Err()})
	}

	if len(got) != 3 {
		t.Fatalf("emitted %d envelopes, want 3", len(got))
	}
	if got[0].err != nil || got[0].val != "A" {
		t.Errorf("envelope 0 = (%q, %v), want (A, nil)", got[0].val, got[0].err)
	}
	if !errors.Is(got[1].err, opErr) {
		t.Errorf("envelope 1 carries %v, want the command's own error", got[1].err)
	}
	if got[2].err != nil || got[2].val != "C" {
		t.Errorf("envelope 2 = (%q, %v), want (C, nil)", got[2].val, got[2].err)
	}
}

// TestRunConnectionFailureTerminates verifies the fatal path: the
// envelope carrying the connection error is the last emission, and no
// further input is consumed.
func TestRunConnectionFailureTerminates(t *testing.T) {
	connErr := errors.New("connection reset")
	in := make(chan string, 3)
	in <- "a"
	in <- "b"
	in <- "c"
	close(in)

	var submitted atomic.Int32
	handle := func(ctx context.Context, cmd string) (string, error) {
		submitted.Add(1)
		if cmd == "b" {
			return "", connErr
		}
		return cmd, nil
	}

	out := Run(context.Background(), in, handle, Options{
		MaxInFlight: 1,
		Fatal:       func(err error) bool { return errors.Is(err, connErr) },
	})

	first, ok := <-out
	if !ok || first.Err() != nil || first.Output() != "a" {
		t.Fatalf("first envelope = (%q, %v, open=%v), want (a, nil, true)", first.Output(), first.Err(), ok)
	}
	second, ok := <-out
	if !ok || !errors.Is(second.Err(), connErr) {
		t.Fatalf("second envelope err = %v (open=%v), want the connection error", second.Err(), ok)
	}
	if _, ok := <-out; ok {
		t.Fatal("pipeline emitted past the connection failure")
	}
	if got := submitted.Load(); got != 2 {
		t.Errorf("submitted %d commands, want 2 (input after the failure untouched)", got)
	}
}

// TestRunContextCancellation cancels mid-stream and expects the output
// channel to close promptly with in-flight handlers observing the cancel.
func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan int)

	go func() {
		defer close(in)
		for i := 0; ; i++ {
			select {
			case in <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	handle := func(ctx context.Context, cmd int) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}

	out := Run(ctx, in, handle, Options{MaxInFlight: 4})

	time.Sleep(50 * time.Millisecond)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("output channel not closed after cancellation")
		}
	}
}

// TestRunEmptyInput expects an immediately-closed output channel.
func TestRunEmptyInput(t *testing.T) {
	in := make(chan int)
	close(in)

	out := Run(context.Background(), in, func(ctx context.Context, cmd int) (int, error) {
		t.Error("handler invoked for empty input")
		return 0, nil
	}, Options{})

	select {
	case resp, ok := <-out:
		if ok {
			t.Fatalf("unexpected envelope: %v", resp.Input())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("output channel not closed for empty input")
	}
}

// TestRunCardinalityUnderRandomLatency runs a larger stream with jittered
// handler latency and checks the one-envelope-per-command cardinality and
// pairing.
func TestRunCardinalityUnderRandomLatency(t *testing.T) {
	const n = 64
	in := make(chan int, n)
	for i := 0; i < n; i++ {
		in <- i
	}
	close(in)

	handle := func(ctx context.Context, cmd int) (int, error) {
		time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
		return cmd * 2, nil
	}

	out := Run(context.Background(), in, handle, Options{MaxInFlight: 8})

	var count int
	for resp := range out {
		if resp.Input() != count {
			t.Fatalf("envelope %d answers command %d", count, resp.Input())
		}
		if resp.Output() != resp.Input()*2 {
			t.Errorf("command %d paired with output %d", resp.Input(), resp.Output())
		}
		count++
	}
	if count != n {
		t.Fatalf("emitted %d envelopes, want %d", count, n)
	}
}
