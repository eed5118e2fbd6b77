package pipeliner

import (
	"context"

	"github.com/strandkv/strand/lib/command"
	"github.com/strandkv/strand/lib/db"
	"github.com/strandkv/strand/lib/store"
)

// Client is the convenience surface over a Pipeliner: every operation
// takes a single command and returns its output directly. Internally
// each call is a one-element pipeline invocation, so a Client observes
// exactly the semantics of the batch methods.
//
// Client itself satisfies store.IStringStore.
type Client struct {
	pipe  *Pipeliner
	store store.IStringStore
}

var _ store.IStringStore = (*Client)(nil)

// NewClient creates a single-command facade over s.
func NewClient(s store.IStringStore) *Client {
	return &Client{
		// single commands cannot overlap
		pipe:  NewPipeliner(s, 1),
		store: s,
	}
}

// one pushes a single command through a batch method and unwraps the
// resulting envelope.
func one[C, V any](ctx context.Context, batch func(context.Context, <-chan C) <-chan command.Response[C, V], cmd C) (V, error) {
	in := make(chan C, 1)
	in <- cmd
	close(in)

	var (
		first command.Response[C, V]
		got   bool
	)
	for resp := range batch(ctx, in) {
		if !got {
			first, got = resp, true
		}
	}

	if !got {
		var zero V
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, store.NewError(store.RetCInternalError, "command produced no response")
	}
	if err := first.Err(); err != nil {
		var zero V
		return zero, err
	}
	return first.Output(), nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (c *Client) Set(ctx context.Context, cmd command.SetCommand) (bool, error) {
	return one(ctx, c.pipe.Set, cmd)
}

func (c *Client) SetNX(ctx context.Context, cmd command.SetCommand) (bool, error) {
	return one(ctx, c.pipe.SetNX, cmd)
}

func (c *Client) SetEX(ctx context.Context, cmd command.SetCommand) (bool, error) {
	return one(ctx, c.pipe.SetEX, cmd)
}

func (c *Client) PSetEX(ctx context.Context, cmd command.SetCommand) (bool, error) {
	return one(ctx, c.pipe.PSetEX, cmd)
}

func (c *Client) MSet(ctx context.Context, cmd command.MSetCommand) (bool, error) {
	return one(ctx, c.pipe.MSet, cmd)
}

func (c *Client) MSetNX(ctx context.Context, cmd command.MSetCommand) (bool, error) {
	return one(ctx, c.pipe.MSetNX, cmd)
}

func (c *Client) Get(ctx context.Context, cmd command.KeyCommand) ([]byte, error) {
	return one(ctx, c.pipe.Get, cmd)
}

func (c *Client) GetDel(ctx context.Context, cmd command.KeyCommand) ([]byte, error) {
	return one(ctx, c.pipe.GetDel, cmd)
}

func (c *Client) GetEx(ctx context.Context, cmd command.GetExCommand) ([]byte, error) {
	return one(ctx, c.pipe.GetEx, cmd)
}

func (c *Client) GetSet(ctx context.Context, cmd command.SetCommand) ([]byte, error) {
	return one(ctx, c.pipe.GetSet, cmd)
}

func (c *Client) MGet(ctx context.Context, cmd command.MGetCommand) ([][]byte, error) {
	return one(ctx, c.pipe.MGet, cmd)
}

func (c *Client) Append(ctx context.Context, cmd command.AppendCommand) (int64, error) {
	return one(ctx, c.pipe.Append, cmd)
}

func (c *Client) GetRange(ctx context.Context, cmd command.RangeCommand) ([]byte, error) {
	return one(ctx, c.pipe.GetRange, cmd)
}

func (c *Client) SetRange(ctx context.Context, cmd command.SetRangeCommand) (int64, error) {
	return one(ctx, c.pipe.SetRange, cmd)
}

func (c *Client) GetBit(ctx context.Context, cmd command.GetBitCommand) (bool, error) {
	return one(ctx, c.pipe.GetBit, cmd)
}

func (c *Client) SetBit(ctx context.Context, cmd command.SetBitCommand) (bool, error) {
	return one(ctx, c.pipe.SetBit, cmd)
}

func (c *Client) BitCount(ctx context.Context, cmd command.BitCountCommand) (int64, error) {
	return one(ctx, c.pipe.BitCount, cmd)
}

func (c *Client) BitOp(ctx context.Context, cmd command.BitOpCommand) (int64, error) {
	return one(ctx, c.pipe.BitOp, cmd)
}

func (c *Client) StrLen(ctx context.Context, cmd command.KeyCommand) (int64, error) {
	return one(ctx, c.pipe.StrLen, cmd)
}

// Info bypasses the pipeline, it is not a command.
func (c *Client) Info(ctx context.Context) (db.DatabaseInfo, error) {
	return c.store.Info(ctx)
}
