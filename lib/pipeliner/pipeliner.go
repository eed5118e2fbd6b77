package pipeliner

import (
	"context"

	"github.com/strandkv/strand/lib/command"
	"github.com/strandkv/strand/lib/pipeline"
	"github.com/strandkv/strand/lib/store"
)

// Pipeliner executes command streams against a store.IStringStore. Each
// batch method consumes commands from its input channel, overlaps their
// execution up to the configured in-flight bound, and emits one response
// envelope per command in submission order.
//
// Commands fail individually: a store error is carried in the command's
// envelope and the stream continues. Connection-level errors (detected
// with store.IsConnectionError) end the invocation after the envelope of
// the first fatally-failed command.
type Pipeliner struct {
	store store.IStringStore
	opts  pipeline.Options
}

// NewPipeliner creates a Pipeliner over s. maxInFlight bounds how many
// commands each invocation may overlap; values below one select the
// pipeline default.
func NewPipeliner(s store.IStringStore, maxInFlight int) *Pipeliner {
	return &Pipeliner{
		store: s,
		opts: pipeline.Options{
			MaxInFlight: maxInFlight,
			Fatal:       store.IsConnectionError,
		},
	}
}

// --------------------------------------------------------------------------
// Batch Methods: Writes
// --------------------------------------------------------------------------

// Set executes a stream of SET commands, honoring each command's
// expiration and conditional option.
func (p *Pipeliner) Set(ctx context.Context, in <-chan command.SetCommand) <-chan command.Response[command.SetCommand, bool] {
	return pipeline.Run(ctx, in, p.store.Set, p.opts)
}

// SetNX executes a stream of SETNX commands.
func (p *Pipeliner) SetNX(ctx context.Context, in <-chan command.SetCommand) <-chan command.Response[command.SetCommand, bool] {
	return pipeline.Run(ctx, in, p.store.SetNX, p.opts)
}

// SetEX executes a stream of SETEX commands (expiration required, whole
// seconds).
func (p *Pipeliner) SetEX(ctx context.Context, in <-chan command.SetCommand) <-chan command.Response[command.SetCommand, bool] {
	return pipeline.Run(ctx, in, p.store.SetEX, p.opts)
}

// PSetEX executes a stream of PSETEX commands (expiration required,
// whole milliseconds).
func (p *Pipeliner) PSetEX(ctx context.Context, in <-chan command.SetCommand) <-chan command.Response[command.SetCommand, bool] {
	return pipeline.Run(ctx, in, p.store.PSetEX, p.opts)
}

// MSet executes a stream of MSET commands.
func (p *Pipeliner) MSet(ctx context.Context, in <-chan command.MSetCommand) <-chan command.Response[command.MSetCommand, bool] {
	return pipeline.Run(ctx, in, p.store.MSet, p.opts)
}

// MSetNX executes a stream of MSETNX commands.
func (p *Pipeliner) MSetNX(ctx context.Context, in <-chan command.MSetCommand) <-chan command.Response[command.MSetCommand, bool] {
	return pipeline.Run(ctx, in, p.store.MSetNX, p.opts)
}

// --------------------------------------------------------------------------
// Batch Methods: Reads
// --------------------------------------------------------------------------

// Get executes a stream of GET commands. Missing keys yield nil values.
func (p *Pipeliner) Get(ctx context.Context, in <-chan command.KeyCommand) <-chan command.Response[command.KeyCommand, []byte] {
	return pipeline.Run(ctx, in, p.store.Get, p.opts)
}

// GetDel executes a stream of GETDEL commands.
func (p *Pipeliner) GetDel(ctx context.Context, in <-chan command.KeyCommand) <-chan command.Response[command.KeyCommand, []byte] {
	return pipeline.Run(ctx, in, p.store.GetDel, p.opts)
}

// GetEx executes a stream of GETEX commands.
func (p *Pipeliner) GetEx(ctx context.Context, in <-chan command.GetExCommand) <-chan command.Response[command.GetExCommand, []byte] {
	return pipeline.Run(ctx, in, p.store.GetEx, p.opts)
}

// GetSet executes a stream of GETSET commands, returning each previous
// value.
func (p *Pipeliner) GetSet(ctx context.Context, in <-chan command.SetCommand) <-chan command.Response[command.SetCommand, []byte] {
	return pipeline.Run(ctx, in, p.store.GetSet, p.opts)
}

// MGet executes a stream of MGET commands. Each response carries the
// values in the command's key order with nil slots for missing keys.
func (p *Pipeliner) MGet(ctx context.Context, in <-chan command.MGetCommand) <-chan command.Response[command.MGetCommand, [][]byte] {
	return pipeline.Run(ctx, in, p.store.MGet, p.opts)
}

// StrLen executes a stream of STRLEN commands.
func (p *Pipeliner) StrLen(ctx context.Context, in <-chan command.KeyCommand) <-chan command.Response[command.KeyCommand, int64] {
	return pipeline.Run(ctx, in, p.store.StrLen, p.opts)
}

// --------------------------------------------------------------------------
// Batch Methods: Ranges
// --------------------------------------------------------------------------

// Append executes a stream of APPEND commands, returning each new value
// length.
func (p *Pipeliner) Append(ctx context.Context, in <-chan command.AppendCommand) <-chan command.Response[command.AppendCommand, int64] {
	return pipeline.Run(ctx, in, p.store.Append, p.opts)
}

// GetRange executes a stream of GETRANGE commands.
func (p *Pipeliner) GetRange(ctx context.Context, in <-chan command.RangeCommand) <-chan command.Response[command.RangeCommand, []byte] {
	return pipeline.Run(ctx, in, p.store.GetRange, p.opts)
}

// SetRange executes a stream of SETRANGE commands, returning each new
// value length.
func (p *Pipeliner) SetRange(ctx context.Context, in <-chan command.SetRangeCommand) <-chan command.Response[command.SetRangeCommand, int64] {
	return pipeline.Run(ctx, in, p.store.SetRange, p.opts)
}

// --------------------------------------------------------------------------
// Batch Methods: Bits
// --------------------------------------------------------------------------

// GetBit executes a stream of GETBIT commands.
func (p *Pipeliner) GetBit(ctx context.Context, in <-chan command.GetBitCommand) <-chan command.Response[command.GetBitCommand, bool] {
	return pipeline.Run(ctx, in, p.store.GetBit, p.opts)
}

// SetBit executes a stream of SETBIT commands, returning each previous
// bit state.
func (p *Pipeliner) SetBit(ctx context.Context, in <-chan command.SetBitCommand) <-chan command.Response[command.SetBitCommand, bool] {
	return pipeline.Run(ctx, in, p.store.SetBit, p.opts)
}

// BitCount executes a stream of BITCOUNT commands.
func (p *Pipeliner) BitCount(ctx context.Context, in <-chan command.BitCountCommand) <-chan command.Response[command.BitCountCommand, int64] {
	return pipeline.Run(ctx, in, p.store.BitCount, p.opts)
}

// BitOp executes a stream of BITOP commands, returning the length of
// each stored result.
func (p *Pipeliner) BitOp(ctx context.Context, in <-chan command.BitOpCommand) <-chan command.Response[command.BitOpCommand, int64] {
	return pipeline.Run(ctx, in, p.store.BitOp, p.opts)
}
