package command

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// Error reports a missing or invalid argument during command construction.
// Construction errors are always synchronous and never enter a pipeline.
type Error struct {
	Command string // command being built, e.g. "SET"
	Field   string // offending field, e.g. "key"
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s must not be empty", e.Command, e.Field)
}

// NewError creates a construction error for the given command and field.
func NewError(command, field string) error {
	return &Error{Command: command, Field: field}
}

// --------------------------------------------------------------------------
// Shared Command Core
// --------------------------------------------------------------------------

// Command is implemented by all keyed command values. Key returns the
// command's target key, or nil for commands that address multiple keys
// (e.g. MSetCommand, MGetCommand).
type Command interface {
	Key() []byte
}

// KeyCommand is the minimal keyed command. It is used directly for
// operations whose only argument is the key (GET, GETDEL, STRLEN) and is
// embedded by every richer variant.
type KeyCommand struct {
	key []byte
}

// NewKey creates a KeyCommand for key.
func NewKey(key []byte) (KeyCommand, error) {
	if len(key) == 0 {
		return KeyCommand{}, NewError("KEY", "key")
	}
	return KeyCommand{key: key}, nil
}

// Key returns the command's target key.
func (c KeyCommand) Key() []byte { return c.key }

// --------------------------------------------------------------------------
// Ranges
// --------------------------------------------------------------------------

// Range is an inclusive [From, To] index pair. Negative indices count from
// the end of the value, -1 addressing the last element.
type Range struct {
	From int64
	To   int64
}

// FullRange covers the whole value.
func FullRange() Range { return Range{From: 0, To: -1} }

// NewRange creates an inclusive range from from to to.
func NewRange(from, to int64) Range { return Range{From: from, To: to} }

// --------------------------------------------------------------------------
// SET family
// --------------------------------------------------------------------------

// SetOption controls the conditional behavior of a SET.
type SetOption uint8

const (
	// Upsert stores the value regardless of the key's current state.
	Upsert SetOption = iota
	// SetIfAbsent stores the value only if the key does not exist (NX).
	SetIfAbsent
	// SetIfPresent stores the value only if the key already exists (XX).
	SetIfPresent
)

// String returns the redis-style name of the option.
func (o SetOption) String() string {
	switch o {
	case SetIfAbsent:
		return "NX"
	case SetIfPresent:
		return "XX"
	default:
		return "UPSERT"
	}
}

// SetCommand describes a SET and its conditional and expiring variants
// (SETNX, SETEX, PSETEX, GETSET). The zero value is not valid; commands
// are built incrementally starting from Set:
//
//	cmd, err := command.Set(key)
//	cmd, err = cmd.WithValue(value)
//	cmd = cmd.Expiring(10 * time.Second).WithOption(command.SetIfAbsent)
//
// Every builder step returns a copy, the receiver is never modified.
type SetCommand struct {
	KeyCommand
	value  []byte
	expire time.Duration
	hasTTL bool
	option SetOption
}

// Set starts a SET command for key. The value is attached with WithValue
// before the command is dispatched.
func Set(key []byte) (SetCommand, error) {
	if len(key) == 0 {
		return SetCommand{}, NewError("SET", "key")
	}
	return SetCommand{KeyCommand: KeyCommand{key: key}}, nil
}

// WithValue returns a copy of the command carrying value.
func (c SetCommand) WithValue(value []byte) (SetCommand, error) {
	if value == nil {
		return SetCommand{}, NewError("SET", "value")
	}
	c.value = value
	return c, nil
}

// Expiring returns a copy of the command that expires the key after ttl.
func (c SetCommand) Expiring(ttl time.Duration) SetCommand {
	c.expire = ttl
	c.hasTTL = true
	return c
}

// WithOption returns a copy of the command using the given set option.
func (c SetCommand) WithOption(option SetOption) SetCommand {
	c.option = option
	return c
}

// Value returns the value to store, or nil if none has been attached yet.
func (c SetCommand) Value() []byte { return c.value }

// Expiration returns the configured expiration. ok is false if no
// expiration has been set, which is distinct from an explicit zero ttl.
func (c SetCommand) Expiration() (ttl time.Duration, ok bool) {
	return c.expire, c.hasTTL
}

// Option returns the configured set option, Upsert by default.
func (c SetCommand) Option() SetOption { return c.option }

// --------------------------------------------------------------------------
// GETEX
// --------------------------------------------------------------------------

// GetExCommand describes a GETEX: read a value and atomically update its
// expiration. Without an expiration the command persists the key.
type GetExCommand struct {
	KeyCommand
	expire time.Duration
	hasTTL bool
}

// GetEx starts a GETEX command for key.
func GetEx(key []byte) (GetExCommand, error) {
	if len(key) == 0 {
		return GetExCommand{}, NewError("GETEX", "key")
	}
	return GetExCommand{KeyCommand: KeyCommand{key: key}}, nil
}

// Expiring returns a copy of the command setting ttl on read.
func (c GetExCommand) Expiring(ttl time.Duration) GetExCommand {
	c.expire = ttl
	c.hasTTL = true
	return c
}

// Expiration returns the configured expiration; ok is false if the
// command persists the key instead.
func (c GetExCommand) Expiration() (ttl time.Duration, ok bool) {
	return c.expire, c.hasTTL
}

// --------------------------------------------------------------------------
// Multi-key commands
// --------------------------------------------------------------------------

// MSetCommand describes an MSET or MSETNX over a set of key/value pairs.
// Key() returns nil: the command has no single target key.
type MSetCommand struct {
	entries map[string][]byte
}

// MSet creates an MSET command from the given key/value mapping. The map
// must not be empty, keys must not be empty and values must not be nil;
// map semantics guarantee key uniqueness.
func MSet(entries map[string][]byte) (MSetCommand, error) {
	if len(entries) == 0 {
		return MSetCommand{}, NewError("MSET", "entries")
	}
	for key, value := range entries {
		if len(key) == 0 || value == nil {
			return MSetCommand{}, NewError("MSET", "entries")
		}
	}
	return MSetCommand{entries: entries}, nil
}

// Key returns nil, MSET addresses multiple keys.
func (c MSetCommand) Key() []byte { return nil }

// Entries returns the key/value mapping. Callers must not modify it.
func (c MSetCommand) Entries() map[string][]byte { return c.entries }

// MGetCommand describes an MGET over an ordered list of keys.
// Key() returns nil: the command has no single target key.
type MGetCommand struct {
	keys [][]byte
}

// MGet creates an MGET command for the given keys, at least one.
func MGet(keys ...[]byte) (MGetCommand, error) {
	if len(keys) == 0 {
		return MGetCommand{}, NewError("MGET", "keys")
	}
	for _, k := range keys {
		if len(k) == 0 {
			return MGetCommand{}, NewError("MGET", "keys")
		}
	}
	return MGetCommand{keys: keys}, nil
}

// Key returns nil, MGET addresses multiple keys.
func (c MGetCommand) Key() []byte { return nil }

// Keys returns the keys to read, in request order.
func (c MGetCommand) Keys() [][]byte { return c.keys }

// --------------------------------------------------------------------------
// APPEND
// --------------------------------------------------------------------------

// AppendCommand describes an APPEND of value to the string stored at key.
type AppendCommand struct {
	KeyCommand
	value []byte
}

// Append starts an APPEND command for key.
func Append(key []byte) (AppendCommand, error) {
	if len(key) == 0 {
		return AppendCommand{}, NewError("APPEND", "key")
	}
	return AppendCommand{KeyCommand: KeyCommand{key: key}}, nil
}

// WithValue returns a copy of the command appending value.
func (c AppendCommand) WithValue(value []byte) (AppendCommand, error) {
	if value == nil {
		return AppendCommand{}, NewError("APPEND", "value")
	}
	c.value = value
	return c, nil
}

// Value returns the bytes to append, or nil if none have been attached.
func (c AppendCommand) Value() []byte { return c.value }

// --------------------------------------------------------------------------
// GETRANGE / SETRANGE
// --------------------------------------------------------------------------

// RangeCommand describes a GETRANGE: read a substring of the value at key.
// Without an explicit range the whole value is read.
type RangeCommand struct {
	KeyCommand
	rng Range
}

// GetRange starts a GETRANGE command covering the full value at key.
func GetRange(key []byte) (RangeCommand, error) {
	if len(key) == 0 {
		return RangeCommand{}, NewError("GETRANGE", "key")
	}
	return RangeCommand{KeyCommand: KeyCommand{key: key}, rng: FullRange()}, nil
}

// Within returns a copy of the command restricted to rng.
func (c RangeCommand) Within(rng Range) RangeCommand {
	c.rng = rng
	return c
}

// Range returns the inclusive index range to read.
func (c RangeCommand) Range() Range { return c.rng }

// SetRangeCommand describes a SETRANGE: overwrite part of the value at key
// starting at a byte offset, zero-padding any gap.
type SetRangeCommand struct {
	KeyCommand
	value  []byte
	offset int64
}

// Overwrite starts a SETRANGE command for key.
func Overwrite(key []byte) (SetRangeCommand, error) {
	if len(key) == 0 {
		return SetRangeCommand{}, NewError("SETRANGE", "key")
	}
	return SetRangeCommand{KeyCommand: KeyCommand{key: key}}, nil
}

// WithValue returns a copy of the command writing value.
func (c SetRangeCommand) WithValue(value []byte) (SetRangeCommand, error) {
	if value == nil {
		return SetRangeCommand{}, NewError("SETRANGE", "value")
	}
	c.value = value
	return c, nil
}

// AtOffset returns a copy of the command writing at offset. Offset
// legality (offset >= 0) is checked by the store on dispatch.
func (c SetRangeCommand) AtOffset(offset int64) SetRangeCommand {
	c.offset = offset
	return c
}

// Value returns the bytes to write.
func (c SetRangeCommand) Value() []byte { return c.value }

// Offset returns the byte offset to write at.
func (c SetRangeCommand) Offset() int64 { return c.offset }

// --------------------------------------------------------------------------
// Bit commands
// --------------------------------------------------------------------------

// GetBitCommand describes a GETBIT: read a single bit at a bit offset.
type GetBitCommand struct {
	KeyCommand
	offset int64
}

// GetBit starts a GETBIT command for key.
func GetBit(key []byte) (GetBitCommand, error) {
	if len(key) == 0 {
		return GetBitCommand{}, NewError("GETBIT", "key")
	}
	return GetBitCommand{KeyCommand: KeyCommand{key: key}}, nil
}

// AtOffset returns a copy of the command reading the bit at offset.
func (c GetBitCommand) AtOffset(offset int64) GetBitCommand {
	c.offset = offset
	return c
}

// Offset returns the bit offset to read.
func (c GetBitCommand) Offset() int64 { return c.offset }

// SetBitCommand describes a SETBIT: set or clear a single bit at a bit
// offset, growing the value zero-padded as needed.
type SetBitCommand struct {
	KeyCommand
	offset int64
	bit    bool
}

// SetBit starts a SETBIT command for key.
func SetBit(key []byte) (SetBitCommand, error) {
	if len(key) == 0 {
		return SetBitCommand{}, NewError("SETBIT", "key")
	}
	return SetBitCommand{KeyCommand: KeyCommand{key: key}}, nil
}

// AtOffset returns a copy of the command addressing the bit at offset.
func (c SetBitCommand) AtOffset(offset int64) SetBitCommand {
	c.offset = offset
	return c
}

// To returns a copy of the command writing the given bit value.
func (c SetBitCommand) To(bit bool) SetBitCommand {
	c.bit = bit
	return c
}

// Offset returns the bit offset to write.
func (c SetBitCommand) Offset() int64 { return c.offset }

// Bit returns the bit value to write.
func (c SetBitCommand) Bit() bool { return c.bit }

// BitCountCommand describes a BITCOUNT: count set bits, optionally within
// an inclusive byte range.
type BitCountCommand struct {
	KeyCommand
	rng    Range
	hasRng bool
}

// BitCount starts a BITCOUNT command over the whole value at key.
func BitCount(key []byte) (BitCountCommand, error) {
	if len(key) == 0 {
		return BitCountCommand{}, NewError("BITCOUNT", "key")
	}
	return BitCountCommand{KeyCommand: KeyCommand{key: key}}, nil
}

// Within returns a copy of the command restricted to the byte range rng.
func (c BitCountCommand) Within(rng Range) BitCountCommand {
	c.rng = rng
	c.hasRng = true
	return c
}

// Range returns the configured byte range; ok is false if the command
// counts over the whole value.
func (c BitCountCommand) Range() (rng Range, ok bool) {
	return c.rng, c.hasRng
}

// --------------------------------------------------------------------------
// BITOP
// --------------------------------------------------------------------------

// BitOperation is a bitwise operator applied across source values.
type BitOperation uint8

const (
	BitAnd BitOperation = iota
	BitOr
	BitXor
	BitNot
)

// String returns the redis-style name of the operation.
func (o BitOperation) String() string {
	switch o {
	case BitAnd:
		return "AND"
	case BitOr:
		return "OR"
	case BitXor:
		return "XOR"
	case BitNot:
		return "NOT"
	default:
		return fmt.Sprintf("BitOperation(%d)", uint8(o))
	}
}

// BitOpCommand describes a BITOP: combine the values of the source keys
// with a bitwise operator and store the result under a destination key.
// BitNot permits exactly one source key; arity is checked by the store.
type BitOpCommand struct {
	op          BitOperation
	keys        [][]byte
	destination []byte
}

// Perform starts a BITOP command applying op.
func Perform(op BitOperation) BitOpCommand {
	return BitOpCommand{op: op}
}

// OnKeys returns a copy of the command reading the given source keys.
func (c BitOpCommand) OnKeys(keys ...[]byte) (BitOpCommand, error) {
	if len(keys) == 0 {
		return BitOpCommand{}, NewError("BITOP", "keys")
	}
	for _, k := range keys {
		if len(k) == 0 {
			return BitOpCommand{}, NewError("BITOP", "keys")
		}
	}
	c.keys = keys
	return c, nil
}

// AndSaveAs returns a copy of the command storing the result under
// destination.
func (c BitOpCommand) AndSaveAs(destination []byte) (BitOpCommand, error) {
	if len(destination) == 0 {
		return BitOpCommand{}, NewError("BITOP", "destination")
	}
	c.destination = destination
	return c, nil
}

// Op returns the bitwise operator to apply.
func (c BitOpCommand) Op() BitOperation { return c.op }

// Keys returns the source keys.
func (c BitOpCommand) Keys() [][]byte { return c.keys }

// Destination returns the destination key.
func (c BitOpCommand) Destination() []byte { return c.destination }
