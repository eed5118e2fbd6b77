package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/strandkv/strand/lib/command"
	"github.com/strandkv/strand/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() db.StringDB

// IStringStore executes string commands against a key-value store. It is
// the collaborator boundary of the pipeline: one call per command, the
// output value and a *Error (nil on success) per call.
//
// Implementations must be safe for concurrent use; the pipeline overlaps
// calls up to its in-flight bound. The context is the invocation context,
// remote implementations should abort the call when it is cancelled.
type IStringStore interface {
	// Set stores the command's value under its key, honoring the
	// command's expiration and conditional option. It reports whether
	// the value was stored (false if an NX/XX condition failed).
	Set(ctx context.Context, cmd command.SetCommand) (ok bool, err error)
	// SetNX stores the value only if the key does not exist.
	SetNX(ctx context.Context, cmd command.SetCommand) (ok bool, err error)
	// SetEX stores the value with the command's expiration, which is
	// required at seconds precision.
	SetEX(ctx context.Context, cmd command.SetCommand) (ok bool, err error)
	// PSetEX stores the value with the command's expiration, which is
	// required at milliseconds precision.
	PSetEX(ctx context.Context, cmd command.SetCommand) (ok bool, err error)
	// MSet stores all key-value pairs of the command.
	MSet(ctx context.Context, cmd command.MSetCommand) (ok bool, err error)
	// MSetNX stores all key-value pairs only if none of the keys exist.
	MSetNX(ctx context.Context, cmd command.MSetCommand) (ok bool, err error)
	// Get returns the value stored under the command's key, nil if the
	// key does not exist.
	Get(ctx context.Context, cmd command.KeyCommand) (value []byte, err error)
	// GetDel returns the value stored under the command's key and
	// deletes the key.
	GetDel(ctx context.Context, cmd command.KeyCommand) (value []byte, err error)
	// GetEx returns the value stored under the command's key and updates
	// its expiration (or persists the key if the command has none).
	GetEx(ctx context.Context, cmd command.GetExCommand) (value []byte, err error)
	// GetSet stores the command's value and returns the previous value,
	// nil if the key did not exist.
	GetSet(ctx context.Context, cmd command.SetCommand) (value []byte, err error)
	// MGet returns the values for the command's keys in request order,
	// with a nil slot for every missing key.
	MGet(ctx context.Context, cmd command.MGetCommand) (values [][]byte, err error)
	// Append appends the command's value to the string stored under its
	// key (treating a missing key as empty) and returns the new length.
	Append(ctx context.Context, cmd command.AppendCommand) (length int64, err error)
	// GetRange returns the substring addressed by the command's range.
	// Negative indices count from the end, the range is inclusive.
	GetRange(ctx context.Context, cmd command.RangeCommand) (value []byte, err error)
	// SetRange overwrites the value starting at the command's offset,
	// zero-padding any gap, and returns the new length.
	SetRange(ctx context.Context, cmd command.SetRangeCommand) (length int64, err error)
	// GetBit returns the bit at the command's bit offset, false beyond
	// the end of the value.
	GetBit(ctx context.Context, cmd command.GetBitCommand) (bit bool, err error)
	// SetBit writes the bit at the command's bit offset, growing the
	// value zero-padded, and returns the previous bit value.
	SetBit(ctx context.Context, cmd command.SetBitCommand) (bit bool, err error)
	// BitCount counts set bits, over the command's inclusive byte range
	// if it has one.
	BitCount(ctx context.Context, cmd command.BitCountCommand) (count int64, err error)
	// BitOp combines the source values with the command's operator and
	// stores the result under the destination key, returning the length
	// of the stored result. NOT permits exactly one source key.
	BitOp(ctx context.Context, cmd command.BitOpCommand) (length int64, err error)
	// StrLen returns the length of the value stored under the command's
	// key, zero if the key does not exist.
	StrLen(ctx context.Context, cmd command.KeyCommand) (length int64, err error)
	// Info returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the
	// information is up-to-date!
	Info(ctx context.Context) (info db.DatabaseInfo, err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("StringStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new store error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// NewErrorf creates a new store error with a formatted message.
func NewErrorf(code RetCode, format string, args ...any) *Error {
	return &Error{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// IsConnectionError reports whether err is a connection-level failure
// that invalidates the whole pipeline invocation rather than a single
// command. The pipeline uses this to decide between a failed envelope
// and early termination.
func IsConnectionError(err error) bool {
	var serr *Error
	return errors.As(err, &serr) && serr.Code == RetCConnection
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidArgument                     // 3: Command argument rejected by the store.
	RetCConnection                          // 4: Connection to the store lost or unusable.
)

// String returns the name of the return code.
func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidArgument:
		return "InvalidArgument"
	case RetCConnection:
		return "Connection"
	default:
		return fmt.Sprintf("RetCode(%d)", uint64(c))
	}
}
