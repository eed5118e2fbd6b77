package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/strandkv/strand/lib/command"
	"github.com/strandkv/strand/lib/store"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Request fields
	Key      string            `json:"key,omitempty"`       // Single-key operations; BitOp: destination key
	Value    []byte            `json:"value,omitempty"`     // Set family, Append, SetRange (request); Get family, GetRange (response)
	Keys     []string          `json:"keys,omitempty"`      // MGet; BitOp: source keys
	Pairs    map[string][]byte `json:"pairs,omitempty"`     // MSet, MSetNX
	TTL      int64             `json:"ttl,omitempty"`       // Expiration in nanoseconds, only meaningful when HasTTL is set
	HasTTL   bool              `json:"has_ttl,omitempty"`   // Marks TTL as present (Set, SetEX, PSetEX, GetEx)
	Option   uint8             `json:"option,omitempty"`    // Set: command.SetOption; BitOp: command.BitOperation
	Offset   int64             `json:"offset,omitempty"`    // SetRange (bytes); GetBit, SetBit (bits)
	Start    int64             `json:"start,omitempty"`     // GetRange, BitCount: inclusive range start
	End      int64             `json:"end,omitempty"`       // GetRange, BitCount: inclusive range end
	HasRange bool              `json:"has_range,omitempty"` // Marks Start/End as present
	Bit      bool              `json:"bit,omitempty"`       // SetBit (request); GetBit, SetBit (response)

	// Response only fields
	Ok      bool     `json:"ok,omitempty"`       // Boolean results; value responses: marks Value as present
	Num     int64    `json:"num,omitempty"`      // Numeric results (lengths and counts)
	Values  [][]byte `json:"values,omitempty"`   // MGet results, aligned with the requested keys
	Present []bool   `json:"present,omitempty"`  // MGet: marks which Values slots hold a value
	Err     string   `json:"err,omitempty"`      // Empty if no error, otherwise contains the error message
	ErrCode uint64   `json:"err_code,omitempty"` // store.RetCode of the error, if any

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Info response payload, free-form for custom adapters
}

// --------------------------------------------------------------------------
// Error Folding
// --------------------------------------------------------------------------

// setErr folds an error into a response message. Store errors keep their
// return code so the receiving side can rebuild the typed error.
func setErr(msg *Message, err error) {
	if err == nil {
		return
	}
	var serr *store.Error
	if errors.As(err, &serr) {
		msg.Err = serr.Msg
		msg.ErrCode = uint64(serr.Code)
		return
	}
	msg.Err = err.Error()
	msg.ErrCode = uint64(store.RetCInternalError)
}

// Error rebuilds the error carried by the message, nil if it has none.
func (m *Message) Error() error {
	if m.Err == "" {
		return nil
	}
	return store.NewError(store.RetCode(m.ErrCode), m.Err)
}

// ValueBytes rebuilds a single-value result. The Ok flag restores the
// distinction between a missing value (nil) and a present but empty one,
// which not every serializer keeps apart on the wire.
func (m *Message) ValueBytes() []byte {
	if !m.Ok {
		return nil
	}
	if m.Value == nil {
		return []byte{}
	}
	return m.Value
}

// MGetValues rebuilds an MGet result, restoring nil slots for values the
// Present flags mark as missing.
func (m *Message) MGetValues() [][]byte {
	if m.Values == nil {
		return nil
	}
	values := make([][]byte, len(m.Values))
	for i, v := range m.Values {
		if i >= len(m.Present) || !m.Present[i] {
			continue
		}
		if v == nil {
			v = []byte{}
		}
		values[i] = v
	}
	return values
}

// --------------------------------------------------------------------------
// Message Factory Functions: Writes
// --------------------------------------------------------------------------

// NewSetRequest creates a new Set request
func NewSetRequest(key string, value []byte, ttl time.Duration, hasTTL bool, option command.SetOption) *Message {
	return &Message{
		MsgType: MsgTStrSet,
		Key:     key,
		Value:   value,
		TTL:     int64(ttl),
		HasTTL:  hasTTL,
		Option:  uint8(option),
	}
}

// NewSetResponse creates a new Set response
func NewSetResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrSet,
		Ok:      ok,
	}
	setErr(msg, err)
	return msg
}

// NewSetNXRequest creates a new SetNX request
func NewSetNXRequest(key string, value []byte) *Message {
	return &Message{
		MsgType: MsgTStrSetNX,
		Key:     key,
		Value:   value,
	}
}

// NewSetNXResponse creates a new SetNX response
func NewSetNXResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrSetNX,
		Ok:      ok,
	}
	setErr(msg, err)
	return msg
}

// NewSetEXRequest creates a new SetEX request
func NewSetEXRequest(key string, value []byte, ttl time.Duration, hasTTL bool) *Message {
	return &Message{
		MsgType: MsgTStrSetEX,
		Key:     key,
		Value:   value,
		TTL:     int64(ttl),
		HasTTL:  hasTTL,
	}
}

// NewSetEXResponse creates a new SetEX response
func NewSetEXResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrSetEX,
		Ok:      ok,
	}
	setErr(msg, err)
	return msg
}

// NewPSetEXRequest creates a new PSetEX request
func NewPSetEXRequest(key string, value []byte, ttl time.Duration, hasTTL bool) *Message {
	return &Message{
		MsgType: MsgTStrPSetEX,
		Key:     key,
		Value:   value,
		TTL:     int64(ttl),
		HasTTL:  hasTTL,
	}
}

// NewPSetEXResponse creates a new PSetEX response
func NewPSetEXResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrPSetEX,
		Ok:      ok,
	}
	setErr(msg, err)
	return msg
}

// NewMSetRequest creates a new MSet request
func NewMSetRequest(pairs map[string][]byte) *Message {
	return &Message{
		MsgType: MsgTStrMSet,
		Pairs:   pairs,
	}
}

// NewMSetResponse creates a new MSet response
func NewMSetResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrMSet,
		Ok:      ok,
	}
	setErr(msg, err)
	return msg
}

// NewMSetNXRequest creates a new MSetNX request
func NewMSetNXRequest(pairs map[string][]byte) *Message {
	return &Message{
		MsgType: MsgTStrMSetNX,
		Pairs:   pairs,
	}
}

// NewMSetNXResponse creates a new MSetNX response
func NewMSetNXResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrMSetNX,
		Ok:      ok,
	}
	setErr(msg, err)
	return msg
}

// --------------------------------------------------------------------------
// Message Factory Functions: Reads
// --------------------------------------------------------------------------

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{
		MsgType: MsgTStrGet,
		Key:     key,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrGet,
		Value:   value,
		Ok:      value != nil,
	}
	setErr(msg, err)
	return msg
}

// NewGetDelRequest creates a new GetDel request
func NewGetDelRequest(key string) *Message {
	return &Message{
		MsgType: MsgTStrGetDel,
		Key:     key,
	}
}

// NewGetDelResponse creates a new GetDel response
func NewGetDelResponse(value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrGetDel,
		Value:   value,
		Ok:      value != nil,
	}
	setErr(msg, err)
	return msg
}

// NewGetExRequest creates a new GetEx request
func NewGetExRequest(key string, ttl time.Duration, hasTTL bool) *Message {
	return &Message{
		MsgType: MsgTStrGetEx,
		Key:     key,
		TTL:     int64(ttl),
		HasTTL:  hasTTL,
	}
}

// NewGetExResponse creates a new GetEx response
func NewGetExResponse(value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrGetEx,
		Value:   value,
		Ok:      value != nil,
	}
	setErr(msg, err)
	return msg
}

// NewGetSetRequest creates a new GetSet request
func NewGetSetRequest(key string, value []byte) *Message {
	return &Message{
		MsgType: MsgTStrGetSet,
		Key:     key,
		Value:   value,
	}
}

// NewGetSetResponse creates a new GetSet response
func NewGetSetResponse(value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrGetSet,
		Value:   value,
		Ok:      value != nil,
	}
	setErr(msg, err)
	return msg
}

// NewMGetRequest creates a new MGet request
func NewMGetRequest(keys []string) *Message {
	return &Message{
		MsgType: MsgTStrMGet,
		Keys:    keys,
	}
}

// NewMGetResponse creates a new MGet response. Missing values (nil slots)
// travel as empty slots plus a cleared Present flag so the distinction
// survives every serializer.
func NewMGetResponse(values [][]byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrMGet,
	}
	if len(values) > 0 {
		msg.Values = make([][]byte, len(values))
		msg.Present = make([]bool, len(values))
		for i, v := range values {
			if v == nil {
				msg.Values[i] = []byte{}
				continue
			}
			msg.Values[i] = v
			msg.Present[i] = true
		}
	}
	setErr(msg, err)
	return msg
}

// NewStrLenRequest creates a new StrLen request
func NewStrLenRequest(key string) *Message {
	return &Message{
		MsgType: MsgTStrStrLen,
		Key:     key,
	}
}

// NewStrLenResponse creates a new StrLen response
func NewStrLenResponse(length int64, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrStrLen,
		Num:     length,
	}
	setErr(msg, err)
	return msg
}

// --------------------------------------------------------------------------
// Message Factory Functions: Range Operations
// --------------------------------------------------------------------------

// NewAppendRequest creates a new Append request
func NewAppendRequest(key string, value []byte) *Message {
	return &Message{
		MsgType: MsgTStrAppend,
		Key:     key,
		Value:   value,
	}
}

// NewAppendResponse creates a new Append response
func NewAppendResponse(length int64, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrAppend,
		Num:     length,
	}
	setErr(msg, err)
	return msg
}

// NewGetRangeRequest creates a new GetRange request
func NewGetRangeRequest(key string, start, end int64) *Message {
	return &Message{
		MsgType:  MsgTStrGetRange,
		Key:      key,
		Start:    start,
		End:      end,
		HasRange: true,
	}
}

// NewGetRangeResponse creates a new GetRange response
func NewGetRangeResponse(value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrGetRange,
		Value:   value,
		Ok:      value != nil,
	}
	setErr(msg, err)
	return msg
}

// NewSetRangeRequest creates a new SetRange request
func NewSetRangeRequest(key string, offset int64, value []byte) *Message {
	return &Message{
		MsgType: MsgTStrSetRange,
		Key:     key,
		Offset:  offset,
		Value:   value,
	}
}

// NewSetRangeResponse creates a new SetRange response
func NewSetRangeResponse(length int64, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrSetRange,
		Num:     length,
	}
	setErr(msg, err)
	return msg
}

// --------------------------------------------------------------------------
// Message Factory Functions: Bit Operations
// --------------------------------------------------------------------------

// NewGetBitRequest creates a new GetBit request
func NewGetBitRequest(key string, offset int64) *Message {
	return &Message{
		MsgType: MsgTStrGetBit,
		Key:     key,
		Offset:  offset,
	}
}

// NewGetBitResponse creates a new GetBit response
func NewGetBitResponse(bit bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrGetBit,
		Bit:     bit,
	}
	setErr(msg, err)
	return msg
}

// NewSetBitRequest creates a new SetBit request
func NewSetBitRequest(key string, offset int64, bit bool) *Message {
	return &Message{
		MsgType: MsgTStrSetBit,
		Key:     key,
		Offset:  offset,
		Bit:     bit,
	}
}

// NewSetBitResponse creates a new SetBit response carrying the prior bit
func NewSetBitResponse(bit bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrSetBit,
		Bit:     bit,
	}
	setErr(msg, err)
	return msg
}

// NewBitCountRequest creates a new BitCount request
func NewBitCountRequest(key string, start, end int64, hasRange bool) *Message {
	return &Message{
		MsgType:  MsgTStrBitCount,
		Key:      key,
		Start:    start,
		End:      end,
		HasRange: hasRange,
	}
}

// NewBitCountResponse creates a new BitCount response
func NewBitCountResponse(count int64, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrBitCount,
		Num:     count,
	}
	setErr(msg, err)
	return msg
}

// NewBitOpRequest creates a new BitOp request. The destination key rides
// in Key, the source keys in Keys.
func NewBitOpRequest(op command.BitOperation, dest string, keys []string) *Message {
	return &Message{
		MsgType: MsgTStrBitOp,
		Option:  uint8(op),
		Key:     dest,
		Keys:    keys,
	}
}

// NewBitOpResponse creates a new BitOp response
func NewBitOpResponse(length int64, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrBitOp,
		Num:     length,
	}
	setErr(msg, err)
	return msg
}

// --------------------------------------------------------------------------
// Message Factory Functions: Info, Custom and Errors
// --------------------------------------------------------------------------

// NewInfoRequest creates a new Info request
func NewInfoRequest() *Message {
	return &Message{
		MsgType: MsgTStrInfo,
	}
}

// NewInfoResponse creates a new Info response. The info payload is the
// JSON-marshalled db.DatabaseInfo and rides in Meta.
func NewInfoResponse(info []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTStrInfo,
		Meta:    info,
	}
	setErr(msg, err)
	return msg
}

// NewCustomRequest creates a new Custom request
func NewCustomRequest(meta []byte) *Message {
	return &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
}

// NewCustomResponse creates a new Custom response
func NewCustomResponse(meta []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
	setErr(msg, err)
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
		ErrCode: uint64(store.RetCInternalError),
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTStrSet:
		return "set"
	case MsgTStrSetNX:
		return "setnx"
	case MsgTStrSetEX:
		return "setex"
	case MsgTStrPSetEX:
		return "psetex"
	case MsgTStrMSet:
		return "mset"
	case MsgTStrMSetNX:
		return "msetnx"
	case MsgTStrGet:
		return "get"
	case MsgTStrGetDel:
		return "getdel"
	case MsgTStrGetEx:
		return "getex"
	case MsgTStrGetSet:
		return "getset"
	case MsgTStrMGet:
		return "mget"
	case MsgTStrStrLen:
		return "strlen"
	case MsgTStrAppend:
		return "append"
	case MsgTStrGetRange:
		return "getrange"
	case MsgTStrSetRange:
		return "setrange"
	case MsgTStrGetBit:
		return "getbit"
	case MsgTStrSetBit:
		return "setbit"
	case MsgTStrBitCount:
		return "bitcount"
	case MsgTStrBitOp:
		return "bitop"
	case MsgTStrInfo:
		return "info"
	case MsgTCustom:
		return "custom"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "set":
		*t = MsgTStrSet
	case "setnx":
		*t = MsgTStrSetNX
	case "setex":
		*t = MsgTStrSetEX
	case "psetex":
		*t = MsgTStrPSetEX
	case "mset":
		*t = MsgTStrMSet
	case "msetnx":
		*t = MsgTStrMSetNX
	case "get":
		*t = MsgTStrGet
	case "getdel":
		*t = MsgTStrGetDel
	case "getex":
		*t = MsgTStrGetEx
	case "getset":
		*t = MsgTStrGetSet
	case "mget":
		*t = MsgTStrMGet
	case "strlen":
		*t = MsgTStrStrLen
	case "append":
		*t = MsgTStrAppend
	case "getrange":
		*t = MsgTStrGetRange
	case "setrange":
		*t = MsgTStrSetRange
	case "getbit":
		*t = MsgTStrGetBit
	case "setbit":
		*t = MsgTStrSetBit
	case "bitcount":
		*t = MsgTStrBitCount
	case "bitop":
		*t = MsgTStrBitOp
	case "info":
		*t = MsgTStrInfo
	case "custom":
		*t = MsgTCustom
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStringStore write operations

	MsgTStrSet    // Set a key-value pair, honoring option and expiration
	MsgTStrSetNX  // Set a key-value pair if the key does not exist
	MsgTStrSetEX  // Set a key-value pair with a seconds expiration
	MsgTStrPSetEX // Set a key-value pair with a milliseconds expiration
	MsgTStrMSet   // Set several key-value pairs
	MsgTStrMSetNX // Set several key-value pairs if none of the keys exist

	// IStringStore read operations

	MsgTStrGet    // Get a value by key
	MsgTStrGetDel // Get a value and delete the key
	MsgTStrGetEx  // Get a value and update its expiration
	MsgTStrGetSet // Get the previous value and store a new one
	MsgTStrMGet   // Get several values at once
	MsgTStrStrLen // Get the length of a value

	// IStringStore range operations

	MsgTStrAppend   // Append to a value
	MsgTStrGetRange // Get a substring of a value
	MsgTStrSetRange // Overwrite part of a value

	// IStringStore bit operations

	MsgTStrGetBit   // Read a single bit
	MsgTStrSetBit   // Write a single bit
	MsgTStrBitCount // Count set bits
	MsgTStrBitOp    // Combine values bitwise into a destination key

	// Store metadata operations

	MsgTStrInfo // Get metadata about the remote store

	// Custom operations

	MsgTCustom // Custom operation type
)
