package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/strandkv/strand/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present. Fields that
// only make sense together travel together: TTL rides with its HasTTL
// marker, Start/End with HasRange, Values with Present, Err with ErrCode.
const (
	hasKey    uint16 = 1 << 0
	hasValue  uint16 = 1 << 1
	hasKeys   uint16 = 1 << 2
	hasPairs  uint16 = 1 << 3
	hasTTL    uint16 = 1 << 4
	hasOffset uint16 = 1 << 5
	hasRange  uint16 = 1 << 6
	hasOption uint16 = 1 << 7
	hasBit    uint16 = 1 << 8
	hasOk     uint16 = 1 << 9
	hasNum    uint16 = 1 << 10
	hasValues uint16 = 1 << 11
	hasErr    uint16 = 1 << 12
	hasMeta   uint16 = 1 << 13
)

// headerSize is 1 byte for MsgType plus 2 bytes for the flags word
const headerSize = 3

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	totalSize := b.sizeBytes(msg)
	result := make([]byte, totalSize)

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags word
	var flags uint16 = 0

	// Set position for writing
	pos := headerSize

	// Handle Key
	if msg.Key != "" {
		flags |= hasKey
		pos = putBytes(result, pos, []byte(msg.Key))
	}

	// Handle Value
	if msg.Value != nil {
		flags |= hasValue
		pos = putBytes(result, pos, msg.Value)
	}

	// Handle Keys
	if msg.Keys != nil {
		flags |= hasKeys
		pos = putUint32(result, pos, uint32(len(msg.Keys)))
		for _, key := range msg.Keys {
			pos = putBytes(result, pos, []byte(key))
		}
	}

	// Handle Pairs
	if msg.Pairs != nil {
		flags |= hasPairs
		pos = putUint32(result, pos, uint32(len(msg.Pairs)))
		for key, value := range msg.Pairs {
			pos = putBytes(result, pos, []byte(key))
			pos = putBytes(result, pos, value)
		}
	}

	// Handle TTL
	if msg.HasTTL || msg.TTL != 0 {
		flags |= hasTTL
		pos = putUint64(result, pos, uint64(msg.TTL))
		pos = putBool(result, pos, msg.HasTTL)
	}

	// Handle Offset
	if msg.Offset != 0 {
		flags |= hasOffset
		pos = putUint64(result, pos, uint64(msg.Offset))
	}

	// Handle Range
	if msg.HasRange || msg.Start != 0 || msg.End != 0 {
		flags |= hasRange
		pos = putUint64(result, pos, uint64(msg.Start))
		pos = putUint64(result, pos, uint64(msg.End))
		pos = putBool(result, pos, msg.HasRange)
	}

	// Handle Option
	if msg.Option != 0 {
		flags |= hasOption
		result[pos] = msg.Option
		pos++
	}

	// Handle Bit
	if msg.Bit {
		flags |= hasBit
		pos = putBool(result, pos, msg.Bit)
	}

	// Handle Ok
	if msg.Ok {
		flags |= hasOk
		pos = putBool(result, pos, msg.Ok)
	}

	// Handle Num
	if msg.Num != 0 {
		flags |= hasNum
		pos = putUint64(result, pos, uint64(msg.Num))
	}

	// Handle Values and Present
	if msg.Values != nil {
		flags |= hasValues
		pos = putUint32(result, pos, uint32(len(msg.Values)))
		for _, value := range msg.Values {
			pos = putBytes(result, pos, value)
		}
		pos = putUint32(result, pos, uint32(len(msg.Present)))
		for _, p := range msg.Present {
			pos = putBool(result, pos, p)
		}
	}

	// Handle Err and ErrCode
	if msg.Err != "" || msg.ErrCode != 0 {
		flags |= hasErr
		pos = putBytes(result, pos, []byte(msg.Err))
		pos = putUint64(result, pos, msg.ErrCode)
	}

	// Handle Meta
	if msg.Meta != nil {
		flags |= hasMeta
		pos = putBytes(result, pos, msg.Meta)
	}

	// Set flags word after knowing which fields are present
	binary.BigEndian.PutUint16(result[1:3], flags)

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	// Read message type and flags
	msg.MsgType = common.MessageType(data[0])
	flags := binary.BigEndian.Uint16(data[1:3])

	r := &frameReader{data: data, pos: headerSize}

	// Read Key if present
	if flags&hasKey != 0 {
		key, err := r.bytes("key")
		if err != nil {
			return err
		}
		msg.Key = string(key)
	} else {
		msg.Key = ""
	}

	// Read Value if present
	if flags&hasValue != 0 {
		value, err := r.bytes("value")
		if err != nil {
			return err
		}
		msg.Value = value
	} else {
		msg.Value = nil
	}

	// Read Keys if present
	if flags&hasKeys != 0 {
		count, err := r.uint32("keys count")
		if err != nil {
			return err
		}
		keys := make([]string, count)
		for i := range keys {
			key, err := r.bytes("keys entry")
			if err != nil {
				return err
			}
			keys[i] = string(key)
		}
		msg.Keys = keys
	} else {
		msg.Keys = nil
	}

	// Read Pairs if present
	if flags&hasPairs != 0 {
		count, err := r.uint32("pairs count")
		if err != nil {
			return err
		}
		pairs := make(map[string][]byte, count)
		for i := uint32(0); i < count; i++ {
			key, err := r.bytes("pairs key")
			if err != nil {
				return err
			}
			value, err := r.bytes("pairs value")
			if err != nil {
				return err
			}
			pairs[string(key)] = value
		}
		msg.Pairs = pairs
	} else {
		msg.Pairs = nil
	}

	// Read TTL if present
	if flags&hasTTL != 0 {
		ttl, err := r.uint64("ttl")
		if err != nil {
			return err
		}
		hasTTL, err := r.boolean("ttl marker")
		if err != nil {
			return err
		}
		msg.TTL = int64(ttl)
		msg.HasTTL = hasTTL
	} else {
		msg.TTL = 0
		msg.HasTTL = false
	}

	// Read Offset if present
	if flags&hasOffset != 0 {
		offset, err := r.uint64("offset")
		if err != nil {
			return err
		}
		msg.Offset = int64(offset)
	} else {
		msg.Offset = 0
	}

	// Read Range if present
	if flags&hasRange != 0 {
		start, err := r.uint64("range start")
		if err != nil {
			return err
		}
		end, err := r.uint64("range end")
		if err != nil {
			return err
		}
		hasRange, err := r.boolean("range marker")
		if err != nil {
			return err
		}
		msg.Start = int64(start)
		msg.End = int64(end)
		msg.HasRange = hasRange
	} else {
		msg.Start = 0
		msg.End = 0
		msg.HasRange = false
	}

	// Read Option if present
	if flags&hasOption != 0 {
		option, err := r.byte("option")
		if err != nil {
			return err
		}
		msg.Option = option
	} else {
		msg.Option = 0
	}

	// Read Bit if present
	if flags&hasBit != 0 {
		bit, err := r.boolean("bit")
		if err != nil {
			return err
		}
		msg.Bit = bit
	} else {
		msg.Bit = false
	}

	// Read Ok if present
	if flags&hasOk != 0 {
		ok, err := r.boolean("ok flag")
		if err != nil {
			return err
		}
		msg.Ok = ok
	} else {
		msg.Ok = false
	}

	// Read Num if present
	if flags&hasNum != 0 {
		num, err := r.uint64("num")
		if err != nil {
			return err
		}
		msg.Num = int64(num)
	} else {
		msg.Num = 0
	}

	// Read Values and Present if present
	if flags&hasValues != 0 {
		count, err := r.uint32("values count")
		if err != nil {
			return err
		}
		values := make([][]byte, count)
		for i := range values {
			value, err := r.bytes("values entry")
			if err != nil {
				return err
			}
			values[i] = value
		}
		msg.Values = values

		pcount, err := r.uint32("present count")
		if err != nil {
			return err
		}
		if pcount > 0 {
			present := make([]bool, pcount)
			for i := range present {
				p, err := r.boolean("present entry")
				if err != nil {
					return err
				}
				present[i] = p
			}
			msg.Present = present
		} else {
			msg.Present = nil
		}
	} else {
		msg.Values = nil
		msg.Present = nil
	}

	// Read Err and ErrCode if present
	if flags&hasErr != 0 {
		errStr, err := r.bytes("error")
		if err != nil {
			return err
		}
		errCode, err := r.uint64("error code")
		if err != nil {
			return err
		}
		msg.Err = string(errStr)
		msg.ErrCode = errCode
	} else {
		msg.Err = ""
		msg.ErrCode = 0
	}

	// Read Meta if present
	if flags&hasMeta != 0 {
		meta, err := r.bytes("meta")
		if err != nil {
			return err
		}
		msg.Meta = meta
	} else {
		msg.Meta = nil
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize

	// Add sizes for fields that require length encoding
	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Keys != nil {
		size += 4
		for _, key := range msg.Keys {
			size += 4 + len(key)
		}
	}
	if msg.Pairs != nil {
		size += 4
		for key, value := range msg.Pairs {
			size += 4 + len(key) + 4 + len(value)
		}
	}
	if msg.HasTTL || msg.TTL != 0 {
		size += 8 + 1
	}
	if msg.Offset != 0 {
		size += 8
	}
	if msg.HasRange || msg.Start != 0 || msg.End != 0 {
		size += 8 + 8 + 1
	}
	if msg.Option != 0 {
		size += 1
	}
	if msg.Bit {
		size += 1
	}
	if msg.Ok {
		size += 1
	}
	if msg.Num != 0 {
		size += 8
	}
	if msg.Values != nil {
		size += 4
		for _, value := range msg.Values {
			size += 4 + len(value)
		}
		size += 4 + len(msg.Present)
	}
	if msg.Err != "" || msg.ErrCode != 0 {
		size += 4 + len(msg.Err) + 8
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}

	return size
}

// putUint32 writes a big endian uint32 and returns the new position
func putUint32(b []byte, pos int, v uint32) int {
	binary.BigEndian.PutUint32(b[pos:pos+4], v)
	return pos + 4
}

// putUint64 writes a big endian uint64 and returns the new position
func putUint64(b []byte, pos int, v uint64) int {
	binary.BigEndian.PutUint64(b[pos:pos+8], v)
	return pos + 8
}

// putBool writes a single boolean byte and returns the new position
func putBool(b []byte, pos int, v bool) int {
	if v {
		b[pos] = 1
	} else {
		b[pos] = 0
	}
	return pos + 1
}

// putBytes writes a length-prefixed byte slice and returns the new position
func putBytes(b []byte, pos int, data []byte) int {
	pos = putUint32(b, pos, uint32(len(data)))
	copy(b[pos:pos+len(data)], data)
	return pos + len(data)
}

// frameReader reads typed fields off a serialized message and reports
// truncated data with the name of the field that could not be read
type frameReader struct {
	data []byte
	pos  int
}

func (r *frameReader) uint32(field string) (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s", field)
	}
	v := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *frameReader) uint64(field string) (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s", field)
	}
	v := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

func (r *frameReader) byte(field string) (byte, error) {
	if r.pos+1 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s", field)
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *frameReader) boolean(field string) (bool, error) {
	v, err := r.byte(field)
	return v != 0, err
}

// bytes reads a length-prefixed byte slice. A present field of length
// zero yields an empty, non-nil slice.
func (r *frameReader) bytes(field string) ([]byte, error) {
	length, err := r.uint32(field + " length")
	if err != nil {
		return nil, err
	}
	if r.pos+int(length) > len(r.data) {
		return nil, fmt.Errorf("data too short for %s data", field)
	}
	out := make([]byte, length)
	copy(out, r.data[r.pos:r.pos+int(length)])
	r.pos += int(length)
	return out, nil
}
