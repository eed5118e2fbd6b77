package lstore

import (
	"context"
	"math/bits"
	"sync"
	"time"

	"github.com/strandkv/strand/lib/command"
	"github.com/strandkv/strand/lib/db"
	"github.com/strandkv/strand/lib/store"
)

// maxValueSize caps the length of a stored string (512MB). SetRange and
// SetBit can grow values by offset and are bounded by it.
const maxValueSize = 512 * 1024 * 1024

type storeImpl struct {
	db db.StringDB

	// mu coordinates mutations: single-key mutations share the read
	// side (the engine already serializes per key), operations whose
	// read-check-write span covers several keys or several engine calls
	// (MSet, MSetNX, BitOp, GetSet, GetDel, GetEx) take the write side.
	// Plain reads do not lock; they observe per-key states.
	mu sync.RWMutex
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works on a single node.
// It executes every command directly against the injected db.StringDB engine.
func NewLocalStore(factory store.DBFactory) store.IStringStore {
	return &storeImpl{
		db: factory(),
	}
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

/// begin guards an operation: a cancelled invocation context and a missing
// engine feature both fail the command before it touches the database.
func (s *storeImpl) begin(ctx context.Context, feature db.Feature, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.db.SupportsFeature(feature) {
		return store.NewErrorf(store.RetCUnsupportedOperation, "%s operation is not supported", op)
	}
	return nil
}

// resolveRange maps an inclusive start/end pair onto half-open byte
// offsets within a value of length n. Negative indices count from the
// end. The ok result is false when the resolved range is empty.
func resolveRange(start, end, n int64) (from, to int64, ok bool) {
	if n == 0 {
		return 0, 0, false
	}
	if start < 0 {
		start = n + start
		if start < 0 {
			start = 0
		}
	}
	if end < 0 {
		end = n + end
	}
	if end >= n {
		end = n - 1
	}
	if start >= n || end < 0 || start > end {
		return 0, 0, false
	}
	return start, end + 1, true
}

// bit offsets address bits from the most significant bit of the first
// byte, so bit 0 is the 0x80 bit of byte 0.
func bitIndex(offset int64) (byteIdx int64, mask byte) {
	return offset / 8, 1 << (7 - uint(offset%8))
}

func copyAppend(old, tail []byte) []byte {
	next := make([]byte, 0, len(old)+len(tail))
	return append(append(next, old...), tail...)
}

// --------------------------------------------------------------------------
// Interface Methods: Writes (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(ctx context.Context, cmd command.SetCommand) (bool, error) {
	if cmd.Value() == nil {
		return false, store.NewError(store.RetCInvalidArgument, "Set command has no value")
	}
	key := string(cmd.Key())
	ttl, _ := cmd.Expiration()

	switch cmd.Option() {
	case command.SetIfAbsent:
		if err := s.begin(ctx, db.FeatureSetCond, "Set(NX)"); err != nil {
			return false, err
		}
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.db.SetCond(key, cmd.Value(), ttl, db.CondIfUnset), nil

	case command.SetIfPresent:
		if err := s.begin(ctx, db.FeatureSetCond, "Set(XX)"); err != nil {
			return false, err
		}
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.db.SetCond(key, cmd.Value(), ttl, db.CondIfSet), nil

	default:
		if err := s.begin(ctx, db.FeatureSet, "Set"); err != nil {
			return false, err
		}
		s.mu.RLock()
		defer s.mu.RUnlock()
		s.db.SetE(key, cmd.Value(), ttl)
		return true, nil
	}
}

func (s *storeImpl) SetNX(ctx context.Context, cmd command.SetCommand) (bool, error) {
	if cmd.Value() == nil {
		return false, store.NewError(store.RetCInvalidArgument, "SetNX command has no value")
	}
	if err := s.begin(ctx, db.FeatureSetCond, "SetNX"); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.SetCond(string(cmd.Key()), cmd.Value(), 0, db.CondIfUnset), nil
}

func (s *storeImpl) SetEX(ctx context.Context, cmd command.SetCommand) (bool, error) {
	return s.setWithTTL(ctx, cmd, "SetEX", time.Second)
}

func (s *storeImpl) PSetEX(ctx context.Context, cmd command.SetCommand) (bool, error) {
	return s.setWithTTL(ctx, cmd, "PSetEX", time.Millisecond)
}

// setWithTTL stores unconditionally with a required expiration at the
// given precision.
func (s *storeImpl) setWithTTL(ctx context.Context, cmd command.SetCommand, op string, precision time.Duration) (bool, error) {
	if cmd.Value() == nil {
		return false, store.NewErrorf(store.RetCInvalidArgument, "%s command has no value", op)
	}
	ttl, ok := cmd.Expiration()
	if !ok || ttl <= 0 {
		return false, store.NewErrorf(store.RetCInvalidArgument, "%s requires a positive expiration", op)
	}
	if ttl%precision != 0 {
		return false, store.NewErrorf(store.RetCInvalidArgument, "%s requires an expiration in whole %v steps", op, precision)
	}
	if err := s.begin(ctx, db.FeatureSet, op); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	s.db.SetE(string(cmd.Key()), cmd.Value(), ttl)
	return true, nil
}

func (s *storeImpl) MSet(ctx context.Context, cmd command.MSetCommand) (bool, error) {
	if err := s.begin(ctx, db.FeatureSet, "MSet"); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range cmd.Entries() {
		s.db.SetE(key, value, 0)
	}
	return true, nil
}

func (s *storeImpl) MSetNX(ctx context.Context, cmd command.MSetCommand) (bool, error) {
	if err := s.begin(ctx, db.FeatureSet|db.FeatureHas, "MSetNX"); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// all keys must be free, otherwise nothing is written
	for key := range cmd.Entries() {
		if s.db.Has(key) {
			return false, nil
		}
	}
	for key, value := range cmd.Entries() {
		s.db.SetE(key, value, 0)
	}
	return true, nil
}

// --------------------------------------------------------------------------
// Interface Methods: Reads (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(ctx context.Context, cmd command.KeyCommand) ([]byte, error) {
	if err := s.begin(ctx, db.FeatureGet, "Get"); err != nil {
		return nil, err
	}
	value, _ := s.db.Get(string(cmd.Key()))
	return value, nil
}

func (s *storeImpl) GetDel(ctx context.Context, cmd command.KeyCommand) ([]byte, error) {
	if err := s.begin(ctx, db.FeatureGet|db.FeatureDelete, "GetDel"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(cmd.Key())
	value, loaded := s.db.Get(key)
	if loaded {
		s.db.Delete(key)
	}
	return value, nil
}

func (s *storeImpl) GetEx(ctx context.Context, cmd command.GetExCommand) ([]byte, error) {
	if err := s.begin(ctx, db.FeatureGet|db.FeatureExpire, "GetEx"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(cmd.Key())
	value, loaded := s.db.Get(key)
	if loaded {
		// absent expiration persists the key
		ttl, _ := cmd.Expiration()
		s.db.Expire(key, ttl)
	}
	return value, nil
}

func (s *storeImpl) GetSet(ctx context.Context, cmd command.SetCommand) ([]byte, error) {
	if cmd.Value() == nil {
		return nil, store.NewError(store.RetCInvalidArgument, "GetSet command has no value")
	}
	if err := s.begin(ctx, db.FeatureGet|db.FeatureSet, "GetSet"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// a plain overwrite, so any previous ttl is dropped
	key := string(cmd.Key())
	value, _ := s.db.Get(key)
	s.db.Set(key, cmd.Value())
	return value, nil
}

func (s *storeImpl) MGet(ctx context.Context, cmd command.MGetCommand) ([][]byte, error) {
	if err := s.begin(ctx, db.FeatureGet, "MGet"); err != nil {
		return nil, err
	}

	values := make([][]byte, len(cmd.Keys()))
	for i, key := range cmd.Keys() {
		values[i], _ = s.db.Get(string(key))
	}
	return values, nil
}

func (s *storeImpl) StrLen(ctx context.Context, cmd command.KeyCommand) (int64, error) {
	if err := s.begin(ctx, db.FeatureGet, "StrLen"); err != nil {
		return 0, err
	}
	value, _ := s.db.Get(string(cmd.Key()))
	return int64(len(value)), nil
}

// --------------------------------------------------------------------------
// Interface Methods: Range Operations (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Append(ctx context.Context, cmd command.AppendCommand) (int64, error) {
	if cmd.Value() == nil {
		return 0, store.NewError(store.RetCInvalidArgument, "Append command has no value")
	}
	if err := s.begin(ctx, db.FeatureUpdate, "Append"); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// the engine update keeps an existing ttl, as Append must
	var length int64
	s.db.Update(string(cmd.Key()), func(old []byte, loaded bool) ([]byte, bool) {
		next := copyAppend(old, cmd.Value())
		length = int64(len(next))
		return next, true
	})
	return length, nil
}

func (s *storeImpl) GetRange(ctx context.Context, cmd command.RangeCommand) ([]byte, error) {
	if err := s.begin(ctx, db.FeatureGet, "GetRange"); err != nil {
		return nil, err
	}

	value, _ := s.db.Get(string(cmd.Key()))
	rng := cmd.Range()

	from, to, ok := resolveRange(rng.From, rng.To, int64(len(value)))
	if !ok {
		return []byte{}, nil
	}
	return value[from:to], nil
}

func (s *storeImpl) SetRange(ctx context.Context, cmd command.SetRangeCommand) (int64, error) {
	if cmd.Value() == nil {
		return 0, store.NewError(store.RetCInvalidArgument, "SetRange command has no value")
	}
	offset := cmd.Offset()
	if offset < 0 {
		return 0, store.NewError(store.RetCInvalidArgument, "SetRange offset must not be negative")
	}
	if offset+int64(len(cmd.Value())) > maxValueSize {
		return 0, store.NewError(store.RetCInvalidArgument, "SetRange result exceeds the maximum value size")
	}
	if err := s.begin(ctx, db.FeatureUpdate, "SetRange"); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	key := string(cmd.Key())

	// an empty patch writes nothing, not even an empty value
	if len(cmd.Value()) == 0 {
		value, _ := s.db.Get(key)
		return int64(len(value)), nil
	}

	var length int64
	s.db.Update(key, func(old []byte, loaded bool) ([]byte, bool) {
		end := offset + int64(len(cmd.Value()))
		next := old
		if int64(len(old)) < end {
			// grow zero-padded, copying out of the engine's buffer
			next = make([]byte, end)
			copy(next, old)
		} else {
			next = copyAppend(old, nil)
		}
		copy(next[offset:], cmd.Value())
		length = int64(len(next))
		return next, true
	})
	return length, nil
}

// --------------------------------------------------------------------------
// Interface Methods: Bit Operations (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) GetBit(ctx context.Context, cmd command.GetBitCommand) (bool, error) {
	if cmd.Offset() < 0 {
		return false, store.NewError(store.RetCInvalidArgument, "GetBit offset must not be negative")
	}
	if err := s.begin(ctx, db.FeatureGet, "GetBit"); err != nil {
		return false, err
	}

	value, _ := s.db.Get(string(cmd.Key()))
	byteIdx, mask := bitIndex(cmd.Offset())
	if byteIdx >= int64(len(value)) {
		return false, nil
	}
	return value[byteIdx]&mask != 0, nil
}

func (s *storeImpl) SetBit(ctx context.Context, cmd command.SetBitCommand) (bool, error) {
	offset := cmd.Offset()
	if offset < 0 {
		return false, store.NewError(store.RetCInvalidArgument, "SetBit offset must not be negative")
	}
	byteIdx, mask := bitIndex(offset)
	if byteIdx >= maxValueSize {
		return false, store.NewError(store.RetCInvalidArgument, "SetBit offset exceeds the maximum value size")
	}
	if err := s.begin(ctx, db.FeatureUpdate, "SetBit"); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var prior bool
	s.db.Update(string(cmd.Key()), func(old []byte, loaded bool) ([]byte, bool) {
		var next []byte
		if int64(len(old)) <= byteIdx {
			next = make([]byte, byteIdx+1)
			copy(next, old)
		} else {
			next = copyAppend(old, nil)
		}

		prior = next[byteIdx]&mask != 0
		if cmd.Bit() {
			next[byteIdx] |= mask
		} else {
			next[byteIdx] &^= mask
		}
		return next, true
	})
	return prior, nil
}

func (s *storeImpl) BitCount(ctx context.Context, cmd command.BitCountCommand) (int64, error) {
	if err := s.begin(ctx, db.FeatureGet, "BitCount"); err != nil {
		return 0, err
	}

	value, _ := s.db.Get(string(cmd.Key()))

	from, to := int64(0), int64(len(value))
	if rng, ok := cmd.Range(); ok {
		var nonEmpty bool
		from, to, nonEmpty = resolveRange(rng.From, rng.To, int64(len(value)))
		if !nonEmpty {
			return 0, nil
		}
	}

	var count int64
	for _, b := range value[from:to] {
		count += int64(bits.OnesCount8(b))
	}
	return count, nil
}

func (s *storeImpl) BitOp(ctx context.Context, cmd command.BitOpCommand) (int64, error) {
	if cmd.Op() == command.BitNot && len(cmd.Keys()) != 1 {
		return 0, store.NewError(store.RetCInvalidArgument, "BitOp NOT takes exactly one source key")
	}
	if err := s.begin(ctx, db.FeatureGet|db.FeatureSet|db.FeatureDelete, "BitOp"); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// missing sources count as empty, shorter sources are zero-padded
	sources := make([][]byte, len(cmd.Keys()))
	var length int64
	for i, key := range cmd.Keys() {
		sources[i], _ = s.db.Get(string(key))
		if n := int64(len(sources[i])); n > length {
			length = n
		}
	}

	dest := string(cmd.Destination())
	if length == 0 {
		s.db.Delete(dest)
		return 0, nil
	}

	result := make([]byte, length)
	if cmd.Op() == command.BitNot {
		for i, b := range sources[0] {
			result[i] = ^b
		}
	} else {
		copy(result, sources[0])
		for _, src := range sources[1:] {
			for i := int64(0); i < length; i++ {
				var b byte
				if i < int64(len(src)) {
					b = src[i]
				}
				switch cmd.Op() {
				case command.BitAnd:
					result[i] &= b
				case command.BitOr:
					result[i] |= b
				case command.BitXor:
					result[i] ^= b
				}
			}
		}
	}

	s.db.Set(dest, result)
	return length, nil
}

// --------------------------------------------------------------------------
// Interface Methods: Info (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Info(ctx context.Context) (db.DatabaseInfo, error) {
	if err := ctx.Err(); err != nil {
		return db.DatabaseInfo{}, err
	}
	return s.db.GetInfo(), nil
}
