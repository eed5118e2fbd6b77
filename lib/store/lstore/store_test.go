package lstore

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/strandkv/strand/lib/command"
	"github.com/strandkv/strand/lib/db"
	"github.com/strandkv/strand/lib/db/engines/sisal"
	"github.com/strandkv/strand/lib/store"
)

func newTestStore() store.IStringStore {
	return NewLocalStore(func() db.StringDB {
		return sisal.New(sisal.DefaultOptions())
	})
}

// --------------------------------------------------------------------------
// Builder helpers
// --------------------------------------------------------------------------

func setCmd(t *testing.T, key, value string) command.SetCommand {
	t.Helper()
	cmd, err := command.Set([]byte(key))
	if err != nil {
		t.Fatalf("Set(%q): %v", key, err)
	}
	cmd, err = cmd.WithValue([]byte(value))
	if err != nil {
		t.Fatalf("WithValue(%q): %v", value, err)
	}
	return cmd
}

func keyCmd(t *testing.T, key string) command.KeyCommand {
	t.Helper()
	cmd, err := command.NewKey([]byte(key))
	if err != nil {
		t.Fatalf("NewKey(%q): %v", key, err)
	}
	return cmd
}

func appendCmd(t *testing.T, key, value string) command.AppendCommand {
	t.Helper()
	cmd, err := command.Append([]byte(key))
	if err != nil {
		t.Fatalf("Append(%q): %v", key, err)
	}
	cmd, err = cmd.WithValue([]byte(value))
	if err != nil {
		t.Fatalf("WithValue(%q): %v", value, err)
	}
	return cmd
}

func requireValue(t *testing.T, s store.IStringStore, key, want string) {
	t.Helper()
	got, err := s.Get(context.Background(), keyCmd(t, key))
	if err != nil {
		t.Fatalf("Get(%q): %v", key, err)
	}
	if !bytes.Equal(got, []byte(want)) {
		t.Fatalf("Get(%q) = %q, want %q", key, got, want)
	}
}

func requireMissing(t *testing.T, s store.IStringStore, key string) {
	t.Helper()
	got, err := s.Get(context.Background(), keyCmd(t, key))
	if err != nil {
		t.Fatalf("Get(%q): %v", key, err)
	}
	if got != nil {
		t.Fatalf("Get(%q) = %q, want missing", key, got)
	}
}

func requireInvalidArgument(t *testing.T, err error) {
	t.Helper()
	var serr *store.Error
	if !errors.As(err, &serr) || serr.Code != store.RetCInvalidArgument {
		t.Fatalf("expected an InvalidArgument store error, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Set variants
// --------------------------------------------------------------------------

func TestSetAndGet(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	ok, err := s.Set(ctx, setCmd(t, "greeting", "hello"))
	if err != nil || !ok {
		t.Fatalf("Set = (%v, %v), want (true, nil)", ok, err)
	}
	requireValue(t, s, "greeting", "hello")

	// plain set overwrites
	ok, err = s.Set(ctx, setCmd(t, "greeting", "hi"))
	if err != nil || !ok {
		t.Fatalf("Set = (%v, %v), want (true, nil)", ok, err)
	}
	requireValue(t, s, "greeting", "hi")

	requireMissing(t, s, "missing")
}

func TestSetConditionalOptions(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	nx := setCmd(t, "cond", "first").WithOption(command.SetIfAbsent)

	// identical conditional sets: the first stores, the second does not
	ok, err := s.Set(ctx, nx)
	if err != nil || !ok {
		t.Fatalf("first NX set = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = s.Set(ctx, setCmd(t, "cond", "second").WithOption(command.SetIfAbsent))
	if err != nil || ok {
		t.Fatalf("second NX set = (%v, %v), want (false, nil)", ok, err)
	}
	requireValue(t, s, "cond", "first")

	// XX requires the key to exist
	ok, err = s.Set(ctx, setCmd(t, "xx-missing", "v").WithOption(command.SetIfPresent))
	if err != nil || ok {
		t.Fatalf("XX set on missing key = (%v, %v), want (false, nil)", ok, err)
	}
	requireMissing(t, s, "xx-missing")

	ok, err = s.Set(ctx, setCmd(t, "cond", "third").WithOption(command.SetIfPresent))
	if err != nil || !ok {
		t.Fatalf("XX set on existing key = (%v, %v), want (true, nil)", ok, err)
	}
	requireValue(t, s, "cond", "third")
}

func TestSetWithExpiration(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	ok, err := s.Set(ctx, setCmd(t, "transient", "v").Expiring(50*time.Millisecond))
	if err != nil || !ok {
		t.Fatalf("Set = (%v, %v), want (true, nil)", ok, err)
	}
	requireValue(t, s, "transient", "v")

	time.Sleep(120 * time.Millisecond)
	requireMissing(t, s, "transient")

	// an overwrite without expiration clears the previous one
	s.Set(ctx, setCmd(t, "kept", "v").Expiring(50*time.Millisecond))
	s.Set(ctx, setCmd(t, "kept", "v"))
	time.Sleep(120 * time.Millisecond)
	requireValue(t, s, "kept", "v")
}

func TestSetRejectsMissingValue(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	cmd, err := command.Set([]byte("no-value"))
	if err != nil {
		t.Fatalf("Set builder: %v", err)
	}

	if _, err := s.Set(ctx, cmd); err == nil {
		t.Fatalf("expected an error for a Set command without value")
	} else {
		requireInvalidArgument(t, err)
	}
	if _, err := s.GetSet(ctx, cmd); err == nil {
		t.Fatalf("expected an error for a GetSet command without value")
	}
}

func TestSetNX(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	ok, err := s.SetNX(ctx, setCmd(t, "nx", "one"))
	if err != nil || !ok {
		t.Fatalf("SetNX = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = s.SetNX(ctx, setCmd(t, "nx", "two"))
	if err != nil || ok {
		t.Fatalf("repeated SetNX = (%v, %v), want (false, nil)", ok, err)
	}
	requireValue(t, s, "nx", "one")
}

func TestSetEXAndPSetEX(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	ok, err := s.SetEX(ctx, setCmd(t, "ex", "v").Expiring(time.Second))
	if err != nil || !ok {
		t.Fatalf("SetEX = (%v, %v), want (true, nil)", ok, err)
	}
	requireValue(t, s, "ex", "v")

	ok, err = s.PSetEX(ctx, setCmd(t, "pex", "v").Expiring(40*time.Millisecond))
	if err != nil || !ok {
		t.Fatalf("PSetEX = (%v, %v), want (true, nil)", ok, err)
	}
	time.Sleep(100 * time.Millisecond)
	requireMissing(t, s, "pex")

	// both require an expiration at their precision
	if _, err := s.SetEX(ctx, setCmd(t, "ex", "v")); err == nil {
		t.Fatalf("SetEX accepted a command without expiration")
	} else {
		requireInvalidArgument(t, err)
	}
	if _, err := s.SetEX(ctx, setCmd(t, "ex", "v").Expiring(1500*time.Millisecond)); err == nil {
		t.Fatalf("SetEX accepted a sub-second expiration")
	} else {
		requireInvalidArgument(t, err)
	}
	if _, err := s.PSetEX(ctx, setCmd(t, "pex", "v")); err == nil {
		t.Fatalf("PSetEX accepted a command without expiration")
	} else {
		requireInvalidArgument(t, err)
	}
}

// --------------------------------------------------------------------------
// Multi-key operations
// --------------------------------------------------------------------------

func TestMSetThenMGet(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	mset, err := command.MSet(map[string][]byte{
		"alpha": []byte("a"),
		"beta":  []byte("b"),
		"gamma": []byte("c"),
	})
	if err != nil {
		t.Fatalf("MSet builder: %v", err)
	}
	ok, err := s.MSet(ctx, mset)
	if err != nil || !ok {
		t.Fatalf("MSet = (%v, %v), want (true, nil)", ok, err)
	}

	// values come back in request order, missing keys as nil slots
	mget, err := command.MGet([]byte("beta"), []byte("nope"), []byte("alpha"))
	if err != nil {
		t.Fatalf("MGet builder: %v", err)
	}
	values, err := s.MGet(ctx, mget)
	if err != nil {
		t.Fatalf("MGet: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("MGet returned %d values, want 3", len(values))
	}
	if !bytes.Equal(values[0], []byte("b")) || values[1] != nil || !bytes.Equal(values[2], []byte("a")) {
		t.Fatalf("MGet = %q, want [b <nil> a]", values)
	}
}

func TestMSetNXAllOrNothing(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	first, _ := command.MSet(map[string][]byte{"k1": []byte("v1"), "k2": []byte("v2")})
	ok, err := s.MSetNX(ctx, first)
	if err != nil || !ok {
		t.Fatalf("MSetNX on free keys = (%v, %v), want (true, nil)", ok, err)
	}

	// one colliding key refuses the whole batch
	second, _ := command.MSet(map[string][]byte{"k2": []byte("other"), "k3": []byte("v3")})
	ok, err = s.MSetNX(ctx, second)
	if err != nil || ok {
		t.Fatalf("MSetNX with taken key = (%v, %v), want (false, nil)", ok, err)
	}
	requireValue(t, s, "k2", "v2")
	requireMissing(t, s, "k3")
}

// --------------------------------------------------------------------------
// Read-write combinations
// --------------------------------------------------------------------------

func TestGetDel(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Set(ctx, setCmd(t, "doomed", "payload"))

	value, err := s.GetDel(ctx, keyCmd(t, "doomed"))
	if err != nil || !bytes.Equal(value, []byte("payload")) {
		t.Fatalf("GetDel = (%q, %v), want (payload, nil)", value, err)
	}
	requireMissing(t, s, "doomed")

	value, err = s.GetDel(ctx, keyCmd(t, "doomed"))
	if err != nil || value != nil {
		t.Fatalf("GetDel on missing key = (%q, %v), want (nil, nil)", value, err)
	}
}

func TestGetEx(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Set(ctx, setCmd(t, "volatile", "v"))

	// attach an expiration on read
	cmd, err := command.GetEx([]byte("volatile"))
	if err != nil {
		t.Fatalf("GetEx builder: %v", err)
	}
	value, err := s.GetEx(ctx, cmd.Expiring(50*time.Millisecond))
	if err != nil || !bytes.Equal(value, []byte("v")) {
		t.Fatalf("GetEx = (%q, %v), want (v, nil)", value, err)
	}
	time.Sleep(120 * time.Millisecond)
	requireMissing(t, s, "volatile")

	// absent expiration persists the key
	s.Set(ctx, setCmd(t, "pinned", "v").Expiring(50*time.Millisecond))
	persist, _ := command.GetEx([]byte("pinned"))
	if _, err := s.GetEx(ctx, persist); err != nil {
		t.Fatalf("GetEx: %v", err)
	}
	time.Sleep(120 * time.Millisecond)
	requireValue(t, s, "pinned", "v")

	// missing keys stay missing
	missing, _ := command.GetEx([]byte("nope"))
	value, err = s.GetEx(ctx, missing)
	if err != nil || value != nil {
		t.Fatalf("GetEx on missing key = (%q, %v), want (nil, nil)", value, err)
	}
}

func TestGetSet(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	prev, err := s.GetSet(ctx, setCmd(t, "swap", "one"))
	if err != nil || prev != nil {
		t.Fatalf("GetSet on missing key = (%q, %v), want (nil, nil)", prev, err)
	}
	prev, err = s.GetSet(ctx, setCmd(t, "swap", "two"))
	if err != nil || !bytes.Equal(prev, []byte("one")) {
		t.Fatalf("GetSet = (%q, %v), want (one, nil)", prev, err)
	}
	requireValue(t, s, "swap", "two")

	// the overwrite drops a previous expiration
	s.Set(ctx, setCmd(t, "swap", "ttl").Expiring(50*time.Millisecond))
	s.GetSet(ctx, setCmd(t, "swap", "fresh"))
	time.Sleep(120 * time.Millisecond)
	requireValue(t, s, "swap", "fresh")
}

// --------------------------------------------------------------------------
// Append / StrLen
// --------------------------------------------------------------------------

func TestAppend(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	// appending to a missing key creates it
	length, err := s.Append(ctx, appendCmd(t, "log", "Hello"))
	if err != nil || length != 5 {
		t.Fatalf("Append = (%d, %v), want (5, nil)", length, err)
	}
	length, err = s.Append(ctx, appendCmd(t, "log", " World"))
	if err != nil || length != 11 {
		t.Fatalf("Append = (%d, %v), want (11, nil)", length, err)
	}
	requireValue(t, s, "log", "Hello World")
}

func TestStrLen(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Set(ctx, setCmd(t, "sized", "four"))

	length, err := s.StrLen(ctx, keyCmd(t, "sized"))
	if err != nil || length != 4 {
		t.Fatalf("StrLen = (%d, %v), want (4, nil)", length, err)
	}
	length, err = s.StrLen(ctx, keyCmd(t, "missing"))
	if err != nil || length != 0 {
		t.Fatalf("StrLen on missing key = (%d, %v), want (0, nil)", length, err)
	}
}

// --------------------------------------------------------------------------
// Ranged reads and writes
// --------------------------------------------------------------------------

func TestGetRange(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Set(ctx, setCmd(t, "text", "This is a string"))

	tests := []struct {
		name     string
		from, to int64
		want     string
	}{
		{"prefix", 0, 3, "This"},
		{"negative indices", -3, -1, "ing"},
		{"whole value", 0, -1, "This is a string"},
		{"end clamped", 10, 100, "string"},
		{"inverted", 5, 2, ""},
		{"start beyond value", 40, 50, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := command.GetRange([]byte("text"))
			if err != nil {
				t.Fatalf("GetRange builder: %v", err)
			}
			got, err := s.GetRange(ctx, cmd.Within(command.NewRange(tt.from, tt.to)))
			if err != nil {
				t.Fatalf("GetRange: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("GetRange(%d, %d) = %q, want %q", tt.from, tt.to, got, tt.want)
			}
		})
	}

	// a missing key reads as an empty string
	cmd, _ := command.GetRange([]byte("missing"))
	got, err := s.GetRange(ctx, cmd)
	if err != nil || len(got) != 0 {
		t.Fatalf("GetRange on missing key = (%q, %v), want empty", got, err)
	}
}

func TestSetRange(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Set(ctx, setCmd(t, "text", "Hello World"))

	cmd, err := command.Overwrite([]byte("text"))
	if err != nil {
		t.Fatalf("Overwrite builder: %v", err)
	}
	cmd, err = cmd.WithValue([]byte("Redis"))
	if err != nil {
		t.Fatalf("WithValue: %v", err)
	}

	length, err := s.SetRange(ctx, cmd.AtOffset(6))
	if err != nil || length != 11 {
		t.Fatalf("SetRange = (%d, %v), want (11, nil)", length, err)
	}
	requireValue(t, s, "text", "Hello Redis")

	// writing past the end zero-pads the gap
	pad, _ := command.Overwrite([]byte("padded"))
	pad, _ = pad.WithValue([]byte("tail"))
	length, err = s.SetRange(ctx, pad.AtOffset(3))
	if err != nil || length != 7 {
		t.Fatalf("SetRange = (%d, %v), want (7, nil)", length, err)
	}
	requireValue(t, s, "padded", "\x00\x00\x00tail")

	// an empty patch reports the length without writing
	empty, _ := command.Overwrite([]byte("untouched"))
	empty, err = empty.WithValue([]byte{})
	if err != nil {
		t.Fatalf("WithValue(empty): %v", err)
	}
	length, err = s.SetRange(ctx, empty.AtOffset(5))
	if err != nil || length != 0 {
		t.Fatalf("empty SetRange = (%d, %v), want (0, nil)", length, err)
	}
	requireMissing(t, s, "untouched")

	// negative offsets are rejected
	if _, err := s.SetRange(ctx, cmd.AtOffset(-1)); err == nil {
		t.Fatalf("SetRange accepted a negative offset")
	} else {
		requireInvalidArgument(t, err)
	}
}

// --------------------------------------------------------------------------
// Bit operations
// --------------------------------------------------------------------------

func TestGetBitSetBit(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	set, err := command.SetBit([]byte("bits"))
	if err != nil {
		t.Fatalf("SetBit builder: %v", err)
	}

	// setting bit 7 of a missing key yields the byte 0x01
	prior, err := s.SetBit(ctx, set.AtOffset(7).To(true))
	if err != nil || prior {
		t.Fatalf("SetBit = (%v, %v), want (false, nil)", prior, err)
	}
	requireValue(t, s, "bits", "\x01")

	// the previous state comes back on overwrite
	prior, err = s.SetBit(ctx, set.AtOffset(7).To(false))
	if err != nil || !prior {
		t.Fatalf("SetBit on set bit = (%v, %v), want (true, nil)", prior, err)
	}
	requireValue(t, s, "bits", "\x00")

	// bit offsets address from the most significant bit
	s.SetBit(ctx, set.AtOffset(0).To(true))
	requireValue(t, s, "bits", "\x80")

	// writes grow the value zero-padded
	s.SetBit(ctx, set.AtOffset(16).To(true))
	requireValue(t, s, "bits", "\x80\x00\x80")

	get, err := command.GetBit([]byte("bits"))
	if err != nil {
		t.Fatalf("GetBit builder: %v", err)
	}
	bit, err := s.GetBit(ctx, get.AtOffset(0))
	if err != nil || !bit {
		t.Fatalf("GetBit(0) = (%v, %v), want (true, nil)", bit, err)
	}
	bit, err = s.GetBit(ctx, get.AtOffset(1))
	if err != nil || bit {
		t.Fatalf("GetBit(1) = (%v, %v), want (false, nil)", bit, err)
	}

	// reads beyond the value and on missing keys return an unset bit
	bit, err = s.GetBit(ctx, get.AtOffset(4096))
	if err != nil || bit {
		t.Fatalf("GetBit beyond value = (%v, %v), want (false, nil)", bit, err)
	}
	missing, _ := command.GetBit([]byte("missing"))
	bit, err = s.GetBit(ctx, missing.AtOffset(3))
	if err != nil || bit {
		t.Fatalf("GetBit on missing key = (%v, %v), want (false, nil)", bit, err)
	}

	// negative offsets are rejected on both sides
	if _, err := s.GetBit(ctx, get.AtOffset(-1)); err == nil {
		t.Fatalf("GetBit accepted a negative offset")
	}
	if _, err := s.SetBit(ctx, set.AtOffset(-1)); err == nil {
		t.Fatalf("SetBit accepted a negative offset")
	}
}

func TestBitCount(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Set(ctx, setCmd(t, "pop", "foobar"))

	tests := []struct {
		name string
		rng  *command.Range
		want int64
	}{
		{"whole value", nil, 26},
		{"first byte", &command.Range{From: 0, To: 0}, 4},
		{"second byte", &command.Range{From: 1, To: 1}, 6},
		{"negative range", &command.Range{From: 0, To: -1}, 26},
		{"empty range", &command.Range{From: 3, To: 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := command.BitCount([]byte("pop"))
			if err != nil {
				t.Fatalf("BitCount builder: %v", err)
			}
			if tt.rng != nil {
				cmd = cmd.Within(*tt.rng)
			}
			count, err := s.BitCount(ctx, cmd)
			if err != nil {
				t.Fatalf("BitCount: %v", err)
			}
			if count != tt.want {
				t.Errorf("BitCount = %d, want %d", count, tt.want)
			}
		})
	}

	// missing keys count zero bits
	cmd, _ := command.BitCount([]byte("missing"))
	count, err := s.BitCount(ctx, cmd)
	if err != nil || count != 0 {
		t.Fatalf("BitCount on missing key = (%d, %v), want (0, nil)", count, err)
	}
}

func TestBitOp(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Set(ctx, setCmd(t, "all", "\xff"))
	s.Set(ctx, setCmd(t, "low", "\x0f"))

	bitop := func(op command.BitOperation, dest string, keys ...string) (int64, error) {
		t.Helper()
		raw := make([][]byte, len(keys))
		for i, k := range keys {
			raw[i] = []byte(k)
		}
		cmd, err := command.Perform(op).OnKeys(raw...)
		if err != nil {
			t.Fatalf("OnKeys: %v", err)
		}
		cmd, err = cmd.AndSaveAs([]byte(dest))
		if err != nil {
			t.Fatalf("AndSaveAs: %v", err)
		}
		return s.BitOp(ctx, cmd)
	}

	// 0xFF xor 0x0F = 0xF0
	length, err := bitop(command.BitXor, "xor", "all", "low")
	if err != nil || length != 1 {
		t.Fatalf("BitOp XOR = (%d, %v), want (1, nil)", length, err)
	}
	requireValue(t, s, "xor", "\xf0")

	length, err = bitop(command.BitAnd, "and", "all", "low")
	if err != nil || length != 1 {
		t.Fatalf("BitOp AND = (%d, %v), want (1, nil)", length, err)
	}
	requireValue(t, s, "and", "\x0f")

	length, err = bitop(command.BitOr, "or", "all", "low")
	if err != nil || length != 1 {
		t.Fatalf("BitOp OR = (%d, %v), want (1, nil)", length, err)
	}
	requireValue(t, s, "or", "\xff")

	length, err = bitop(command.BitNot, "not", "low")
	if err != nil || length != 1 {
		t.Fatalf("BitOp NOT = (%d, %v), want (1, nil)", length, err)
	}
	requireValue(t, s, "not", "\xf0")

	// shorter and missing sources are zero-padded to the longest
	s.Set(ctx, setCmd(t, "wide", "\xff\xff"))
	length, err = bitop(command.BitOr, "padded-or", "wide", "low", "missing")
	if err != nil || length != 2 {
		t.Fatalf("BitOp OR with padding = (%d, %v), want (2, nil)", length, err)
	}
	requireValue(t, s, "padded-or", "\xff\xff")

	length, err = bitop(command.BitAnd, "padded-and", "wide", "low")
	if err != nil || length != 2 {
		t.Fatalf("BitOp AND with padding = (%d, %v), want (2, nil)", length, err)
	}
	requireValue(t, s, "padded-and", "\x0f\x00")

	// an all-empty result removes the destination
	s.Set(ctx, setCmd(t, "stale-dest", "old"))
	length, err = bitop(command.BitOr, "stale-dest", "missing-a", "missing-b")
	if err != nil || length != 0 {
		t.Fatalf("BitOp over missing sources = (%d, %v), want (0, nil)", length, err)
	}
	requireMissing(t, s, "stale-dest")

	// NOT is unary
	if _, err := bitop(command.BitNot, "bad", "all", "low"); err == nil {
		t.Fatalf("BitOp NOT accepted two sources")
	} else {
		requireInvalidArgument(t, err)
	}
}

// --------------------------------------------------------------------------
// Guards
// --------------------------------------------------------------------------

// limitedDB restricts the advertised features of a wrapped engine.
type limitedDB struct {
	db.StringDB
	features db.Feature
}

func (l *limitedDB) SupportsFeature(feature db.Feature) bool {
	return l.features&feature == feature
}

func TestUnsupportedOperations(t *testing.T) {
	s := NewLocalStore(func() db.StringDB {
		return &limitedDB{
			StringDB: sisal.New(sisal.DefaultOptions()),
			features: db.FeatureGet,
		}
	})
	ctx := context.Background()

	if _, err := s.Set(ctx, setCmd(t, "k", "v")); err == nil {
		t.Fatalf("Set succeeded on an engine without write support")
	} else {
		var serr *store.Error
		if !errors.As(err, &serr) || serr.Code != store.RetCUnsupportedOperation {
			t.Fatalf("expected an UnsupportedOperation store error, got %v", err)
		}
	}

	// reads still work
	if _, err := s.Get(ctx, keyCmd(t, "k")); err != nil {
		t.Fatalf("Get failed on a read-only engine: %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	s := newTestStore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Get(ctx, keyCmd(t, "k")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := s.Set(ctx, setCmd(t, "k", "v")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestInfo(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Set(ctx, setCmd(t, "k", "v"))

	info, err := s.Info(ctx)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.DbType != db.ImplSisal {
		t.Errorf("Info.DbType = %q, want %q", info.DbType, db.ImplSisal)
	}
	if info.Keys < 1 {
		t.Errorf("Info.Keys = %d, want at least 1", info.Keys)
	}
}
