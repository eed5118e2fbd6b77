package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/strandkv/strand/lib/command"
	"github.com/strandkv/strand/lib/db"
	"github.com/strandkv/strand/lib/db/engines/sisal"
	"github.com/strandkv/strand/lib/store"
	"github.com/strandkv/strand/lib/store/lstore"
	"github.com/strandkv/strand/rpc/common"
)

// adapterTestStore creates a string store backed by a fresh in-memory
// engine.
func adapterTestStore() store.IStringStore {
	return lstore.NewLocalStore(func() db.StringDB { return sisal.New(sisal.DBOptions{}) })
}

// mustOk fails the test if the response carries an error or a false Ok.
func mustOk(t *testing.T, resp *common.Message) {
	t.Helper()
	if err := resp.Error(); err != nil {
		t.Fatalf("unexpected error response: %v", err)
	}
	if !resp.Ok {
		t.Fatalf("expected Ok response, got %+v", resp)
	}
}

func TestAdapterWriteReadFlow(t *testing.T) {
	adapter := NewStringStoreServerAdapter()
	str := adapterTestStore()
	ctx := context.Background()

	mustOk(t, adapter.Handle(ctx, common.NewSetRequest("greeting", []byte("hello"), 0, false, command.Upsert), str))

	// read back
	resp := adapter.Handle(ctx, common.NewGetRequest("greeting"), str)
	if got := resp.ValueBytes(); !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("get = %q, want %q", got, "hello")
	}

	// missing keys read as nil
	resp = adapter.Handle(ctx, common.NewGetRequest("nope"), str)
	if got := resp.ValueBytes(); got != nil {
		t.Fatalf("get on missing key = %q, want nil", got)
	}

	// append and report the new length
	resp = adapter.Handle(ctx, common.NewAppendRequest("greeting", []byte(" world")), str)
	if err := resp.Error(); err != nil || resp.Num != 11 {
		t.Fatalf("append = (%d, %v), want (11, nil)", resp.Num, err)
	}

	resp = adapter.Handle(ctx, common.NewStrLenRequest("greeting"), str)
	if resp.Num != 11 {
		t.Fatalf("strlen = %d, want 11", resp.Num)
	}

	// substring read
	resp = adapter.Handle(ctx, common.NewGetRangeRequest("greeting", 6, -1), str)
	if got := resp.ValueBytes(); !bytes.Equal(got, []byte("world")) {
		t.Fatalf("getrange = %q, want %q", got, "world")
	}

	// overwrite part of the value
	resp = adapter.Handle(ctx, common.NewSetRangeRequest("greeting", 6, []byte("there")), str)
	if err := resp.Error(); err != nil || resp.Num != 11 {
		t.Fatalf("setrange = (%d, %v), want (11, nil)", resp.Num, err)
	}

	// swap and return the previous value
	resp = adapter.Handle(ctx, common.NewGetSetRequest("greeting", []byte("bye")), str)
	if got := resp.ValueBytes(); !bytes.Equal(got, []byte("hello there")) {
		t.Fatalf("getset = %q, want %q", got, "hello there")
	}

	// read and delete
	resp = adapter.Handle(ctx, common.NewGetDelRequest("greeting"), str)
	if got := resp.ValueBytes(); !bytes.Equal(got, []byte("bye")) {
		t.Fatalf("getdel = %q, want %q", got, "bye")
	}
	resp = adapter.Handle(ctx, common.NewGetRequest("greeting"), str)
	if resp.Ok {
		t.Fatal("key still present after getdel")
	}
}

// A request whose value was dropped by the serializer (zero-length fields
// are omitted on the wire) must decode back to an empty value, not to a
// missing one.
func TestAdapterEmptyValueNormalization(t *testing.T) {
	adapter := NewStringStoreServerAdapter()
	str := adapterTestStore()
	ctx := context.Background()

	mustOk(t, adapter.Handle(ctx, common.NewSetRequest("blank", nil, 0, false, command.Upsert), str))

	resp := adapter.Handle(ctx, common.NewGetRequest("blank"), str)
	got := resp.ValueBytes()
	if got == nil || len(got) != 0 {
		t.Fatalf("get = %v, want empty value", got)
	}
}

func TestAdapterConditionalSets(t *testing.T) {
	adapter := NewStringStoreServerAdapter()
	str := adapterTestStore()
	ctx := context.Background()

	// setnx wins on a free key, loses on a taken one
	mustOk(t, adapter.Handle(ctx, common.NewSetNXRequest("lock", []byte("a")), str))
	resp := adapter.Handle(ctx, common.NewSetNXRequest("lock", []byte("b")), str)
	if err := resp.Error(); err != nil || resp.Ok {
		t.Fatalf("second setnx = (%v, %v), want (false, nil)", resp.Ok, err)
	}

	// set with the XX option only writes existing keys
	resp = adapter.Handle(ctx, common.NewSetRequest("fresh", []byte("x"), 0, false, command.SetIfPresent), str)
	if resp.Ok {
		t.Fatal("set XX wrote a missing key")
	}
	resp = adapter.Handle(ctx, common.NewSetRequest("lock", []byte("c"), 0, false, command.SetIfPresent), str)
	if !resp.Ok {
		t.Fatal("set XX refused an existing key")
	}

	// setex requires a positive expiration in whole seconds
	resp = adapter.Handle(ctx, common.NewSetEXRequest("ttl", []byte("v"), 0, false), str)
	assertErrCode(t, resp, store.RetCInvalidArgument)
	resp = adapter.Handle(ctx, common.NewSetEXRequest("ttl", []byte("v"), 1500*time.Millisecond, true), str)
	assertErrCode(t, resp, store.RetCInvalidArgument)
	mustOk(t, adapter.Handle(ctx, common.NewSetEXRequest("ttl", []byte("v"), 2*time.Second, true), str))

	// psetex accepts millisecond precision
	mustOk(t, adapter.Handle(ctx, common.NewPSetEXRequest("ttl-ms", []byte("v"), 1500*time.Millisecond, true), str))
}

func TestAdapterMultiKey(t *testing.T) {
	adapter := NewStringStoreServerAdapter()
	str := adapterTestStore()
	ctx := context.Background()

	pairs := map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
		"c": {},
	}
	mustOk(t, adapter.Handle(ctx, common.NewMSetRequest(pairs), str))

	// result order follows request order, missing keys read as nil and
	// empty values survive
	resp := adapter.Handle(ctx, common.NewMGetRequest([]string{"b", "missing", "c", "a"}), str)
	if err := resp.Error(); err != nil {
		t.Fatalf("mget failed: %v", err)
	}
	want := [][]byte{[]byte("2"), nil, {}, []byte("1")}
	if got := resp.MGetValues(); !reflect.DeepEqual(got, want) {
		t.Fatalf("mget = %q, want %q", got, want)
	}

	// msetnx refuses when any key is taken
	resp = adapter.Handle(ctx, common.NewMSetNXRequest(map[string][]byte{
		"a": []byte("9"),
		"z": []byte("9"),
	}), str)
	if err := resp.Error(); err != nil || resp.Ok {
		t.Fatalf("msetnx over taken key = (%v, %v), want (false, nil)", resp.Ok, err)
	}
	resp = adapter.Handle(ctx, common.NewGetRequest("z"), str)
	if resp.Ok {
		t.Fatal("msetnx partially applied")
	}
}

func TestAdapterBitOps(t *testing.T) {
	adapter := NewStringStoreServerAdapter()
	str := adapterTestStore()
	ctx := context.Background()

	// setbit grows the value and returns the prior bit
	resp := adapter.Handle(ctx, common.NewSetBitRequest("bits", 7, true), str)
	if err := resp.Error(); err != nil || resp.Bit {
		t.Fatalf("setbit = (%v, %v), want (false, nil)", resp.Bit, err)
	}
	resp = adapter.Handle(ctx, common.NewGetBitRequest("bits", 7), str)
	if !resp.Bit {
		t.Fatal("getbit lost the written bit")
	}
	resp = adapter.Handle(ctx, common.NewGetBitRequest("bits", 100), str)
	if resp.Bit {
		t.Fatal("getbit past the value reported a set bit")
	}

	// bits = 0x01, so exactly one bit is set
	resp = adapter.Handle(ctx, common.NewBitCountRequest("bits", 0, 0, false), str)
	if resp.Num != 1 {
		t.Fatalf("bitcount = %d, want 1", resp.Num)
	}

	// xor of a value with itself clears every bit
	mustOk(t, adapter.Handle(ctx, common.NewSetRequest("x", []byte{0xff, 0x0f}, 0, false, command.Upsert), str))
	resp = adapter.Handle(ctx, common.NewBitOpRequest(command.BitXor, "dest", []string{"x", "x"}), str)
	if err := resp.Error(); err != nil || resp.Num != 2 {
		t.Fatalf("bitop = (%d, %v), want (2, nil)", resp.Num, err)
	}
	resp = adapter.Handle(ctx, common.NewBitCountRequest("dest", 0, 0, false), str)
	if resp.Num != 0 {
		t.Fatalf("bitcount after xor = %d, want 0", resp.Num)
	}

	// not takes exactly one source
	resp = adapter.Handle(ctx, common.NewBitOpRequest(command.BitNot, "dest", []string{"x", "x"}), str)
	assertErrCode(t, resp, store.RetCInvalidArgument)
}

func TestAdapterInfo(t *testing.T) {
	adapter := NewStringStoreServerAdapter()
	str := adapterTestStore()
	ctx := context.Background()

	mustOk(t, adapter.Handle(ctx, common.NewSetRequest("k", []byte("v"), 0, false, command.Upsert), str))

	resp := adapter.Handle(ctx, common.NewInfoRequest(), str)
	if err := resp.Error(); err != nil {
		t.Fatalf("info failed: %v", err)
	}

	var info db.DatabaseInfo
	if err := json.Unmarshal(resp.Meta, &info); err != nil {
		t.Fatalf("info meta does not decode: %v", err)
	}
	if info.Keys != 1 {
		t.Errorf("info.Keys = %d, want 1", info.Keys)
	}
}

// Malformed requests must be answered with typed argument errors without
// touching the store.
func TestAdapterInvalidRequests(t *testing.T) {
	adapter := NewStringStoreServerAdapter()
	str := adapterTestStore()
	ctx := context.Background()

	tests := []struct {
		name string
		req  *common.Message
	}{
		{"set without key", common.NewSetRequest("", []byte("v"), 0, false, command.Upsert)},
		{"get without key", common.NewGetRequest("")},
		{"mget without keys", common.NewMGetRequest(nil)},
		{"mset without pairs", common.NewMSetRequest(nil)},
		{"bitop without destination", common.NewBitOpRequest(command.BitAnd, "", []string{"a"})},
		{"bitop without sources", common.NewBitOpRequest(command.BitAnd, "dest", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := adapter.Handle(ctx, tt.req, str)
			assertErrCode(t, resp, store.RetCInvalidArgument)
		})
	}

	// nothing must have been written
	resp := adapter.Handle(ctx, common.NewInfoRequest(), str)
	var info db.DatabaseInfo
	if err := json.Unmarshal(resp.Meta, &info); err != nil {
		t.Fatalf("info meta does not decode: %v", err)
	}
	if info.Keys != 0 {
		t.Errorf("store holds %d keys after rejected requests, want 0", info.Keys)
	}
}

func TestAdapterUnsupportedMessageType(t *testing.T) {
	adapter := NewStringStoreServerAdapter()
	resp := adapter.Handle(context.Background(), &common.Message{MsgType: common.MsgTCustom}, adapterTestStore())
	if resp.MsgType != common.MsgTError || resp.Err == "" {
		t.Fatalf("unsupported type response = %+v, want error", resp)
	}
}

func TestAdapterNilStore(t *testing.T) {
	adapter := NewStringStoreServerAdapter()
	resp := adapter.Handle(context.Background(), common.NewGetRequest("k"), nil)
	if resp.MsgType != common.MsgTError || resp.Err == "" {
		t.Fatalf("nil store response = %+v, want error", resp)
	}
}

func TestAdapterCancelledContext(t *testing.T) {
	adapter := NewStringStoreServerAdapter()
	str := adapterTestStore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := adapter.Handle(ctx, common.NewGetRequest("k"), str)
	if resp.Error() == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}

// assertErrCode fails the test unless the response folds a store error
// with the given code.
func assertErrCode(t *testing.T, resp *common.Message, code store.RetCode) {
	t.Helper()
	err := resp.Error()
	if err == nil {
		t.Fatal("expected an error response")
	}
	var serr *store.Error
	if !errors.As(err, &serr) {
		t.Fatalf("expected *store.Error, got %T (%v)", err, err)
	}
	if serr.Code != code {
		t.Fatalf("error code = %v, want %v", serr.Code, code)
	}
}
