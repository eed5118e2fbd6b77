package serializer

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/strandkv/strand/lib/command"
	"github.com/strandkv/strand/lib/store"
	"github.com/strandkv/strand/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled.
// The messages are built through the rpc/common factories so they carry the
// normalized payload shapes that actually travel between client and server.
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Requests across the operation families
		*common.NewSetRequest("user:1", []byte("alice"), 10*time.Second, true, command.SetIfAbsent),
		*common.NewSetNXRequest("user:2", []byte("bob")),
		*common.NewSetEXRequest("session:9", []byte("token"), 30*time.Second, true),
		*common.NewMSetRequest(map[string][]byte{"a": []byte("1"), "b": []byte("2")}),
		*common.NewGetRequest("user:1"),
		*common.NewGetExRequest("session:9", 0, false),
		*common.NewMGetRequest([]string{"a", "b", "c"}),
		*common.NewAppendRequest("log", []byte(" entry")),
		*common.NewGetRangeRequest("msg", 0, -1),
		*common.NewSetRangeRequest("msg", 6, []byte("Redis")),
		*common.NewSetBitRequest("bits", 7, true),
		*common.NewBitCountRequest("bits", 1, 1, true),
		*common.NewBitOpRequest(command.BitXor, "dest", []string{"x", "y"}),
		*common.NewInfoRequest(),

		// Responses
		*common.NewSetResponse(true, nil),
		*common.NewGetResponse([]byte("alice"), nil),
		*common.NewMGetResponse([][]byte{[]byte("1"), []byte("2")}, nil),
		*common.NewStrLenResponse(42, nil),
		*common.NewGetBitResponse(true, nil),
		*common.NewInfoResponse([]byte(`{"keys":10}`), nil),

		// Error responses keep the typed return code
		*common.NewSetEXResponse(false, store.NewError(store.RetCInvalidArgument, "SetEX requires a positive expiration")),
		*common.NewErrorResponse("connection reset"),

		// Message with many fields filled
		{
			MsgType:  common.MsgTStrBitCount,
			Key:      "test-key",
			TTL:      int64(time.Minute),
			HasTTL:   true,
			Offset:   12,
			Start:    -4,
			End:      -1,
			HasRange: true,
			Ok:       true,
			Num:      1337,
			Err:      "test error message",
			ErrCode:  uint64(store.RetCInternalError),
			Meta:     []byte("test-meta-data"),
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test for MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTCustom; msgType++ {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestValueSemantics tests that the missing/empty value distinction survives
// every serializer. Not every format keeps nil and empty byte slices apart on
// the wire, so the semantic accessors must agree after a round trip.
func TestValueSemantics(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			roundTrip := func(t *testing.T, msg *common.Message) *common.Message {
				t.Helper()
				data, err := serializer.Serialize(*msg)
				if err != nil {
					t.Fatalf("Failed to serialize: %v", err)
				}
				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Fatalf("Failed to deserialize: %v", err)
				}
				return &result
			}

			// Missing value stays nil
			resp := roundTrip(t, common.NewGetResponse(nil, nil))
			if got := resp.ValueBytes(); got != nil {
				t.Errorf("missing value: expected nil, got %v", got)
			}

			// Present but empty value stays empty
			resp = roundTrip(t, common.NewGetResponse([]byte{}, nil))
			if got := resp.ValueBytes(); got == nil || len(got) != 0 {
				t.Errorf("empty value: expected empty slice, got %v", got)
			}

			// MGet slots keep present, missing, and empty apart
			want := [][]byte{[]byte("v"), nil, []byte{}}
			resp = roundTrip(t, common.NewMGetResponse(want, nil))
			if got := resp.MGetValues(); !reflect.DeepEqual(want, got) {
				t.Errorf("mget values: expected %v, got %v", want, got)
			}
		})
	}
}

// TestErrorRoundTrip tests that typed store errors survive serialization
func TestErrorRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			orig := store.NewError(store.RetCUnsupportedOperation, "BitOp operation is not supported")
			data, err := serializer.Serialize(*common.NewBitOpResponse(0, orig))
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var result common.Message
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			rebuilt := result.Error()
			if rebuilt == nil {
				t.Fatal("expected an error after round trip, got nil")
			}
			if !reflect.DeepEqual(rebuilt, orig) {
				t.Errorf("error doesn't match after round trip: expected %v, got %v", orig, rebuilt)
			}
			var serr *store.Error
			if !errors.As(rebuilt, &serr) || serr.Code != store.RetCUnsupportedOperation {
				t.Errorf("expected return code %v, got %+v", store.RetCUnsupportedOperation, serr)
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	// The binary format is exact for these shapes, so a deep comparison
	// after the round trip is sufficient
	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Message with empty strings and zero values",
			msg: common.Message{
				MsgType: common.MsgTStrSet,
				Key:     "",
				TTL:     0,
				Ok:      false,
				Err:     "",
			},
		},
		{
			name: "Message with Ok=true but no value",
			msg: common.Message{
				MsgType: common.MsgTStrGet,
				Ok:      true,
				Value:   nil,
			},
		},
		{
			name: "Message with empty value slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTStrSet,
				Key:     "test",
				Value:   []byte{},
			},
		},
		{
			name: "Message with empty meta slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTCustom,
				Meta:    []byte{},
			},
		},
		{
			name: "Message with zero TTL marked present",
			msg: common.Message{
				MsgType: common.MsgTStrGetEx,
				Key:     "k",
				TTL:     0,
				HasTTL:  true,
			},
		},
		{
			name: "Message with zero range marked present",
			msg: common.Message{
				MsgType:  common.MsgTStrBitCount,
				Key:      "k",
				Start:    0,
				End:      0,
				HasRange: true,
			},
		},
		{
			name: "Message with negative range bounds",
			msg: common.Message{
				MsgType:  common.MsgTStrGetRange,
				Key:      "k",
				Start:    -4,
				End:      -1,
				HasRange: true,
			},
		},
		{
			name: "Message with error code but empty error text",
			msg: common.Message{
				MsgType: common.MsgTError,
				ErrCode: uint64(store.RetCConnection),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Serialize
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			// Deserialize
			var result common.Message
			err = serializer.Deserialize(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			if !reflect.DeepEqual(tc.msg, result) {
				t.Errorf("Message doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
					tc.msg, result)
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1, 0}, // Message type and half a flags word
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for key",
			data:        []byte{1, 0, 1, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims key length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for value",
			data:        []byte{1, 0, 2, 0, 0, 0, 10}, // Claims value length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Truncated keys count",
			data:        []byte{1, 0, 4, 0, 0}, // Keys flag set but count cut off
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
