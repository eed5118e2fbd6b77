package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/strandkv/strand/lib/store"
)

// TestErrorFolding tests that errors fold into the message and rebuild on the far side
func TestErrorFolding(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		wantMsg  string
		wantCode store.RetCode
	}{
		{
			name:     "Typed store error",
			err:      store.NewError(store.RetCInvalidArgument, "expiration must be positive"),
			wantMsg:  "expiration must be positive",
			wantCode: store.RetCInvalidArgument,
		},
		{
			name:     "Wrapped store error",
			err:      fmt.Errorf("remote call: %w", store.NewError(store.RetCUnsupportedOperation, "not supported")),
			wantMsg:  "not supported",
			wantCode: store.RetCUnsupportedOperation,
		},
		{
			name:     "Plain error becomes internal",
			err:      errors.New("disk full"),
			wantMsg:  "disk full",
			wantCode: store.RetCInternalError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := NewSetResponse(false, tc.err)

			if resp.Err != tc.wantMsg {
				t.Errorf("expected err %q, got %q", tc.wantMsg, resp.Err)
			}
			if resp.ErrCode != uint64(tc.wantCode) {
				t.Errorf("expected code %d, got %d", tc.wantCode, resp.ErrCode)
			}

			rebuilt := resp.Error()
			var serr *store.Error
			if !errors.As(rebuilt, &serr) {
				t.Fatalf("expected a store error, got %T", rebuilt)
			}
			if serr.Code != tc.wantCode || serr.Msg != tc.wantMsg {
				t.Errorf("rebuilt error doesn't match: %+v", serr)
			}
		})
	}

	// No error means no error fields and Error() returns nil
	resp := NewSetResponse(true, nil)
	if resp.Err != "" || resp.ErrCode != 0 {
		t.Errorf("expected clean message, got err=%q code=%d", resp.Err, resp.ErrCode)
	}
	if err := resp.Error(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

// TestValueBytes tests the missing/empty/present value distinction
func TestValueBytes(t *testing.T) {
	testCases := []struct {
		name  string
		value []byte
		want  []byte
	}{
		{name: "Missing value", value: nil, want: nil},
		{name: "Empty value", value: []byte{}, want: []byte{}},
		{name: "Present value", value: []byte("data"), want: []byte("data")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := NewGetResponse(tc.value, nil)
			got := resp.ValueBytes()

			if (got == nil) != (tc.want == nil) {
				t.Fatalf("nil-ness doesn't match: expected %v, got %v", tc.want, got)
			}
			if !reflect.DeepEqual(tc.want, got) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

// TestMGetValues tests that per-slot presence survives the factory normalization
func TestMGetValues(t *testing.T) {
	values := [][]byte{[]byte("first"), nil, []byte{}, []byte("fourth")}

	resp := NewMGetResponse(values, nil)

	// The wire shape carries no nil slots, presence rides in the parallel slice
	for i, v := range resp.Values {
		if v == nil {
			t.Errorf("slot %d: wire shape must not contain nil", i)
		}
	}
	wantPresent := []bool{true, false, true, true}
	if !reflect.DeepEqual(wantPresent, resp.Present) {
		t.Errorf("expected present %v, got %v", wantPresent, resp.Present)
	}

	// The accessor rebuilds the original slots
	if got := resp.MGetValues(); !reflect.DeepEqual(values, got) {
		t.Errorf("expected %v, got %v", values, got)
	}
}

// TestMessageTypeJSON tests the JSON representation of message types
func TestMessageTypeJSON(t *testing.T) {
	for msgType := MsgTSuccess; msgType <= MsgTCustom; msgType++ {
		data, err := json.Marshal(msgType)
		if err != nil {
			t.Fatalf("failed to marshal %s: %v", msgType.String(), err)
		}

		var result MessageType
		if err := json.Unmarshal(data, &result); err != nil {
			t.Fatalf("failed to unmarshal %s: %v", string(data), err)
		}
		if result != msgType {
			t.Errorf("expected %s, got %s", msgType.String(), result.String())
		}
	}

	// Unknown names must be rejected
	var result MessageType
	if err := json.Unmarshal([]byte(`"no-such-type"`), &result); err == nil {
		t.Error("expected error for unknown message type")
	}
}
