package base

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
)

// connPair creates a connected TCP socket pair over the loopback interface
func connPair(t *testing.T) (client net.Conn, server net.Conn) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer listener.Close()

	var acceptErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		server, acceptErr = listener.Accept()
	}()

	client, err = net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	<-done
	if acceptErr != nil {
		t.Fatalf("failed to accept: %v", acceptErr)
	}

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

// TestFrameRoundTrip tests that frames survive the wire with different
// payload sizes and read buffer configurations
func TestFrameRoundTrip(t *testing.T) {
	testCases := []struct {
		name      string
		dbID      uint64
		requestID uint64
		data      []byte
		buf       []byte
	}{
		{name: "Empty payload", dbID: 1, requestID: 42, data: []byte{}, buf: nil},
		{name: "Small payload", dbID: 0, requestID: 1, data: []byte("hello"), buf: make([]byte, 512)},
		{name: "Buffer too small", dbID: 7, requestID: 99, data: bytes.Repeat([]byte("x"), 4096), buf: make([]byte, 64)},
		{name: "Large payload", dbID: 3, requestID: 1 << 40, data: bytes.Repeat([]byte("payload-"), 16*1024), buf: nil},
	}

	client, server := connPair(t)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Write concurrently, large frames block until the reader drains them
			errCh := make(chan error, 1)
			go func() {
				errCh <- writeFrame(client, tc.dbID, tc.requestID, tc.data)
			}()

			dbID, requestID, data, err := readFrame(server, tc.buf)
			if err != nil {
				t.Fatalf("failed to read frame: %v", err)
			}
			if writeErr := <-errCh; writeErr != nil {
				t.Fatalf("failed to write frame: %v", writeErr)
			}

			if dbID != tc.dbID {
				t.Errorf("expected dbID %d, got %d", tc.dbID, dbID)
			}
			if requestID != tc.requestID {
				t.Errorf("expected requestID %d, got %d", tc.requestID, requestID)
			}
			if !bytes.Equal(tc.data, data) {
				t.Errorf("payload doesn't match after round trip (%d bytes vs %d bytes)", len(tc.data), len(data))
			}
		})
	}
}

// TestFrameReadErrors tests that truncated frames surface as read errors
func TestFrameReadErrors(t *testing.T) {
	t.Run("Truncated header", func(t *testing.T) {
		client, server := connPair(t)

		client.Write(make([]byte, 10))
		client.Close()

		if _, _, _, err := readFrame(server, nil); err == nil {
			t.Error("expected error for truncated header")
		}
	})

	t.Run("Truncated payload", func(t *testing.T) {
		client, server := connPair(t)

		// Header claims 100 payload bytes, only 7 follow
		header := make([]byte, 20)
		binary.BigEndian.PutUint64(header[:8], 1)
		binary.BigEndian.PutUint64(header[8:16], 2)
		binary.BigEndian.PutUint32(header[16:20], 100)
		client.Write(header)
		client.Write([]byte("partial"))
		client.Close()

		if _, _, _, err := readFrame(server, nil); err == nil {
			t.Error("expected error for truncated payload")
		}
	})

	t.Run("Closed connection", func(t *testing.T) {
		client, server := connPair(t)

		client.Close()

		if _, _, _, err := readFrame(server, nil); err == nil {
			t.Error("expected error for closed connection")
		}
	})
}
