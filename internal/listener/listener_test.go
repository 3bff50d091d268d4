package listener

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	v1 "github.com/mr-ih/IoT-Blockchain-System/internal/api/v1"
)

// chanSink collects enqueued envelopes for assertions.
type chanSink struct {
	envelopes chan v1.Envelope
	accept    bool
}

func newChanSink() *chanSink {
	return &chanSink{envelopes: make(chan v1.Envelope, 16), accept: true}
}

func (s *chanSink) Enqueue(env v1.Envelope) bool {
	if !s.accept {
		return false
	}
	s.envelopes <- env
	return true
}

// startListener binds an ephemeral port and runs the listener until the test
// ends.
func startListener(t *testing.T, sink Sink) (*Listener, *net.UDPConn) {
	t.Helper()

	l, err := New(v1.DeviceCardReader, "127.0.0.1", 0, sink)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("listener did not stop")
		}
	})

	conn, err := net.DialUDP("udp", nil, l.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return l, conn
}

func TestListener_ForwardsValidDatagram(t *testing.T) {
	sink := newChanSink()
	_, conn := startListener(t, sink)

	payload := `{"eventID":"card_001","deviceType":"card_reader","deviceID":"reader_01",` +
		`"timestamp":"2025-03-14T10:15:30Z","eventType":"swipe",` +
		`"location":"Building A - Main Entrance","metadata":"userID:user1; cardID:card1"}`
	_, err := conn.Write([]byte(payload))
	require.NoError(t, err)

	select {
	case env := <-sink.envelopes:
		require.Equal(t, "card_001", env.EventID)
		require.Equal(t, v1.DeviceCardReader, env.DeviceType)
		require.Equal(t, "swipe", env.EventType)
		require.Equal(t, "userID:user1; cardID:card1", env.Metadata)
	case <-time.After(2 * time.Second):
		t.Fatal("envelope was not forwarded")
	}
}

func TestListener_DropsMalformedDatagram(t *testing.T) {
	sink := newChanSink()
	_, conn := startListener(t, sink)

	_, err := conn.Write([]byte("definitely not json"))
	require.NoError(t, err)

	select {
	case env := <-sink.envelopes:
		t.Fatalf("malformed datagram must not be forwarded, got %+v", env)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestListener_KeepsReceivingAfterMalformedDatagram(t *testing.T) {
	sink := newChanSink()
	_, conn := startListener(t, sink)

	_, err := conn.Write([]byte{0xff, 0xfe, 0x00})
	require.NoError(t, err)

	valid := `{"eventID":"card_002","deviceType":"card_reader","deviceID":"reader_01",` +
		`"timestamp":"2025-03-14T10:17:30Z","eventType":"swipe",` +
		`"location":"Building A - Main Entrance","metadata":"userID:user2; cardID:card2"}`
	_, err = conn.Write([]byte(valid))
	require.NoError(t, err)

	select {
	case env := <-sink.envelopes:
		require.Equal(t, "card_002", env.EventID)
	case <-time.After(2 * time.Second):
		t.Fatal("listener stopped receiving after a malformed datagram")
	}
}

func TestListener_SurvivesFullSink(t *testing.T) {
	sink := newChanSink()
	sink.accept = false
	_, conn := startListener(t, sink)

	payload := `{"eventID":"card_003","deviceType":"card_reader","deviceID":"reader_01",` +
		`"timestamp":"2025-03-14T10:19:30Z","eventType":"swipe",` +
		`"location":"Building A - Main Entrance","metadata":"userID:user3; cardID:card3"}`
	_, err := conn.Write([]byte(payload))
	require.NoError(t, err)

	// The drop is logged, not fatal; the listener keeps accepting.
	sink.accept = true
	_, err = conn.Write([]byte(payload))
	require.NoError(t, err)

	select {
	case env := <-sink.envelopes:
		require.Equal(t, "card_003", env.EventID)
	case <-time.After(2 * time.Second):
		t.Fatal("listener stopped receiving after a sink rejection")
	}
}

func TestListener_StopsOnContextCancel(t *testing.T) {
	l, err := New(v1.DeviceCardReader, "127.0.0.1", 0, newChanSink())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop on context cancellation")
	}
}

func TestListener_RejectsNilSink(t *testing.T) {
	_, err := New(v1.DeviceCardReader, "127.0.0.1", 0, nil)
	require.Error(t, err)
}
