// Package listener receives raw device telemetry over UDP, one listener per
// device type. Malformed datagrams are logged and dropped at the edge; valid
// envelopes are handed to the forwarder without waiting on delivery, so
// ingestion throughput is never coupled to ledger write latency.
package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	v1 "github.com/mr-ih/IoT-Blockchain-System/internal/api/v1"
)

// maxDatagramSize covers any realistic telemetry payload.
const maxDatagramSize = 64 * 1024

// readPollInterval bounds how long a blocked read can delay noticing
// context cancellation.
const readPollInterval = 500 * time.Millisecond

// Sink accepts normalized envelopes off the wire. Enqueue must not block;
// it reports false when the envelope was dropped.
type Sink interface {
	Enqueue(env v1.Envelope) bool
}

// Listener binds one UDP endpoint for one device type.
type Listener struct {
	deviceType v1.DeviceType
	conn       *net.UDPConn
	sink       Sink
}

// New binds a UDP socket on host:port. Port 0 picks an ephemeral port, which
// tests rely on; Addr reports the bound address.
func New(deviceType v1.DeviceType, host string, port int, sink Sink) (*Listener, error) {
	if sink == nil {
		return nil, errors.New("listener: sink must not be nil")
	}

	addr := &net.UDPAddr{IP: net.ParseIP(host), Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind udp listener for %s: %w", deviceType, err)
	}

	slog.Info("[Listener] Listening for device telemetry",
		"device_type", deviceType,
		"addr", conn.LocalAddr().String())

	return &Listener{deviceType: deviceType, conn: conn, sink: sink}, nil
}

// Addr returns the bound UDP address.
func (l *Listener) Addr() *net.UDPAddr {
	return l.conn.LocalAddr().(*net.UDPAddr)
}

// Run receives datagrams until ctx is cancelled. Decode failures are absorbed
// here and never propagate; the sender, if it cares, must retry.
func (l *Listener) Run(ctx context.Context) error {
	defer l.conn.Close()

	buf := make([]byte, maxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			slog.Info("[Listener] Stopping", "device_type", l.deviceType)
			return nil
		default:
		}

		if err := l.conn.SetReadDeadline(time.Now().Add(readPollInterval)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, remote, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("[Listener] Read error",
				"device_type", l.deviceType, "error", err)
			continue
		}

		l.handleDatagram(buf[:n], remote)
	}
}

func (l *Listener) handleDatagram(payload []byte, remote *net.UDPAddr) {
	var env v1.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		slog.Warn("[Listener] Dropping malformed datagram",
			"device_type", l.deviceType,
			"remote", remote.String(),
			"size", len(payload),
			"error", err)
		return
	}

	slog.Info("[Listener] Received event",
		"remote", remote.String(),
		"device_type", env.DeviceType,
		"event_id", env.EventID,
		"event_type", env.EventType)

	if !l.sink.Enqueue(env) {
		slog.Warn("[Listener] Forwarder queue full, dropping event",
			"device_type", l.deviceType,
			"event_id", env.EventID)
	}
}
