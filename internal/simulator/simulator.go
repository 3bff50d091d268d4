// Package simulator emits synthetic device telemetry over UDP, standing in
// for the physical card readers, cameras, CO2 sensors, printers, and smart
// lights. Each sender owns its socket, counter, and randomness explicitly
// rather than sharing ambient module state.
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"time"

	"github.com/google/uuid"
	v1 "github.com/mr-ih/IoT-Blockchain-System/internal/api/v1"
	"github.com/shopspring/decimal"
)

// Sender periodically emits events for one device type toward its listener.
type Sender struct {
	deviceType v1.DeviceType
	conn       net.Conn
	interval   time.Duration
	counter    int
	rng        *rand.Rand
	now        func() time.Time
}

// NewSender dials the listener at target (host:port) for one device type.
func NewSender(deviceType v1.DeviceType, target string, interval time.Duration) (*Sender, error) {
	if !deviceType.Valid() {
		return nil, fmt.Errorf("unsupported device type %q", deviceType)
	}
	conn, err := net.Dial("udp", target)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s listener at %s: %w", deviceType, target, err)
	}
	return &Sender{
		deviceType: deviceType,
		conn:       conn,
		interval:   interval,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
	}, nil
}

// Run emits one event per interval until ctx is cancelled.
func (s *Sender) Run(ctx context.Context) error {
	defer s.conn.Close()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Simulator] Sender started",
		"device_type", s.deviceType,
		"target", s.conn.RemoteAddr().String(),
		"interval", s.interval)

	for {
		select {
		case <-ticker.C:
			env := s.NextEvent()
			payload, err := json.Marshal(env)
			if err != nil {
				slog.Error("[Simulator] Failed to encode event",
					"device_type", s.deviceType, "error", err)
				continue
			}
			if _, err := s.conn.Write(payload); err != nil {
				slog.Warn("[Simulator] Failed to send datagram",
					"device_type", s.deviceType, "error", err)
				continue
			}
			slog.Info("[Simulator] Sent event",
				"device_type", s.deviceType,
				"event_id", env.EventID,
				"event_type", env.EventType)
		case <-ctx.Done():
			slog.Info("[Simulator] Sender stopped", "device_type", s.deviceType)
			return nil
		}
	}
}

// NextEvent builds the next telemetry envelope for this sender's device
// type. Event IDs carry a uuid fragment so repeated simulator runs do not
// collide with the ledger's uniqueness guard.
func (s *Sender) NextEvent() v1.Envelope {
	s.counter++
	ts := s.now().UTC().Format(time.RFC3339)
	id := func(prefix string) string {
		return fmt.Sprintf("%s_%s", prefix, uuid.NewString()[:8])
	}

	switch s.deviceType {
	case v1.DeviceCardReader:
		return v1.Envelope{
			EventID:    id("card"),
			DeviceType: v1.DeviceCardReader,
			DeviceID:   "reader_01",
			Timestamp:  ts,
			EventType:  "swipe",
			Location:   "Building A - Main Entrance",
			Metadata: fmt.Sprintf("userID:user%d; cardID:card%d",
				s.rng.Intn(1000), s.rng.Intn(1000)),
		}
	case v1.DeviceCCTV:
		return v1.Envelope{
			EventID:    id("cctv"),
			DeviceType: v1.DeviceCCTV,
			DeviceID:   "cam_101",
			Timestamp:  ts,
			EventType:  "motion_detected",
			Location:   "Parking Lot A",
			Metadata: fmt.Sprintf("imageReference:img_%s_%03d.jpg",
				s.now().UTC().Format("200601021504"), s.counter%1000),
		}
	case v1.DeviceCO2Sensor:
		// Readings hover around 400ppm with two decimal places; decimal
		// keeps the formatting stable across platforms.
		co2 := decimal.NewFromInt(400).
			Add(decimal.NewFromInt(int64(s.rng.Intn(20000))).Div(decimal.NewFromInt(100)))
		return v1.Envelope{
			EventID:    id("sensor"),
			DeviceType: v1.DeviceCO2Sensor,
			DeviceID:   "sensor_03",
			Timestamp:  ts,
			EventType:  "reading",
			Location:   "Building C - Lab",
			Metadata: fmt.Sprintf("co2Level:%s; temperature:%d",
				co2.StringFixed(2), 18+s.rng.Intn(8)),
		}
	case v1.DevicePrinter:
		return v1.Envelope{
			EventID:    id("printer"),
			DeviceType: v1.DevicePrinter,
			DeviceID:   "printer_1",
			Timestamp:  ts,
			EventType:  "completed",
			Location:   "Library",
			Metadata: fmt.Sprintf("jobID:job_%03d; pagesPrinted:%d; userID:student%d",
				s.counter, 1+s.rng.Intn(30), 1+s.rng.Intn(50)),
		}
	case v1.DeviceLight:
		eventType := "on"
		brightness := 40 + s.rng.Intn(60)
		if s.counter%2 == 0 {
			eventType = "off"
			brightness = 0
		}
		energy := decimal.NewFromInt(int64(brightness)).
			Mul(decimal.NewFromFloat(0.07)).Round(1)
		return v1.Envelope{
			EventID:    id("light"),
			DeviceType: v1.DeviceLight,
			DeviceID:   "light_05",
			Timestamp:  ts,
			EventType:  eventType,
			Location:   "Building B - Corridor",
			Metadata: fmt.Sprintf("brightness:%d; energyConsumption:%sW",
				brightness, energy.String()),
		}
	}

	// NewSender rejects unknown device types, so this is unreachable.
	return v1.Envelope{}
}
