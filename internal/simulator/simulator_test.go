package simulator

import (
	"math/rand"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	v1 "github.com/mr-ih/IoT-Blockchain-System/internal/api/v1"
)

func newTestSender(t *testing.T, deviceType v1.DeviceType) *Sender {
	t.Helper()
	return &Sender{
		deviceType: deviceType,
		rng:        rand.New(rand.NewSource(1)),
		now:        func() time.Time { return time.Date(2025, 3, 14, 10, 15, 30, 0, time.UTC) },
	}
}

func TestSender_NextEventShapes(t *testing.T) {
	tests := []struct {
		deviceType   v1.DeviceType
		idPrefix     string
		deviceID     string
		metadataPat  string
		eventTypePat string
	}{
		{
			deviceType:   v1.DeviceCardReader,
			idPrefix:     "card_",
			deviceID:     "reader_01",
			metadataPat:  `^userID:user\d+; cardID:card\d+$`,
			eventTypePat: `^swipe$`,
		},
		{
			deviceType:   v1.DeviceCCTV,
			idPrefix:     "cctv_",
			deviceID:     "cam_101",
			metadataPat:  `^imageReference:img_\d{12}_\d{3}\.jpg$`,
			eventTypePat: `^motion_detected$`,
		},
		{
			deviceType:   v1.DeviceCO2Sensor,
			idPrefix:     "sensor_",
			deviceID:     "sensor_03",
			metadataPat:  `^co2Level:\d+\.\d{2}; temperature:\d+$`,
			eventTypePat: `^reading$`,
		},
		{
			deviceType:   v1.DevicePrinter,
			idPrefix:     "printer_",
			deviceID:     "printer_1",
			metadataPat:  `^jobID:job_\d{3}; pagesPrinted:\d+; userID:student\d+$`,
			eventTypePat: `^completed$`,
		},
		{
			deviceType:   v1.DeviceLight,
			idPrefix:     "light_",
			deviceID:     "light_05",
			metadataPat:  `^brightness:\d+; energyConsumption:\d+(\.\d+)?W$`,
			eventTypePat: `^(on|off)$`,
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.deviceType), func(t *testing.T) {
			s := newTestSender(t, tt.deviceType)
			env := s.NextEvent()

			require.Equal(t, tt.deviceType, env.DeviceType)
			require.Equal(t, tt.deviceID, env.DeviceID)
			require.Regexp(t, regexp.MustCompile("^"+tt.idPrefix), env.EventID)
			require.Regexp(t, tt.metadataPat, env.Metadata)
			require.Regexp(t, tt.eventTypePat, env.EventType)
			require.Equal(t, "2025-03-14T10:15:30Z", env.Timestamp)
			require.Empty(t, env.MissingFields(), "simulated events must pass gateway validation")
		})
	}
}

func TestSender_EventIDsAreUnique(t *testing.T) {
	s := newTestSender(t, v1.DeviceCardReader)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := s.NextEvent().EventID
		require.False(t, seen[id], "duplicate event id %s", id)
		seen[id] = true
	}
}

func TestSender_LightAlternatesOnOff(t *testing.T) {
	s := newTestSender(t, v1.DeviceLight)

	first := s.NextEvent()
	second := s.NextEvent()
	require.NotEqual(t, first.EventType, second.EventType)

	off := first
	if second.EventType == "off" {
		off = second
	}
	require.Contains(t, off.Metadata, "brightness:0")
}

func TestNewSender_RejectsUnknownDeviceType(t *testing.T) {
	_, err := NewSender("thermostat", "127.0.0.1:1", time.Second)
	require.Error(t, err)
}
