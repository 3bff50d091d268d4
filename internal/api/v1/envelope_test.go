package v1

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEnvelope_MissingFields(t *testing.T) {
	full := Envelope{
		EventID:    "card_001",
		DeviceType: DeviceCardReader,
		DeviceID:   "reader_01",
		Timestamp:  "2025-03-14T10:15:30Z",
		EventType:  "swipe",
		Location:   "Building A - Main Entrance",
		Metadata:   "userID:user1; cardID:card1",
	}

	tests := []struct {
		name    string
		mutate  func(*Envelope)
		missing []string
	}{
		{
			name:    "complete envelope",
			mutate:  func(e *Envelope) {},
			missing: nil,
		},
		{
			name:    "missing metadata",
			mutate:  func(e *Envelope) { e.Metadata = "" },
			missing: []string{"metadata"},
		},
		{
			name:    "whitespace-only location counts as missing",
			mutate:  func(e *Envelope) { e.Location = "   " },
			missing: []string{"location"},
		},
		{
			name: "multiple missing, stable order",
			mutate: func(e *Envelope) {
				e.EventID = ""
				e.Metadata = ""
			},
			missing: []string{"eventID", "metadata"},
		},
		{
			name: "deviceType and timestamp not enforced here",
			mutate: func(e *Envelope) {
				e.DeviceType = ""
				e.Timestamp = ""
			},
			missing: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := full
			tt.mutate(&env)

			got := env.MissingFields()
			if len(got) != len(tt.missing) {
				t.Fatalf("MissingFields() = %v, want %v", got, tt.missing)
			}
			for i := range got {
				if got[i] != tt.missing[i] {
					t.Fatalf("MissingFields() = %v, want %v", got, tt.missing)
				}
			}

			err := env.Validate()
			if len(tt.missing) == 0 && err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if len(tt.missing) > 0 {
				if err == nil {
					t.Fatal("Validate() expected error, got nil")
				}
				for _, field := range tt.missing {
					if !strings.Contains(err.Error(), field) {
						t.Errorf("Validate() error %q does not name field %q", err, field)
					}
				}
			}
		})
	}
}

func TestEnvelope_WireFormat(t *testing.T) {
	payload := `{
		"eventID": "card_001",
		"deviceType": "card_reader",
		"deviceID": "reader_01",
		"timestamp": "2025-03-14T10:15:30Z",
		"eventType": "swipe",
		"location": "Building A - Main Entrance",
		"metadata": "userID:user1; cardID:card1"
	}`

	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.EventID != "card_001" {
		t.Errorf("EventID = %q", env.EventID)
	}
	if env.DeviceType != DeviceCardReader {
		t.Errorf("DeviceType = %q", env.DeviceType)
	}
	if env.Metadata != "userID:user1; cardID:card1" {
		t.Errorf("Metadata = %q", env.Metadata)
	}
}

func TestDeviceType_Valid(t *testing.T) {
	for _, d := range AllDeviceTypes() {
		if !d.Valid() {
			t.Errorf("%q should be valid", d)
		}
	}
	for _, d := range []DeviceType{"", "thermostat", "CARD_READER"} {
		if d.Valid() {
			t.Errorf("%q should not be valid", d)
		}
	}
}
