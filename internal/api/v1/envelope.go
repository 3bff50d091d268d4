package v1

import (
	"fmt"
	"strings"
)

// DeviceType tags the class of device that produced an event. It selects the
// ledger contract instance the event is routed to, but not the storage
// mechanics: all device types share one world-state namespace.
type DeviceType string

const (
	DeviceCardReader DeviceType = "card_reader"
	DeviceCCTV       DeviceType = "cctv"
	DeviceCO2Sensor  DeviceType = "co2_sensor"
	DevicePrinter    DeviceType = "printer"
	DeviceLight      DeviceType = "light"
)

// AllDeviceTypes returns the supported device types in registration order.
func AllDeviceTypes() []DeviceType {
	return []DeviceType{
		DeviceCardReader,
		DeviceCCTV,
		DeviceCO2Sensor,
		DevicePrinter,
		DeviceLight,
	}
}

// Valid reports whether d is one of the supported device types.
func (d DeviceType) Valid() bool {
	switch d {
	case DeviceCardReader, DeviceCCTV, DeviceCO2Sensor, DevicePrinter, DeviceLight:
		return true
	}
	return false
}

// Envelope is the canonical normalized shape every device type reports in.
// It is both the UDP datagram payload and the gateway request body.
type Envelope struct {
	// EventID is the unique, caller-assigned, immutable identifier.
	// It functions as the world-state key.
	EventID string `json:"eventID"`

	// DeviceType determines interpretation of Metadata and routing to a
	// contract instance.
	DeviceType DeviceType `json:"deviceType"`

	// DeviceID identifies the originating physical or simulated unit.
	DeviceID string `json:"deviceID"`

	// Timestamp is producer-assigned ISO-8601. The server places no trust
	// in arrival order, so it is carried verbatim rather than parsed.
	Timestamp string `json:"timestamp"`

	// EventType is the device-type-specific discriminator
	// (e.g. "swipe", "motion_detected", "reading").
	EventType string `json:"eventType"`

	// Location is free text.
	Location string `json:"location"`

	// Metadata holds device-type-specific key:value pairs as an opaque
	// string. Not structurally validated here.
	Metadata string `json:"metadata"`
}

// requiredFields are the envelope fields the gateway enforces before any
// contract invocation. DeviceType and Timestamp presence is left to the
// contract call path.
var requiredFields = []struct {
	name  string
	value func(*Envelope) string
}{
	{"eventID", func(e *Envelope) string { return e.EventID }},
	{"deviceID", func(e *Envelope) string { return e.DeviceID }},
	{"eventType", func(e *Envelope) string { return e.EventType }},
	{"metadata", func(e *Envelope) string { return e.Metadata }},
	{"location", func(e *Envelope) string { return e.Location }},
}

// MissingFields returns the names of required fields that are empty, in a
// stable order suitable for error messages.
func (e *Envelope) MissingFields() []string {
	var missing []string
	for _, f := range requiredFields {
		if strings.TrimSpace(f.value(e)) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Validate ensures the envelope has all required fields.
func (e *Envelope) Validate() error {
	if missing := e.MissingFields(); len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
