package ledger

import (
	"fmt"

	v1 "github.com/mr-ih/IoT-Blockchain-System/internal/api/v1"
	"github.com/mr-ih/IoT-Blockchain-System/internal/ledger/state"
)

// docTypes maps each device type to the discriminator tag its contract stamps
// on stored records.
var docTypes = map[v1.DeviceType]string{
	v1.DeviceCardReader: "sensorEvent",
	v1.DeviceCCTV:       "cctvEvent",
	v1.DeviceCO2Sensor:  "co2SensorEvent",
	v1.DevicePrinter:    "printerEvent",
	v1.DeviceLight:      "smartLightEvent",
}

// DocTypeFor returns the docType tag for a device type.
func DocTypeFor(t v1.DeviceType) (string, bool) {
	docType, ok := docTypes[t]
	return docType, ok
}

// Registry holds one contract instance per device type, all sharing a single
// world-state namespace.
type Registry struct {
	contracts map[v1.DeviceType]*Contract
	order     []v1.DeviceType
}

// NewRegistry instantiates a contract for every supported device type against
// the shared world state.
func NewRegistry(ws state.WorldState) *Registry {
	r := &Registry{contracts: make(map[v1.DeviceType]*Contract)}
	for _, t := range v1.AllDeviceTypes() {
		r.contracts[t] = NewContract(docTypes[t], ws)
		r.order = append(r.order, t)
	}
	return r
}

// ForDeviceType returns the contract instance events of type t route to.
func (r *Registry) ForDeviceType(t v1.DeviceType) (*Contract, error) {
	c, ok := r.contracts[t]
	if !ok {
		return nil, fmt.Errorf("no contract registered for device type %q", t)
	}
	return c, nil
}

// All returns every registered contract in registration order.
func (r *Registry) All() []*Contract {
	out := make([]*Contract, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.contracts[t])
	}
	return out
}

// Keyspace returns a contract handle for key-scoped operations (Read, Exists,
// Delete) that do not consult the docType tag. All contracts share one
// world-state namespace, so any instance serves.
func (r *Registry) Keyspace() *Contract {
	return r.contracts[r.order[0]]
}
