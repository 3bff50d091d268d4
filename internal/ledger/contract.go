// Package ledger implements the deterministic CRUD state machine over the
// key-value world state. One Contract type covers every device type; the
// instances differ only by docType constant and seed catalog.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	v1 "github.com/mr-ih/IoT-Blockchain-System/internal/api/v1"
	"github.com/mr-ih/IoT-Blockchain-System/internal/canonjson"
	"github.com/mr-ih/IoT-Blockchain-System/internal/ledger/state"
)

// ErrEventExists is returned by CreateEvent when the eventID is already
// present in the world state.
var ErrEventExists = errors.New("event already exists")

// ErrEventNotFound is returned by Read/Update/Delete for an absent eventID.
var ErrEventNotFound = errors.New("event does not exist")

// record is the stored shape: the envelope plus the owning contract's
// docType tag. Serialized canonically so replicas produce identical bytes.
type record struct {
	v1.Envelope
	DocType string `json:"docType"`
}

// Contract is the ledger state machine for one device type. Each eventID has
// exactly two states, absent and present; Create transitions absent->present,
// Update present->present, Delete present->absent, and Read/Exists observe
// without transitioning.
type Contract struct {
	docType string
	state   state.WorldState
}

// NewContract returns a contract tagging its records with docType and
// executing against ws.
func NewContract(docType string, ws state.WorldState) *Contract {
	return &Contract{docType: docType, state: ws}
}

// DocType returns the discriminator tag this contract stamps on its records.
func (c *Contract) DocType() string {
	return c.docType
}

// CreateEvent records a new event. It fails with ErrEventExists when the
// eventID is already present; no partial write occurs.
func (c *Contract) CreateEvent(ctx context.Context, env v1.Envelope) ([]byte, error) {
	if env.EventID == "" {
		return nil, fmt.Errorf("event id is required")
	}

	exists, err := c.EventExists(ctx, env.EventID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("event %s: %w", env.EventID, ErrEventExists)
	}

	return c.putRecord(ctx, env)
}

// ReadEvent returns the stored encoding unchanged, preserving whatever bytes
// were last written. It fails with ErrEventNotFound when the key is absent.
func (c *Contract) ReadEvent(ctx context.Context, eventID string) ([]byte, error) {
	stored, err := c.state.GetState(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrEventNotFound)
	}
	return stored, nil
}

// UpdateEvent fully replaces an existing record using the same construction
// as CreateEvent. It fails with ErrEventNotFound when the key is absent.
func (c *Contract) UpdateEvent(ctx context.Context, env v1.Envelope) ([]byte, error) {
	if env.EventID == "" {
		return nil, fmt.Errorf("event id is required")
	}

	exists, err := c.EventExists(ctx, env.EventID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("event %s: %w", env.EventID, ErrEventNotFound)
	}

	return c.putRecord(ctx, env)
}

// DeleteEvent permanently removes the record. No tombstone is written. It
// fails with ErrEventNotFound when the key is absent.
func (c *Contract) DeleteEvent(ctx context.Context, eventID string) error {
	exists, err := c.EventExists(ctx, eventID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("event %s: %w", eventID, ErrEventNotFound)
	}
	return c.state.DelState(ctx, eventID)
}

// EventExists reports whether eventID is present in the world state.
func (c *Contract) EventExists(ctx context.Context, eventID string) (bool, error) {
	stored, err := c.state.GetState(ctx, eventID)
	if err != nil {
		return false, err
	}
	return len(stored) > 0, nil
}

// GetAllEvents scans the entire shared world-state namespace and returns the
// stored encodings whose docType matches this contract. Values that do not
// parse as JSON objects cannot match the tag and are skipped with a log
// trace. Scan cost scales with total ledger size, not per-type size.
func (c *Contract) GetAllEvents(ctx context.Context) ([]json.RawMessage, error) {
	it, err := c.state.GetStateByRange(ctx, "", "")
	if err != nil {
		return nil, err
	}
	defer it.Close()

	events := make([]json.RawMessage, 0)
	for it.Next() {
		key, value := it.Entry()

		var probe struct {
			DocType string `json:"docType"`
		}
		if err := json.Unmarshal(value, &probe); err != nil {
			slog.Debug("[Ledger] Skipping unparseable world state entry",
				"key", key, "error", err)
			continue
		}
		if probe.DocType != c.docType {
			continue
		}

		stored := make([]byte, len(value))
		copy(stored, value)
		events = append(events, json.RawMessage(stored))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("failed to enumerate events: %w", err)
	}

	return events, nil
}

// InitLedger writes this contract's sample records. Re-running overwrites the
// same keys with the same values; it is not guarded against re-invocation.
func (c *Contract) InitLedger(ctx context.Context) error {
	seeds, err := seedCatalog(c.docType)
	if err != nil {
		return err
	}

	for _, env := range seeds {
		if _, err := c.putRecord(ctx, env); err != nil {
			return fmt.Errorf("failed to seed event %s: %w", env.EventID, err)
		}
	}

	slog.Info("[Ledger] Seeded sample events",
		"doc_type", c.docType, "count", len(seeds))
	return nil
}

// putRecord assembles the tagged record, serializes it canonically, and
// writes it under the eventID key.
func (c *Contract) putRecord(ctx context.Context, env v1.Envelope) ([]byte, error) {
	encoded, err := canonjson.Marshal(record{Envelope: env, DocType: c.docType})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize event %s: %w", env.EventID, err)
	}
	if err := c.state.PutState(ctx, env.EventID, encoded); err != nil {
		return nil, err
	}
	return encoded, nil
}
