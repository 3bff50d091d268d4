package ledger

import (
	_ "embed"
	"fmt"
	"sync"

	v1 "github.com/mr-ih/IoT-Blockchain-System/internal/api/v1"
	"gopkg.in/yaml.v3"
)

//go:embed seeds.yaml
var seedsYAML []byte

// seedEnvelope mirrors v1.Envelope with yaml tags matching the wire-format
// field names used in seeds.yaml.
type seedEnvelope struct {
	EventID    string `yaml:"eventID"`
	DeviceType string `yaml:"deviceType"`
	DeviceID   string `yaml:"deviceID"`
	Timestamp  string `yaml:"timestamp"`
	EventType  string `yaml:"eventType"`
	Location   string `yaml:"location"`
	Metadata   string `yaml:"metadata"`
}

var (
	seedOnce     sync.Once
	seedCatalogs map[string][]v1.Envelope
	seedErr      error
)

// seedCatalog returns the sample envelopes for one docType. The embedded
// catalog is parsed once per process.
func seedCatalog(docType string) ([]v1.Envelope, error) {
	seedOnce.Do(func() {
		raw := make(map[string][]seedEnvelope)
		if err := yaml.Unmarshal(seedsYAML, &raw); err != nil {
			seedErr = fmt.Errorf("failed to parse embedded seed catalog: %w", err)
			return
		}

		seedCatalogs = make(map[string][]v1.Envelope, len(raw))
		for tag, seeds := range raw {
			envs := make([]v1.Envelope, 0, len(seeds))
			for _, s := range seeds {
				envs = append(envs, v1.Envelope{
					EventID:    s.EventID,
					DeviceType: v1.DeviceType(s.DeviceType),
					DeviceID:   s.DeviceID,
					Timestamp:  s.Timestamp,
					EventType:  s.EventType,
					Location:   s.Location,
					Metadata:   s.Metadata,
				})
			}
			seedCatalogs[tag] = envs
		}
	})

	if seedErr != nil {
		return nil, seedErr
	}
	seeds, ok := seedCatalogs[docType]
	if !ok {
		return nil, fmt.Errorf("no seed catalog for doc type %q", docType)
	}
	return seeds, nil
}
