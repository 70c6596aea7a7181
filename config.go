package handrail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/handrail/handrail/policy"
)

// Duration accepts the "2s"/"250ms" syntax in YAML and JSON configs, which a
// bare time.Duration does not; plain integers are taken as nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return d.decode(raw)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.decode(raw)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) decode(raw interface{}) error {
	switch value := raw.(type) {
	case int:
		*d = Duration(value)
	case int64:
		*d = Duration(value)
	case float64:
		*d = Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration: %v", raw)
	}
	return nil
}

// SlotConfig locates the persistence slot that carries the pending set across
// restarts. Leaving BasePath empty disables persistence.
type SlotConfig struct {
	BasePath string `json:"basePath,omitempty" yaml:"basePath,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
}

// EndpointConfig addresses the decision backend.
type EndpointConfig struct {
	BaseURL string   `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Config represents engine configuration.
type Config struct {
	Slot     SlotConfig     `json:"slot,omitempty" yaml:"slot,omitempty"`
	Endpoint EndpointConfig `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// AuditDSN, when set, enables the SQLite decision audit trail.
	AuditDSN string `json:"auditDSN,omitempty" yaml:"auditDSN,omitempty"`

	// Workers bounds the fan-out of bulk decisions.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`

	// QueueBuffer sizes the transport frame queue.
	QueueBuffer int `json:"queueBuffer,omitempty" yaml:"queueBuffer,omitempty"`

	// Policy, when set, runs the auto-decision loop with the given settings.
	Policy *policy.Config `json:"policy,omitempty" yaml:"policy,omitempty"`

	// PolicyInterval is the auto-decision sweep interval.
	PolicyInterval Duration `json:"policyInterval,omitempty" yaml:"policyInterval,omitempty"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Slot:           SlotConfig{Name: "pending-approvals"},
		Endpoint:       EndpointConfig{Timeout: Duration(15 * time.Second)},
		Workers:        5,
		QueueBuffer:    100,
		PolicyInterval: Duration(time.Second),
	}
}

// Validate reports configuration errors that would surface later as runtime
// failures.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config was nil")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers cannot be negative: %d", c.Workers)
	}
	if c.Slot.BasePath != "" && c.Slot.Name == "" {
		return fmt.Errorf("slot name is required when slot base path is set")
	}
	return nil
}

// LoadConfig reads a YAML (or JSON, a YAML subset) config from any
// afs-addressable URL and overlays it on the defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", URL, err)
	}
	ret := DefaultConfig()
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", URL, err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
