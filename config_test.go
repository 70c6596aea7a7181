package handrail

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
endpoint:
  baseURL: http://localhost:8080
  timeout: 2s
workers: 3
policyInterval: 250ms
policy:
  mode: deny
`)
	config, err := LoadConfig(context.Background(), path)
	assert.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", config.Endpoint.BaseURL)
	assert.Equal(t, 2*time.Second, time.Duration(config.Endpoint.Timeout))
	assert.Equal(t, 250*time.Millisecond, time.Duration(config.PolicyInterval))
	assert.Equal(t, 3, config.Workers)
	assert.Equal(t, "deny", config.Policy.Mode)
	assert.Equal(t, "pending-approvals", config.Slot.Name, "defaults survive the overlay")
}

func TestLoadConfigDurationForms(t *testing.T) {
	// Integer durations are nanoseconds, matching time.Duration's own zero
	// syntax; strings go through time.ParseDuration.
	path := writeConfig(t, "endpoint:\n  baseURL: http://x\n  timeout: 1500000000\n")
	config, err := LoadConfig(context.Background(), path)
	assert.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, time.Duration(config.Endpoint.Timeout))
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "endpoint:\n  timeout: soon\n")
	_, err := LoadConfig(context.Background(), path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "negative workers", mutate: func(c *Config) { c.Workers = -1 }, wantErr: true},
		{name: "slot path without name", mutate: func(c *Config) {
			c.Slot.BasePath = "/tmp/x"
			c.Slot.Name = ""
		}, wantErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			config := DefaultConfig()
			testCase.mutate(config)
			err := config.Validate()
			if testCase.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
