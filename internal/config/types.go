package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	Server  ServerConfig  `json:"server"`
	Logging LoggingConfig `json:"logging"`

	// Ingest controls the reload cadence and fetch retry budget.
	Ingest IngestConfig `json:"ingest"`

	// Storage configures the durable report cache.
	// If omitted, the service runs memory-only (fallback reads disabled).
	Storage *StorageConfig `json:"storage,omitempty"`

	// Reports is the static registry: one entry per CSV feed.
	// Changing it requires a restart; it is read once at startup.
	Reports []ReportConfig `json:"reports"`

	// Schemas maps report id -> required column names.
	// A report without an entry here is served but flagged as schema-unknown.
	Schemas map[string][]string `json:"schemas,omitempty"`
}

// ServerConfig controls the HTTP query API.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type ServerConfig struct {
	Addr         string `json:"addr,omitempty"` // default ":8080"
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`

	// RatePerSec/RateBurst bound per-client request rates. 0 disables limiting.
	RatePerSec int `json:"rate_per_sec,omitempty"`
	RateBurst  int `json:"rate_burst,omitempty"`
}

// IngestConfig controls reload scheduling and the fetch retry budget.
//
// Defaults (when fields are omitted/zero):
//   - interval: "20m"
//   - fetch_timeout: "15s"
//   - retry_attempts: 3
//   - retry_delay: "5s"
//   - reload_on_start: true (pointer so an explicit false survives decoding)
type IngestConfig struct {
	Interval      string `json:"interval,omitempty"`
	FetchTimeout  string `json:"fetch_timeout,omitempty"`
	RetryAttempts int    `json:"retry_attempts,omitempty"`
	RetryDelay    string `json:"retry_delay,omitempty"`

	ReloadOnStart *bool `json:"reload_on_start,omitempty"`
}

// StorageConfig controls the durable cache.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/cache.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// ReportConfig declares one CSV feed.
type ReportConfig struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Validate checks structural invariants that would otherwise surface as
// confusing runtime failures. It does not fetch anything.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if len(c.Reports) == 0 {
		return errors.New("reports: at least one report is required")
	}
	seen := make(map[string]struct{}, len(c.Reports))
	for i, r := range c.Reports {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return fmt.Errorf("reports[%d]: id is required", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("reports[%d]: duplicate id %q", i, id)
		}
		seen[id] = struct{}{}
		if strings.TrimSpace(r.URL) == "" {
			return fmt.Errorf("reports[%d] (%s): url is required", i, id)
		}
		if strings.TrimSpace(r.Category) == "" {
			return fmt.Errorf("reports[%d] (%s): category is required", i, id)
		}
	}
	for id, cols := range c.Schemas {
		if len(cols) == 0 {
			return fmt.Errorf("schemas[%s]: column list must not be empty", id)
		}
	}
	if _, err := ParseDurationOrDefault("ingest.interval", c.Ingest.Interval, 0); err != nil {
		return err
	}
	if _, err := ParseDurationOrDefault("ingest.fetch_timeout", c.Ingest.FetchTimeout, 0); err != nil {
		return err
	}
	if _, err := ParseDurationOrDefault("ingest.retry_delay", c.Ingest.RetryDelay, 0); err != nil {
		return err
	}
	if c.Storage != nil {
		if _, err := ParseDurationOrDefault("storage.busy_timeout", c.Storage.BusyTimeout, 0); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy via JSON round-trip.
// Config is small; simplicity beats reflection here.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	var out Config
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&out); err != nil {
		return nil
	}
	return &out
}
