package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
server:
  addr: ":9090"
logging:
  level: debug
  console: true
ingest:
  interval: 20m
  retry_attempts: 3
storage:
  driver: sqlite
  path: ./cache.db
reports:
  - id: clientes
    label: Clientes
    category: cadastro
    url: https://example.com/pub?output=csv
schemas:
  clientes: ["NOME", "CIDADE"]
`

func TestLoadYAML(t *testing.T) {
	m := NewManager(writeConfig(t, "config.yaml", validYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" || cfg.Logging.Level != "debug" {
		t.Fatalf("fields lost: %+v", cfg)
	}
	if len(cfg.Reports) != 1 || cfg.Reports[0].ID != "clientes" {
		t.Fatalf("reports lost: %+v", cfg.Reports)
	}
	if cols := cfg.Schemas["clientes"]; len(cols) != 2 || cols[0] != "NOME" {
		t.Fatalf("schemas lost: %v", cfg.Schemas)
	}
	if got := m.Get(); got == nil || got.Server.Addr != ":9090" {
		t.Fatalf("load should commit the config")
	}
}

func TestLoadJSON(t *testing.T) {
	body := `{
	  "logging": {"level": "info", "console": true},
	  "reports": [{"id": "a", "label": "A", "category": "c", "url": "http://x"}]
	}`
	m := NewManager(writeConfig(t, "config.json", body))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Reports) != 1 {
		t.Fatalf("reports lost: %+v", cfg)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	body := validYAML + "\nnot_a_real_section:\n  x: 1\n"
	m := NewManager(writeConfig(t, "config.yaml", body))
	if _, err := m.Load(); err == nil {
		t.Fatalf("unknown top-level keys must be rejected")
	}
}

func TestValidateDuplicateIDs(t *testing.T) {
	cfg := &Config{Reports: []ReportConfig{
		{ID: "a", Category: "c", URL: "http://x"},
		{ID: "a", Category: "c", URL: "http://y"},
	}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("duplicate report ids must be rejected")
	}
}

func TestValidateRequiredFields(t *testing.T) {
	cases := []Config{
		{},
		{Reports: []ReportConfig{{Label: "no id", Category: "c", URL: "http://x"}}},
		{Reports: []ReportConfig{{ID: "a", Category: "c"}}},
		{Reports: []ReportConfig{{ID: "a", URL: "http://x"}}},
	}
	for i, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d should fail validation: %+v", i, cfg)
		}
	}
}

func TestValidateBadDuration(t *testing.T) {
	cfg := &Config{
		Ingest:  IngestConfig{Interval: "twenty minutes"},
		Reports: []ReportConfig{{ID: "a", Category: "c", URL: "http://x"}},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("bad duration string must be rejected")
	}
}

func TestValidateEmptySchema(t *testing.T) {
	cfg := &Config{
		Reports: []ReportConfig{{ID: "a", Category: "c", URL: "http://x"}},
		Schemas: map[string][]string{"a": {}},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("empty schema column list must be rejected")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := &Config{
		Reports: []ReportConfig{{ID: "a", Category: "c", URL: "http://x"}},
		Schemas: map[string][]string{"a": {"COL"}},
	}
	cp := cfg.Clone()
	cp.Reports[0].ID = "mutated"
	cp.Schemas["a"][0] = "mutated"

	if cfg.Reports[0].ID != "a" || cfg.Schemas["a"][0] != "COL" {
		t.Fatalf("clone shares storage with original")
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	d, err := ParseDurationOrDefault("x", "", 42)
	if err != nil || d != 42 {
		t.Fatalf("empty value should yield default, got %v/%v", d, err)
	}
	d, err = ParseDurationOrDefault("x", "15s", 0)
	if err != nil || d.Seconds() != 15 {
		t.Fatalf("expected 15s, got %v/%v", d, err)
	}
	if _, err = ParseDurationOrDefault("x", "nope", 0); err == nil {
		t.Fatalf("invalid duration should error")
	}
}
