package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	content := `
interval: 5m
groupErrors: false
records:
  - home.example.com
  - " office.example.com "
  - ""
log:
  level: debug
  env: dev
cloudflare:
  token: secret
  zoneId: zone123
  ttl: 120
publicIp:
  url: http://ip.local
metrics:
  address: ""
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Interval != 5*time.Minute {
		t.Errorf("expected interval 5m, got %s", cfg.Interval)
	}
	if cfg.Grouping() {
		t.Error("expected grouping disabled")
	}
	want := []string{"home.example.com", "office.example.com"}
	if !reflect.DeepEqual(cfg.Records, want) {
		t.Errorf("expected records %v, got %v", want, cfg.Records)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Env != "dev" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	if cfg.Cloudflare.Token != "secret" || cfg.Cloudflare.ZoneID != "zone123" || cfg.Cloudflare.TTL != 120 {
		t.Errorf("unexpected cloudflare config %+v", cfg.Cloudflare)
	}
	if cfg.Cloudflare.BaseURL != defaultBaseURL {
		t.Errorf("expected default base url, got %q", cfg.Cloudflare.BaseURL)
	}
	if cfg.PublicIP.URL != "http://ip.local" {
		t.Errorf("expected public ip url override, got %q", cfg.PublicIP.URL)
	}
	if cfg.PublicIP.Timeout != defaultLookupTimeout {
		t.Errorf("expected default lookup timeout, got %s", cfg.PublicIP.Timeout)
	}
	if cfg.MetricsAddress() != "" {
		t.Errorf("expected metrics disabled, got %q", cfg.MetricsAddress())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Interval != 0 {
		t.Errorf("expected one-shot interval, got %s", cfg.Interval)
	}
	if !cfg.Grouping() {
		t.Error("expected grouping enabled by default")
	}
	if cfg.Cloudflare.TTL != defaultTTL {
		t.Errorf("expected ttl %d, got %d", defaultTTL, cfg.Cloudflare.TTL)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected info level, got %q", cfg.Log.Level)
	}
	if cfg.MetricsAddress() != ":9090" {
		t.Errorf("expected default metrics address, got %q", cfg.MetricsAddress())
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.PublicIP.URL != defaultPublicIPURL {
		t.Errorf("expected defaults applied, got %q", cfg.PublicIP.URL)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "records: [unterminated")); err == nil {
		t.Fatal("expected error for invalid yaml, got nil")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DYNAFLARE_INTERVAL", "90s")
	t.Setenv("DYNAFLARE_GROUP_ERRORS", "false")
	t.Setenv("DYNAFLARE_RECORDS", "a.example.com,b.example.com")
	t.Setenv("DYNAFLARE_CLOUDFLARE_TOKEN", "env-token")
	t.Setenv("DYNAFLARE_CLOUDFLARE_ZONE_ID", "env-zone")
	t.Setenv("DYNAFLARE_CLOUDFLARE_TTL", "300")
	t.Setenv("DYNAFLARE_METRICS_ADDRESS", ":9999")

	cfg, err := Load(writeConfig(t, "cloudflare:\n  token: file-token\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Interval != 90*time.Second {
		t.Errorf("expected 90s, got %s", cfg.Interval)
	}
	if cfg.Grouping() {
		t.Error("expected grouping disabled from env")
	}
	if !reflect.DeepEqual(cfg.Records, []string{"a.example.com", "b.example.com"}) {
		t.Errorf("unexpected records %v", cfg.Records)
	}
	if cfg.Cloudflare.Token != "env-token" || cfg.Cloudflare.ZoneID != "env-zone" || cfg.Cloudflare.TTL != 300 {
		t.Errorf("unexpected cloudflare config %+v", cfg.Cloudflare)
	}
	if cfg.MetricsAddress() != ":9999" {
		t.Errorf("expected :9999, got %q", cfg.MetricsAddress())
	}
}

func TestLoadEnvInvalidValuesIgnored(t *testing.T) {
	t.Setenv("DYNAFLARE_INTERVAL", "soon")
	t.Setenv("DYNAFLARE_CLOUDFLARE_TTL", "many")

	cfg, err := Load(writeConfig(t, "interval: 1m\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Interval != time.Minute {
		t.Errorf("expected file interval kept, got %s", cfg.Interval)
	}
	if cfg.Cloudflare.TTL != defaultTTL {
		t.Errorf("expected default ttl kept, got %d", cfg.Cloudflare.TTL)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Cloudflare: Cloudflare{Token: "t", ZoneID: "z", TTL: 60}}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"automatic ttl", func(c *Config) { c.Cloudflare.TTL = 1 }, false},
		{"missing token", func(c *Config) { c.Cloudflare.Token = "" }, true},
		{"missing zone", func(c *Config) { c.Cloudflare.ZoneID = "" }, true},
		{"negative interval", func(c *Config) { c.Interval = -time.Second }, true},
		{"ttl too small", func(c *Config) { c.Cloudflare.TTL = 30 }, true},
		{"ttl too large", func(c *Config) { c.Cloudflare.TTL = 100000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
