package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "config.yaml"

	defaultBaseURL       = "https://api.cloudflare.com/client/v4"
	defaultPublicIPURL   = "https://api.ipify.org?format=json"
	defaultTTL           = 60
	defaultAPITimeout    = 30 * time.Second
	defaultLookupTimeout = 15 * time.Second
	defaultMetricsAddr   = ":9090"
	defaultLogLevel      = "info"
)

type Config struct {
	Interval    time.Duration `yaml:"interval"`
	GroupErrors *bool         `yaml:"groupErrors"`
	Records     []string      `yaml:"records"`
	Log         Log           `yaml:"log"`
	Cloudflare  Cloudflare    `yaml:"cloudflare"`
	PublicIP    PublicIP      `yaml:"publicIp"`
	Metrics     Metrics       `yaml:"metrics"`
}

type Cloudflare struct {
	Token   string        `yaml:"token"`
	ZoneID  string        `yaml:"zoneId"`
	BaseURL string        `yaml:"baseUrl"`
	TTL     int           `yaml:"ttl"`
	Timeout time.Duration `yaml:"timeout"`
}

type PublicIP struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Log struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

type Metrics struct {
	Address *string `yaml:"address"`
}

// Grouping reports whether repeated identical errors should be collapsed.
// It defaults to true.
func (c *Config) Grouping() bool {
	return c.GroupErrors == nil || *c.GroupErrors
}

// MetricsAddress is the listen address of the metrics and status server.
// An empty string disables the server.
func (c *Config) MetricsAddress() string {
	if c.Metrics.Address == nil {
		return defaultMetricsAddr
	}
	return *c.Metrics.Address
}

// Path returns the config file location, honoring DYNAFLARE_CONFIG.
func Path() string {
	if path := os.Getenv("DYNAFLARE_CONFIG"); path != "" {
		return path
	}
	return DefaultPath
}

func Load(path string) (*Config, error) {
	configFile := true
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("fail find config file, proceeding", "path", path)
		configFile = false
	}

	var cfg Config
	if configFile {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			f.Close()
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			slog.Default().Warn("fail close config file", "path", path, "error", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Records = normalizeRecords(cfg.Records)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Cloudflare.BaseURL == "" {
		cfg.Cloudflare.BaseURL = defaultBaseURL
	}
	if cfg.Cloudflare.TTL == 0 {
		cfg.Cloudflare.TTL = defaultTTL
	}
	if cfg.Cloudflare.Timeout == 0 {
		cfg.Cloudflare.Timeout = defaultAPITimeout
	}
	if cfg.PublicIP.URL == "" {
		cfg.PublicIP.URL = defaultPublicIPURL
	}
	if cfg.PublicIP.Timeout == 0 {
		cfg.PublicIP.Timeout = defaultLookupTimeout
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
}

func applyEnv(cfg *Config) {
	if interval := os.Getenv("DYNAFLARE_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.Interval = d
		} else {
			slog.Default().Warn("fail parse interval to duration from string", "interval", interval, "error", err)
		}
	}
	if group := os.Getenv("DYNAFLARE_GROUP_ERRORS"); group != "" {
		if b, err := strconv.ParseBool(group); err == nil {
			cfg.GroupErrors = &b
		} else {
			slog.Default().Warn("fail parse group errors to bool from string", "groupErrors", group, "error", err)
		}
	}
	if records := os.Getenv("DYNAFLARE_RECORDS"); records != "" {
		cfg.Records = strings.Split(records, ",")
	}
	if level := os.Getenv("DYNAFLARE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if env := os.Getenv("DYNAFLARE_LOG_ENV"); env != "" {
		cfg.Log.Env = env
	}
	if token := os.Getenv("DYNAFLARE_CLOUDFLARE_TOKEN"); token != "" {
		cfg.Cloudflare.Token = token
	}
	if zone := os.Getenv("DYNAFLARE_CLOUDFLARE_ZONE_ID"); zone != "" {
		cfg.Cloudflare.ZoneID = zone
	}
	if baseURL := os.Getenv("DYNAFLARE_CLOUDFLARE_BASE_URL"); baseURL != "" {
		cfg.Cloudflare.BaseURL = baseURL
	}
	if ttl := os.Getenv("DYNAFLARE_CLOUDFLARE_TTL"); ttl != "" {
		if v, err := strconv.Atoi(ttl); err == nil {
			cfg.Cloudflare.TTL = v
		} else {
			slog.Default().Warn("fail parse ttl to int from string", "ttl", ttl, "error", err)
		}
	}
	if url := os.Getenv("DYNAFLARE_PUBLIC_IP_URL"); url != "" {
		cfg.PublicIP.URL = url
	}
	if addr, ok := os.LookupEnv("DYNAFLARE_METRICS_ADDRESS"); ok {
		cfg.Metrics.Address = &addr
	}
}

// normalizeRecords trims names and drops empty entries. Duplicates are kept
// here and collapsed by the planner.
func normalizeRecords(records []string) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func (c *Config) Validate() error {
	var errs []error
	if c.Cloudflare.Token == "" {
		errs = append(errs, errors.New("cloudflare token required"))
	}
	if c.Cloudflare.ZoneID == "" {
		errs = append(errs, errors.New("cloudflare zone id required"))
	}
	if c.Interval < 0 {
		errs = append(errs, fmt.Errorf("interval must not be negative, got %s", c.Interval))
	}
	if ttl := c.Cloudflare.TTL; ttl != 1 && (ttl < 60 || ttl > 86400) {
		errs = append(errs, fmt.Errorf("ttl must be 1 (automatic) or between 60 and 86400, got %d", ttl))
	}
	return errors.Join(errs...)
}
