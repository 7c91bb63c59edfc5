package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Config is the top-level gateway configuration, corresponding to
// .mentorgate.yml. Every knob has a default; only the upstream API key is
// mandatory.
type Config struct {
	Port    int    `yaml:"port" koanf:"port"`
	DataDir string `yaml:"data_dir" koanf:"data_dir"`

	CORSOrigins []string `yaml:"cors_origins" koanf:"cors_origins"`

	APIKey      string  `yaml:"api_key" koanf:"api_key"`
	BaseURL     string  `yaml:"base_url" koanf:"base_url"`
	Model       string  `yaml:"model" koanf:"model"`
	Temperature float32 `yaml:"temperature" koanf:"temperature"`

	MaxConcurrency int           `yaml:"max_concurrency" koanf:"max_concurrency"`
	QueueMax       int           `yaml:"queue_max" koanf:"queue_max"`
	RequestTimeout time.Duration `yaml:"request_timeout" koanf:"request_timeout"`

	ProbeTimeout        time.Duration `yaml:"probe_timeout" koanf:"probe_timeout"`
	HealthInterval      time.Duration `yaml:"health_interval" koanf:"health_interval"`
	HealthFailThreshold int           `yaml:"health_fail_threshold" koanf:"health_fail_threshold"`

	RateWindow time.Duration `yaml:"rate_window" koanf:"rate_window"`
	RateMax    int           `yaml:"rate_max" koanf:"rate_max"`

	SessionBackend string        `yaml:"session_backend" koanf:"session_backend"`
	SessionTTL     time.Duration `yaml:"session_ttl" koanf:"session_ttl"`

	ExtractorURL string `yaml:"extractor_url" koanf:"extractor_url"`
	MaxUploadMB  int64  `yaml:"max_upload_mb" koanf:"max_upload_mb"`
	ChunkChars   int    `yaml:"chunk_chars" koanf:"chunk_chars"`
	MaxChunks    int    `yaml:"max_chunks" koanf:"max_chunks"`
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (MENTORGATE_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: MENTORGATE_API_KEY -> api_key, etc.
	if err := k.Load(env.Provider("MENTORGATE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "MENTORGATE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validSessionBackends is the set of recognized session_backend values.
var validSessionBackends = map[string]bool{
	"sqlite": true,
	"memory": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required (or set MENTORGATE_API_KEY)")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1")
	}
	if c.QueueMax < 0 {
		return fmt.Errorf("queue_max must be non-negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.ProbeTimeout <= 0 || c.ProbeTimeout >= c.RequestTimeout {
		return fmt.Errorf("probe_timeout must be positive and shorter than request_timeout")
	}
	if c.HealthFailThreshold < 1 {
		return fmt.Errorf("health_fail_threshold must be at least 1")
	}
	if !validSessionBackends[c.SessionBackend] {
		return fmt.Errorf("invalid session_backend %q: must be sqlite or memory", c.SessionBackend)
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("max_upload_mb must be at least 1")
	}
	if c.ChunkChars < 1 || c.MaxChunks < 1 {
		return fmt.Errorf("chunk_chars and max_chunks must be at least 1")
	}
	return nil
}
