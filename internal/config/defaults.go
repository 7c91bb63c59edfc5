package config

import "time"

// DefaultConfig returns the configuration defaults documented in the README.
func DefaultConfig() *Config {
	return &Config{
		Port:    8080,
		DataDir: "data",

		CORSOrigins: []string{"*"},

		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-4o-mini",
		Temperature: 0.7,

		MaxConcurrency: 4,
		QueueMax:       8,
		RequestTimeout: 25 * time.Second,

		ProbeTimeout:        6 * time.Second,
		HealthInterval:      60 * time.Second,
		HealthFailThreshold: 3,

		RateWindow: time.Minute,
		RateMax:    60,

		SessionBackend: "sqlite",
		SessionTTL:     24 * time.Hour,

		ExtractorURL: "http://localhost:8091",
		MaxUploadMB:  10,
		ChunkChars:   14000,
		MaxChunks:    5,
	}
}
