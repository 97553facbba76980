// Package config manages persistent settings for the producer and
// consumer binaries. Settings are stored as JSON at
// os.UserConfigDir()/ndnrtc/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds the tunables shared by both binaries: playout targets,
// pipeline depth, jitter-timing parameters, FEC shard counts, and the
// Face dial address.
type Config struct {
	StreamName string `json:"stream_name"`
	Thread     string `json:"thread"`

	FaceAddr string `json:"face_addr"`

	PipelineDepth int     `json:"pipeline_depth"`
	RateLimit     float64 `json:"rate_limit_per_sec"`
	Burst         int     `json:"burst"`

	SliceSize    int `json:"slice_size"`
	ParityShards int `json:"parity_shards"`

	PoolCapacity int `json:"pool_capacity"`

	MaxUnderrunNum int   `json:"max_underrun_num"`
	EmptyThreshold int64 `json:"empty_threshold_ms"`
	PollInterval   int64 `json:"poll_interval_ms"`

	LogLevel string `json:"log_level"`

	HTTPAddr string `json:"http_addr"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		StreamName: "/ndn/edu/ucla/remap/ndnrtc/stream",
		Thread:     "video0",

		FaceAddr: "localhost:6363",

		PipelineDepth: 10,
		RateLimit:     100,
		Burst:         10,

		SliceSize:    7600,
		ParityShards: 2,

		PoolCapacity: 64,

		MaxUnderrunNum: 10,
		EmptyThreshold: 2000,
		PollInterval:   200,

		LogLevel: "info",

		HTTPAddr: ":8080",
	}
}

// Path returns the absolute path to the config file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ndnrtc", "config.json"), nil
}

// Load reads the config file and returns it. If the file is missing or
// unreadable, the default config is returned, never an error.
func Load() Config {
	path, err := Path()
	if err != nil {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default()
	}
	return cfg
}

// Save writes cfg to disk, creating the directory if needed.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
