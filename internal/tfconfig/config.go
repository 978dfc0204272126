// Package tfconfig loads the YAML configuration file tfd and the
// introspection/bridge tools read at startup.
package tfconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level shape of a tfd configuration file.
type Config struct {
	Graph    GraphConfig    `yaml:"graph"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	HTTP     HTTPConfig     `yaml:"http"`
	Recorder RecorderConfig `yaml:"recorder"`
	Serial   SerialConfig   `yaml:"serial"`
	Static   []StaticFrame  `yaml:"static_frames"`
}

// GraphConfig tunes the FrameGraph/Resolver pair.
type GraphConfig struct {
	CacheTime               time.Duration `yaml:"cache_time"`
	MaxExtrapolationDistance time.Duration `yaml:"max_extrapolation_distance"`
	MaxGraphDepth           int           `yaml:"max_graph_depth"`
}

// GRPCConfig configures the TransformService listener.
type GRPCConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// HTTPConfig configures the introspection HTTP server.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// RecorderConfig configures the optional sqlite audit sink.
type RecorderConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// SerialConfig configures the IMU bridge producer.
type SerialConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
	Child    string `yaml:"child_frame"`
	Parent   string `yaml:"parent_frame"`
}

// StaticFrame declares a fixed child→parent transform to ingest once at
// startup, expressed as translation (meters) and rotation (unit
// quaternion, w/x/y/z).
type StaticFrame struct {
	Child       string  `yaml:"child"`
	Parent      string  `yaml:"parent"`
	Translation [3]float64 `yaml:"translation"`
	Rotation    [4]float64 `yaml:"rotation"`
}

// Default returns a Config with the registry's documented defaults.
func Default() Config {
	return Config{
		Graph: GraphConfig{
			CacheTime:     10 * time.Second,
			MaxGraphDepth: 1000,
		},
		GRPC: GRPCConfig{Enabled: true, Addr: ":7533"},
		HTTP: HTTPConfig{Enabled: true, Addr: ":7534"},
	}
}

// Load reads and parses the YAML configuration file at path, filling in
// Default() for anything left unset.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("tfconfig: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("tfconfig: parse %s: %w", path, err)
	}

	if cfg.Graph.MaxGraphDepth <= 0 {
		cfg.Graph.MaxGraphDepth = 1000
	}
	if cfg.Graph.CacheTime <= 0 {
		cfg.Graph.CacheTime = 10 * time.Second
	}

	return cfg, nil
}
