package taskmsg

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LogConfig is the logging-adapter section of a system configuration file.
// The root package only carries it; the observability adapters consume it.
type LogConfig struct {
	// Level is the minimum level emitted: debug, info, warn or error.
	Level string `yaml:"level"`

	// File enables rotating file output when non-empty.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`

	// Console keeps stderr output alongside the file.
	Console bool `yaml:"console"`
}

// fileConfig is the YAML shape of a system configuration. Durations are
// strings ("100ms", "2s") since yaml.v3 has no native time.Duration support.
type fileConfig struct {
	Name            string    `yaml:"name"`
	NotifyCapacity  int       `yaml:"notify_capacity"`
	RingCapacity    int       `yaml:"ring_capacity"`
	QueueDepth      int       `yaml:"queue_depth"`
	RouteWait       string    `yaml:"route_wait"`
	HistoryCapacity int       `yaml:"history_capacity"`
	Log             LogConfig `yaml:"log"`
}

// LoadConfig reads a YAML system configuration from path. Absent keys fall
// back to the defaults, so a minimal file only names what it changes.
func LoadConfig(path string) (SystemConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SystemConfig{}, fmt.Errorf("read config %q: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML bytes into a SystemConfig.
func ParseConfig(data []byte) (SystemConfig, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return SystemConfig{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := SystemConfig{
		Name:            fc.Name,
		NotifyCapacity:  fc.NotifyCapacity,
		RingCapacity:    fc.RingCapacity,
		QueueDepth:      fc.QueueDepth,
		HistoryCapacity: fc.HistoryCapacity,
		Log:             fc.Log,
	}
	if fc.RouteWait != "" {
		d, err := time.ParseDuration(fc.RouteWait)
		if err != nil {
			return SystemConfig{}, fmt.Errorf("parse config: route_wait: %w", err)
		}
		cfg.RouteWait = d
	}
	return cfg.withDefaults(), nil
}
