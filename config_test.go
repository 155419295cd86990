package taskmsg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SamiFAHIM/go-taskmsg/core"
)

// TestParseConfig_EmptyDocument verifies that an empty document yields
// the same configuration as DefaultSystemConfig
func TestParseConfig_EmptyDocument(t *testing.T) {
	// Act
	cfg, err := ParseConfig([]byte(""))

	// Assert
	if err != nil {
		t.Fatalf("ParseConfig() = %v, want nil", err)
	}
	if cfg.Name != "taskmsg" {
		t.Errorf("Name = %q, want %q", cfg.Name, "taskmsg")
	}
	if cfg.NotifyCapacity != core.DefaultNotifyCapacity {
		t.Errorf("NotifyCapacity = %d, want %d", cfg.NotifyCapacity, core.DefaultNotifyCapacity)
	}
	if cfg.RingCapacity != core.DefaultRingCapacity {
		t.Errorf("RingCapacity = %d, want %d", cfg.RingCapacity, core.DefaultRingCapacity)
	}
	if cfg.QueueDepth != core.DefaultWorkQueueDepth {
		t.Errorf("QueueDepth = %d, want %d", cfg.QueueDepth, core.DefaultWorkQueueDepth)
	}
	if cfg.RouteWait != core.DefaultRouteWait {
		t.Errorf("RouteWait = %v, want %v", cfg.RouteWait, core.DefaultRouteWait)
	}
	if cfg.Logger == nil {
		t.Error("Logger = nil, want a default logger")
	}
}

// TestParseConfig_FullDocument verifies that every field maps through
// Given: A YAML document setting every supported key
// When: ParseConfig runs
// Then: The resulting SystemConfig carries the document values
func TestParseConfig_FullDocument(t *testing.T) {
	// Arrange
	doc := []byte(`
name: pipeline
notify_capacity: 16
ring_capacity: 256
queue_depth: 5
route_wait: 250ms
history_capacity: 32
log:
  level: debug
  file: /var/log/pipeline.log
  max_size_mb: 10
  max_backups: 3
  max_age_days: 7
  console: true
`)

	// Act
	cfg, err := ParseConfig(doc)

	// Assert
	if err != nil {
		t.Fatalf("ParseConfig() = %v, want nil", err)
	}
	if cfg.Name != "pipeline" {
		t.Errorf("Name = %q, want %q", cfg.Name, "pipeline")
	}
	if cfg.NotifyCapacity != 16 {
		t.Errorf("NotifyCapacity = %d, want 16", cfg.NotifyCapacity)
	}
	if cfg.RingCapacity != 256 {
		t.Errorf("RingCapacity = %d, want 256", cfg.RingCapacity)
	}
	if cfg.QueueDepth != 5 {
		t.Errorf("QueueDepth = %d, want 5", cfg.QueueDepth)
	}
	if cfg.RouteWait != 250*time.Millisecond {
		t.Errorf("RouteWait = %v, want 250ms", cfg.RouteWait)
	}
	if cfg.HistoryCapacity != 32 {
		t.Errorf("HistoryCapacity = %d, want 32", cfg.HistoryCapacity)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.File != "/var/log/pipeline.log" {
		t.Errorf("Log.File = %q, want %q", cfg.Log.File, "/var/log/pipeline.log")
	}
	if cfg.Log.MaxSizeMB != 10 || cfg.Log.MaxBackups != 3 || cfg.Log.MaxAgeDays != 7 {
		t.Errorf("Log rotation = %d/%d/%d, want 10/3/7",
			cfg.Log.MaxSizeMB, cfg.Log.MaxBackups, cfg.Log.MaxAgeDays)
	}
	if !cfg.Log.Console {
		t.Error("Log.Console = false, want true")
	}
}

// TestParseConfig_BadRouteWait verifies duration validation
func TestParseConfig_BadRouteWait(t *testing.T) {
	_, err := ParseConfig([]byte("route_wait: soon"))
	if err == nil {
		t.Fatal("ParseConfig() = nil, want duration parse error")
	}
}

// TestParseConfig_BadYAML verifies syntax validation
func TestParseConfig_BadYAML(t *testing.T) {
	_, err := ParseConfig([]byte("name: [unterminated"))
	if err == nil {
		t.Fatal("ParseConfig() = nil, want yaml parse error")
	}
}

// TestLoadConfig_ReadsFile verifies the file path entry point
// Given: A config file on disk
// When: LoadConfig reads it
// Then: The parsed values come back; a missing path is an error
func TestLoadConfig_ReadsFile(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	path := filepath.Join(dir, "taskmsg.yaml")
	doc := []byte("name: from-file\nqueue_depth: 7\n")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatalf("WriteFile() = %v, want nil", err)
	}

	// Act
	cfg, err := LoadConfig(path)

	// Assert
	if err != nil {
		t.Fatalf("LoadConfig() = %v, want nil", err)
	}
	if cfg.Name != "from-file" {
		t.Errorf("Name = %q, want %q", cfg.Name, "from-file")
	}
	if cfg.QueueDepth != 7 {
		t.Errorf("QueueDepth = %d, want 7", cfg.QueueDepth)
	}

	// Act + Assert - missing file
	if _, err := LoadConfig(filepath.Join(dir, "absent.yaml")); err == nil {
		t.Error("LoadConfig(missing) = nil, want error")
	}
}
