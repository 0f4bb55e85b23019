package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error: %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("MEETUP_SYNC_DATA_FILE", "")
	t.Setenv("MEETUP_SYNC_LISTING_URL", "")
	t.Setenv("MEETUP_SYNC_LOG_LEVEL", "")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if c.Extract.DescriptionMin != 50 || c.Extract.DescriptionMax != 1000 {
		t.Errorf("description thresholds = %d/%d, want 50/1000", c.Extract.DescriptionMin, c.Extract.DescriptionMax)
	}
	if c.Extract.DefaultDuration != 90*time.Minute {
		t.Errorf("DefaultDuration = %v, want 90m", c.Extract.DefaultDuration)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("MEETUP_SYNC_DATA_FILE", "")
	t.Setenv("MEETUP_SYNC_LISTING_URL", "")
	t.Setenv("MEETUP_SYNC_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "sync.yaml")
	content := `
source:
  group: kona-devs
  listing_url: https://www.meetup.com/kona-devs/events/
fetch:
  pacing: 2s
  render: false
extract:
  timezone: America/Los_Angeles
  description_min: 80
dataset:
  path: data/events.json
log:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if c.Source.Group != "kona-devs" {
		t.Errorf("Group = %q, want kona-devs", c.Source.Group)
	}
	if c.Fetch.Pacing != 2*time.Second {
		t.Errorf("Pacing = %v, want 2s", c.Fetch.Pacing)
	}
	if c.Fetch.Render {
		t.Error("Render should be disabled")
	}
	if c.Extract.DescriptionMin != 80 {
		t.Errorf("DescriptionMin = %d, want 80", c.Extract.DescriptionMin)
	}
	// Untouched values keep their defaults
	if c.Extract.DescriptionMax != 1000 {
		t.Errorf("DescriptionMax = %d, want default 1000", c.Extract.DescriptionMax)
	}
	if c.Dataset.ArrayName != "allEvents" {
		t.Errorf("ArrayName = %q, want default allEvents", c.Dataset.ArrayName)
	}
	if c.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", c.Log.Level)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MEETUP_SYNC_DATA_FILE", "/tmp/events.ts")
	t.Setenv("MEETUP_SYNC_LISTING_URL", "https://example.com/group/events/")
	t.Setenv("MEETUP_SYNC_LOG_LEVEL", "debug")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if c.Dataset.Path != "/tmp/events.ts" {
		t.Errorf("Dataset.Path = %q", c.Dataset.Path)
	}
	if c.Source.ListingURL != "https://example.com/group/events/" {
		t.Errorf("ListingURL = %q", c.Source.ListingURL)
	}
	if c.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", c.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad timezone", func(c *Config) { c.Extract.Timezone = "Mars/Olympus" }, "timezone"},
		{"inverted description bounds", func(c *Config) { c.Extract.DescriptionMax = 10 }, "description_min/max"},
		{"zero duration", func(c *Config) { c.Extract.DefaultDuration = 0 }, "default_duration"},
		{"missing dataset", func(c *Config) { c.Dataset.Path = "" }, "dataset.path"},
		{"negative pacing", func(c *Config) { c.Fetch.Pacing = -time.Second }, "pacing"},
		{"unknown log level", func(c *Config) { c.Log.Level = "chatty" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}
