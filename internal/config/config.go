// Package config loads sync settings from an optional YAML file.
//
// Every value has a default so the tool runs without a config file. Durations use
// Go duration strings ("1s", "90m"). Environment variables override the file and
// command-line flags override both.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // timezone data for hosts without a zoneinfo database

	"gopkg.in/yaml.v3"
)

// SourceConfig describes the Meetup group being scraped
type SourceConfig struct {
	ListingURL string `yaml:"listing_url"` // https://www.meetup.com/big-island-tech/events/
	Group      string `yaml:"group"`       // URL slug used to filter event links
	UserAgent  string `yaml:"user_agent"`
}

// FetchConfig controls both retrieval tiers
type FetchConfig struct {
	HTTPTimeout   time.Duration `yaml:"http_timeout"`   // static tier request timeout
	Render        bool          `yaml:"render"`         // enable headless fallback
	RenderTimeout time.Duration `yaml:"render_timeout"` // whole-render budget
	SettleDelay   time.Duration `yaml:"settle_delay"`   // wait after navigation for hydration
	Pacing        time.Duration `yaml:"pacing"`         // minimum gap between event fetches
	ChromePath    string        `yaml:"chrome_path"`    // optional browser binary
}

// ExtractConfig holds the extraction thresholds and site conventions
type ExtractConfig struct {
	Timezone            string        `yaml:"timezone"`
	DefaultTime         string        `yaml:"default_time"`     // used when no time range can be derived
	DefaultDuration     time.Duration `yaml:"default_duration"` // assumed length when no end time is printed
	DescriptionMin      int           `yaml:"description_min"`
	DescriptionMax      int           `yaml:"description_max"`
	FallbackMin         int           `yaml:"fallback_min"`
	FallbackMax         int           `yaml:"fallback_max"`
	Boilerplate         []string      `yaml:"boilerplate"`
	SiteKeyword         string        `yaml:"site_keyword"`
	ImagePathFragment   string        `yaml:"image_path_fragment"`
	ImageWidth          int           `yaml:"image_width"`
	OnlineMarkers       []string      `yaml:"online_markers"`
	RemoteLocationLabel string        `yaml:"remote_location"`
}

// DatasetConfig locates the persisted events file
type DatasetConfig struct {
	Path      string `yaml:"path"`       // .ts literal or .json
	ArrayName string `yaml:"array_name"` // exported array in the .ts file
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn or error; --verbose forces debug
}

// MetricsConfig controls the Prometheus textfile written after a sync
type MetricsConfig struct {
	File string `yaml:"file"`
}

// Config is the full sync configuration
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Extract ExtractConfig `yaml:"extract"`
	Dataset DatasetConfig `yaml:"dataset"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// Default returns the settings used for the Big Island Tech group
func Default() Config {
	return Config{
		Source: SourceConfig{
			ListingURL: "https://www.meetup.com/big-island-tech/events/",
			Group:      "big-island-tech",
			UserAgent:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Fetch: FetchConfig{
			HTTPTimeout:   30 * time.Second,
			Render:        true,
			RenderTimeout: 60 * time.Second,
			SettleDelay:   3 * time.Second,
			Pacing:        time.Second,
		},
		Extract: ExtractConfig{
			Timezone:            "Pacific/Honolulu",
			DefaultTime:         "4:00 PM - 5:30 PM HST",
			DefaultDuration:     90 * time.Minute,
			DescriptionMin:      50,
			DescriptionMax:      1000,
			FallbackMin:         100,
			FallbackMax:         2000,
			Boilerplate:         []string{"Sign up", "Log in", "Cookie"},
			SiteKeyword:         "meetup",
			ImagePathFragment:   "meetupstatic.com/photos/event",
			ImageWidth:          750,
			OnlineMarkers:       []string{"online", "virtual"},
			RemoteLocationLabel: "VIRTUAL",
		},
		Dataset: DatasetConfig{
			Path:      "src/data/events.ts",
			ArrayName: "allEvents",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults with
// environment overrides applied.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parsing config: %w", err)
		}
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("MEETUP_SYNC_DATA_FILE")); v != "" {
		c.Dataset.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("MEETUP_SYNC_LISTING_URL")); v != "" {
		c.Source.ListingURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MEETUP_SYNC_LOG_LEVEL")); v != "" {
		c.Log.Level = v
	}
}

// Location resolves the configured timezone
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Extract.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Extract.Timezone, err)
	}
	return loc, nil
}

// Validate rejects settings the pipeline cannot run with
func (c Config) Validate() error {
	var errs []error

	if c.Source.ListingURL == "" {
		errs = append(errs, errors.New("source.listing_url is required"))
	}
	if c.Source.Group == "" {
		errs = append(errs, errors.New("source.group is required"))
	}
	if c.Dataset.Path == "" {
		errs = append(errs, errors.New("dataset.path is required"))
	}
	if c.Dataset.ArrayName == "" {
		errs = append(errs, errors.New("dataset.array_name is required"))
	}
	if c.Fetch.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("fetch.http_timeout must be positive"))
	}
	if c.Fetch.RenderTimeout <= 0 {
		errs = append(errs, errors.New("fetch.render_timeout must be positive"))
	}
	if c.Fetch.SettleDelay < 0 || c.Fetch.Pacing < 0 {
		errs = append(errs, errors.New("fetch.settle_delay and fetch.pacing must not be negative"))
	}
	if c.Extract.DefaultDuration <= 0 {
		errs = append(errs, errors.New("extract.default_duration must be positive"))
	}
	if c.Extract.DescriptionMin <= 0 || c.Extract.DescriptionMax <= c.Extract.DescriptionMin {
		errs = append(errs, fmt.Errorf("extract.description_min/max invalid: %d/%d", c.Extract.DescriptionMin, c.Extract.DescriptionMax))
	}
	if c.Extract.FallbackMin <= 0 || c.Extract.FallbackMax <= c.Extract.FallbackMin {
		errs = append(errs, fmt.Errorf("extract.fallback_min/max invalid: %d/%d", c.Extract.FallbackMin, c.Extract.FallbackMax))
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
