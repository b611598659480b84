package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/handiism/tiledl/internal/download"
	"github.com/handiism/tiledl/internal/http"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "TILEDL_"

// Settings holds all configuration options.
type Settings struct {
	// Paths
	CacheDir     string `json:"cache_dir"`
	DownloadsDir string `json:"downloads_dir"`
	StylesFile   string `json:"styles_file"`

	// Download settings
	Concurrency       int     `json:"concurrency"`
	BatchSize         int     `json:"batch_size"`
	MaxRetries        int     `json:"max_retries"`
	RetryPasses       int     `json:"retry_passes"`
	BackoffUnit       float64 `json:"backoff_unit"`        // seconds
	MaxBackoff        float64 `json:"max_backoff"`         // seconds
	RequestTimeout    float64 `json:"request_timeout"`     // seconds
	RequestsPerSecond float64 `json:"requests_per_second"` // 0 = unlimited
	UserAgent         string  `json:"user_agent"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		CacheDir:     "tile-cache",
		DownloadsDir: "downloads",
		StylesFile:   filepath.Join("config", "map_sources.json"),

		Concurrency:       5,
		BatchSize:         10,
		MaxRetries:        3,
		RetryPasses:       1,
		BackoffUnit:       1,
		MaxBackoff:        8,
		RequestTimeout:    10,
		RequestsPerSecond: 0,
		UserAgent:         http.DefaultUserAgent,
	}
}

// Load reads settings from a JSON file. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// LoadFromEnv overrides settings from TILEDL_* environment variables.
func (s *Settings) LoadFromEnv() error {
	strs := map[string]*string{
		"CACHE_DIR":     &s.CacheDir,
		"DOWNLOADS_DIR": &s.DownloadsDir,
		"STYLES_FILE":   &s.StylesFile,
		"USER_AGENT":    &s.UserAgent,
	}
	for key, dst := range strs {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"CONCURRENCY":  &s.Concurrency,
		"BATCH_SIZE":   &s.BatchSize,
		"MAX_RETRIES":  &s.MaxRetries,
		"RETRY_PASSES": &s.RetryPasses,
	}
	for key, dst := range ints {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("parse %s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"BACKOFF_UNIT":        &s.BackoffUnit,
		"MAX_BACKOFF":         &s.MaxBackoff,
		"REQUEST_TIMEOUT":     &s.RequestTimeout,
		"REQUESTS_PER_SECOND": &s.RequestsPerSecond,
	}
	for key, dst := range floats {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("parse %s%s: %w", EnvPrefix, key, err)
			}
			*dst = f
		}
	}

	return nil
}

// Validate validates the settings.
func (s *Settings) Validate() error {
	if s.CacheDir == "" {
		return errors.New("config: cache_dir is required")
	}
	if s.DownloadsDir == "" {
		return errors.New("config: downloads_dir is required")
	}
	if s.Concurrency <= 0 {
		return errors.New("config: concurrency must be positive")
	}
	if s.BatchSize <= 0 {
		return errors.New("config: batch_size must be positive")
	}
	if s.MaxRetries <= 0 {
		return errors.New("config: max_retries must be positive")
	}
	if s.RetryPasses < 0 {
		return errors.New("config: retry_passes must not be negative")
	}
	if s.BackoffUnit < 0 || s.MaxBackoff < 0 || s.RequestTimeout < 0 || s.RequestsPerSecond < 0 {
		return errors.New("config: durations and rates must not be negative")
	}
	return nil
}

// ToOptions converts settings to download options logging to log.
func (s *Settings) ToOptions(log zerolog.Logger) download.Options {
	opts := download.DefaultOptions()
	opts.Concurrency = s.Concurrency
	opts.BatchSize = s.BatchSize
	opts.MaxRetries = s.MaxRetries
	opts.RetryPasses = s.RetryPasses
	opts.BackoffUnit = seconds(s.BackoffUnit)
	opts.MaxPassBackoff = seconds(s.MaxBackoff)
	opts.HTTP = http.Options{
		Timeout:           seconds(s.RequestTimeout),
		UserAgent:         s.UserAgent,
		RequestsPerSecond: s.RequestsPerSecond,
	}
	opts.Logger = log
	return opts
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
