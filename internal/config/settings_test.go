package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *s != *DefaultSettings() {
		t.Errorf("Load = %+v, want defaults", s)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	s := DefaultSettings()
	s.CacheDir = "/srv/tiles"
	s.Concurrency = 12
	s.BackoffUnit = 0.5
	if err := s.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *got != *s {
		t.Errorf("Load = %+v, want %+v", got, s)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"batch_size": 50}`), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", s.BatchSize)
	}
	if s.MaxRetries != DefaultSettings().MaxRetries {
		t.Errorf("MaxRetries = %d, want default", s.MaxRetries)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{"), 0644)

	if _, err := Load(path); err == nil {
		t.Error("Load of invalid JSON succeeded")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TILEDL_CACHE_DIR", "/tmp/tc")
	t.Setenv("TILEDL_CONCURRENCY", "9")
	t.Setenv("TILEDL_BACKOFF_UNIT", "0.25")

	s := DefaultSettings()
	if err := s.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	if s.CacheDir != "/tmp/tc" {
		t.Errorf("CacheDir = %q, want %q", s.CacheDir, "/tmp/tc")
	}
	if s.Concurrency != 9 {
		t.Errorf("Concurrency = %d, want 9", s.Concurrency)
	}
	if s.BackoffUnit != 0.25 {
		t.Errorf("BackoffUnit = %v, want 0.25", s.BackoffUnit)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	t.Setenv("TILEDL_MAX_RETRIES", "many")

	if err := DefaultSettings().LoadFromEnv(); err == nil {
		t.Error("LoadFromEnv accepted a non-numeric value")
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(*Settings) {}, false},
		{"no cache dir", func(s *Settings) { s.CacheDir = "" }, true},
		{"no downloads dir", func(s *Settings) { s.DownloadsDir = "" }, true},
		{"zero concurrency", func(s *Settings) { s.Concurrency = 0 }, true},
		{"zero batch", func(s *Settings) { s.BatchSize = 0 }, true},
		{"zero retries", func(s *Settings) { s.MaxRetries = 0 }, true},
		{"no retry passes", func(s *Settings) { s.RetryPasses = 0 }, false},
		{"negative passes", func(s *Settings) { s.RetryPasses = -1 }, true},
		{"negative rate", func(s *Settings) { s.RequestsPerSecond = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(s)
			if err := s.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettings_ToOptions(t *testing.T) {
	s := DefaultSettings()
	s.BackoffUnit = 0.5
	s.MaxBackoff = 4
	s.RequestTimeout = 2
	s.RequestsPerSecond = 20

	opts := s.ToOptions(zerolog.Nop())
	if opts.Concurrency != 5 || opts.BatchSize != 10 || opts.MaxRetries != 3 || opts.RetryPasses != 1 {
		t.Errorf("pool options = %+v", opts)
	}
	if opts.BackoffUnit != 500*time.Millisecond {
		t.Errorf("BackoffUnit = %v, want 500ms", opts.BackoffUnit)
	}
	if opts.MaxPassBackoff != 4*time.Second {
		t.Errorf("MaxPassBackoff = %v, want 4s", opts.MaxPassBackoff)
	}
	if opts.HTTP.Timeout != 2*time.Second || opts.HTTP.RequestsPerSecond != 20 {
		t.Errorf("HTTP = %+v", opts.HTTP)
	}
	if opts.MaxAttempts() != 6 {
		t.Errorf("MaxAttempts = %d, want 6", opts.MaxAttempts())
	}
}
