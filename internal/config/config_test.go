package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_CreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	s, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config file was not written: %v", err)
	}

	if s.Download.Format != "epub" {
		t.Errorf("Format = %q, want epub", s.Download.Format)
	}
	if s.Download.MaxThreads != 5 {
		t.Errorf("MaxThreads = %d, want 5", s.Download.MaxThreads)
	}
	if s.Download.TaskTimeout() != 180*time.Second {
		t.Errorf("TaskTimeout() = %v", s.Download.TaskTimeout())
	}
	if delays := s.Download.RetryDelayTable(); len(delays) != 2 || delays[0] != 30*time.Second || delays[1] != 60*time.Second {
		t.Errorf("RetryDelayTable() = %v", delays)
	}
	if s.Download.MinFreeBytes() != 200<<20 {
		t.Errorf("MinFreeBytes() = %d", s.Download.MinFreeBytes())
	}
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
download:
  format: txt
  max_threads: 8
account:
  username: someone@example.com
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Download.Format != "txt" {
		t.Errorf("Format = %q, want txt", s.Download.Format)
	}
	if s.Download.MaxThreads != 8 {
		t.Errorf("MaxThreads = %d, want 8", s.Download.MaxThreads)
	}
	if s.Account.Username != "someone@example.com" {
		t.Errorf("Username = %q", s.Account.Username)
	}
	// Unset keys keep their defaults.
	if s.Download.RetryAttempts != 2 {
		t.Errorf("RetryAttempts = %d, want default 2", s.Download.RetryAttempts)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad format", "download:\n  format: pdf\n"},
		{"bad naming mode", "download:\n  naming_mode: whatever\n"},
		{"zero threads", "download:\n  max_threads: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, _, err := Load(path); err == nil {
				t.Error("Load() expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, v, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	v.Set("download.format", "txt")
	if err := Save(v); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	s, _, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Download.Format != "txt" {
		t.Errorf("Format after round trip = %q, want txt", s.Download.Format)
	}
}
