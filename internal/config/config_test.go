package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollInterval != 900*time.Second {
		t.Fatalf("PollInterval = %s", cfg.PollInterval)
	}
	if cfg.AnnounceMaxPages != 3 {
		t.Fatalf("AnnounceMaxPages = %d", cfg.AnnounceMaxPages)
	}
	if cfg.DateLocation != time.UTC {
		t.Fatalf("DateLocation = %v", cfg.DateLocation)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("SessionTTL = %s", cfg.SessionTTL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "60")
	t.Setenv("ANNOUNCE_MAX_PAGES", "7")
	t.Setenv("DATE_LOCATION", "America/New_York")
	t.Setenv("GITHUB_TOKEN", "ghp_secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollInterval != time.Minute || cfg.AnnounceMaxPages != 7 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.DateLocation.String() != "America/New_York" {
		t.Fatalf("DateLocation = %v", cfg.DateLocation)
	}

	red := cfg.Redacted()
	if red.GitHubToken != "***" || cfg.GitHubToken != "ghp_secret" {
		t.Fatalf("Redacted should mask only the copy, got %q / %q", red.GitHubToken, cfg.GitHubToken)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"POLL_INTERVAL":        "0",
		"ANNOUNCE_MAX_PAGES":   "-1",
		"HTTP_TIMEOUT_SECONDS": "0",
		"DATE_LOCATION":        "Mars/Olympus",
	}
	for key, val := range cases {
		t.Run(strings.ToLower(key), func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}
