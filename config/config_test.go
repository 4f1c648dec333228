package config

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"forumindex/models"
)

func TestLoadSettings(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	t.Run("Defaults", func(t *testing.T) {
		s := LoadSettings(logger)
		if s.Port != DefaultPort || s.SiteTitle != DefaultSiteTitle {
			t.Errorf("Expected default port and title, but got %q %q", s.Port, s.SiteTitle)
		}
		if s.ShowNewOnIndex != models.UnreadCounts {
			t.Errorf("Expected counts mode by default, but got %s", s.ShowNewOnIndex)
		}
		if !s.HideForumsWithoutAccess || s.FeedEnabled {
			t.Error("Expected hiding on and feeds off by default")
		}
		if s.RateLimitBurst != DefaultRateLimitBurst || s.RateLimitEvery != 2*time.Second {
			t.Errorf("Unexpected rate limit defaults %d %v", s.RateLimitBurst, s.RateLimitEvery)
		}
		if s.Location != time.UTC {
			t.Errorf("Expected UTC, but got %v", s.Location)
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		t.Setenv("FORUMINDEX_SHOW_NEW", "check")
		t.Setenv("FORUMINDEX_HIDE_FORUMS", "false")
		t.Setenv("FORUMINDEX_FEEDS", "true")
		t.Setenv("FORUMINDEX_THOUSANDS_SEP", ".")
		t.Setenv("FORUMINDEX_RATE_BURST", "4")
		s := LoadSettings(logger)
		if s.ShowNewOnIndex != models.UnreadCheck || s.HideForumsWithoutAccess || !s.FeedEnabled {
			t.Errorf("Expected overrides to apply, but got %+v", s)
		}
		if s.ThousandsSep != "." || s.RateLimitBurst != 4 {
			t.Errorf("Expected separator . and burst 4, but got %q %d", s.ThousandsSep, s.RateLimitBurst)
		}
	})

	t.Run("Invalid values fall back", func(t *testing.T) {
		t.Setenv("FORUMINDEX_SHOW_NEW", "sometimes")
		t.Setenv("FORUMINDEX_RATE_BURST", "-1")
		t.Setenv("FORUMINDEX_RATE_EVERY", "soon")
		t.Setenv("FORUMINDEX_TIMEZONE", "Mars/Olympus")
		s := LoadSettings(logger)
		if s.ShowNewOnIndex != models.UnreadCounts {
			t.Errorf("Expected default mode, but got %s", s.ShowNewOnIndex)
		}
		if s.RateLimitBurst != DefaultRateLimitBurst || s.RateLimitEvery != 2*time.Second {
			t.Errorf("Expected default rate limits, but got %d %v", s.RateLimitBurst, s.RateLimitEvery)
		}
		if s.Location != time.UTC {
			t.Errorf("Expected UTC fallback, but got %v", s.Location)
		}
	})
}

func TestSettingsValidate(t *testing.T) {
	valid := LoadSettings(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected default settings to be valid, but got: %v", err)
	}

	testCases := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"Non-numeric port", func(s *Settings) { s.Port = "http" }},
		{"Missing database", func(s *Settings) { s.DBPath = "" }},
		{"Missing date layout", func(s *Settings) { s.DateLayout = "" }},
		{"Missing location", func(s *Settings) { s.Location = nil }},
		{"Zero burst", func(s *Settings) { s.RateLimitBurst = 0 }},
		{"Unsupported feed type", func(s *Settings) { s.DefaultFeedType = "rss" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid
			tc.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Error("Expected a validation error, but got nil")
			}
		})
	}
}
