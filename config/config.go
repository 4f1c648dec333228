// forumindex/config/config.go
package config

import (
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"forumindex/models"
	"forumindex/utils"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	AppVersion       = "1.4.0"
	DefaultSiteTitle = "Forums"

	// Server Defaults
	DefaultPort   = "8080"
	DefaultDBPath = "./forum.db?_journal_mode=WAL&_foreign_keys=on"

	// Index Display Defaults
	DefaultShowNewOnIndex = "counts"
	DefaultThousandsSep   = ","
	DefaultDateLayout     = "Jan 2, 2006 3:04 PM"
	DefaultTimeZone       = "UTC"
	DefaultFeedType       = "atom"

	// ListThreadLimit caps the threads on a forum list page and in its feed.
	ListThreadLimit = 50

	// Cookies
	SessionCookieName      = "forumindex_session"
	ForumTokenCookiePrefix = "forum_"
	ForumTokenMaxAge       = 86400 * 30 // 30 days

	// Rate Limiting Defaults (mark-read actions)
	DefaultRateLimitEvery  = "2s"
	DefaultRateLimitBurst  = 10
	DefaultRateLimitPrune  = "1h"
	DefaultRateLimitExpire = "24h"
)

// Settings is the runtime configuration read from FORUMINDEX_* variables.
type Settings struct {
	Port          string
	DBPath        string
	BaseURL       string
	SiteTitle     string
	SessionSecret string

	ShowNewOnIndex          models.UnreadMode
	HideForumsWithoutAccess bool
	FeedEnabled             bool
	DefaultFeedType         string
	DisableBatching         bool

	ThousandsSep string
	DateLayout   string
	Location     *time.Location

	RateLimitEvery  time.Duration
	RateLimitBurst  int
	RateLimitPrune  time.Duration
	RateLimitExpire time.Duration
}

// LoadSettings reads the environment. Invalid values are logged and replaced by defaults.
func LoadSettings(logger *slog.Logger) Settings {
	s := Settings{
		Port:                    utils.GetEnv("FORUMINDEX_PORT", DefaultPort),
		DBPath:                  utils.GetEnv("FORUMINDEX_DB_PATH", DefaultDBPath),
		BaseURL:                 utils.GetEnv("FORUMINDEX_BASE_URL", ""),
		SiteTitle:               utils.GetEnv("FORUMINDEX_SITE_TITLE", DefaultSiteTitle),
		SessionSecret:           utils.GetEnv("FORUMINDEX_SESSION_SECRET", ""),
		HideForumsWithoutAccess: utils.GetEnvBool("FORUMINDEX_HIDE_FORUMS", true),
		FeedEnabled:             utils.GetEnvBool("FORUMINDEX_FEEDS", false),
		DefaultFeedType:         utils.GetEnv("FORUMINDEX_FEED_TYPE", DefaultFeedType),
		DisableBatching:         utils.GetEnvBool("FORUMINDEX_DISABLE_BATCHING", false),
		ThousandsSep:            utils.GetEnv("FORUMINDEX_THOUSANDS_SEP", DefaultThousandsSep),
		DateLayout:              utils.GetEnv("FORUMINDEX_DATE_LAYOUT", DefaultDateLayout),
		RateLimitEvery:          utils.GetEnvDuration("FORUMINDEX_RATE_EVERY", DefaultRateLimitEvery),
		RateLimitPrune:          utils.GetEnvDuration("FORUMINDEX_RATE_PRUNE", DefaultRateLimitPrune),
		RateLimitExpire:         utils.GetEnvDuration("FORUMINDEX_RATE_EXPIRE", DefaultRateLimitExpire),
	}

	mode, err := models.ParseUnreadMode(utils.GetEnv("FORUMINDEX_SHOW_NEW", DefaultShowNewOnIndex))
	if err != nil {
		logger.Warn("Invalid FORUMINDEX_SHOW_NEW, using default", "error", err, "default", DefaultShowNewOnIndex)
		mode, _ = models.ParseUnreadMode(DefaultShowNewOnIndex)
	}
	s.ShowNewOnIndex = mode

	burst, err := strconv.Atoi(utils.GetEnv("FORUMINDEX_RATE_BURST", strconv.Itoa(DefaultRateLimitBurst)))
	if err != nil || burst < 1 {
		logger.Warn("Invalid FORUMINDEX_RATE_BURST integer, using default", "default", DefaultRateLimitBurst)
		burst = DefaultRateLimitBurst
	}
	s.RateLimitBurst = burst

	zone := utils.GetEnv("FORUMINDEX_TIMEZONE", DefaultTimeZone)
	loc, err := time.LoadLocation(zone)
	if err != nil {
		logger.Warn("Unknown FORUMINDEX_TIMEZONE, using UTC", "value", zone, "error", err)
		loc = time.UTC
	}
	s.Location = loc

	return s
}

// FeedTypeAtom is the only feed format served.
const FeedTypeAtom = "atom"

var portPattern = regexp.MustCompile(`^[0-9]{1,5}$`)

// Validate rejects settings the server cannot start with.
func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Port, validation.Required, validation.Match(portPattern)),
		validation.Field(&s.DBPath, validation.Required),
		validation.Field(&s.DateLayout, validation.Required),
		validation.Field(&s.DefaultFeedType, validation.In(FeedTypeAtom)),
		validation.Field(&s.Location, validation.NotNil),
		validation.Field(&s.RateLimitBurst, validation.Required, validation.Min(1)),
		validation.Field(&s.RateLimitEvery, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&s.RateLimitPrune, validation.Required, validation.Min(time.Second)),
	)
}
