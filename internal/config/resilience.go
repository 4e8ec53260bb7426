package config

import (
	"time"

	"nest_sales_sync/internal/retry"
)

type ResilienceConfig struct {
	SheetRead   retry.Config
	DriveUpload retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	SheetRead: retry.Config{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    15 * time.Second,
	},
	DriveUpload: retry.Config{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    60 * time.Second,
	},
}

// ScrapeConfig bounds the waits the browser session performs against the
// leaderboard page. Expansion waits are per card; the poll interval is shared.
type ScrapeConfig struct {
	PageLoadTimeout time.Duration
	ExpandTimeout   time.Duration
	PollInterval    time.Duration
	MinCardTextLen  int
}

var DefaultScrapeConfig = ScrapeConfig{
	PageLoadTimeout: 20 * time.Second,
	ExpandTimeout:   12 * time.Second,
	PollInterval:    500 * time.Millisecond,
	MinCardTextLen:  40,
}
