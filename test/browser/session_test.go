package browser_test

import (
	"context"
	"os"
	"testing"
	"time"

	"nest_sales_sync/internal/browser"
)

func TestSessionNavigate(t *testing.T) {
	if os.Getenv("LIVE_SCRAPE_TEST") == "" {
		t.Skip("LIVE_SCRAPE_TEST not set; skipping live browser test")
	}

	sess, err := browser.NewSession(browser.Options{Humanize: false})
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}
	defer sess.Close()

	url := os.Getenv("TARGET_URL")
	if url == "" {
		url = "http://std.nest.net.np/"
	}

	ctx := context.Background()
	if err := sess.Navigate(ctx, url, 20*time.Second); err != nil {
		t.Fatalf("Failed to navigate: %v", err)
	}

	shot, err := sess.Screenshot()
	if err != nil {
		t.Fatalf("Failed to capture screenshot: %v", err)
	}
	if len(shot) == 0 {
		t.Error("Expected non-empty screenshot")
	}
}
