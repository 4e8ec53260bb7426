package browser

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"
)

// userAgents is rotated per session so repeated runs don't present a single
// fingerprint to the target site.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/118.0",
}

// Options configures a browser session.
type Options struct {
	ProxyURL string
	Humanize bool
}

// Session owns one headless Chromium instance and one stealth page for the
// duration of a run.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	humanize bool
}

// NewSession launches headless Chromium, connects to it and prepares a
// stealth page with a rotated user agent.
func NewSession(opts Options) (*Session, error) {
	l := launcher.New().
		Headless(true).
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("window-size", "1920,1080").
		Set("disable-blink-features", "AutomationControlled")

	if opts.ProxyURL != "" {
		l = l.Proxy(opts.ProxyURL)
		log.Debug().Msg("Routing browser traffic through proxy")
	}

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		_ = browser.Close()
		l.Cleanup()
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}

	userAgent := userAgents[rand.Intn(len(userAgents))]
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent}); err != nil {
		log.Warn().Err(err).Msg("Failed to set user agent")
	}
	log.Debug().Str("user_agent", userAgent).Msg("Browser session ready")

	return &Session{
		launcher: l,
		browser:  browser,
		page:     page,
		humanize: opts.Humanize,
	}, nil
}

// Page exposes the session's page for element queries.
func (s *Session) Page() *rod.Page {
	return s.page
}

// Humanized reports whether stealth pauses and shuffled visit order are on.
func (s *Session) Humanized() bool {
	return s.humanize
}

// Navigate loads the target URL and waits for rendering to settle. A failed
// stability wait is tolerated; a failed load is not.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := s.Pause(ctx, 3*time.Second, 8*time.Second); err != nil {
		return err
	}

	log.Debug().Str("url", url).Msg("Navigating")
	if err := s.page.Timeout(timeout).Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := s.page.Timeout(timeout).WaitLoad(); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	if err := s.page.Timeout(timeout).WaitStable(300 * time.Millisecond); err != nil {
		log.Warn().Err(err).Msg("Page stability wait timed out, continuing")
	}

	return s.Pause(ctx, 4*time.Second, 7*time.Second)
}

// ScrollJitter performs one to three small scrolls with pauses between them.
// It is a no-op when humanized interaction is off.
func (s *Session) ScrollJitter(ctx context.Context) error {
	if !s.humanize {
		return nil
	}

	scrolls := 1 + rand.Intn(3)
	log.Debug().Int("scrolls", scrolls).Msg("Simulating scrolling")
	for i := 0; i < scrolls; i++ {
		amount := 200 + rand.Intn(301)
		if _, err := s.page.Eval(fmt.Sprintf("window.scrollBy(0, %d)", amount)); err != nil {
			return fmt.Errorf("failed to scroll page: %w", err)
		}
		if err := s.Pause(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// Pause sleeps for a random duration in [min, max). It is a no-op when
// humanized interaction is off.
func (s *Session) Pause(ctx context.Context, min, max time.Duration) error {
	if !s.humanize {
		return nil
	}
	delay := min + time.Duration(rand.Int63n(int64(max-min)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// Screenshot captures a full-page PNG of the current page state.
func (s *Session) Screenshot() ([]byte, error) {
	data, err := s.page.Screenshot(true, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return data, nil
}

// Close shuts the browser down and cleans up the launcher's temp data.
func (s *Session) Close() {
	if err := s.browser.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close browser")
	}
	s.launcher.Cleanup()
}
