package screenshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Uploader pushes a local PNG to remote storage and returns a shareable link.
type Uploader interface {
	UploadPNG(ctx context.Context, path string) (string, error)
}

// Daily manages one screenshot per calendar date. The PNG and a link-cache
// text file live in Dir; the cache file short-circuits capture and upload
// for the rest of the day.
type Daily struct {
	Dir string
	Now func() time.Time
}

func (d *Daily) date() string {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return now().Format("2006-01-02")
}

// EnsureLink returns today's screenshot link, capturing and uploading a
// fresh PNG only when no cached link exists yet. A failed upload removes
// the PNG so a later run the same day recaptures instead of re-sending a
// possibly stale file.
func (d *Daily) EnsureLink(ctx context.Context, capture func() ([]byte, error), uploader Uploader) (string, error) {
	date := d.date()
	linkPath := filepath.Join(d.Dir, "screenshot_link_"+date+".txt")

	if cached, err := os.ReadFile(linkPath); err == nil {
		if link := strings.TrimSpace(string(cached)); link != "" {
			log.Debug().Str("link", link).Msg("Reusing cached screenshot link")
			return link, nil
		}
	}

	data, err := capture()
	if err != nil {
		return "", fmt.Errorf("failed to capture screenshot: %w", err)
	}

	pngPath := filepath.Join(d.Dir, "leaderboard_"+date+".png")
	if err := os.WriteFile(pngPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", pngPath, err)
	}
	log.Debug().Str("path", pngPath).Int("bytes", len(data)).Msg("Saved screenshot")

	link, err := uploader.UploadPNG(ctx, pngPath)
	if err != nil {
		if removeErr := os.Remove(pngPath); removeErr != nil {
			log.Warn().Err(removeErr).Str("path", pngPath).Msg("Failed to remove screenshot after failed upload")
		}
		return "", fmt.Errorf("failed to upload screenshot: %w", err)
	}

	if err := os.WriteFile(linkPath, []byte(link), 0644); err != nil {
		log.Warn().Err(err).Str("path", linkPath).Msg("Failed to cache screenshot link")
	}

	log.Info().Str("link", link).Msg("Screenshot uploaded")
	return link, nil
}
