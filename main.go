package main

import (
	"context"
	"fmt"

	"nest_sales_sync/internal/app"
	"nest_sales_sync/internal/browser"
	"nest_sales_sync/internal/config"
	"nest_sales_sync/internal/drive"
	"nest_sales_sync/internal/leaderboard"
	"nest_sales_sync/internal/notifications"
	"nest_sales_sync/internal/retry"
	"nest_sales_sync/internal/screenshot"
	"nest_sales_sync/internal/sheets"

	"github.com/rs/zerolog/log"
)

func main() {
	log.Debug().Msg("Starting application")
	app.SetupEnvironment()

	cfg := app.LoadConfig()

	ctx := context.Background()
	sheetsClient, driveClient := app.InitializeClients(ctx, cfg)
	notifyClient := app.InitializeNotificationClient()

	if err := run(ctx, cfg, sheetsClient, driveClient, notifyClient); err != nil {
		log.Fatal().Err(err).Msg("Sync run failed")
	}
}

// run performs one scrape-and-sync pass: load the leaderboard, extract
// sales, capture the daily screenshot, and reconcile the sheet.
func run(ctx context.Context, cfg app.Config, sheetsClient *sheets.Client, driveClient *drive.Client, notifyClient *notifications.Client) error {
	scrapeCfg := config.DefaultScrapeConfig

	sess, err := browser.NewSession(browser.Options{ProxyURL: cfg.ProxyURL, Humanize: cfg.Humanize})
	if err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}
	defer sess.Close()

	if err := sess.Navigate(ctx, cfg.TargetURL, scrapeCfg.PageLoadTimeout); err != nil {
		return err
	}
	if err := sess.ScrollJitter(ctx); err != nil {
		return err
	}

	records, err := leaderboard.NewExtractor(sess, scrapeCfg).ExtractSales(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		log.Info().Msg("No new data to upload")
		return nil
	}

	link := screenshotLink(ctx, sess, driveClient)

	reconciler := sheets.NewReconciler(sheetsClient, cfg.SpreadsheetID, cfg.SheetName, notifyClient)
	if _, err := reconciler.Reconcile(ctx, records, link); err != nil {
		return err
	}
	return nil
}

// screenshotLink captures today's leaderboard screenshot and returns its
// Drive link, or "" when the upload cannot be completed. A missing link
// never blocks the sheet update.
func screenshotLink(ctx context.Context, sess *browser.Session, driveClient *drive.Client) string {
	daily := &screenshot.Daily{Dir: "."}
	uploader := retryingUploader{client: driveClient, cfg: config.DefaultResilienceConfig.DriveUpload}

	link, err := daily.EnsureLink(ctx, sess.Screenshot, uploader)
	if err != nil {
		log.Warn().Err(err).Msg("Proceeding without screenshot link")
		return ""
	}
	return link
}

// retryingUploader applies the Drive upload retry policy around the client.
type retryingUploader struct {
	client *drive.Client
	cfg    retry.Config
}

func (u retryingUploader) UploadPNG(ctx context.Context, path string) (string, error) {
	return retry.WithRetry(ctx, u.cfg, func(ctx context.Context) (string, error) {
		return u.client.UploadPNG(ctx, path)
	})
}
