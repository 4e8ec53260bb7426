package app

import (
	"context"
	"os"
	"strings"
	"time"

	"nest_sales_sync/internal/drive"
	"nest_sales_sync/internal/notifications"
	"nest_sales_sync/internal/sheets"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	// Load .env file if it exists
	err := godotenv.Load()

	// Configure logging
	if os.Getenv("ENV") == "production" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	levelStr := strings.ToLower(os.Getenv("LOGLEVEL"))
	switch levelStr {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	case "disabled":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case "":
		// Default based on environment
		if os.Getenv("ENV") == "production" {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
	}

	// wait until now to report on the .env file so we have the chance to set up logging first
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

// GetRequiredEnv fetches a required environment variable or exits if not set.
func GetRequiredEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatal().Msgf("%s environment variable is required", key)
	}
	return value
}

// GetEnvWithDefault fetches an environment variable with a default fallback.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Config holds everything a run needs beyond logging.
type Config struct {
	CredentialsFile string
	SpreadsheetID   string
	SheetName       string
	DriveFolderID   string
	TargetURL       string
	ProxyURL        string
	Humanize        bool
}

// LoadConfig reads the run configuration from the environment, exiting if a
// required variable is missing.
func LoadConfig() Config {
	return Config{
		CredentialsFile: GetEnvWithDefault("CREDENTIALS_FILE", "credentials.json"),
		SpreadsheetID:   GetRequiredEnv("GOOGLE_SHEET_ID"),
		SheetName:       GetEnvWithDefault("SHEET_NAME", "Sheet1"),
		DriveFolderID:   GetRequiredEnv("DRIVE_FOLDER_ID"),
		TargetURL:       GetEnvWithDefault("TARGET_URL", "http://std.nest.net.np/"),
		ProxyURL:        GetEnvWithDefault("PROXY_URL", ""),
		Humanize:        GetEnvWithDefault("HUMANIZE", "true") == "true",
	}
}

// InitializeClients creates and returns the Google Sheets and Drive clients
func InitializeClients(ctx context.Context, cfg Config) (*sheets.Client, *drive.Client) {
	log.Debug().Msg("Initializing clients")

	sheetsClient, err := sheets.NewClient(ctx, cfg.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sheets client")
	}

	driveClient, err := drive.NewClient(ctx, cfg.CredentialsFile, cfg.DriveFolderID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create drive client")
	}

	log.Debug().Msg("Clients initialized successfully")
	return sheetsClient, driveClient
}

// InitializeNotificationClient creates and returns the notification client
func InitializeNotificationClient() *notifications.Client {
	enabled := GetEnvWithDefault("NTFY_ENABLED", "false") == "true"
	baseURL := GetEnvWithDefault("NTFY_URL", "https://ntfy.sh")
	topic := GetEnvWithDefault("NTFY_TOPIC", "nest-sales")
	batchMode := GetEnvWithDefault("NTFY_BATCH", "true") == "true"
	priority := GetEnvWithDefault("NTFY_PRIORITY", "")

	log.Debug().
		Bool("enabled", enabled).
		Str("base_url", baseURL).
		Str("topic", topic).
		Msg("Initializing notification client")

	client := notifications.NewClient(baseURL, topic, enabled, batchMode, priority, 3, time.Second, 15*time.Second)

	if enabled {
		log.Info().Str("topic", topic).Msg("Notifications enabled")
	} else {
		log.Debug().Msg("Notifications disabled")
	}

	return client
}
