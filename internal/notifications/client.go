package notifications

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	topic      string
	enabled    bool
	batchMode  bool
	priority   string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	// Circuit breaker state
	failures    int
	lastFailure time.Time
	circuitOpen bool
	mutex       sync.RWMutex
	// Metrics
	totalSent    int64
	totalFailed  int64
	totalRetries int64
}

// SaleInfo is the slice of a sale that shows up in a push notification.
type SaleInfo struct {
	Name      string
	Amount    string
	InvoiceID string
}

type NotificationError struct {
	Type       string
	StatusCode int
	Attempt    int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s] attempt %d: %v", e.Type, e.Attempt, e.Underlying)
}

func (e *NotificationError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "timeout":
		return true
	case "rate_limit":
		return true
	case "auth", "client":
		return false
	default:
		return e.StatusCode >= 500
	}
}

func NewClient(baseURL, topic string, enabled, batchMode bool, priority string, maxRetries int, baseDelay, maxDelay time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:    baseURL,
		topic:      topic,
		enabled:    enabled,
		batchMode:  batchMode,
		priority:   priority,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
	}
}

func (c *Client) SendNotification(ctx context.Context, message string) error {
	if !c.enabled {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}

	// Check circuit breaker
	if c.isCircuitOpen() {
		log.Warn().Msg("Circuit breaker open, skipping notification")
		return &NotificationError{
			Type:       "circuit_open",
			StatusCode: 0,
			Attempt:    0,
			Underlying: fmt.Errorf("circuit breaker is open"),
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt)
			log.Debug().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying notification after delay")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			c.incrementRetries()
		}

		err := c.sendSingleNotification(ctx, message, attempt+1)
		if err == nil {
			c.recordSuccess()
			return nil
		}

		lastErr = err

		// Check if error is retryable
		if notifErr, ok := err.(*NotificationError); ok {
			if !notifErr.IsRetryable() {
				log.Warn().
					Err(err).
					Int("attempt", attempt+1).
					Msg("Non-retryable error, giving up")
				c.recordFailure()
				return err
			}
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", c.maxRetries).
			Msg("Notification attempt failed")
	}

	c.recordFailure()
	return &NotificationError{
		Type:       "max_retries_exceeded",
		StatusCode: 0,
		Attempt:    c.maxRetries + 1,
		Underlying: lastErr,
	}
}

func (c *Client) sendSingleNotification(ctx context.Context, message string, attempt int) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.topic)

	log.Debug().
		Str("url", url).
		Str("message", message).
		Int("attempt", attempt).
		Msg("Sending notification")

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBufferString(message))
	if err != nil {
		return &NotificationError{
			Type:       "client",
			StatusCode: 0,
			Attempt:    attempt,
			Underlying: err,
		}
	}

	req.Header.Set("Content-Type", "text/plain")
	if c.priority != "" {
		req.Header.Set("Priority", c.priority)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NotificationError{
			Type:       "network",
			StatusCode: 0,
			Attempt:    attempt,
			Underlying: err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errType := c.categorizeHTTPError(resp.StatusCode)
		return &NotificationError{
			Type:       errType,
			StatusCode: resp.StatusCode,
			Attempt:    attempt,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}

	log.Debug().
		Int("status_code", resp.StatusCode).
		Int("attempt", attempt).
		Msg("Notification sent successfully")

	return nil
}

// NotifyNewSales pushes a notification for sales that were just appended to
// the sheet. Sends block until delivered or exhausted; the process exits
// right after a run, so a detached send would be killed mid-flight. Failures
// are logged and swallowed. No-op when disabled or when nothing was added.
func (c *Client) NotifyNewSales(ctx context.Context, sales []SaleInfo, totalAdded int) {
	if !c.enabled {
		return
	}

	if totalAdded == 0 {
		log.Debug().Msg("No new sales to notify about")
		return
	}

	if c.batchMode {
		c.sendBatchNotification(ctx, sales, totalAdded)
	} else {
		c.sendIndividualNotifications(ctx, sales)
	}
}

func (c *Client) sendBatchNotification(ctx context.Context, sales []SaleInfo, totalAdded int) {
	message := c.formatBatchMessage(sales, totalAdded)

	log.Info().
		Int("sales_added", totalAdded).
		Msg("Sending batch notification for new sales")

	if err := c.SendNotification(ctx, message); err != nil {
		log.Warn().Err(err).Msg("Batch notification failed")
	}
}

func (c *Client) sendIndividualNotifications(ctx context.Context, sales []SaleInfo) {
	log.Info().
		Int("sales_added", len(sales)).
		Msg("Sending individual notifications for new sales")

	for i, sale := range sales {
		message := c.formatIndividualMessage(sale, i+1, len(sales))
		if err := c.SendNotification(ctx, message); err != nil {
			log.Warn().Err(err).Int("sale", i+1).Msg("Notification failed")
		}

		// Small delay between individual notifications to avoid overwhelming
		if i < len(sales)-1 {
			time.Sleep(100 * time.Millisecond)
		}
	}
}

func (c *Client) formatBatchMessage(sales []SaleInfo, totalAdded int) string {
	var sb strings.Builder

	if totalAdded == 1 {
		sb.WriteString("💰 Leaderboard: 1 new sale\n")
	} else {
		sb.WriteString(fmt.Sprintf("💰 Leaderboard: %d new sales\n", totalAdded))
	}

	maxSalesToShow := 10
	salesToShow := len(sales)
	if salesToShow > maxSalesToShow {
		salesToShow = maxSalesToShow
	}

	for i := 0; i < salesToShow; i++ {
		sale := sales[i]
		sb.WriteString(fmt.Sprintf("• %s: Rs. %s\n", sale.Name, sale.Amount))
	}

	if len(sales) > maxSalesToShow {
		remaining := len(sales) - maxSalesToShow
		sb.WriteString(fmt.Sprintf("... and %d more sales\n", remaining))
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

func (c *Client) formatIndividualMessage(sale SaleInfo, saleNum, totalSales int) string {
	var sb strings.Builder

	// Title with counter if multiple sales
	if totalSales > 1 {
		sb.WriteString(fmt.Sprintf("💰 New sale (%d/%d)\n", saleNum, totalSales))
	} else {
		sb.WriteString("💰 New sale\n")
	}

	sb.WriteString(fmt.Sprintf("👤 **%s**\n", sale.Name))
	sb.WriteString(fmt.Sprintf("Rs. %s\n", sale.Amount))

	if sale.InvoiceID != "" {
		sb.WriteString(fmt.Sprintf("🧾 Invoice #%s\n", sale.InvoiceID))
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

// Circuit breaker and retry helper methods

func (c *Client) isCircuitOpen() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.circuitOpen {
		return false
	}

	// Half-open after the cooldown so a recovered endpoint closes the circuit
	if time.Since(c.lastFailure) > 30*time.Second {
		c.circuitOpen = false
		c.failures = 0
		log.Info().Msg("Circuit breaker moving to half-open state")
		return false
	}

	return true
}

func (c *Client) recordSuccess() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalSent++
	if c.circuitOpen {
		c.circuitOpen = false
		c.failures = 0
		log.Info().Msg("Circuit breaker closed after successful notification")
	}
}

func (c *Client) recordFailure() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalFailed++
	c.failures++
	c.lastFailure = time.Now()

	// Open circuit breaker after 5 consecutive failures
	if c.failures >= 5 && !c.circuitOpen {
		c.circuitOpen = true
		log.Warn().
			Int("failures", c.failures).
			Msg("Circuit breaker opened due to consecutive failures")
	}
}

func (c *Client) incrementRetries() {
	c.mutex.Lock()
	c.totalRetries++
	c.mutex.Unlock()
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	// Exponential backoff with jitter
	base := float64(c.baseDelay)
	backoff := base * math.Pow(2, float64(attempt-1))

	// Add jitter (±25%)
	jitter := rand.Float64()*0.5 - 0.25 // -0.25 to +0.25
	backoff = backoff * (1 + jitter)

	// Cap at maxDelay
	maxBackoff := float64(c.maxDelay)
	if backoff > maxBackoff {
		backoff = maxBackoff
	}

	return time.Duration(backoff)
}

func (c *Client) categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}

// GetMetrics returns current notification metrics
func (c *Client) GetMetrics() (sent, failed, retries int64) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.totalSent, c.totalFailed, c.totalRetries
}
