package sheets

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"nest_sales_sync/internal/config"
	"nest_sales_sync/internal/leaderboard"
	"nest_sales_sync/internal/notifications"
	"nest_sales_sync/internal/retry"

	"github.com/rs/zerolog/log"
)

// Header is the canonical first row of the destination sheet.
var Header = []string{"Timestamp", "Name", "Invoice ID", "Amount", "Screenshot Link"}

// sheetAPI is the part of Client the reconciler uses.
type sheetAPI interface {
	ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error)
	AppendRows(ctx context.Context, spreadsheetID, range_ string, rows [][]interface{}) (string, error)
	UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}) error
	SheetID(ctx context.Context, spreadsheetID, sheetName string) (int64, error)
	InsertRowAt(ctx context.Context, spreadsheetID string, sheetID, index int64) error
	MergeCells(ctx context.Context, spreadsheetID string, sheetID, startRow, endRow, startCol, endCol int64) error
}

// Reconciler appends newly extracted sales to the destination sheet without
// duplicating rows already present.
type Reconciler struct {
	client        sheetAPI
	spreadsheetID string
	sheetName     string
	resilience    config.ResilienceConfig
	notify        *notifications.Client
	now           func() time.Time
}

func NewReconciler(client *Client, spreadsheetID, sheetName string, notify *notifications.Client) *Reconciler {
	return &Reconciler{
		client:        client,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		resilience:    config.DefaultResilienceConfig,
		notify:        notify,
		now:           time.Now,
	}
}

// Reconcile reads the sheet once, repairs the header if needed, filters the
// batch down to unseen invoice IDs and appends the survivors in one call,
// prefixed by a blank separator row when the calendar day rolled over. It
// returns the number of records appended. A failed read aborts the write so
// a transient outage cannot produce duplicate rows.
func (r *Reconciler) Reconcile(ctx context.Context, records []leaderboard.SaleRecord, screenshotLink string) (int, error) {
	if len(records) == 0 {
		log.Info().Msg("No new data to upload")
		return 0, nil
	}

	readRange := fmt.Sprintf("%s!A1:E", r.sheetName)
	data, err := retry.WithRetry(ctx, r.resilience.SheetRead, func(ctx context.Context) ([][]interface{}, error) {
		return r.client.ReadSheet(ctx, r.spreadsheetID, readRange)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read existing sheet data: %w", err)
	}
	log.Debug().Int("rows", len(data)).Msg("Retrieved existing sheet data")

	if err := r.ensureHeader(ctx, data); err != nil {
		log.Error().Err(err).Msg("Failed to repair sheet header")
	}

	existing := existingInvoiceIDs(data)
	unique := filterNew(records, existing)
	if len(unique) == 0 {
		log.Info().Msg("No new unique sales to add (all were duplicates)")
		return 0, nil
	}

	now := r.now()
	rows := buildRows(unique, now.Format("2006-01-02 15:04:05"), screenshotLink,
		needsDateSeparator(data, now.Format("2006-01-02")))

	appendRange := fmt.Sprintf("%s!A1", r.sheetName)
	updatedRange, err := r.client.AppendRows(ctx, r.spreadsheetID, appendRange, rows)
	if err != nil {
		return 0, fmt.Errorf("failed to append rows: %w", err)
	}

	log.Info().
		Int("added", len(unique)).
		Int("skipped", len(records)-len(unique)).
		Msg("Sheet update complete")

	if r.notify != nil {
		r.notify.NotifyNewSales(ctx, saleInfos(unique), len(unique))
	}

	if screenshotLink != "" && len(unique) > 1 {
		if err := r.mergeLinkColumn(ctx, updatedRange, len(rows), len(unique)); err != nil {
			log.Warn().Err(err).Msg("Failed to merge screenshot link cells")
		}
	}

	return len(unique), nil
}

// ensureHeader makes row 1 the canonical header without touching data rows.
// An empty sheet gets the header written; a sheet whose first row is not the
// header gets a blank row inserted on top first, so whatever was there
// slides down intact.
func (r *Reconciler) ensureHeader(ctx context.Context, data [][]interface{}) error {
	if len(data) > 0 && headerMatches(data[0]) {
		return nil
	}

	if len(data) > 0 {
		sheetID, err := r.client.SheetID(ctx, r.spreadsheetID, r.sheetName)
		if err != nil {
			return err
		}
		if err := r.client.InsertRowAt(ctx, r.spreadsheetID, sheetID, 0); err != nil {
			return err
		}
		log.Warn().Msg("Sheet header missing or wrong, inserted header row")
	} else {
		log.Info().Msg("Empty sheet, writing header row")
	}

	headerRow := make([]interface{}, len(Header))
	for i, title := range Header {
		headerRow[i] = title
	}
	headerRange := fmt.Sprintf("%s!A1:E1", r.sheetName)
	return r.client.UpdateRange(ctx, r.spreadsheetID, headerRange, [][]interface{}{headerRow})
}

func headerMatches(row []interface{}) bool {
	if len(row) != len(Header) {
		return false
	}
	for i, title := range Header {
		if fmt.Sprintf("%v", row[i]) != title {
			return false
		}
	}
	return true
}

// existingInvoiceIDs collects the dedup keys from the invoice column,
// skipping the header and blank separator rows.
func existingInvoiceIDs(data [][]interface{}) map[string]bool {
	existing := make(map[string]bool)
	for i, row := range data {
		if i == 0 && headerMatches(row) {
			continue
		}
		if len(row) <= 2 || row[2] == nil {
			continue
		}
		id := strings.TrimSpace(fmt.Sprintf("%v", row[2]))
		if id == "" || id == Header[2] {
			continue
		}
		existing[id] = true
	}
	return existing
}

// saleInfos converts appended records into their notification shape.
func saleInfos(records []leaderboard.SaleRecord) []notifications.SaleInfo {
	infos := make([]notifications.SaleInfo, len(records))
	for i, record := range records {
		infos[i] = notifications.SaleInfo{
			Name:      record.Name,
			Amount:    record.Amount,
			InvoiceID: record.InvoiceID,
		}
	}
	return infos
}

// filterNew drops records whose invoice ID the sheet already has. The set is
// updated as the batch is scanned so in-batch duplicates are dropped too.
func filterNew(records []leaderboard.SaleRecord, existing map[string]bool) []leaderboard.SaleRecord {
	var unique []leaderboard.SaleRecord
	for _, record := range records {
		if existing[record.InvoiceID] {
			log.Debug().Str("invoice", record.InvoiceID).Msg("Skipping duplicate entry")
			continue
		}
		existing[record.InvoiceID] = true
		unique = append(unique, record)
	}
	return unique
}

var timestampDateRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// needsDateSeparator reports whether the sheet's last dated row belongs to an
// earlier calendar day than runDate. Rows without a parseable timestamp
// (header, separators, stray text) are ignored.
func needsDateSeparator(data [][]interface{}, runDate string) bool {
	for i := len(data) - 1; i >= 0; i-- {
		row := data[i]
		if len(row) == 0 || row[0] == nil {
			continue
		}
		ts := strings.TrimSpace(fmt.Sprintf("%v", row[0]))
		if !timestampDateRE.MatchString(ts) {
			continue
		}
		return ts[:10] != runDate
	}
	return false
}

// buildRows renders records as sheet rows. The screenshot link rides only on
// the first record row; when separator is set an all-blank row leads the
// batch so both land in one append call.
func buildRows(records []leaderboard.SaleRecord, timestamp, screenshotLink string, separator bool) [][]interface{} {
	var rows [][]interface{}
	if separator {
		rows = append(rows, []interface{}{"", "", "", "", ""})
	}
	for i, record := range records {
		link := ""
		if i == 0 {
			link = screenshotLink
		}
		rows = append(rows, []interface{}{timestamp, record.Name, record.InvoiceID, record.Amount, link})
	}
	return rows
}

// mergeLinkColumn merges the screenshot-link cells of the rows that landed in
// updatedRange, skipping the leading separator row when one was appended.
func (r *Reconciler) mergeLinkColumn(ctx context.Context, updatedRange string, totalRows, recordRows int) error {
	startRow, endRow, err := parseRowRange(updatedRange)
	if err != nil {
		return err
	}
	sheetID, err := r.client.SheetID(ctx, r.spreadsheetID, r.sheetName)
	if err != nil {
		return err
	}

	firstRecordRow := startRow + int64(totalRows-recordRows)
	return r.client.MergeCells(ctx, r.spreadsheetID, sheetID, firstRecordRow-1, endRow, 4, 5)
}

var rowRangeRE = regexp.MustCompile(`![A-Z]+(\d+)(?::[A-Z]+(\d+))?$`)

// parseRowRange pulls the 1-based start and end row numbers out of an A1
// range like "Sheet1!A5:E8".
func parseRowRange(a1 string) (int64, int64, error) {
	m := rowRangeRE.FindStringSubmatch(a1)
	if m == nil {
		return 0, 0, fmt.Errorf("unexpected updated range %q", a1)
	}
	start, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected updated range %q", a1)
	}
	end := start
	if m[2] != "" {
		end, err = strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("unexpected updated range %q", a1)
		}
	}
	return start, end, nil
}
