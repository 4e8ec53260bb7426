package leaderboard

import (
	"testing"
	"time"
)

func TestSummaryRecordStampsRunDate(t *testing.T) {
	e := &Extractor{now: func() time.Time { return time.Date(2024, 1, 2, 23, 59, 0, 0, time.UTC) }}

	records := e.summaryRecord("Jane Doe", "5 sales totaling Rs. 10,500.00")
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Name != "Jane Doe" {
		t.Errorf("Expected name Jane Doe, got %s", records[0].Name)
	}
	if records[0].Amount != "10500.00" {
		t.Errorf("Expected amount 10500.00, got %s", records[0].Amount)
	}
	want := SummaryInvoiceID("Jane Doe", "2024-01-02", "10500.00")
	if records[0].InvoiceID != want {
		t.Errorf("Expected invoice %s, got %s", want, records[0].InvoiceID)
	}
}

func TestSummaryRecordNoSummaryLine(t *testing.T) {
	e := &Extractor{now: func() time.Time { return time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC) }}

	if records := e.summaryRecord("Jane Doe", "nothing sold today"); records != nil {
		t.Errorf("Expected nil for text without a summary line, got %v", records)
	}
}
