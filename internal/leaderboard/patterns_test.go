package leaderboard

import (
	"strings"
	"testing"
)

func TestExtractDetailsSingleSale(t *testing.T) {
	text := "#1 Jane Doe\nSale of Rs. 1,200.50 on 2024-01-02 Invoice ID: #55512345"

	details := ExtractDetails(text)
	if len(details) != 1 {
		t.Fatalf("Expected 1 detail, got %d", len(details))
	}
	if details[0].Amount != "1200.50" {
		t.Errorf("Expected amount '1200.50', got %s", details[0].Amount)
	}
	if details[0].InvoiceID != "55512345" {
		t.Errorf("Expected invoice '55512345', got %s", details[0].InvoiceID)
	}
}

func TestExtractDetailsOncePerOccurrence(t *testing.T) {
	text := strings.Join([]string{
		"Sale of Rs. 1,200.50 Invoice ID: #100",
		"Sale of Rs 300 Invoice ID: 200",
		"sale of rs. 45,000 invoice id: #300",
	}, "\n")

	details := ExtractDetails(text)
	if len(details) != 3 {
		t.Fatalf("Expected 3 details, got %d", len(details))
	}

	expected := []Detail{
		{Amount: "1200.50", InvoiceID: "100"},
		{Amount: "300", InvoiceID: "200"},
		{Amount: "45000", InvoiceID: "300"},
	}
	for i, want := range expected {
		if details[i] != want {
			t.Errorf("Detail %d: expected %+v, got %+v", i, want, details[i])
		}
	}
}

func TestExtractDetailsCaseInsensitive(t *testing.T) {
	details := ExtractDetails("SALE OF RS. 300 INVOICE ID: 99887")
	if len(details) != 1 {
		t.Fatalf("Expected 1 detail, got %d", len(details))
	}
	if details[0].Amount != "300" || details[0].InvoiceID != "99887" {
		t.Errorf("Expected (300, 99887), got (%s, %s)", details[0].Amount, details[0].InvoiceID)
	}
}

func TestExtractDetailsFirstPatternWins(t *testing.T) {
	// The first line only matches the loose last-resort pattern; the second
	// matches the strict one. Only the strict pattern's captures come back.
	text := "Rs. 500 ref #12345678\nSale of Rs. 1,000 Invoice ID: #222"

	details := ExtractDetails(text)
	if len(details) != 1 {
		t.Fatalf("Expected 1 detail, got %d", len(details))
	}
	if details[0].Amount != "1000" || details[0].InvoiceID != "222" {
		t.Errorf("Expected (1000, 222), got (%s, %s)", details[0].Amount, details[0].InvoiceID)
	}
}

func TestExtractDetailsLoosePatternFallback(t *testing.T) {
	details := ExtractDetails("Rs. 2,500.00 paid, Invoice ID #44556")
	if len(details) != 1 {
		t.Fatalf("Expected 1 detail, got %d", len(details))
	}
	if details[0].Amount != "2500.00" || details[0].InvoiceID != "44556" {
		t.Errorf("Expected (2500.00, 44556), got (%s, %s)", details[0].Amount, details[0].InvoiceID)
	}
}

func TestExtractDetailsNoMatch(t *testing.T) {
	details := ExtractDetails("#4 Someone\nTotal standing unchanged")
	if details != nil {
		t.Errorf("Expected nil, got %+v", details)
	}
}

func TestExtractSummary(t *testing.T) {
	count, amount, ok := ExtractSummary("#2 Ram Sharma\n5 sales totalling Rs. 10,500.00 this week")
	if !ok {
		t.Fatal("Expected summary match")
	}
	if count != "5" {
		t.Errorf("Expected count '5', got %s", count)
	}
	if amount != "10500.00" {
		t.Errorf("Expected amount '10500.00', got %s", amount)
	}
}

func TestExtractSummarySingular(t *testing.T) {
	count, amount, ok := ExtractSummary("1 sale worth Rs 750")
	if !ok {
		t.Fatal("Expected summary match")
	}
	if count != "1" || amount != "750" {
		t.Errorf("Expected (1, 750), got (%s, %s)", count, amount)
	}
}

func TestExtractSummaryNoMatch(t *testing.T) {
	_, _, ok := ExtractSummary("no aggregate line here")
	if ok {
		t.Error("Expected no summary match")
	}
}

func TestNameFromText(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"#1 Jane Doe\nSale of Rs. 1,200.50 Invoice ID: #55512345", "Jane Doe"},
		{"#12 Ram Sharma \U0001F947", "Ram Sharma"},
		{"#3 ", UnknownName},
		{"Weekly Leaderboard", UnknownName},
		{"", UnknownName},
	}

	for _, test := range tests {
		got := NameFromText(test.text)
		if got != test.want {
			t.Errorf("NameFromText(%q) = %q, expected %q", test.text, got, test.want)
		}
	}
}
