package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"nest_sales_sync/internal/browser"
	"nest_sales_sync/internal/config"
	"nest_sales_sync/internal/retry"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

// Extractor drives the expand-and-parse pass over the leaderboard cards of
// an already-navigated page.
type Extractor struct {
	session *browser.Session
	cfg     config.ScrapeConfig
	now     func() time.Time
}

func NewExtractor(session *browser.Session, cfg config.ScrapeConfig) *Extractor {
	return &Extractor{session: session, cfg: cfg, now: time.Now}
}

// ExtractSales expands every leaderboard card and parses its sales. A card
// that fails is logged and skipped without emitting a partial record. The
// returned records follow the page's display order even when the visit
// order is shuffled.
func (e *Extractor) ExtractSales(ctx context.Context) ([]SaleRecord, error) {
	count, err := e.waitForCards(ctx)
	if err != nil {
		var timeoutErr *retry.TimeoutError
		if errors.As(err, &timeoutErr) {
			log.Warn().Dur("timeout", e.cfg.PageLoadTimeout).Msg("No leaderboard cards found")
			return nil, nil
		}
		return nil, err
	}
	log.Info().Int("cards", count).Msg("Found leaderboard cards")

	order := make([]int, count)
	for i := range order {
		order[i] = i
	}
	if e.session.Humanized() {
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	perCard := make([][]SaleRecord, count)
	for _, idx := range order {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		records, err := e.processCard(ctx, idx)
		if err != nil {
			log.Warn().Err(err).Int("card", idx).Msg("Skipping card")
			continue
		}
		perCard[idx] = records
	}

	var sales []SaleRecord
	for _, records := range perCard {
		sales = append(sales, records...)
	}
	log.Info().Int("records", len(sales)).Msg("Extraction complete")
	return sales, nil
}

// waitForCards polls card discovery until the page has rendered at least one
// card or the page-load window closes.
func (e *Extractor) waitForCards(ctx context.Context) (int, error) {
	var count int
	err := retry.Poll(ctx, "leaderboard cards", e.cfg.PollInterval, e.cfg.PageLoadTimeout, func(ctx context.Context) (bool, error) {
		cards, err := e.discoverCards()
		if err != nil {
			return false, err
		}
		count = len(cards)
		return count > 0, nil
	})
	return count, err
}

// discoverCards walks the selector chain, falling back to a raw scan of all
// divs with enough text to plausibly be a card. Noise picked up by the scan
// is dropped later by the name check.
func (e *Extractor) discoverCards() (rod.Elements, error) {
	page := e.session.Page()
	for _, selector := range cardSelectors {
		els, err := page.Elements(selector)
		if err != nil {
			return nil, fmt.Errorf("failed to query %q: %w", selector, err)
		}
		if len(els) > 0 {
			return els, nil
		}
	}

	divs, err := page.Elements("div")
	if err != nil {
		return nil, fmt.Errorf("failed to query divs: %w", err)
	}
	var cards rod.Elements
	for _, div := range divs {
		text, err := div.Text()
		if err != nil {
			continue
		}
		if len(text) >= e.cfg.MinCardTextLen {
			cards = append(cards, div)
		}
	}
	return cards, nil
}

// cardAt re-locates a card by its discovery index. Cards are never held
// across page mutations; every access re-queries to dodge stale handles.
func (e *Extractor) cardAt(idx int) (*rod.Element, error) {
	cards, err := e.discoverCards()
	if err != nil {
		return nil, err
	}
	if idx >= len(cards) {
		return nil, fmt.Errorf("card %d no longer present (%d cards)", idx, len(cards))
	}
	return cards[idx], nil
}

func (e *Extractor) processCard(ctx context.Context, idx int) ([]SaleRecord, error) {
	card, err := e.cardAt(idx)
	if err != nil {
		return nil, err
	}
	text, err := card.Text()
	if err != nil {
		return nil, fmt.Errorf("failed to read card text: %w", err)
	}

	name := e.cardName(card, text)
	if name == UnknownName {
		log.Debug().Int("card", idx).Msg("Skipping unnamed card")
		return nil, nil
	}
	log.Debug().Str("name", name).Int("card", idx).Msg("Processing card")

	if err := card.Hover(); err != nil {
		return nil, fmt.Errorf("failed to hover card: %w", err)
	}
	if err := e.session.Pause(ctx, 300*time.Millisecond, 700*time.Millisecond); err != nil {
		return nil, err
	}
	if err := card.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("failed to click card: %w", err)
	}

	expanded, err := e.waitForExpansion(ctx, idx, len(text))
	if err != nil {
		var timeoutErr *retry.TimeoutError
		if !errors.As(err, &timeoutErr) {
			return nil, err
		}
		log.Debug().Str("name", name).Msg("Card never expanded, trying summary")
		if expanded == "" {
			expanded = text
		}
	}

	details := ExtractDetails(expanded)
	if len(details) == 0 {
		return e.summaryRecord(name, expanded), nil
	}

	records := make([]SaleRecord, 0, len(details))
	for _, d := range details {
		log.Debug().
			Str("name", name).
			Str("amount", d.Amount).
			Str("invoice", d.InvoiceID).
			Msg("Extracted sale")
		records = append(records, SaleRecord{Name: name, Amount: d.Amount, InvoiceID: d.InvoiceID})
	}
	return records, nil
}

// cardName prefers a structured name element inside the card and falls back
// to the rank-marker regex over the card's raw text. A name element may hold
// the bare name or the whole "#<rank> <name>" line.
func (e *Extractor) cardName(card *rod.Element, text string) string {
	for _, selector := range nameSelectors {
		el, err := card.Timeout(time.Second).Element(selector)
		if err != nil {
			continue
		}
		nameText, err := el.Text()
		if err != nil {
			continue
		}
		name := strings.TrimSpace(nameText)
		if name == "" || name == UnknownName {
			continue
		}
		if fromRank := NameFromText(name); fromRank != UnknownName {
			return fromRank
		}
		return name
	}
	return NameFromText(text)
}

// waitForExpansion polls the card's text until it grows past its pre-click
// length. The freshest text seen is returned even on timeout so the caller
// can still try the summary pattern against it.
func (e *Extractor) waitForExpansion(ctx context.Context, idx, initialLen int) (string, error) {
	var latest string
	err := retry.Poll(ctx, "card expansion", e.cfg.PollInterval, e.cfg.ExpandTimeout, func(ctx context.Context) (bool, error) {
		card, err := e.cardAt(idx)
		if err != nil {
			return false, err
		}
		text, err := card.Text()
		if err != nil {
			return false, err
		}
		latest = text
		return len(text) > initialLen, nil
	})
	return latest, err
}

// summaryRecord synthesizes one aggregate record from a card that exposed no
// itemized sales. The synthetic invoice ID is stable for a given seller,
// date and total so same-day reruns dedup it.
func (e *Extractor) summaryRecord(name, text string) []SaleRecord {
	count, amount, ok := ExtractSummary(text)
	if !ok {
		log.Warn().Str("name", name).Msg("No sales found on card")
		return nil
	}
	record := SaleRecord{
		Name:      name,
		Amount:    amount,
		InvoiceID: SummaryInvoiceID(name, e.now().Format("2006-01-02"), amount),
	}
	log.Debug().
		Str("name", name).
		Str("sales", count).
		Str("amount", amount).
		Str("invoice", record.InvoiceID).
		Msg("Synthesized summary record")
	return []SaleRecord{record}
}
