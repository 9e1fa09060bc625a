package models

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmdatafocus/nowmirror_backend/nowsync"
)

// QuoteLineView is a quote line joined with its product offering.
type QuoteLineView struct {
	Line            nowsync.Document `json:"line"`
	ProductOffering nowsync.Document `json:"product_offering,omitempty"`
	Amount          string           `json:"amount"`
}

// QuoteDetail is the denormalized response graph for a quote: the joins the
// React app would otherwise fan out for (quote -> account -> contacts and
// locations -> lines -> offerings), assembled server-side from the mirror.
type QuoteDetail struct {
	Quote     nowsync.Document   `json:"quote"`
	Account   nowsync.Document   `json:"account,omitempty"`
	Contacts  []nowsync.Document `json:"contacts"`
	Locations []nowsync.Document `json:"locations"`
	Lines     []QuoteLineView    `json:"lines"`
	LinePage  *PageInfo          `json:"line_page,omitempty"`
	Total     string             `json:"total"`
}

// lineCursorTag marks the positional line cursor. List hands out row-id
// cursors under collection tags in the same encoding; the distinct tag keeps
// the two cursor spaces from being decoded into each other.
const lineCursorTag = "quote_lines_pos"

// mirrorReader is the slice of the store the join pipeline needs.
type mirrorReader interface {
	FindByLocalID(ctx context.Context, collection string, localID string) (nowsync.Document, error)
	FindByRef(ctx context.Context, collection string, field string, refLocalID string) ([]nowsync.Document, error)
}

// BuildQuoteDetail assembles the graph from mirror reads only; no remote
// calls. Line amounts are unit_price x quantity; the total is their sum.
func BuildQuoteDetail(ctx context.Context, store mirrorReader, quoteLocalID string, lineAfter *string, lineLimit int) (*QuoteDetail, error) {
	quote, err := store.FindByLocalID(ctx, nowsync.Quote.Collection, quoteLocalID)
	if err != nil {
		return nil, err
	}

	detail := &QuoteDetail{
		Quote:     quote,
		Contacts:  []nowsync.Document{},
		Locations: []nowsync.Document{},
		Lines:     []QuoteLineView{},
	}

	if accountID, ok := quote["account"].(string); ok && accountID != "" {
		account, err := store.FindByLocalID(ctx, nowsync.Account.Collection, accountID)
		if err == nil {
			detail.Account = account
		}
		contacts, err := store.FindByRef(ctx, nowsync.Contact.Collection, "account", accountID)
		if err != nil {
			return nil, err
		}
		detail.Contacts = contacts
		locations, err := store.FindByRef(ctx, nowsync.Location.Collection, "account", accountID)
		if err != nil {
			return nil, err
		}
		detail.Locations = locations
	}

	lines, err := store.FindByRef(ctx, nowsync.QuoteLine.Collection, "quote", quoteLocalID)
	if err != nil {
		return nil, err
	}

	// Cursor paginates the line list by position; the ref lookup keeps
	// insertion order.
	start := 0
	if decoded, err := DecodeCursor(lineAfter); err == nil && decoded != "" {
		if tag, pos := splitCursor(decoded); tag == lineCursorTag && pos > 0 && pos <= len(lines) {
			start = pos
		}
	}
	if lineLimit <= 0 || lineLimit > 100 {
		lineLimit = 20
	}
	end := start + lineLimit
	hasNext := end < len(lines)
	if end > len(lines) {
		end = len(lines)
	}
	page := lines[start:end]

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(lineAmount(line))
	}

	for _, line := range page {
		view := QuoteLineView{Line: line, Amount: lineAmount(line).String()}
		if offeringID, ok := line["product_offering"].(string); ok && offeringID != "" {
			if offering, err := store.FindByLocalID(ctx, nowsync.ProductOffering.Collection, offeringID); err == nil {
				view.ProductOffering = offering
			}
		}
		detail.Lines = append(detail.Lines, view)
	}

	if len(page) > 0 {
		detail.LinePage = &PageInfo{
			StartCursor: EncodeCompositeCursor(lineCursorTag, start),
			EndCursor:   EncodeCompositeCursor(lineCursorTag, end),
			HasNextPage: &hasNext,
		}
	}
	detail.Total = total.String()
	return detail, nil
}

func lineAmount(line nowsync.Document) decimal.Decimal {
	price := decimalField(line, "unit_price")
	qty := decimalField(line, "quantity")
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}
	return price.Mul(qty)
}

func decimalField(doc nowsync.Document, key string) decimal.Decimal {
	switch v := doc[key].(type) {
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case fmt.Stringer:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return d
		}
	}
	return decimal.Zero
}
