package models

import (
	"context"
	"testing"

	"github.com/mmdatafocus/nowmirror_backend/nowsync"
)

type stubReader struct {
	docs map[string]map[string]nowsync.Document
	refs map[string]map[string][]string // collection -> field|refID -> local ids
}

func newStubReader() *stubReader {
	return &stubReader{
		docs: make(map[string]map[string]nowsync.Document),
		refs: make(map[string]map[string][]string),
	}
}

func (s *stubReader) add(collection string, doc nowsync.Document, refs map[string]string) {
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]nowsync.Document)
		s.refs[collection] = make(map[string][]string)
	}
	s.docs[collection][doc.LocalID()] = doc
	for field, refID := range refs {
		key := field + "|" + refID
		s.refs[collection][key] = append(s.refs[collection][key], doc.LocalID())
	}
}

func (s *stubReader) FindByLocalID(ctx context.Context, collection string, localID string) (nowsync.Document, error) {
	doc, ok := s.docs[collection][localID]
	if !ok {
		return nil, nowsync.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *stubReader) FindByRef(ctx context.Context, collection string, field string, refLocalID string) ([]nowsync.Document, error) {
	var out []nowsync.Document
	for _, localID := range s.refs[collection][field+"|"+refLocalID] {
		out = append(out, s.docs[collection][localID])
	}
	return out, nil
}

func seedQuoteGraph(s *stubReader) {
	s.add("accounts", nowsync.Document{
		"local_id": "a1a1a1a1a1a1a1a1a1a1a1a1",
		"sys_id":   "sys-acct",
		"name":     "Globex",
	}, nil)
	s.add("contacts", nowsync.Document{
		"local_id": "c1c1c1c1c1c1c1c1c1c1c1c1",
		"account":  "a1a1a1a1a1a1a1a1a1a1a1a1",
	}, map[string]string{"account": "a1a1a1a1a1a1a1a1a1a1a1a1"})
	s.add("quotes", nowsync.Document{
		"local_id": "b1b1b1b1b1b1b1b1b1b1b1b1",
		"sys_id":   "sys-quote",
		"account":  "a1a1a1a1a1a1a1a1a1a1a1a1",
	}, nil)
	s.add("product_offerings", nowsync.Document{
		"local_id": "d1d1d1d1d1d1d1d1d1d1d1d1",
		"name":     "Broadband 500",
	}, nil)
	s.add("quote_lines", nowsync.Document{
		"local_id":         "e1e1e1e1e1e1e1e1e1e1e1e1",
		"quote":            "b1b1b1b1b1b1b1b1b1b1b1b1",
		"product_offering": "d1d1d1d1d1d1d1d1d1d1d1d1",
		"unit_price":       "19.99",
		"quantity":         "3",
	}, map[string]string{"quote": "b1b1b1b1b1b1b1b1b1b1b1b1"})
	s.add("quote_lines", nowsync.Document{
		"local_id":   "e2e2e2e2e2e2e2e2e2e2e2e2",
		"quote":      "b1b1b1b1b1b1b1b1b1b1b1b1",
		"unit_price": "100",
	}, map[string]string{"quote": "b1b1b1b1b1b1b1b1b1b1b1b1"})
}

func TestBuildQuoteDetail(t *testing.T) {
	store := newStubReader()
	seedQuoteGraph(store)

	detail, err := BuildQuoteDetail(context.Background(), store, "b1b1b1b1b1b1b1b1b1b1b1b1", nil, 20)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if detail.Account == nil || detail.Account["name"] != "Globex" {
		t.Errorf("account = %v", detail.Account)
	}
	if len(detail.Contacts) != 1 {
		t.Errorf("contacts = %d, want 1", len(detail.Contacts))
	}
	if len(detail.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(detail.Lines))
	}

	// 19.99 * 3 + 100 * 1 = 159.97, exact.
	if detail.Total != "159.97" {
		t.Errorf("total = %s, want 159.97", detail.Total)
	}

	var withOffering *QuoteLineView
	for i := range detail.Lines {
		if detail.Lines[i].Line.LocalID() == "e1e1e1e1e1e1e1e1e1e1e1e1" {
			withOffering = &detail.Lines[i]
		}
	}
	if withOffering == nil {
		t.Fatal("priced line missing")
	}
	if withOffering.Amount != "59.97" {
		t.Errorf("line amount = %s, want 59.97", withOffering.Amount)
	}
	if withOffering.ProductOffering == nil || withOffering.ProductOffering["name"] != "Broadband 500" {
		t.Errorf("product offering not joined: %v", withOffering.ProductOffering)
	}
}

func TestBuildQuoteDetailMissingQuote(t *testing.T) {
	store := newStubReader()
	_, err := BuildQuoteDetail(context.Background(), store, "b1b1b1b1b1b1b1b1b1b1b1b1", nil, 20)
	if err == nil {
		t.Fatal("missing quote built anyway")
	}
}

func TestBuildQuoteDetailLinePagination(t *testing.T) {
	store := newStubReader()
	seedQuoteGraph(store)

	detail, err := BuildQuoteDetail(context.Background(), store, "b1b1b1b1b1b1b1b1b1b1b1b1", nil, 1)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(detail.Lines) != 1 {
		t.Fatalf("page size = %d, want 1", len(detail.Lines))
	}
	if detail.LinePage == nil || detail.LinePage.HasNextPage == nil || !*detail.LinePage.HasNextPage {
		t.Fatal("next page not signalled")
	}

	// The total covers every line regardless of the page window.
	if detail.Total != "159.97" {
		t.Errorf("total = %s, want 159.97", detail.Total)
	}

	next, err := BuildQuoteDetail(context.Background(), store, "b1b1b1b1b1b1b1b1b1b1b1b1", &detail.LinePage.EndCursor, 1)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(next.Lines) != 1 {
		t.Fatalf("second page size = %d, want 1", len(next.Lines))
	}
	if next.Lines[0].Line.LocalID() == detail.Lines[0].Line.LocalID() {
		t.Error("second page repeated the first line")
	}
}

func TestBuildQuoteDetailIgnoresForeignCursor(t *testing.T) {
	store := newStubReader()
	seedQuoteGraph(store)

	// A row-id cursor from List decodes but carries a collection tag, not the
	// positional tag; it must not shift the line window.
	foreign := EncodeCompositeCursor("quote_lines", 1)
	detail, err := BuildQuoteDetail(context.Background(), store, "b1b1b1b1b1b1b1b1b1b1b1b1", &foreign, 20)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(detail.Lines) != 2 {
		t.Errorf("lines = %d, want 2 (foreign cursor applied as offset)", len(detail.Lines))
	}
}
