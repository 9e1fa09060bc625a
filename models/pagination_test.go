package models

import "testing"

func TestCursorRoundTrip(t *testing.T) {
	encoded := EncodeCompositeCursor("quotes", 42)
	decoded, err := DecodeCursor(&encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	collection, id := splitCursor(decoded)
	if collection != "quotes" || id != 42 {
		t.Errorf("got %s/%d, want quotes/42", collection, id)
	}
}

func TestDecodeCursorNil(t *testing.T) {
	decoded, err := DecodeCursor(nil)
	if err != nil || decoded != "" {
		t.Errorf("got %q, %v", decoded, err)
	}
}

func TestDecodeCursorInvalidBase64(t *testing.T) {
	bad := "!!!"
	if _, err := DecodeCursor(&bad); err == nil {
		t.Fatal("invalid base64 accepted")
	}
}

func TestSplitCursorMalformed(t *testing.T) {
	tests := []string{"", "quotes", "quotes|x", "a|b|c"}
	for _, in := range tests {
		if collection, id := splitCursor(in); collection != "" || id != 0 {
			t.Errorf("splitCursor(%q) = %s/%d, want zero values", in, collection, id)
		}
	}
}
