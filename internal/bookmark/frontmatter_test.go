package bookmark

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	t := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestEncode_Body(t *testing.T) {
	b := Bookmark{
		Title:    "A Great Read",
		URL:      "https://example.com/post",
		Type:     TypeArticle,
		Provider: "example.com",
		Notes:    "worth re-reading",
		Tags:     []string{"tech", "go"},
	}

	enc := Encode(b, false, time.Time{}, fixedClock())

	if enc.Title != "A Great Read" {
		t.Errorf("expected title 'A Great Read', got %q", enc.Title)
	}

	want := `---
title: "A Great Read"
url: "https://example.com/post"
provider: "example.com"
date_saved: "2026-08-29T12:00:00Z"
---

worth re-reading`
	if enc.Body != want {
		t.Errorf("body mismatch:\ngot:\n%s\nwant:\n%s", enc.Body, want)
	}

	wantLabels := []string{"article", "tech", "go"}
	if !reflect.DeepEqual(enc.Labels, wantLabels) {
		t.Errorf("expected labels %v, got %v", wantLabels, enc.Labels)
	}
}

func TestEncode_UpdateRefreshesDateUpdated(t *testing.T) {
	b := Bookmark{Title: "T", URL: "https://x.com"}
	saved := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	enc := Encode(b, true, saved, fixedClock())

	if !strings.Contains(enc.Body, `date_saved: "2026-01-01T00:00:00Z"`) {
		t.Errorf("expected original date_saved preserved, got:\n%s", enc.Body)
	}
	if !strings.Contains(enc.Body, `date_updated: "2026-08-29T12:00:00Z"`) {
		t.Errorf("expected date_updated stamped, got:\n%s", enc.Body)
	}
}

func TestEncode_EscapesQuotes(t *testing.T) {
	b := Bookmark{
		Title: `He said "hello"`,
		URL:   `https://example.com/?q="x"`,
	}

	enc := Encode(b, false, time.Time{}, fixedClock())

	if !strings.Contains(enc.Body, `title: "He said \"hello\""`) {
		t.Errorf("expected escaped quotes in title, got:\n%s", enc.Body)
	}

	// The escaped body must still round-trip.
	f, err := ParseBody(enc.Body)
	if err != nil {
		t.Fatalf("ParseBody failed: %v", err)
	}
	if f.Title != b.Title {
		t.Errorf("expected title %q, got %q", b.Title, f.Title)
	}
	if f.URL != b.URL {
		t.Errorf("expected url %q, got %q", b.URL, f.URL)
	}
}

func TestRoundTrip(t *testing.T) {
	b := Bookmark{
		Title:    "Concurrency Patterns",
		URL:      "https://example.com/talks/1",
		Type:     TypeVideo,
		Provider: "example.com",
		Notes:    "second half is the good part\n\ntimestamps in comments",
		Tags:     []string{"go", "concurrency"},
	}

	enc := Encode(b, false, time.Time{}, fixedClock())
	got, err := Decode(enc.Body, enc.Labels)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if got.Title != b.Title || got.URL != b.URL || got.Provider != b.Provider {
		t.Errorf("round trip changed fields: got %+v", got)
	}
	if got.Type != TypeVideo {
		t.Errorf("expected type video, got %s", got.Type)
	}
	if got.Notes != b.Notes {
		t.Errorf("expected notes %q, got %q", b.Notes, got.Notes)
	}
	if !reflect.DeepEqual(got.Tags, b.Tags) {
		t.Errorf("expected tags %v, got %v", b.Tags, got.Tags)
	}
}

func TestParseBody_QuotingStyles(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"double quoted", "---\nurl: \"https://x.com\"\n---\n"},
		{"single quoted", "---\nurl: 'https://x.com'\n---\n"},
		{"bare", "---\nurl: https://x.com\n---\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseBody(tt.body)
			if err != nil {
				t.Fatalf("ParseBody failed: %v", err)
			}
			if f.URL != "https://x.com" {
				t.Errorf("expected url https://x.com, got %q", f.URL)
			}
		})
	}
}

func TestParseBody_URLWithColons(t *testing.T) {
	// Values contain colons; only the first one separates the key.
	f, err := ParseBody("---\nurl: https://x.com:8443/a\n---\n")
	if err != nil {
		t.Fatalf("ParseBody failed: %v", err)
	}
	if f.URL != "https://x.com:8443/a" {
		t.Errorf("expected url with port preserved, got %q", f.URL)
	}
}

func TestParseBody_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"no frontmatter", "just some notes"},
		{"unclosed block", "---\nurl: https://x.com\n"},
		{"delimiter not first", "notes first\n---\nurl: https://x.com\n---\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBody(tt.body)
			if !errors.Is(err, ErrNoFrontmatter) {
				t.Errorf("expected ErrNoFrontmatter, got %v", err)
			}
		})
	}
}

func TestParseBody_IgnoresUnknownKeysAndBlankLines(t *testing.T) {
	body := "---\ntitle: \"T\"\n\nmystery: value\nurl: \"https://x.com\"\n---\nnotes"
	f, err := ParseBody(body)
	if err != nil {
		t.Fatalf("ParseBody failed: %v", err)
	}
	if f.Title != "T" || f.URL != "https://x.com" || f.Notes != "notes" {
		t.Errorf("unexpected fields: %+v", f)
	}
}

func TestDecode_NoURL(t *testing.T) {
	_, err := Decode("---\ntitle: \"T\"\n---\n", nil)
	if err == nil {
		t.Fatal("expected error for frontmatter without url")
	}
}

func TestExtractURL_FallbackScan(t *testing.T) {
	// Broken frontmatter (no closing delimiter) should still yield the
	// url via the whole-body scan.
	body := "---\ntitle: broken\nurl: \"https://x.com/page\"\nno closing delimiter"
	url, ok := ExtractURL(body)
	if !ok {
		t.Fatal("expected fallback scan to find a url")
	}
	if url != "https://x.com/page" {
		t.Errorf("expected https://x.com/page, got %q", url)
	}
}

func TestExtractURL_None(t *testing.T) {
	if _, ok := ExtractURL("no urls here"); ok {
		t.Error("expected no url")
	}
}
