// ABOUTME: Tests for feed parsing and normalization
// ABOUTME: Covers RSS and Atom inputs, GUID fallback, date leniency and enclosure extraction

package parse

import (
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Sample Feed</title>
<link>https://example.com</link>
<item>
	<guid>item-1</guid>
	<title>First Post</title>
	<link>https://example.com/1</link>
	<pubDate>Mon, 02 Jan 2023 10:00:00 GMT</pubDate>
	<description>A summary.</description>
	<enclosure url="https://example.com/ep1.mp3" type="audio/mpeg" length="1024"/>
</item>
<item>
	<title>No GUID Post</title>
	<link>https://example.com/2</link>
</item>
</channel>
</rss>`

const sampleAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>Atom Feed</title>
<link href="https://example.com/" rel="alternate"/>
<entry>
	<id>urn:uuid:1</id>
	<title>Atom Entry</title>
	<link href="https://example.com/a1"/>
	<updated>2023-01-02T10:00:00Z</updated>
	<content type="html">Full content here.</content>
</entry>
</feed>`

func TestParseRSS(t *testing.T) {
	parsed, err := Parse([]byte(sampleRSS))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if parsed.Title != "Sample Feed" {
		t.Errorf("title = %q, want %q", parsed.Title, "Sample Feed")
	}
	if parsed.Link != "https://example.com" {
		t.Errorf("link = %q", parsed.Link)
	}
	if len(parsed.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(parsed.Entries))
	}

	e := parsed.Entries[0]
	if e.GUID != "item-1" {
		t.Errorf("guid = %q", e.GUID)
	}
	if e.Summary != "A summary." {
		t.Errorf("summary = %q", e.Summary)
	}
	if e.EnclosureLink != "https://example.com/ep1.mp3" || e.EnclosureMime != "audio/mpeg" {
		t.Errorf("enclosure not extracted: %q %q", e.EnclosureLink, e.EnclosureMime)
	}
	want := time.Date(2023, 1, 2, 10, 0, 0, 0, time.UTC)
	if e.PublishedAt == nil || !e.PublishedAt.Equal(want) {
		t.Errorf("published = %v, want %v", e.PublishedAt, want)
	}
}

func TestParseGUIDFallsBackToLink(t *testing.T) {
	parsed, err := Parse([]byte(sampleRSS))
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Entries[1].GUID != "https://example.com/2" {
		t.Errorf("guid fallback = %q, want the item link", parsed.Entries[1].GUID)
	}
}

func TestParseAtom(t *testing.T) {
	parsed, err := Parse([]byte(sampleAtom))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.Title != "Atom Feed" {
		t.Errorf("title = %q", parsed.Title)
	}
	if len(parsed.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(parsed.Entries))
	}
	e := parsed.Entries[0]
	if e.GUID != "urn:uuid:1" {
		t.Errorf("guid = %q", e.GUID)
	}
	if e.Summary != "Full content here." {
		t.Errorf("content fallback not used for summary: %q", e.Summary)
	}
	if e.PublishedAt == nil {
		t.Error("updated timestamp not used as published time")
	}
}

func TestParseLenientDate(t *testing.T) {
	// A date format gofeed's strict parsing rejects.
	feed := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>T</title>
<item><guid>g</guid><title>x</title><pubDate>2023-06-15 08:30:00</pubDate></item>
</channel></rss>`

	parsed, err := Parse([]byte(feed))
	if err != nil {
		t.Fatal(err)
	}
	e := parsed.Entries[0]
	if e.PublishedAt == nil {
		t.Fatal("lenient date fallback did not fire")
	}
	if e.PublishedAt.Year() != 2023 || e.PublishedAt.Month() != time.June {
		t.Errorf("lenient parse wrong: %v", e.PublishedAt)
	}
}

func TestParseInvalidInput(t *testing.T) {
	if _, err := Parse([]byte("definitely not xml")); err == nil {
		t.Error("expected an error for non-feed input")
	}
}
