// ABOUTME: RSS/Atom feed parsing using gofeed, with lenient date handling
// ABOUTME: Converts gofeed.Feed to a normalized structure for the standalone transport

package parse

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
)

// ParsedFeed represents a normalized feed structure.
type ParsedFeed struct {
	Title   string
	Link    string // Site (alternate) link
	Entries []ParsedEntry
}

// ParsedEntry represents a normalized feed entry.
type ParsedEntry struct {
	GUID          string
	Title         string
	Link          string
	PublishedAt   *time.Time
	Summary       string
	EnclosureLink string
	EnclosureMime string
}

// Parse parses RSS or Atom feed data and returns a normalized ParsedFeed.
func Parse(data []byte) (*ParsedFeed, error) {
	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(data))
	if err != nil {
		return nil, err
	}

	parsed := &ParsedFeed{
		Title:   feed.Title,
		Link:    feed.Link,
		Entries: make([]ParsedEntry, 0, len(feed.Items)),
	}

	for _, item := range feed.Items {
		entry := ParsedEntry{
			GUID:  item.GUID,
			Title: item.Title,
			Link:  item.Link,
		}

		// Fallback GUID to Link if empty
		if entry.GUID == "" {
			entry.GUID = item.Link
		}

		entry.PublishedAt = publishedTime(item)

		// Prefer Description over full Content for the stored summary
		if item.Description != "" {
			entry.Summary = strings.TrimSpace(item.Description)
		} else {
			entry.Summary = strings.TrimSpace(item.Content)
		}

		if len(item.Enclosures) > 0 {
			entry.EnclosureLink = item.Enclosures[0].URL
			entry.EnclosureMime = item.Enclosures[0].Type
		}

		parsed.Entries = append(parsed.Entries, entry)
	}

	return parsed, nil
}

// publishedTime picks the best available timestamp for an item. gofeed leaves
// the parsed fields nil for nonstandard date formats, so fall back to a
// lenient parse of the raw strings.
func publishedTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed
	}
	for _, raw := range []string{item.Published, item.Updated} {
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return &t
		}
	}
	return nil
}
