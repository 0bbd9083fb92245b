// ABOUTME: Feed model representing a remote News subscription with local display preferences
// ABOUTME: Tracks remote identity, self/alternate links, and user-owned preference fields

package models

import (
	"time"

	"github.com/google/uuid"
)

// Feed represents a single feed subscription known to the local cache.
//
// ID is the remote-assigned identifier once the feed has been seen by the
// News service; in standalone mode (or before the first successful add) it is
// a locally generated provisional UUID.
type Feed struct {
	ID                string     // Remote id, or provisional UUID
	Title             *string    // Feed title (remote is authoritative)
	SelfLink          string     // Canonical feed URL
	AlternateLink     *string    // Site URL, if known
	OpenInBrowser     bool       // Preference: open entries externally
	BlockedWords      *string    // Preference: comma-separated blocked words
	ShowPreviewImages *bool      // Preference: nil means "follow global setting"
	ETag              *string    // HTTP ETag for conditional fetch (standalone mode)
	LastModified      *string    // HTTP Last-Modified for conditional fetch (standalone mode)
	LastFetchError    *string    // Last fetch error message (standalone mode)
	CreatedAt         time.Time  // First seen locally
}

// NewFeed creates a Feed with a provisional UUID and the given self link.
func NewFeed(selfLink string) *Feed {
	return &Feed{
		ID:        uuid.New().String(),
		SelfLink:  selfLink,
		CreatedAt: time.Now(),
	}
}

// SetCacheHeaders updates the feed's HTTP caching headers for conditional requests.
func (f *Feed) SetCacheHeaders(etag, lastModified string) {
	if etag != "" {
		f.ETag = &etag
	}
	if lastModified != "" {
		f.LastModified = &lastModified
	}
}

// MergePreferences copies the import-controlled preference fields from other
// onto f, leaving remote-owned content fields untouched.
func (f *Feed) MergePreferences(other *Feed) {
	f.OpenInBrowser = other.OpenInBrowser
	if other.BlockedWords != nil {
		f.BlockedWords = other.BlockedWords
	}
	if other.ShowPreviewImages != nil {
		f.ShowPreviewImages = other.ShowPreviewImages
	}
}
