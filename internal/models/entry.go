// ABOUTME: Entry model representing a single article with read/bookmark state
// ABOUTME: Remote owns content fields; read/bookmarked are the only user-mutable fields

package models

import "time"

// Entry represents a single article in a feed. Content fields are immutable
// once written; the remote is the sole source of truth for them. Read and
// Bookmarked are user-owned until confirmed pushed, at which point SyncedRead
// and SyncedBookmarked are advanced to match.
type Entry struct {
	ID               string
	FeedID           string
	Title            *string
	Published        *time.Time
	Summary          *string
	EnclosureLink    *string
	EnclosureMime    *string
	Read             bool
	Bookmarked       bool
	SyncedRead       bool // Last read value confirmed pushed to the remote
	SyncedBookmarked bool // Last bookmarked value confirmed pushed to the remote
}

// FlagsPending reports whether the entry has a read or bookmark edit that has
// not been confirmed by the remote yet.
func (e *Entry) FlagsPending() bool {
	return e.Read != e.SyncedRead || e.Bookmarked != e.SyncedBookmarked
}
