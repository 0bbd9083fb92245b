// ABOUTME: Link model for self/alternate URLs owned by a feed or an entry
// ABOUTME: Exactly one of FeedID or EntryID is set; links cascade with their owner

package models

// Link rel values.
const (
	RelSelf      = "self"
	RelAlternate = "alternate"
)

// Link is a self or alternate URL attached to exactly one feed or entry.
type Link struct {
	FeedID  *string
	EntryID *string
	Rel     string
	Href    string
}
