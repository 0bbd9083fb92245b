// ABOUTME: Remote API capability set implemented by the session, basic and standalone transports
// ABOUTME: Exactly one variant is active per process, selected at startup from config

package remote

import (
	"context"
	"time"
)

// FeedDescriptor is a feed as reported by the remote.
type FeedDescriptor struct {
	ID            string
	Title         string
	SelfLink      string
	AlternateLink string
}

// EntryDescriptor is an entry as reported by the remote. Read and Bookmarked
// echo the server-side flag state at fetch time.
type EntryDescriptor struct {
	ID            string
	FeedID        string
	Title         string
	AlternateLink string
	Published     *time.Time
	Summary       string
	EnclosureLink string
	EnclosureMime string
	Read          bool
	Bookmarked    bool
}

// FlagBatch carries one push of local flag edits. An entry id appears in at
// most one of each read/bookmark pair.
type FlagBatch struct {
	ReadIDs         []string
	UnreadIDs       []string
	BookmarkedIDs   []string
	UnbookmarkedIDs []string
}

// Empty reports whether the batch carries no changes.
func (b FlagBatch) Empty() bool {
	return len(b.ReadIDs) == 0 && len(b.UnreadIDs) == 0 &&
		len(b.BookmarkedIDs) == 0 && len(b.UnbookmarkedIDs) == 0
}

// API is the capability set the sync engine requires from a transport.
// Implementations return errors from the taxonomy in this package, never raw
// transport errors.
type API interface {
	// ListFeeds returns all feeds known to the remote.
	ListFeeds(ctx context.Context) ([]FeedDescriptor, error)

	// ListEntries returns entries modified since the given unix-seconds
	// watermark (0 means everything), optionally restricted to one feed,
	// paged by offset/limit.
	ListEntries(ctx context.Context, since int64, feedID string, offset, limit int) ([]EntryDescriptor, error)

	// PushFlags uploads local read/bookmark edits. The remote applies them
	// as idempotent upserts.
	PushFlags(ctx context.Context, batch FlagBatch) error

	// AddFeed subscribes to a feed URL and returns the created descriptor.
	AddFeed(ctx context.Context, url string) (*FeedDescriptor, error)

	// RenameFeed sets the remote title of a feed.
	RenameFeed(ctx context.Context, id, title string) error

	// DeleteFeed removes a feed subscription.
	DeleteFeed(ctx context.Context, id string) error
}

// Mode names the active transport variant.
type Mode string

const (
	ModeSession    Mode = "session"
	ModeBasic      Mode = "basic"
	ModeStandalone Mode = "standalone"
)
