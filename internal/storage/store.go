// ABOUTME: Storage interface and types for the local cache
// ABOUTME: Defines the contract for feed, entry, link, enclosure and conf persistence

package storage

import (
	"time"

	"github.com/newsling/newsling/internal/models"
)

// EntryFilter specifies criteria for listing entries.
type EntryFilter struct {
	FeedID     *string
	UnreadOnly *bool
	Since      *time.Time
	Limit      *int
}

// OverallStats represents cache-wide counters.
type OverallStats struct {
	TotalFeeds   int
	TotalEntries int
	UnreadCount  int
}

// Store defines the local cache contract. All mutating calls are transactional
// per call and publish a change signal to subscribed observers after commit.
type Store interface {
	// Close closes the store and releases resources.
	Close() error

	// Subscribe registers an observer for a topic; the observer receives one
	// signal immediately and one after every committed write to the topic.
	Subscribe(topic Topic) (<-chan struct{}, func())

	// Feed operations

	// UpsertFeed inserts the feed or, if the id exists, updates remote-owned
	// content fields (title, links) while preserving local preference fields.
	UpsertFeed(feed *models.Feed) error

	// UpdateFeedPreferences overwrites only the import-controlled preference
	// fields of an existing feed.
	UpdateFeedPreferences(feed *models.Feed) error

	// GetFeed retrieves a feed by id.
	GetFeed(id string) (*models.Feed, error)

	// GetFeedBySelfLink finds a feed by its canonical URL.
	GetFeedBySelfLink(url string) (*models.Feed, error)

	// ListFeeds returns all feeds, newest first.
	ListFeeds() ([]*models.Feed, error)

	// RenameFeed sets a feed's title.
	RenameFeed(id, title string) error

	// DeleteFeed removes a feed and cascades to its entries and links.
	DeleteFeed(id string) error

	// UpdateFeedFetchState stores conditional-request headers and clears the
	// last fetch error (standalone mode bookkeeping).
	UpdateFeedFetchState(id string, etag, lastModified *string) error

	// UpdateFeedError records a fetch error for a feed.
	UpdateFeedError(id string, errMsg string) error

	// Entry operations

	// UpsertEntries writes one page of remote entries in a single transaction.
	// Existing rows keep their local read/bookmarked values whenever a flag
	// edit is pending; content fields always take the remote value.
	UpsertEntries(entries []*models.Entry) error

	// GetEntry retrieves an entry by id.
	GetEntry(id string) (*models.Entry, error)

	// ListEntries returns entries matching the filter, newest first.
	ListEntries(filter *EntryFilter) ([]*models.Entry, error)

	// SetEntryRead sets the local read flag (a pending edit until pushed).
	SetEntryRead(id string, read bool) error

	// SetEntryBookmarked sets the local bookmark flag.
	SetEntryBookmarked(id string, bookmarked bool) error

	// ListPendingFlagEntries returns entries whose read or bookmarked value
	// differs from the last value confirmed pushed.
	ListPendingFlagEntries() ([]*models.Entry, error)

	// ConfirmEntryFlags records that the given flag values were accepted by
	// the remote. Flags edited again since the push stay pending.
	ConfirmEntryFlags(id string, read, bookmarked bool) error

	// CountEntries returns the number of cached entries.
	CountEntries() (int, error)

	// Link operations

	// ReplaceFeedLinks replaces all links owned by a feed.
	ReplaceFeedLinks(feedID string, links []models.Link) error

	// ReplaceEntryLinks replaces all links owned by an entry.
	ReplaceEntryLinks(entryID string, links []models.Link) error

	// ListFeedLinks returns the links owned by a feed.
	ListFeedLinks(feedID string) ([]models.Link, error)

	// Enclosure operations

	// EnsureEnclosure creates the enclosure row for an entry if missing.
	EnsureEnclosure(entryID string) error

	// GetEnclosure retrieves an enclosure by entry id.
	GetEnclosure(entryID string) (*models.Enclosure, error)

	// UpdateEnclosureProgress records download progress and cache location.
	UpdateEnclosureProgress(entryID string, cacheURI *string, progress float64) error

	// Conf operations

	// GetConf returns the singleton configuration record, creating the
	// default row on first access.
	GetConf() (*models.Conf, error)

	// UpdateConf overwrites the singleton configuration record.
	UpdateConf(conf *models.Conf) error

	// SetInitialSyncCompleted flips the initial-sync flag. Callers must only
	// set it true after the full snapshot is durably committed.
	SetInitialSyncCompleted(done bool) error

	// SetLastSync advances the incremental sync watermark.
	SetLastSync(ts int64) error

	// Statistics

	// GetOverallStats retrieves cache-wide counters.
	GetOverallStats() (*OverallStats, error)
}
