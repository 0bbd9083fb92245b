// ABOUTME: Standalone transport for fully local/offline operation with no News account
// ABOUTME: Fetches and parses subscribed feeds directly; flag pushes are acknowledged locally

package remote

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"time"

	"github.com/newsling/newsling/internal/fetch"
	"github.com/newsling/newsling/internal/models"
	"github.com/newsling/newsling/internal/parse"
	"github.com/sirupsen/logrus"
)

// Standalone implements API without a server. Feed subscriptions live only in
// the local cache; entries are produced by fetching and parsing the feed URLs
// directly, with conditional requests to avoid re-downloading.
type Standalone struct {
	store StandaloneStore
	log   *logrus.Entry
}

// StandaloneStore is the slice of the cache the standalone transport needs.
type StandaloneStore interface {
	ListFeeds() ([]*models.Feed, error)
	GetFeed(id string) (*models.Feed, error)
	GetEntry(id string) (*models.Entry, error)
	UpdateFeedFetchState(id string, etag, lastModified *string) error
	UpdateFeedError(id string, errMsg string) error
}

// NewStandalone creates the local-only transport.
func NewStandalone(store StandaloneStore) *Standalone {
	return &Standalone{
		store: store,
		log:   logrus.WithField("component", "standalone"),
	}
}

// entryID derives a stable entry identifier from the feed and item GUID, so
// re-fetching a feed never duplicates entries.
func entryID(feedID, guid string) string {
	sum := sha256.Sum256([]byte(feedID + "\x00" + guid))
	return fmt.Sprintf("%x", sum[:16])
}

// ListFeeds echoes the cached subscriptions as remote descriptors.
func (s *Standalone) ListFeeds(ctx context.Context) ([]FeedDescriptor, error) {
	feeds, err := s.store.ListFeeds()
	if err != nil {
		return nil, Cache(err)
	}

	descriptors := make([]FeedDescriptor, 0, len(feeds))
	for _, f := range feeds {
		d := FeedDescriptor{ID: f.ID, SelfLink: f.SelfLink}
		if f.Title != nil {
			d.Title = *f.Title
		}
		if f.AlternateLink != nil {
			d.AlternateLink = *f.AlternateLink
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

// ListEntries fetches each subscribed feed and emits entries not yet present
// in the cache, newest first, at most limit per call. The offset parameter is
// ignored: each call returns a slice of the remaining uncached set, which
// shrinks as the caller commits pages, so repeated calls converge to empty.
// Applying offset on top of the cache filter would double-count committed
// pages and silently drop the remainder. The watermark is likewise not
// consulted; cache membership alone decides novelty, since a feed can surface
// items with old publish dates at any time. A failing feed is recorded and
// skipped, never aborting the others.
func (s *Standalone) ListEntries(ctx context.Context, since int64, feedID string, offset, limit int) ([]EntryDescriptor, error) {
	var feeds []*models.Feed
	if feedID != "" {
		feed, err := s.store.GetFeed(feedID)
		if err != nil {
			return nil, Cache(err)
		}
		feeds = []*models.Feed{feed}
	} else {
		var err error
		feeds, err = s.store.ListFeeds()
		if err != nil {
			return nil, Cache(err)
		}
	}

	var out []EntryDescriptor
	for _, feed := range feeds {
		entries, err := s.fetchFeedEntries(ctx, feed)
		if err != nil {
			s.log.WithField("feed", feed.SelfLink).WithError(err).Warn("feed fetch failed")
			if uerr := s.store.UpdateFeedError(feed.ID, err.Error()); uerr != nil {
				return nil, Cache(uerr)
			}
			continue
		}
		out = append(out, entries...)
	}

	sort.Slice(out, func(i, j int) bool {
		ti, tj := time.Time{}, time.Time{}
		if out[i].Published != nil {
			ti = *out[i].Published
		}
		if out[j].Published != nil {
			tj = *out[j].Published
		}
		if ti.Equal(tj) {
			return out[i].ID < out[j].ID
		}
		return ti.After(tj)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Standalone) fetchFeedEntries(ctx context.Context, feed *models.Feed) ([]EntryDescriptor, error) {
	result, err := fetch.Fetch(ctx, feed.SelfLink, feed.ETag, feed.LastModified)
	if err != nil {
		return nil, Transient(err)
	}
	if result.NotModified {
		return nil, nil
	}

	parsed, err := parse.Parse(result.Body)
	if err != nil {
		return nil, Parse(err)
	}

	var out []EntryDescriptor
	for _, item := range parsed.Entries {
		id := entryID(feed.ID, item.GUID)

		// Already cached entries are immutable; skip them so cached flag
		// state is never disturbed by a re-fetch.
		if _, err := s.store.GetEntry(id); err == nil {
			continue
		}

		out = append(out, EntryDescriptor{
			ID:            id,
			FeedID:        feed.ID,
			Title:         item.Title,
			AlternateLink: item.Link,
			Published:     item.PublishedAt,
			Summary:       item.Summary,
			EnclosureLink: item.EnclosureLink,
			EnclosureMime: item.EnclosureMime,
		})
	}

	// Validators are persisted only once every entry from this response is
	// in the cache. An interrupted run therefore re-fetches on resume instead
	// of getting a 304 for content it never committed.
	if len(out) == 0 {
		if err := s.store.UpdateFeedFetchState(feed.ID, optional(result.ETag), optional(result.LastModified)); err != nil {
			return nil, Cache(err)
		}
	}
	return out, nil
}

// PushFlags acknowledges immediately: with no server, local flag state is
// authoritative the moment it is written.
func (s *Standalone) PushFlags(ctx context.Context, batch FlagBatch) error {
	return nil
}

// AddFeed fetches and parses the URL to validate it, then returns a
// descriptor with a locally generated provisional id.
func (s *Standalone) AddFeed(ctx context.Context, feedURL string) (*FeedDescriptor, error) {
	result, err := fetch.Fetch(ctx, feedURL, nil, nil)
	if err != nil {
		return nil, Transient(err)
	}

	parsed, err := parse.Parse(result.Body)
	if err != nil {
		return nil, Parse(err)
	}

	feed := models.NewFeed(feedURL)
	return &FeedDescriptor{
		ID:            feed.ID,
		Title:         parsed.Title,
		SelfLink:      feedURL,
		AlternateLink: parsed.Link,
	}, nil
}

// RenameFeed has no remote side in standalone mode; the cache rename done by
// the caller is the whole operation.
func (s *Standalone) RenameFeed(ctx context.Context, id, title string) error {
	return nil
}

// DeleteFeed has no remote side in standalone mode.
func (s *Standalone) DeleteFeed(ctx context.Context, id string) error {
	return nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
