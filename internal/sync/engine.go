// ABOUTME: Sync engine orchestrating initial sync, incremental sync and flag-only sync
// ABOUTME: Remote is authoritative for content, local for unpushed flags; every step is safely retryable

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/newsling/newsling/internal/models"
	"github.com/newsling/newsling/internal/remote"
	"github.com/newsling/newsling/internal/storage"
	"github.com/sirupsen/logrus"
)

// DefaultPageSize bounds one entry page pulled from the remote. Pages are
// committed to the cache as they arrive; the full dataset is never buffered.
const DefaultPageSize = 200

// Engine is the sync and reconciliation core. It owns no in-memory progress
// state that matters across invocations: everything needed to resume lives in
// the cache, so any call may be interrupted and retried.
type Engine struct {
	store    storage.Store
	api      remote.API
	pageSize int
	progress *progressTracker
	log      *logrus.Entry
}

// New creates an Engine over the given cache and transport.
func New(store storage.Store, api remote.API) *Engine {
	return &Engine{
		store:    store,
		api:      api,
		pageSize: DefaultPageSize,
		progress: newProgressTracker(),
		log:      logrus.WithField("component", "sync"),
	}
}

// SetPageSize overrides the number of entries pulled per request. Values
// below one are ignored.
func (e *Engine) SetPageSize(n int) {
	if n > 0 {
		e.pageSize = n
	}
}

// Progress returns the current snapshot of the running (or last) sync.
func (e *Engine) Progress() Progress {
	return e.progress.snapshot()
}

// SubscribeProgress registers an observer notified on every progress change.
func (e *Engine) SubscribeProgress() (<-chan struct{}, func()) {
	return e.progress.subscribe()
}

// PerformInitialSync pulls the full remote snapshot into an empty (or
// partially filled) cache. Each page is committed as it arrives; the
// initial-sync-completed flag is the final write, so the flag being true
// guarantees the snapshot is durably complete. Re-running after an
// interruption is idempotent: already-committed rows are upserted in place.
func (e *Engine) PerformInitialSync(ctx context.Context) error {
	conf, err := e.store.GetConf()
	if err != nil {
		return remote.Cache(err)
	}
	if conf.InitialSyncCompleted {
		return nil
	}

	e.progress.set(Progress{})
	e.log.Info("starting initial sync")

	// Watermark is captured before the pull so an interrupted run re-fetches
	// the overlap instead of missing entries published mid-sync.
	syncTime := time.Now().Unix()

	feeds, err := e.api.ListFeeds(ctx)
	if err != nil {
		return fmt.Errorf("list feeds: %w", err)
	}
	for _, d := range feeds {
		if err := e.writeFeed(d); err != nil {
			return err
		}
	}

	imported := 0
	for offset := 0; ; offset += e.pageSize {
		page, err := e.api.ListEntries(ctx, 0, "", offset, e.pageSize)
		if err != nil {
			return fmt.Errorf("list entries (offset %d): %w", offset, err)
		}
		if len(page) == 0 {
			break
		}
		if err := e.writeEntryPage(page); err != nil {
			return err
		}
		imported += len(page)
		e.progress.set(Progress{Imported: imported})
		if len(page) < e.pageSize {
			break
		}
	}

	if err := e.store.SetLastSync(syncTime); err != nil {
		return remote.Cache(err)
	}

	// Must be the last write: the flag implies the snapshot is complete.
	if err := e.store.SetInitialSyncCompleted(true); err != nil {
		return remote.Cache(err)
	}

	e.progress.set(Progress{Imported: imported, Total: imported})
	e.log.WithField("entries", imported).Info("initial sync completed")
	return nil
}

// Sync performs one incremental sync: push pending flags, pull feeds, pull
// entries since the watermark, then ensure enclosure rows for new media
// entries. Steps run strictly in that order so an unpushed local flag is
// never overwritten by a stale remote value. A failure in step N leaves the
// committed effects of steps 1..N-1 in place.
func (e *Engine) Sync(ctx context.Context) error {
	conf, err := e.store.GetConf()
	if err != nil {
		return remote.Cache(err)
	}
	if !conf.InitialSyncCompleted {
		return e.PerformInitialSync(ctx)
	}

	if err := e.pushFlags(ctx); err != nil {
		return fmt.Errorf("push flags: %w", err)
	}
	if err := e.pullFeeds(ctx); err != nil {
		return fmt.Errorf("pull feeds: %w", err)
	}
	newMedia, err := e.pullEntries(ctx, conf.LastSync)
	if err != nil {
		return fmt.Errorf("pull entries: %w", err)
	}
	for _, entryID := range newMedia {
		if err := e.store.EnsureEnclosure(entryID); err != nil {
			return remote.Cache(err)
		}
	}
	return nil
}

// SyncEntryFlags pushes pending read/bookmark edits without pulling anything.
// Rapid repeated calls coalesce: the pending set is recomputed from entry
// state each time, so only the latest flag value per entry is transmitted.
func (e *Engine) SyncEntryFlags(ctx context.Context) error {
	if err := e.pushFlags(ctx); err != nil {
		return fmt.Errorf("push flags: %w", err)
	}
	return nil
}

// pushFlags captures the pending set once, pushes it, then confirms exactly
// the captured values. An entry edited again mid-push keeps its live value
// and stays pending for the next call (last-writer-wins locally).
func (e *Engine) pushFlags(ctx context.Context) error {
	pending, err := e.store.ListPendingFlagEntries()
	if err != nil {
		return remote.Cache(err)
	}
	if len(pending) == 0 {
		return nil
	}

	var batch remote.FlagBatch
	type captured struct{ read, bookmarked bool }
	capturedFlags := make(map[string]captured, len(pending))

	for _, entry := range pending {
		capturedFlags[entry.ID] = captured{read: entry.Read, bookmarked: entry.Bookmarked}
		if entry.Read != entry.SyncedRead {
			if entry.Read {
				batch.ReadIDs = append(batch.ReadIDs, entry.ID)
			} else {
				batch.UnreadIDs = append(batch.UnreadIDs, entry.ID)
			}
		}
		if entry.Bookmarked != entry.SyncedBookmarked {
			if entry.Bookmarked {
				batch.BookmarkedIDs = append(batch.BookmarkedIDs, entry.ID)
			} else {
				batch.UnbookmarkedIDs = append(batch.UnbookmarkedIDs, entry.ID)
			}
		}
	}

	if err := e.api.PushFlags(ctx, batch); err != nil {
		// Local values stay untouched; the same (or newer) edits are
		// re-derived and re-pushed on the next call.
		return err
	}

	for id, flags := range capturedFlags {
		if err := e.store.ConfirmEntryFlags(id, flags.read, flags.bookmarked); err != nil {
			return remote.Cache(err)
		}
	}

	e.log.WithFields(logrus.Fields{
		"read": len(batch.ReadIDs), "unread": len(batch.UnreadIDs),
		"bookmarked": len(batch.BookmarkedIDs), "unbookmarked": len(batch.UnbookmarkedIDs),
	}).Debug("flags pushed")
	return nil
}

// pullFeeds reconciles the cached feed list against the remote one by id:
// added feeds are inserted, removed feeds are cascade-deleted, and existing
// feeds take the remote value for content fields while local preference
// fields survive untouched.
func (e *Engine) pullFeeds(ctx context.Context) error {
	remoteFeeds, err := e.api.ListFeeds(ctx)
	if err != nil {
		return err
	}

	remoteIDs := make(map[string]bool, len(remoteFeeds))
	for _, d := range remoteFeeds {
		remoteIDs[d.ID] = true
		if err := e.writeFeed(d); err != nil {
			return err
		}
	}

	local, err := e.store.ListFeeds()
	if err != nil {
		return remote.Cache(err)
	}
	for _, feed := range local {
		if !remoteIDs[feed.ID] {
			e.log.WithField("feed", feed.SelfLink).Info("feed removed remotely, deleting")
			if err := e.store.DeleteFeed(feed.ID); err != nil {
				return remote.Cache(err)
			}
		}
	}
	return nil
}

// pullEntries pages through entries changed since the watermark, committing
// each page, and returns the ids of newly seen entries carrying an enclosure
// link. The watermark advances only after the pull fully succeeds.
func (e *Engine) pullEntries(ctx context.Context, since int64) ([]string, error) {
	syncTime := time.Now().Unix()

	var newMedia []string
	for offset := 0; ; offset += e.pageSize {
		page, err := e.api.ListEntries(ctx, since, "", offset, e.pageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		media, err := e.writeEntryPageCollectMedia(page)
		if err != nil {
			return nil, err
		}
		newMedia = append(newMedia, media...)

		if len(page) < e.pageSize {
			break
		}
	}

	if err := e.store.SetLastSync(syncTime); err != nil {
		return nil, remote.Cache(err)
	}
	return newMedia, nil
}

// AddFeed subscribes to a new feed through the active transport and pulls its
// entries. An existing subscription with the same canonical URL is returned
// unchanged.
func (e *Engine) AddFeed(ctx context.Context, url string) (*models.Feed, error) {
	if existing, err := e.store.GetFeedBySelfLink(url); err == nil {
		return existing, nil
	}

	descriptor, err := e.api.AddFeed(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("add feed %s: %w", url, err)
	}
	if err := e.writeFeed(*descriptor); err != nil {
		return nil, err
	}

	for offset := 0; ; offset += e.pageSize {
		page, err := e.api.ListEntries(ctx, 0, descriptor.ID, offset, e.pageSize)
		if err != nil {
			return nil, fmt.Errorf("pull entries for %s: %w", url, err)
		}
		if len(page) == 0 {
			break
		}
		if err := e.writeEntryPage(page); err != nil {
			return nil, err
		}
		if len(page) < e.pageSize {
			break
		}
	}

	feed, err := e.store.GetFeed(descriptor.ID)
	if err != nil {
		return nil, remote.Cache(err)
	}
	return feed, nil
}

// RenameFeed renames the feed remotely, then locally.
func (e *Engine) RenameFeed(ctx context.Context, id, title string) error {
	if err := e.api.RenameFeed(ctx, id, title); err != nil {
		return fmt.Errorf("rename feed: %w", err)
	}
	if err := e.store.RenameFeed(id, title); err != nil {
		return remote.Cache(err)
	}
	return nil
}

// DeleteFeed deletes the feed remotely, then locally with cascade.
func (e *Engine) DeleteFeed(ctx context.Context, id string) error {
	if err := e.api.DeleteFeed(ctx, id); err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}
	if err := e.store.DeleteFeed(id); err != nil {
		return remote.Cache(err)
	}
	return nil
}

// MarkEntryRead records a local read edit; it becomes pending until the next
// flag push confirms it.
func (e *Engine) MarkEntryRead(id string, read bool) error {
	if err := e.store.SetEntryRead(id, read); err != nil {
		return remote.Cache(err)
	}
	return nil
}

// MarkEntryBookmarked records a local bookmark edit.
func (e *Engine) MarkEntryBookmarked(id string, bookmarked bool) error {
	if err := e.store.SetEntryBookmarked(id, bookmarked); err != nil {
		return remote.Cache(err)
	}
	return nil
}

// writeFeed upserts one remote feed descriptor and its links.
func (e *Engine) writeFeed(d remote.FeedDescriptor) error {
	feed := &models.Feed{
		ID:        d.ID,
		SelfLink:  d.SelfLink,
		CreatedAt: time.Now(),
	}
	if d.Title != "" {
		feed.Title = &d.Title
	}
	if d.AlternateLink != "" {
		feed.AlternateLink = &d.AlternateLink
	}

	if err := e.store.UpsertFeed(feed); err != nil {
		return remote.Cache(err)
	}

	links := []models.Link{{FeedID: &d.ID, Rel: models.RelSelf, Href: d.SelfLink}}
	if d.AlternateLink != "" {
		links = append(links, models.Link{FeedID: &d.ID, Rel: models.RelAlternate, Href: d.AlternateLink})
	}
	if err := e.store.ReplaceFeedLinks(d.ID, links); err != nil {
		return remote.Cache(err)
	}
	return nil
}

// writeEntryPage commits one page of entries.
func (e *Engine) writeEntryPage(page []remote.EntryDescriptor) error {
	_, err := e.writeEntryPageCollectMedia(page)
	return err
}

// writeEntryPageCollectMedia commits one page and reports which entries were
// new and carry an enclosure link.
func (e *Engine) writeEntryPageCollectMedia(page []remote.EntryDescriptor) ([]string, error) {
	entries := make([]*models.Entry, 0, len(page))
	var media []string

	for _, d := range page {
		entry := &models.Entry{
			ID:         d.ID,
			FeedID:     d.FeedID,
			Published:  d.Published,
			Read:       d.Read,
			Bookmarked: d.Bookmarked,
		}
		if d.Title != "" {
			entry.Title = &d.Title
		}
		if d.Summary != "" {
			entry.Summary = &d.Summary
		}
		if d.EnclosureLink != "" {
			link := d.EnclosureLink
			entry.EnclosureLink = &link
			if _, err := e.store.GetEntry(d.ID); err != nil {
				media = append(media, d.ID)
			}
		}
		if d.EnclosureMime != "" {
			mime := d.EnclosureMime
			entry.EnclosureMime = &mime
		}
		entries = append(entries, entry)
	}

	if err := e.store.UpsertEntries(entries); err != nil {
		return nil, remote.Cache(err)
	}

	for _, d := range page {
		if d.AlternateLink == "" {
			continue
		}
		id := d.ID
		links := []models.Link{{EntryID: &id, Rel: models.RelAlternate, Href: d.AlternateLink}}
		if err := e.store.ReplaceEntryLinks(id, links); err != nil {
			return nil, remote.Cache(err)
		}
	}
	return media, nil
}
