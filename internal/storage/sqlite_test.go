// ABOUTME: Tests for the SQLite cache implementation
// ABOUTME: Covers feed/entry CRUD, pending-flag derivation, conf singleton and cascade deletes

package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newsling/newsling/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func strptr(s string) *string { return &s }

func timeptr(t time.Time) *time.Time { return &t }

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestFeedCRUD(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	feed := models.NewFeed("https://example.com/feed.xml")
	feed.Title = strptr("Example Feed")
	feed.OpenInBrowser = true

	if err := store.UpsertFeed(feed); err != nil {
		t.Fatalf("UpsertFeed failed: %v", err)
	}

	got, err := store.GetFeed(feed.ID)
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	if got.SelfLink != feed.SelfLink {
		t.Errorf("SelfLink mismatch: got %q, want %q", got.SelfLink, feed.SelfLink)
	}
	if got.Title == nil || *got.Title != "Example Feed" {
		t.Errorf("Title mismatch: got %v", got.Title)
	}
	if !got.OpenInBrowser {
		t.Error("OpenInBrowser not persisted")
	}

	got, err = store.GetFeedBySelfLink("https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("GetFeedBySelfLink failed: %v", err)
	}
	if got.ID != feed.ID {
		t.Errorf("ID mismatch: got %q, want %q", got.ID, feed.ID)
	}

	if err := store.RenameFeed(feed.ID, "Renamed"); err != nil {
		t.Fatalf("RenameFeed failed: %v", err)
	}
	got, _ = store.GetFeed(feed.ID)
	if got.Title == nil || *got.Title != "Renamed" {
		t.Errorf("rename not applied: got %v", got.Title)
	}

	if err := store.DeleteFeed(feed.ID); err != nil {
		t.Fatalf("DeleteFeed failed: %v", err)
	}
	if _, err := store.GetFeed(feed.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestUpsertFeedPreservesPreferences(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	feed := models.NewFeed("https://example.com/feed.xml")
	feed.OpenInBrowser = true
	feed.BlockedWords = strptr("sponsored")
	if err := store.UpsertFeed(feed); err != nil {
		t.Fatalf("UpsertFeed failed: %v", err)
	}

	// A remote pull writes the same id with content fields only
	update := &models.Feed{
		ID:        feed.ID,
		SelfLink:  feed.SelfLink,
		Title:     strptr("Remote Title"),
		CreatedAt: time.Now(),
	}
	if err := store.UpsertFeed(update); err != nil {
		t.Fatalf("second UpsertFeed failed: %v", err)
	}

	got, err := store.GetFeed(feed.ID)
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	if got.Title == nil || *got.Title != "Remote Title" {
		t.Errorf("remote title not applied: got %v", got.Title)
	}
	if !got.OpenInBrowser {
		t.Error("local preference open_in_browser was clobbered")
	}
	if got.BlockedWords == nil || *got.BlockedWords != "sponsored" {
		t.Error("local preference blocked_words was clobbered")
	}
}

func insertFeed(t *testing.T, store *SQLiteStore, url string) *models.Feed {
	t.Helper()
	feed := models.NewFeed(url)
	if err := store.UpsertFeed(feed); err != nil {
		t.Fatalf("UpsertFeed failed: %v", err)
	}
	return feed
}

func TestUpsertEntriesPreservesPendingFlags(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()
	feed := insertFeed(t, store, "https://example.com/feed.xml")

	entry := &models.Entry{ID: "e1", FeedID: feed.ID, Title: strptr("One")}
	if err := store.UpsertEntries([]*models.Entry{entry}); err != nil {
		t.Fatalf("UpsertEntries failed: %v", err)
	}

	// Local edit: mark read. Now read=true, synced_read=false (pending).
	if err := store.SetEntryRead("e1", true); err != nil {
		t.Fatalf("SetEntryRead failed: %v", err)
	}

	// A stale remote snapshot still says unread.
	stale := &models.Entry{ID: "e1", FeedID: feed.ID, Title: strptr("One (edited)"), Read: false}
	if err := store.UpsertEntries([]*models.Entry{stale}); err != nil {
		t.Fatalf("second UpsertEntries failed: %v", err)
	}

	got, err := store.GetEntry("e1")
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if !got.Read {
		t.Error("pending local read edit was overwritten by stale remote value")
	}
	if !got.FlagsPending() {
		t.Error("entry should still be pending after a stale pull")
	}
	if got.Title == nil || *got.Title != "One (edited)" {
		t.Error("content fields should take the remote value")
	}
}

func TestUpsertEntriesAdoptsRemoteFlagsWhenNotPending(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()
	feed := insertFeed(t, store, "https://example.com/feed.xml")

	entry := &models.Entry{ID: "e1", FeedID: feed.ID}
	if err := store.UpsertEntries([]*models.Entry{entry}); err != nil {
		t.Fatalf("UpsertEntries failed: %v", err)
	}

	// Remote says read (for example flagged from another device).
	update := &models.Entry{ID: "e1", FeedID: feed.ID, Read: true, Bookmarked: true}
	if err := store.UpsertEntries([]*models.Entry{update}); err != nil {
		t.Fatalf("second UpsertEntries failed: %v", err)
	}

	got, _ := store.GetEntry("e1")
	if !got.Read || !got.Bookmarked {
		t.Error("remote flags should apply when no local edit is pending")
	}
	if got.FlagsPending() {
		t.Error("adopting remote flags must not create a pending edit")
	}
}

func TestPendingFlagDerivation(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()
	feed := insertFeed(t, store, "https://example.com/feed.xml")

	entries := []*models.Entry{
		{ID: "e1", FeedID: feed.ID},
		{ID: "e2", FeedID: feed.ID},
		{ID: "e3", FeedID: feed.ID},
	}
	if err := store.UpsertEntries(entries); err != nil {
		t.Fatalf("UpsertEntries failed: %v", err)
	}

	if err := store.SetEntryRead("e1", true); err != nil {
		t.Fatal(err)
	}
	if err := store.SetEntryBookmarked("e2", true); err != nil {
		t.Fatal(err)
	}

	pending, err := store.ListPendingFlagEntries()
	if err != nil {
		t.Fatalf("ListPendingFlagEntries failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending entries, got %d", len(pending))
	}

	// Confirm e1's push; it leaves the pending set.
	if err := store.ConfirmEntryFlags("e1", true, false); err != nil {
		t.Fatalf("ConfirmEntryFlags failed: %v", err)
	}
	pending, _ = store.ListPendingFlagEntries()
	if len(pending) != 1 || pending[0].ID != "e2" {
		t.Fatalf("expected only e2 pending, got %v", pending)
	}

	// An edit racing the push keeps the entry pending.
	if err := store.SetEntryRead("e1", false); err != nil {
		t.Fatal(err)
	}
	pending, _ = store.ListPendingFlagEntries()
	if len(pending) != 2 {
		t.Fatalf("expected e1 pending again after new edit, got %d entries", len(pending))
	}
}

func TestListEntriesFilter(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()
	feedA := insertFeed(t, store, "https://a.example.com/feed.xml")
	feedB := insertFeed(t, store, "https://b.example.com/feed.xml")

	now := time.Now().UTC()
	entries := []*models.Entry{
		{ID: "a1", FeedID: feedA.ID, Published: timeptr(now.Add(-time.Hour))},
		{ID: "a2", FeedID: feedA.ID, Published: timeptr(now)},
		{ID: "b1", FeedID: feedB.ID, Published: timeptr(now.Add(-2 * time.Hour))},
	}
	if err := store.UpsertEntries(entries); err != nil {
		t.Fatalf("UpsertEntries failed: %v", err)
	}
	if err := store.SetEntryRead("a1", true); err != nil {
		t.Fatal(err)
	}

	all, err := store.ListEntries(nil)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].ID != "a2" {
		t.Errorf("expected newest first, got %s", all[0].ID)
	}

	unread := true
	onlyUnread, err := store.ListEntries(&EntryFilter{UnreadOnly: &unread})
	if err != nil {
		t.Fatal(err)
	}
	if len(onlyUnread) != 2 {
		t.Errorf("expected 2 unread entries, got %d", len(onlyUnread))
	}

	byFeed, err := store.ListEntries(&EntryFilter{FeedID: &feedB.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(byFeed) != 1 || byFeed[0].ID != "b1" {
		t.Errorf("feed filter wrong: %v", byFeed)
	}
}

func TestDeleteFeedCascades(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()
	feed := insertFeed(t, store, "https://example.com/feed.xml")

	if err := store.UpsertEntries([]*models.Entry{{ID: "e1", FeedID: feed.ID}}); err != nil {
		t.Fatal(err)
	}
	if err := store.ReplaceFeedLinks(feed.ID, []models.Link{
		{FeedID: &feed.ID, Rel: models.RelSelf, Href: feed.SelfLink},
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.EnsureEnclosure("e1"); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteFeed(feed.ID); err != nil {
		t.Fatalf("DeleteFeed failed: %v", err)
	}

	if _, err := store.GetEntry("e1"); err != ErrNotFound {
		t.Errorf("entry should cascade: %v", err)
	}
	links, err := store.ListFeedLinks(feed.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 0 {
		t.Errorf("links should cascade, got %d", len(links))
	}
	if _, err := store.GetEnclosure("e1"); err != ErrNotFound {
		t.Errorf("enclosure should cascade: %v", err)
	}
}

func TestConfSingleton(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	conf, err := store.GetConf()
	if err != nil {
		t.Fatalf("GetConf failed: %v", err)
	}
	if conf.InitialSyncCompleted {
		t.Error("fresh conf must not claim a completed initial sync")
	}
	if conf.SortOrder != models.SortNewestFirst {
		t.Errorf("unexpected default sort order %q", conf.SortOrder)
	}

	if err := store.SetLastSync(1234); err != nil {
		t.Fatal(err)
	}
	if err := store.SetInitialSyncCompleted(true); err != nil {
		t.Fatal(err)
	}

	conf, _ = store.GetConf()
	if !conf.InitialSyncCompleted || conf.LastSync != 1234 {
		t.Errorf("conf not persisted: %+v", conf)
	}
}

func TestEnclosureLifecycle(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()
	feed := insertFeed(t, store, "https://example.com/feed.xml")
	if err := store.UpsertEntries([]*models.Entry{{ID: "e1", FeedID: feed.ID}}); err != nil {
		t.Fatal(err)
	}

	if err := store.EnsureEnclosure("e1"); err != nil {
		t.Fatal(err)
	}
	// Ensure is idempotent
	if err := store.EnsureEnclosure("e1"); err != nil {
		t.Fatal(err)
	}

	uri := "file:///tmp/e1"
	if err := store.UpdateEnclosureProgress("e1", &uri, 0.5); err != nil {
		t.Fatal(err)
	}
	enc, err := store.GetEnclosure("e1")
	if err != nil {
		t.Fatal(err)
	}
	if enc.DownloadProgress != 0.5 || enc.CacheURI == nil || *enc.CacheURI != uri {
		t.Errorf("enclosure state wrong: %+v", enc)
	}
}

func TestSubscribeDeliversOnWrite(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ch, cancel := store.Subscribe(TopicFeeds)
	defer cancel()

	// Immediate signal for the current value
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no immediate signal on subscribe")
	}

	insertFeed(t, store, "https://example.com/feed.xml")
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no signal after committed write")
	}
}
