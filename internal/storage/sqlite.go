// ABOUTME: SQLite cache implementation using modernc.org/sqlite (pure Go)
// ABOUTME: Persists feeds, entries, links, enclosures and the conf singleton with change notification

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/newsling/newsling/internal/models"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	notify *Notifier
}

// NewSQLiteStore creates a new SQLite cache at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	// WAL mode for concurrent readers during sync writes
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{db: db, notify: NewNotifier()}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the cache tables if they don't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS feeds (
			id TEXT PRIMARY KEY,
			title TEXT,
			self_link TEXT UNIQUE NOT NULL,
			alternate_link TEXT,
			open_in_browser INTEGER NOT NULL DEFAULT 0,
			blocked_words TEXT,
			show_preview_images INTEGER,
			etag TEXT,
			last_modified TEXT,
			last_fetch_error TEXT,
			created_at TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			feed_id TEXT NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
			title TEXT,
			published TIMESTAMP,
			summary TEXT,
			enclosure_link TEXT,
			enclosure_mime TEXT,
			read INTEGER NOT NULL DEFAULT 0,
			bookmarked INTEGER NOT NULL DEFAULT 0,
			synced_read INTEGER NOT NULL DEFAULT 0,
			synced_bookmarked INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_entries_feed_id ON entries(feed_id);
		CREATE INDEX IF NOT EXISTS idx_entries_published ON entries(published);
		CREATE INDEX IF NOT EXISTS idx_entries_pending ON entries(read, synced_read, bookmarked, synced_bookmarked);

		CREATE TABLE IF NOT EXISTS links (
			feed_id TEXT REFERENCES feeds(id) ON DELETE CASCADE,
			entry_id TEXT REFERENCES entries(id) ON DELETE CASCADE,
			rel TEXT NOT NULL,
			href TEXT NOT NULL,
			CHECK ((feed_id IS NULL) != (entry_id IS NULL))
		);

		CREATE TABLE IF NOT EXISTS enclosures (
			entry_id TEXT PRIMARY KEY REFERENCES entries(id) ON DELETE CASCADE,
			cache_uri TEXT,
			download_progress REAL NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS conf (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			initial_sync_completed INTEGER NOT NULL DEFAULT 0,
			last_sync INTEGER NOT NULL DEFAULT 0,
			sort_order TEXT NOT NULL DEFAULT 'newest_first',
			show_read_entries INTEGER NOT NULL DEFAULT 1,
			sync_on_startup INTEGER NOT NULL DEFAULT 1,
			show_preview_images INTEGER NOT NULL DEFAULT 1,
			show_preview_text INTEGER NOT NULL DEFAULT 1,
			crop_preview_images INTEGER NOT NULL DEFAULT 0
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Subscribe registers an observer for committed writes to a topic.
func (s *SQLiteStore) Subscribe(topic Topic) (<-chan struct{}, func()) {
	return s.notify.Subscribe(topic)
}

const feedColumns = `id, title, self_link, alternate_link, open_in_browser, blocked_words,
	show_preview_images, etag, last_modified, last_fetch_error, created_at`

func scanFeed(row interface{ Scan(...any) error }) (*models.Feed, error) {
	feed := &models.Feed{}
	var showPreview *bool
	err := row.Scan(&feed.ID, &feed.Title, &feed.SelfLink, &feed.AlternateLink,
		&feed.OpenInBrowser, &feed.BlockedWords, &showPreview,
		&feed.ETag, &feed.LastModified, &feed.LastFetchError, &feed.CreatedAt)
	if err != nil {
		return nil, err
	}
	feed.ShowPreviewImages = showPreview
	return feed, nil
}

// UpsertFeed inserts the feed or updates remote-owned content fields in place.
// Preference fields (open_in_browser, blocked_words, show_preview_images) are
// local-authoritative and survive the upsert.
func (s *SQLiteStore) UpsertFeed(feed *models.Feed) error {
	_, err := s.db.Exec(`
		INSERT INTO feeds (`+feedColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			self_link = excluded.self_link,
			alternate_link = excluded.alternate_link`,
		feed.ID, feed.Title, feed.SelfLink, feed.AlternateLink,
		feed.OpenInBrowser, feed.BlockedWords, feed.ShowPreviewImages,
		feed.ETag, feed.LastModified, feed.LastFetchError, feed.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert feed: %w", err)
	}
	s.notify.Publish(TopicFeeds)
	return nil
}

// UpdateFeedPreferences overwrites only the import-controlled preference fields.
func (s *SQLiteStore) UpdateFeedPreferences(feed *models.Feed) error {
	_, err := s.db.Exec(`
		UPDATE feeds SET open_in_browser = ?, blocked_words = ?, show_preview_images = ?
		WHERE id = ?`,
		feed.OpenInBrowser, feed.BlockedWords, feed.ShowPreviewImages, feed.ID,
	)
	if err != nil {
		return fmt.Errorf("update feed preferences: %w", err)
	}
	s.notify.Publish(TopicFeeds)
	return nil
}

// GetFeed retrieves a feed by id.
func (s *SQLiteStore) GetFeed(id string) (*models.Feed, error) {
	feed, err := scanFeed(s.db.QueryRow(`SELECT `+feedColumns+` FROM feeds WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return feed, err
}

// GetFeedBySelfLink finds a feed by its canonical URL.
func (s *SQLiteStore) GetFeedBySelfLink(url string) (*models.Feed, error) {
	feed, err := scanFeed(s.db.QueryRow(`SELECT `+feedColumns+` FROM feeds WHERE self_link = ?`, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return feed, err
}

// ListFeeds returns all feeds, newest first.
func (s *SQLiteStore) ListFeeds() ([]*models.Feed, error) {
	rows, err := s.db.Query(`SELECT ` + feedColumns + ` FROM feeds ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeds []*models.Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feeds: %w", err)
	}
	return feeds, nil
}

// RenameFeed sets a feed's title.
func (s *SQLiteStore) RenameFeed(id, title string) error {
	res, err := s.db.Exec(`UPDATE feeds SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("rename feed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.notify.Publish(TopicFeeds)
	return nil
}

// DeleteFeed removes a feed; entries and links cascade.
func (s *SQLiteStore) DeleteFeed(id string) error {
	_, err := s.db.Exec(`DELETE FROM feeds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}
	s.notify.Publish(TopicFeeds)
	s.notify.Publish(TopicEntries)
	return nil
}

// UpdateFeedFetchState stores conditional-request headers and clears the last error.
func (s *SQLiteStore) UpdateFeedFetchState(id string, etag, lastModified *string) error {
	_, err := s.db.Exec(`
		UPDATE feeds SET etag = ?, last_modified = ?, last_fetch_error = NULL
		WHERE id = ?`,
		etag, lastModified, id,
	)
	return err
}

// UpdateFeedError records a fetch error for a feed.
func (s *SQLiteStore) UpdateFeedError(id string, errMsg string) error {
	_, err := s.db.Exec(`UPDATE feeds SET last_fetch_error = ? WHERE id = ?`, errMsg, id)
	return err
}

// UpsertEntries writes one page of remote entries in a single transaction.
//
// Content fields always take the remote value. Flags are subtler: a local
// edit that has not been confirmed pushed (read != synced_read) must survive
// the pull, so the CASE expressions keep the local value and its watermark
// whenever an edit is pending, and adopt the remote value otherwise.
func (s *SQLiteStore) UpsertEntries(entries []*models.Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin entries transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO entries (id, feed_id, title, published, summary,
			enclosure_link, enclosure_mime, read, bookmarked, synced_read, synced_bookmarked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			published = excluded.published,
			summary = excluded.summary,
			enclosure_link = excluded.enclosure_link,
			enclosure_mime = excluded.enclosure_mime,
			read = CASE WHEN entries.read != entries.synced_read
				THEN entries.read ELSE excluded.read END,
			synced_read = CASE WHEN entries.read != entries.synced_read
				THEN entries.synced_read ELSE excluded.read END,
			bookmarked = CASE WHEN entries.bookmarked != entries.synced_bookmarked
				THEN entries.bookmarked ELSE excluded.bookmarked END,
			synced_bookmarked = CASE WHEN entries.bookmarked != entries.synced_bookmarked
				THEN entries.synced_bookmarked ELSE excluded.bookmarked END`)
	if err != nil {
		return fmt.Errorf("prepare entry upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.ID, e.FeedID, e.Title, e.Published, e.Summary,
			e.EnclosureLink, e.EnclosureMime, e.Read, e.Bookmarked, e.Read, e.Bookmarked); err != nil {
			return fmt.Errorf("upsert entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit entries: %w", err)
	}
	s.notify.Publish(TopicEntries)
	return nil
}

const entryColumns = `id, feed_id, title, published, summary, enclosure_link, enclosure_mime,
	read, bookmarked, synced_read, synced_bookmarked`

func scanEntry(row interface{ Scan(...any) error }) (*models.Entry, error) {
	e := &models.Entry{}
	err := row.Scan(&e.ID, &e.FeedID, &e.Title, &e.Published, &e.Summary,
		&e.EnclosureLink, &e.EnclosureMime,
		&e.Read, &e.Bookmarked, &e.SyncedRead, &e.SyncedBookmarked)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetEntry retrieves an entry by id.
func (s *SQLiteStore) GetEntry(id string) (*models.Entry, error) {
	entry, err := scanEntry(s.db.QueryRow(`SELECT `+entryColumns+` FROM entries WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return entry, err
}

// ListEntries returns entries matching the filter, newest first.
func (s *SQLiteStore) ListEntries(filter *EntryFilter) ([]*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE 1=1`
	var args []any

	if filter != nil {
		if filter.FeedID != nil {
			query += ` AND feed_id = ?`
			args = append(args, *filter.FeedID)
		}
		if filter.UnreadOnly != nil && *filter.UnreadOnly {
			query += ` AND read = 0`
		}
		if filter.Since != nil {
			query += ` AND published >= ?`
			args = append(args, *filter.Since)
		}
	}

	query += ` ORDER BY published DESC, id`
	if filter != nil && filter.Limit != nil {
		query += ` LIMIT ?`
		args = append(args, *filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// SetEntryRead sets the local read flag. The edit stays pending until the
// next successful flag push confirms it.
func (s *SQLiteStore) SetEntryRead(id string, read bool) error {
	res, err := s.db.Exec(`UPDATE entries SET read = ? WHERE id = ?`, read, id)
	if err != nil {
		return fmt.Errorf("set entry read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.notify.Publish(TopicEntries)
	return nil
}

// SetEntryBookmarked sets the local bookmark flag.
func (s *SQLiteStore) SetEntryBookmarked(id string, bookmarked bool) error {
	res, err := s.db.Exec(`UPDATE entries SET bookmarked = ? WHERE id = ?`, bookmarked, id)
	if err != nil {
		return fmt.Errorf("set entry bookmarked: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.notify.Publish(TopicEntries)
	return nil
}

// ListPendingFlagEntries returns entries whose flags differ from the last
// values confirmed pushed. This derives the pending set instead of keeping a
// separate queue, so flag sync is resumable after any interruption.
func (s *SQLiteStore) ListPendingFlagEntries() ([]*models.Entry, error) {
	rows, err := s.db.Query(`SELECT ` + entryColumns + ` FROM entries
		WHERE read != synced_read OR bookmarked != synced_bookmarked`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending entries: %w", err)
	}
	return entries, nil
}

// ConfirmEntryFlags records the flag values accepted by the remote. If the
// user edited a flag again after the push was captured, the row's live value
// differs from the confirmed one and the entry stays in the pending set.
func (s *SQLiteStore) ConfirmEntryFlags(id string, read, bookmarked bool) error {
	_, err := s.db.Exec(`UPDATE entries SET synced_read = ?, synced_bookmarked = ? WHERE id = ?`,
		read, bookmarked, id)
	if err != nil {
		return fmt.Errorf("confirm entry flags: %w", err)
	}
	return nil
}

// CountEntries returns the number of cached entries.
func (s *SQLiteStore) CountEntries() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n)
	return n, err
}

// ReplaceFeedLinks replaces all links owned by a feed.
func (s *SQLiteStore) ReplaceFeedLinks(feedID string, links []models.Link) error {
	return s.replaceLinks("feed_id", feedID, links)
}

// ReplaceEntryLinks replaces all links owned by an entry.
func (s *SQLiteStore) ReplaceEntryLinks(entryID string, links []models.Link) error {
	return s.replaceLinks("entry_id", entryID, links)
}

func (s *SQLiteStore) replaceLinks(ownerCol, ownerID string, links []models.Link) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin links transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM links WHERE `+ownerCol+` = ?`, ownerID); err != nil {
		return fmt.Errorf("clear links: %w", err)
	}
	for _, l := range links {
		if _, err := tx.Exec(`INSERT INTO links (feed_id, entry_id, rel, href) VALUES (?, ?, ?, ?)`,
			l.FeedID, l.EntryID, l.Rel, l.Href); err != nil {
			return fmt.Errorf("insert link: %w", err)
		}
	}
	return tx.Commit()
}

// ListFeedLinks returns the links owned by a feed.
func (s *SQLiteStore) ListFeedLinks(feedID string) ([]models.Link, error) {
	rows, err := s.db.Query(`SELECT feed_id, entry_id, rel, href FROM links WHERE feed_id = ?`, feedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []models.Link
	for rows.Next() {
		var l models.Link
		if err := rows.Scan(&l.FeedID, &l.EntryID, &l.Rel, &l.Href); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// EnsureEnclosure creates the enclosure row for an entry if missing.
func (s *SQLiteStore) EnsureEnclosure(entryID string) error {
	_, err := s.db.Exec(`INSERT INTO enclosures (entry_id) VALUES (?)
		ON CONFLICT(entry_id) DO NOTHING`, entryID)
	if err != nil {
		return fmt.Errorf("ensure enclosure: %w", err)
	}
	return nil
}

// GetEnclosure retrieves an enclosure by entry id.
func (s *SQLiteStore) GetEnclosure(entryID string) (*models.Enclosure, error) {
	enc := &models.Enclosure{}
	err := s.db.QueryRow(`SELECT entry_id, cache_uri, download_progress FROM enclosures
		WHERE entry_id = ?`, entryID).Scan(&enc.EntryID, &enc.CacheURI, &enc.DownloadProgress)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return enc, nil
}

// UpdateEnclosureProgress records download progress and cache location.
func (s *SQLiteStore) UpdateEnclosureProgress(entryID string, cacheURI *string, progress float64) error {
	_, err := s.db.Exec(`UPDATE enclosures SET cache_uri = ?, download_progress = ? WHERE entry_id = ?`,
		cacheURI, progress, entryID)
	return err
}

// GetConf returns the singleton configuration record, inserting the default
// row on first access.
func (s *SQLiteStore) GetConf() (*models.Conf, error) {
	conf := &models.Conf{}
	err := s.db.QueryRow(`
		SELECT initial_sync_completed, last_sync, sort_order, show_read_entries,
			sync_on_startup, show_preview_images, show_preview_text, crop_preview_images
		FROM conf WHERE id = 1`).Scan(
		&conf.InitialSyncCompleted, &conf.LastSync, &conf.SortOrder, &conf.ShowReadEntries,
		&conf.SyncOnStartup, &conf.ShowPreviewImages, &conf.ShowPreviewText, &conf.CropPreviewImages)
	if errors.Is(err, sql.ErrNoRows) {
		def := models.DefaultConf()
		if err := s.UpdateConf(def); err != nil {
			return nil, err
		}
		return def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conf: %w", err)
	}
	return conf, nil
}

// UpdateConf overwrites the singleton configuration record.
func (s *SQLiteStore) UpdateConf(conf *models.Conf) error {
	_, err := s.db.Exec(`
		INSERT INTO conf (id, initial_sync_completed, last_sync, sort_order, show_read_entries,
			sync_on_startup, show_preview_images, show_preview_text, crop_preview_images)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			initial_sync_completed = excluded.initial_sync_completed,
			last_sync = excluded.last_sync,
			sort_order = excluded.sort_order,
			show_read_entries = excluded.show_read_entries,
			sync_on_startup = excluded.sync_on_startup,
			show_preview_images = excluded.show_preview_images,
			show_preview_text = excluded.show_preview_text,
			crop_preview_images = excluded.crop_preview_images`,
		conf.InitialSyncCompleted, conf.LastSync, conf.SortOrder, conf.ShowReadEntries,
		conf.SyncOnStartup, conf.ShowPreviewImages, conf.ShowPreviewText, conf.CropPreviewImages)
	if err != nil {
		return fmt.Errorf("update conf: %w", err)
	}
	s.notify.Publish(TopicConf)
	return nil
}

// SetInitialSyncCompleted flips the initial-sync flag.
func (s *SQLiteStore) SetInitialSyncCompleted(done bool) error {
	if _, err := s.GetConf(); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE conf SET initial_sync_completed = ? WHERE id = 1`, done)
	if err != nil {
		return fmt.Errorf("set initial sync completed: %w", err)
	}
	s.notify.Publish(TopicConf)
	return nil
}

// SetLastSync advances the incremental sync watermark.
func (s *SQLiteStore) SetLastSync(ts int64) error {
	if _, err := s.GetConf(); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE conf SET last_sync = ? WHERE id = 1`, ts)
	if err != nil {
		return fmt.Errorf("set last sync: %w", err)
	}
	s.notify.Publish(TopicConf)
	return nil
}

// GetOverallStats retrieves cache-wide counters in a single query.
func (s *SQLiteStore) GetOverallStats() (*OverallStats, error) {
	var stats OverallStats
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM feeds) as total_feeds,
			(SELECT COUNT(*) FROM entries) as total_entries,
			(SELECT COUNT(*) FROM entries WHERE read = 0) as unread_count
	`).Scan(&stats.TotalFeeds, &stats.TotalEntries, &stats.UnreadCount)
	if err != nil {
		return nil, fmt.Errorf("query overall stats: %w", err)
	}
	return &stats, nil
}
