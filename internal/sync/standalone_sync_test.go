// ABOUTME: Tests for the sync engine running over the standalone transport end to end
// ABOUTME: Covers multi-page initial sync against a live feed server with commits between pages

package sync

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsling/newsling/internal/models"
	"github.com/newsling/newsling/internal/remote"
	"github.com/newsling/newsling/internal/storage"
)

func feedServer(t *testing.T, itemCount int) *httptest.Server {
	t.Helper()

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Big Feed</title><link>https://example.com</link>`)
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < itemCount; i++ {
		fmt.Fprintf(&b,
			`<item><guid>item-%04d</guid><title>Item %d</title><link>https://example.com/%d</link><pubDate>%s</pubDate></item>`,
			i, i, i, base.Add(time.Duration(i)*time.Minute).Format(time.RFC1123))
	}
	b.WriteString(`</channel></rss>`)
	body := b.String()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

// A feed larger than one page must arrive whole: the engine commits each page
// to the cache before requesting the next, and the transport must keep
// serving the uncached remainder rather than re-applying the offset to it.
func TestInitialSyncStandaloneMultiPage(t *testing.T) {
	const itemCount = DefaultPageSize + 50

	server := feedServer(t, itemCount)

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	feed := models.NewFeed(server.URL)
	require.NoError(t, store.UpsertFeed(feed))

	engine := New(store, remote.NewStandalone(store))
	require.NoError(t, engine.PerformInitialSync(context.Background()))

	n, err := store.CountEntries()
	require.NoError(t, err)
	assert.Equal(t, itemCount, n, "every item past the first page must be cached")

	conf, err := store.GetConf()
	require.NoError(t, err)
	assert.True(t, conf.InitialSyncCompleted)

	// Nothing new: the next sync leaves the cache unchanged.
	require.NoError(t, engine.Sync(context.Background()))
	n, _ = store.CountEntries()
	assert.Equal(t, itemCount, n)
}

// An interruption after a page was fetched but before the cache holds all of
// it must not leave a stored validator behind, or the resumed run would get a
// 304 for content it never committed.
func TestInitialSyncStandaloneResumeAfterPartialPage(t *testing.T) {
	server := feedServer(t, 3)

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	feed := models.NewFeed(server.URL)
	require.NoError(t, store.UpsertFeed(feed))

	api := remote.NewStandalone(store)

	// First run stops after the fetch, before any entry is committed.
	page, err := api.ListEntries(context.Background(), 0, "", 0, DefaultPageSize)
	require.NoError(t, err)
	require.Len(t, page, 3)

	got, err := store.GetFeed(feed.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ETag, "validator must not be stored before the entries are")

	// The resumed run sees the full feed again and completes.
	engine := New(store, api)
	require.NoError(t, engine.PerformInitialSync(context.Background()))

	n, err := store.CountEntries()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
