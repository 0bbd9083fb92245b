// ABOUTME: Bulk OPML import/export engine with bounded fan-out per batch
// ABOUTME: One bad feed never blocks the rest; results fan in over a channel before aggregation

package importer

import (
	"context"
	"sort"
	"sync"

	"github.com/newsling/newsling/internal/models"
	"github.com/newsling/newsling/internal/opml"
	"github.com/newsling/newsling/internal/storage"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// BatchSize bounds how many outlines are processed concurrently. Batches run
// sequentially; all items of one batch are fetched/added in parallel and
// joined before the next batch starts.
const BatchSize = 10

// FeedAdder is the slice of the sync engine the importer needs.
type FeedAdder interface {
	AddFeed(ctx context.Context, url string) (*models.Feed, error)
}

// ImportError records one failed outline.
type ImportError struct {
	URL    string
	Reason string
}

// Report aggregates the outcome of one import.
type Report struct {
	Added   int
	Updated int
	Failed  int
	Errors  []ImportError
}

// Progress is the live (imported, total) pair published after every completed
// item. Imported is monotone; Total is fixed after the first report.
type Progress struct {
	Imported int
	Total    int
}

// Engine performs bulk import from and export to the interchange format.
type Engine struct {
	store storage.Store
	adder FeedAdder
	log   *logrus.Entry

	mu       sync.Mutex
	progress Progress
	notify   *storage.Notifier
}

// New creates an import/export engine.
func New(store storage.Store, adder FeedAdder) *Engine {
	return &Engine{
		store:  store,
		adder:  adder,
		log:    logrus.WithField("component", "import"),
		notify: storage.NewNotifier(),
	}
}

// Progress returns the current (imported, total) snapshot.
func (e *Engine) Progress() Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

// SubscribeProgress registers an observer notified after every completed item.
func (e *Engine) SubscribeProgress() (<-chan struct{}, func()) {
	return e.notify.Subscribe(storage.TopicProgress)
}

func (e *Engine) setProgress(p Progress) {
	e.mu.Lock()
	e.progress = p
	e.mu.Unlock()
	e.notify.Publish(storage.TopicProgress)
}

// itemResult is one outline's outcome, fanned in over a channel so the
// aggregate counters never need concurrent increments.
type itemResult struct {
	url     string
	added   bool
	updated bool
	err     error
}

// Import processes the document's outlines in sequential batches of
// BatchSize, each batch fanned out concurrently. A feed already cached under
// the same canonical URL gets a non-destructive preference merge and counts
// as updated; a failed add is recorded with its URL and reason and the import
// continues.
func (e *Engine) Import(ctx context.Context, doc *opml.Document) (*Report, error) {
	// Duplicate URLs inside one batch would race each other through AddFeed;
	// only the first occurrence of each URL is processed.
	seen := make(map[string]bool, len(doc.Outlines))
	outlines := make([]opml.Outline, 0, len(doc.Outlines))
	for _, o := range doc.Outlines {
		if o.XMLURL == "" || seen[o.XMLURL] {
			continue
		}
		seen[o.XMLURL] = true
		outlines = append(outlines, o)
	}
	total := len(outlines)
	e.setProgress(Progress{Imported: 0, Total: total})

	report := &Report{}
	done := 0

	for start := 0; start < total; start += BatchSize {
		end := start + BatchSize
		if end > total {
			end = total
		}
		batch := outlines[start:end]

		results := make(chan itemResult, len(batch))
		var g errgroup.Group
		for _, outline := range batch {
			outline := outline
			g.Go(func() error {
				results <- e.importOne(ctx, outline)
				return nil
			})
		}

		// All batch tasks share the batch's lifetime: drain exactly one
		// result per task, then join before starting the next batch.
		for range batch {
			r := <-results
			done++
			switch {
			case r.err != nil:
				report.Failed++
				report.Errors = append(report.Errors, ImportError{URL: r.url, Reason: r.err.Error()})
				e.log.WithField("url", r.url).WithError(r.err).Warn("outline import failed")
			case r.updated:
				report.Updated++
			case r.added:
				report.Added++
			}
			e.setProgress(Progress{Imported: done, Total: total})
		}
		if err := g.Wait(); err != nil {
			return report, err
		}
	}

	sort.Slice(report.Errors, func(i, j int) bool { return report.Errors[i].URL < report.Errors[j].URL })
	return report, nil
}

// importOne handles a single outline: merge preferences into an existing
// feed, or add a new subscription through the active transport.
func (e *Engine) importOne(ctx context.Context, outline opml.Outline) itemResult {
	url := outline.XMLURL

	if existing, err := e.store.GetFeedBySelfLink(url); err == nil {
		e.applyPreferences(existing, outline)
		if err := e.store.UpdateFeedPreferences(existing); err != nil {
			return itemResult{url: url, err: err}
		}
		return itemResult{url: url, updated: true}
	}

	feed, err := e.adder.AddFeed(ctx, url)
	if err != nil {
		return itemResult{url: url, err: err}
	}

	e.applyPreferences(feed, outline)
	if err := e.store.UpdateFeedPreferences(feed); err != nil {
		return itemResult{url: url, err: err}
	}
	return itemResult{url: url, added: true}
}

// applyPreferences copies the import-controlled attributes onto the feed.
func (e *Engine) applyPreferences(feed *models.Feed, outline opml.Outline) {
	feed.OpenInBrowser = outline.OpenInBrowser
	if outline.BlockedWords != "" {
		words := outline.BlockedWords
		feed.BlockedWords = &words
	}
	if outline.ShowPreviewImages != nil {
		feed.ShowPreviewImages = outline.ShowPreviewImages
	}
}

// Export serializes all cached feeds with their links and preference
// attributes into an interchange document. Read-only: no cache mutation.
func (e *Engine) Export() (*opml.Document, error) {
	feeds, err := e.store.ListFeeds()
	if err != nil {
		return nil, err
	}

	doc := opml.NewDocument("newsling subscriptions")
	for _, feed := range feeds {
		outline := opml.Outline{
			XMLURL:            feed.SelfLink,
			OpenInBrowser:     feed.OpenInBrowser,
			ShowPreviewImages: feed.ShowPreviewImages,
		}
		if feed.Title != nil {
			outline.Text = *feed.Title
			outline.Title = *feed.Title
		}
		if feed.BlockedWords != nil {
			outline.BlockedWords = *feed.BlockedWords
		}

		links, err := e.store.ListFeedLinks(feed.ID)
		if err != nil {
			return nil, err
		}
		for _, link := range links {
			if link.Rel == models.RelAlternate {
				outline.HTMLURL = link.Href
			}
		}
		if outline.HTMLURL == "" && feed.AlternateLink != nil {
			outline.HTMLURL = *feed.AlternateLink
		}

		doc.AddOutline(outline)
	}
	return doc, nil
}
