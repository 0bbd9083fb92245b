// ABOUTME: Progress tracking for initial sync observable by view-state builders
// ABOUTME: Snapshots are monotone in Imported; Total stays 0 until the remote count is known

package sync

import (
	"sync"

	"github.com/newsling/newsling/internal/storage"
)

// Progress is a point-in-time view of a long-running sync. Imported never
// decreases within one run; Total is 0 while unknown.
type Progress struct {
	Imported int
	Total    int
}

// progressTracker publishes progress snapshots to subscribers.
type progressTracker struct {
	mu      sync.Mutex
	current Progress
	notify  *storage.Notifier
}

func newProgressTracker() *progressTracker {
	return &progressTracker{notify: storage.NewNotifier()}
}

func (p *progressTracker) set(progress Progress) {
	p.mu.Lock()
	p.current = progress
	p.mu.Unlock()
	p.notify.Publish(storage.TopicProgress)
}

func (p *progressTracker) add(n int) {
	p.mu.Lock()
	p.current.Imported += n
	p.mu.Unlock()
	p.notify.Publish(storage.TopicProgress)
}

func (p *progressTracker) snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *progressTracker) subscribe() (<-chan struct{}, func()) {
	return p.notify.Subscribe(storage.TopicProgress)
}
