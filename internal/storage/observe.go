// ABOUTME: Observer registry delivering cache change notifications per topic
// ABOUTME: Subscribers get one immediate signal, then one per committed write; signals coalesce

package storage

import "sync"

// Topic identifies a group of tables whose committed writes are observable.
type Topic string

const (
	TopicFeeds    Topic = "feeds"
	TopicEntries  Topic = "entries"
	TopicConf     Topic = "conf"
	TopicProgress Topic = "progress"
)

// Notifier is an in-process observer registry. A subscriber receives one
// signal immediately on subscribe (so it can load the current value) and one
// signal after every committed write to the topic. Channels are buffered with
// capacity one and sends never block: rapid writes coalesce into a single
// pending signal, and the subscriber re-queries the store on each signal.
type Notifier struct {
	mu   sync.Mutex
	subs map[Topic]map[int]chan struct{}
	next int
}

// NewNotifier creates an empty registry.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[Topic]map[int]chan struct{})}
}

// Subscribe registers an observer for a topic. The returned cancel func must
// be called when the observer goes away.
func (n *Notifier) Subscribe(topic Topic) (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan struct{}, 1)
	ch <- struct{}{} // current value is immediately observable

	if n.subs[topic] == nil {
		n.subs[topic] = make(map[int]chan struct{})
	}
	id := n.next
	n.next++
	n.subs[topic][id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[topic][id]; ok {
			delete(n.subs[topic], id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish signals every observer of the topic. Never blocks.
func (n *Notifier) Publish(topic Topic) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[topic] {
		select {
		case ch <- struct{}{}:
		default: // a signal is already pending, coalesce
		}
	}
}
