// ABOUTME: Entries-view lifecycle state machine consumed by UI observers
// ABOUTME: FailedToSync transitions back to syncing only through an explicit retry intent

package sync

import "sync"

// Phase enumerates the entries-view lifecycle states.
type Phase int

const (
	// PhaseLoading is the state before the cache has been consulted.
	PhaseLoading Phase = iota
	// PhasePerformingInitialSync shows first-run sync progress.
	PhasePerformingInitialSync
	// PhaseFailedToSync exposes the failure cause and waits for a retry intent.
	PhaseFailedToSync
	// PhaseShowingEntries is the steady state; background sync may still run.
	PhaseShowingEntries
)

// ViewState is the externally observable entries-view state.
type ViewState struct {
	Phase                  Phase
	Progress               Progress // meaningful in PhasePerformingInitialSync
	Cause                  error    // meaningful in PhaseFailedToSync
	ShowBackgroundProgress bool     // meaningful in PhaseShowingEntries
}

// StateMachine tracks the entries-view lifecycle. Transitions are explicit;
// in particular a failed initial sync never restarts on its own — only a
// Retry call (user intent) moves it back to syncing, while the background
// job driver may race safely because initial sync is idempotent.
type StateMachine struct {
	mu    sync.Mutex
	state ViewState
}

// NewStateMachine starts in PhaseLoading.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: ViewState{Phase: PhaseLoading}}
}

// State returns the current view state.
func (m *StateMachine) State() ViewState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Loaded resolves PhaseLoading once the conf record has been read.
func (m *StateMachine) Loaded(initialSyncCompleted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Phase != PhaseLoading {
		return
	}
	if initialSyncCompleted {
		m.state = ViewState{Phase: PhaseShowingEntries}
	} else {
		m.state = ViewState{Phase: PhasePerformingInitialSync}
	}
}

// Progressed updates initial-sync progress or flags background activity.
func (m *StateMachine) Progressed(p Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state.Phase {
	case PhasePerformingInitialSync:
		m.state.Progress = p
	case PhaseShowingEntries:
		m.state.ShowBackgroundProgress = true
	}
}

// Failed records an initial sync failure with its cause.
func (m *StateMachine) Failed(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Phase != PhasePerformingInitialSync {
		return
	}
	m.state = ViewState{Phase: PhaseFailedToSync, Cause: cause}
}

// Completed moves to showing entries after a successful sync.
func (m *StateMachine) Completed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = ViewState{Phase: PhaseShowingEntries}
}

// Retry is the explicit user intent to re-attempt a failed initial sync.
// It is the only transition out of PhaseFailedToSync.
func (m *StateMachine) Retry() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Phase != PhaseFailedToSync {
		return false
	}
	m.state = ViewState{Phase: PhasePerformingInitialSync}
	return true
}
