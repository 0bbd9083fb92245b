// ABOUTME: Retry job driver invoked by an external scheduler
// ABOUTME: Classifies failures into Retry (transient) and Failure (permanent); initial sync always retries

package job

import (
	"context"

	"github.com/newsling/newsling/internal/remote"
	"github.com/newsling/newsling/internal/storage"
	"github.com/sirupsen/logrus"
)

// Result maps to the scheduler's vocabulary.
type Result int

const (
	// Success means the sync completed; the scheduler may wait the normal interval.
	Success Result = iota
	// Retry asks the scheduler to re-invoke with backoff.
	Retry
	// Failure is permanent; the scheduler must stop retrying and surface it.
	Failure
)

// String returns the scheduler-facing name of the result.
func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Retry:
		return "retry"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Syncer is the slice of the sync engine the driver invokes.
type Syncer interface {
	PerformInitialSync(ctx context.Context) error
	Sync(ctx context.Context) error
}

// Driver is the idempotent re-entry point for background sync. It keeps no
// in-memory state between invocations: all progress is the cache's durable
// state, so the scheduler may kill and restart it at any point.
type Driver struct {
	store  storage.Store
	engine Syncer
	log    *logrus.Entry
}

// NewDriver creates a Driver over the given cache and engine.
func NewDriver(store storage.Store, engine Syncer) *Driver {
	return &Driver{
		store:  store,
		engine: engine,
		log:    logrus.WithField("component", "job"),
	}
}

// Run performs one scheduled sync attempt.
//
// While initial sync has not completed, any failure yields Retry — a first
// sync must eventually complete and is always worth retrying. Once
// initialized, transient failures yield Retry and permanent ones
// (authentication) yield Failure so the scheduler stops and the user is told.
func (d *Driver) Run(ctx context.Context) Result {
	conf, err := d.store.GetConf()
	if err != nil {
		d.log.WithError(err).Error("cannot read conf")
		return Failure
	}

	if !conf.InitialSyncCompleted {
		if err := d.engine.PerformInitialSync(ctx); err != nil {
			d.log.WithError(err).Warn("initial sync incomplete, will retry")
			return Retry
		}
		return Success
	}

	if err := d.engine.Sync(ctx); err != nil {
		switch {
		case remote.IsAuth(err):
			d.log.WithError(err).Error("sync failed permanently")
			return Failure
		case remote.IsCache(err):
			d.log.WithError(err).Error("local cache failure")
			return Failure
		default:
			d.log.WithError(err).Warn("sync failed, will retry")
			return Retry
		}
	}
	return Success
}
