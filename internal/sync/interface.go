package sync

import (
	"context"
	"time"

	"github.com/palmtask/palmtask/internal/feed"
	"github.com/palmtask/palmtask/internal/imageindex"
	"github.com/palmtask/palmtask/internal/reconcile"
	"github.com/palmtask/palmtask/internal/schema"
)

// Syncer moves feed data into the local store and reads it back.
type Syncer interface {
	// Synchronize fetches every feed and replaces the stored collections.
	//
	// On ErrNetworkUnavailable or an *UpstreamError nothing was written.
	// A *PersistenceError (possibly several, joined) means some
	// collections were written and others kept their previous contents;
	// the returned Outcome still describes what was fetched.
	Synchronize(ctx context.Context) (Outcome, error)

	// LoadCached reads every collection from the store, reconciles tasks
	// and builds the image index. It never touches the network and works
	// on a store that was never synced.
	LoadCached(ctx context.Context) (Snapshot, error)
}

// Outcome describes a completed Synchronize call.
type Outcome struct {
	StartedAt  time.Time
	FinishedAt time.Time

	// Records is the number of records written per feed.
	Records map[feed.Feed]int

	// Stats holds decoder counters per fetched feed.
	Stats map[feed.Feed]schema.DecodeStats

	// Skipped lists secondary feeds that answered without data. Their
	// collections were left untouched.
	Skipped []feed.Feed

	AvatarsInlined int
	AvatarsFailed  int

	// NonBuyerTasks counts the fetched tasks that reconcile against the
	// fetched non-buyer list.
	NonBuyerTasks int
}

// Duration returns how long the sync took.
func (o Outcome) Duration() time.Duration { return o.FinishedAt.Sub(o.StartedAt) }

// Snapshot is the queryable state loaded from the store.
type Snapshot struct {
	Tasks       []reconcile.Task
	NonBuyers   []schema.NonBuyer
	SkuMap      []schema.TaskSkuMap
	Images      []schema.ProductImage
	Consultants []schema.Consultant

	Index *imageindex.Index

	// LastSync is the time of the last successful sync; zero when the
	// store was never synced.
	LastSync time.Time
}

// Synced reports whether the store has ever completed a sync.
func (s Snapshot) Synced() bool { return !s.LastSync.IsZero() }
