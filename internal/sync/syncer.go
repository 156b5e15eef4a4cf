package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/palmtask/palmtask/internal/feed"
	"github.com/palmtask/palmtask/internal/imageindex"
	"github.com/palmtask/palmtask/internal/reconcile"
	"github.com/palmtask/palmtask/internal/schema"
	"github.com/palmtask/palmtask/internal/store"
	"github.com/palmtask/palmtask/internal/tabular"
)

// Options tunes a Syncer.
type Options struct {
	// AvatarConcurrency bounds the avatar inline batch.
	AvatarConcurrency int

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{AvatarConcurrency: 4, Now: time.Now}
}

// syncer implements the Syncer interface.
type syncer struct {
	store  *store.Store
	source feed.Source
	assets feed.AssetFetcher
	opts   Options
	logger *log.Logger
}

// New creates a Syncer writing to st.
//
// A nil assets fetcher disables avatar inlining. If logger is nil, a
// default logger writing to stderr is used.
func New(st *store.Store, source feed.Source, assets feed.AssetFetcher, opts Options, logger *log.Logger) Syncer {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	if opts.AvatarConcurrency <= 0 {
		opts.AvatarConcurrency = DefaultOptions().AvatarConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &syncer{
		store:  st,
		source: source,
		assets: assets,
		opts:   opts,
		logger: logger,
	}
}

// batch holds the decoded output of one sync before it is written.
type batch struct {
	fetched map[feed.Feed]bool

	tasks       []schema.Task
	nonBuyers   []schema.NonBuyer
	skuMap      []schema.TaskSkuMap
	images      []schema.ProductImage
	consultants []schema.Consultant
}

// Synchronize implements Syncer.Synchronize.
func (s *syncer) Synchronize(ctx context.Context) (Outcome, error) {
	out := Outcome{
		StartedAt: s.opts.Now(),
		Records:   make(map[feed.Feed]int),
		Stats:     make(map[feed.Feed]schema.DecodeStats),
	}

	if err := s.source.Available(ctx); err != nil {
		return out, fmt.Errorf("%w: %w", ErrNetworkUnavailable, err)
	}

	bodies, skipped, err := s.fetchAll(ctx)
	if err != nil {
		return out, err
	}
	out.Skipped = skipped

	raw, err := s.readAll(ctx, bodies)
	if err != nil {
		return out, err
	}

	b := s.decode(raw, &out)

	out.AvatarsInlined, out.AvatarsFailed = s.inlineAvatars(ctx, b.consultants)

	if b.fetched[feed.NonBuyers] {
		for _, t := range reconcile.Reconcile(b.tasks, b.nonBuyers, b.skuMap) {
			if t.IsNonBuyer {
				out.NonBuyerTasks++
			}
		}
	}

	// Nothing has been written yet; a cancelled sync still changes nothing.
	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("sync cancelled before persisting: %w", err)
	}

	if err := s.persist(ctx, b, &out); err != nil {
		out.FinishedAt = s.opts.Now()
		return out, err
	}

	out.FinishedAt = s.opts.Now()
	if err := s.store.SetLastSync(ctx, out.FinishedAt); err != nil {
		return out, &PersistenceError{Collection: store.MetaLastSync, Err: err}
	}

	s.logger.Printf("Sync complete in %v: tasks=%d nonBuyers=%d skuMap=%d images=%d consultants=%d skipped=%v",
		out.Duration().Round(time.Millisecond),
		out.Records[feed.Tasks], out.Records[feed.NonBuyers], out.Records[feed.SkuMap],
		out.Records[feed.ProductImages], out.Records[feed.Consultants], out.Skipped)
	return out, nil
}

// fetchAll opens every feed concurrently. A secondary feed that answered
// with a StatusError is skipped; any other failure aborts the batch.
func (s *syncer) fetchAll(ctx context.Context) (map[feed.Feed]io.ReadCloser, []feed.Feed, error) {
	opened := make([]io.ReadCloser, len(feed.All))
	status := make([]*feed.StatusError, len(feed.All))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range feed.All {
		g.Go(func() error {
			body, err := s.source.Open(gctx, f)
			if err == nil {
				opened[i] = body
				return nil
			}
			var se *feed.StatusError
			if errors.As(err, &se) && !f.Primary() {
				status[i] = se
				return nil
			}
			return &UpstreamError{Feed: f, Err: err}
		})
	}
	if err := g.Wait(); err != nil {
		for _, body := range opened {
			if body != nil {
				_ = body.Close()
			}
		}
		return nil, nil, err
	}

	bodies := make(map[feed.Feed]io.ReadCloser, len(feed.All))
	var skipped []feed.Feed
	for i, f := range feed.All {
		if status[i] != nil {
			s.logger.Printf("WARNING: Skipping %s: %v", f, status[i])
			skipped = append(skipped, f)
			continue
		}
		bodies[f] = opened[i]
	}
	return bodies, skipped, nil
}

// readAll drains every body concurrently.
func (s *syncer) readAll(ctx context.Context, bodies map[feed.Feed]io.ReadCloser) (map[feed.Feed]string, error) {
	feeds := make([]feed.Feed, 0, len(bodies))
	for _, f := range feed.All {
		if _, ok := bodies[f]; ok {
			feeds = append(feeds, f)
		}
	}
	texts := make([]string, len(feeds))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		body := bodies[f]
		g.Go(func() error {
			defer body.Close()
			if err := gctx.Err(); err != nil {
				return &UpstreamError{Feed: f, Err: err}
			}
			data, err := io.ReadAll(body)
			if err != nil {
				return &UpstreamError{Feed: f, Err: fmt.Errorf("failed to read body: %w", err)}
			}
			texts[i] = string(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[feed.Feed]string, len(feeds))
	for i, f := range feeds {
		out[f] = texts[i]
	}
	return out, nil
}

// decode parses and decodes every fetched feed.
func (s *syncer) decode(raw map[feed.Feed]string, out *Outcome) *batch {
	b := &batch{fetched: make(map[feed.Feed]bool, len(raw))}
	for _, f := range feed.All {
		text, ok := raw[f]
		if !ok {
			continue
		}
		b.fetched[f] = true
		rows := tabular.Parse(text)

		var stats schema.DecodeStats
		switch f {
		case feed.Tasks:
			b.tasks, stats = schema.DecodeTasks(rows)
		case feed.NonBuyers:
			b.nonBuyers, stats = schema.DecodeNonBuyers(rows)
		case feed.SkuMap:
			b.skuMap, stats = schema.DecodeSkuMap(rows)
		case feed.ProductImages:
			b.images, stats = schema.DecodeProductImages(rows)
		case feed.Consultants:
			b.consultants, stats = schema.DecodeConsultants(rows)
		}
		out.Stats[f] = stats
		if stats.Dropped > 0 || stats.Defaulted > 0 {
			s.logger.Printf("Decoded %s: %s", f, stats)
		}
	}
	return b
}

// inlineAvatars replaces remote consultant avatars with data URLs in place.
// Failures are logged and leave the consultant without an inlined avatar.
func (s *syncer) inlineAvatars(ctx context.Context, consultants []schema.Consultant) (inlined, failed int) {
	if s.assets == nil {
		return 0, 0
	}
	var ok, bad atomic.Int32

	var g errgroup.Group
	g.SetLimit(s.opts.AvatarConcurrency)
	for i := range consultants {
		c := consultants[i]
		if !c.HasRemoteAvatar() {
			continue
		}
		g.Go(func() error {
			dataURL, err := s.assets.Fetch(ctx, c.AvatarURL)
			if err != nil {
				s.logger.Printf("WARNING: Failed to inline avatar for consultant %s: %v", c.ID, err)
				bad.Add(1)
				return nil
			}
			consultants[i] = c.WithAvatar(dataURL)
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(ok.Load()), int(bad.Load())
}

// persist replaces every fetched collection. Collections are independent:
// a failed write is recorded and the rest are still attempted. Records
// reports what the store holds afterwards, which is lower than the decoded
// count when rows share a key.
func (s *syncer) persist(ctx context.Context, b *batch, out *Outcome) error {
	writes := []struct {
		feed  feed.Feed
		table string
		write func() error
	}{
		{feed.Tasks, store.Tasks.Name(), func() error { return store.ReplaceAll(ctx, s.store, store.Tasks, b.tasks) }},
		{feed.NonBuyers, store.NonBuyers.Name(), func() error { return store.ReplaceAll(ctx, s.store, store.NonBuyers, b.nonBuyers) }},
		{feed.SkuMap, store.SkuMap.Name(), func() error { return store.ReplaceAll(ctx, s.store, store.SkuMap, b.skuMap) }},
		{feed.ProductImages, store.ProductImages.Name(), func() error { return store.ReplaceAll(ctx, s.store, store.ProductImages, b.images) }},
		{feed.Consultants, store.Consultants.Name(), func() error { return store.ReplaceAll(ctx, s.store, store.Consultants, b.consultants) }},
	}

	var errs []error
	for _, w := range writes {
		if !b.fetched[w.feed] {
			continue
		}
		err := w.write()
		if err == nil {
			out.Records[w.feed], err = s.store.Count(ctx, w.table)
		}
		if err != nil {
			s.logger.Printf("ERROR: Failed to persist %s: %v", w.feed, err)
			errs = append(errs, &PersistenceError{Collection: string(w.feed), Err: err})
		}
	}
	return errors.Join(errs...)
}

// LoadCached implements Syncer.LoadCached.
func (s *syncer) LoadCached(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.NonBuyers, err = store.ReadAll(ctx, s.store, store.NonBuyers); err != nil {
		return Snapshot{}, fmt.Errorf("failed to load non-buyers: %w", err)
	}
	if snap.SkuMap, err = store.ReadAll(ctx, s.store, store.SkuMap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to load sku map: %w", err)
	}
	if snap.Images, err = store.ReadAll(ctx, s.store, store.ProductImages); err != nil {
		return Snapshot{}, fmt.Errorf("failed to load product images: %w", err)
	}
	if snap.Consultants, err = store.ReadAll(ctx, s.store, store.Consultants); err != nil {
		return Snapshot{}, fmt.Errorf("failed to load consultants: %w", err)
	}
	tasks, err := store.ReadAll(ctx, s.store, store.Tasks)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load tasks: %w", err)
	}

	snap.Tasks = reconcile.Reconcile(tasks, snap.NonBuyers, snap.SkuMap)
	snap.Index = imageindex.Build(snap.Images)

	if last, ok, err := s.store.LastSync(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("failed to load last sync: %w", err)
	} else if ok {
		snap.LastSync = last
	}
	return snap, nil
}
