// Package sync keeps the local store in step with the published feeds.
//
// Overview
//
// The package has two entry points. Synchronize pulls all five feeds from a
// feed.Source, decodes them, inlines consultant avatars and replaces each
// collection in the store. LoadCached reads the store back and re-runs
// reconciliation and the image index build without touching the network.
//
// Pipeline
//
//	feed.Source ──Open×5──▶ bodies ──read×5──▶ tabular.Parse ──▶ schema.Decode*
//	                                                               │
//	                                             avatars inlined ◀─┘
//	                                                   │
//	                                     store.ReplaceAll per collection
//
// Each arrow is a batch of concurrent operations joined before the next
// stage starts. Nothing is written until every feed has been fetched, read
// and decoded, so a failed fetch leaves the store exactly as it was.
//
// Failure model
//
//   - The source is unreachable: ErrNetworkUnavailable, nothing changes.
//   - A feed cannot be fetched or read: *UpstreamError, nothing changes.
//   - The tasks feed answers with a non-2xx status: *UpstreamError.
//   - A secondary feed answers with a non-2xx status: the feed is skipped
//     and its collection keeps its previous contents (Outcome.Skipped).
//   - An avatar cannot be inlined: logged, the consultant keeps no avatar.
//   - A collection write fails: *PersistenceError for that collection.
//     The other collections are still written. The last-sync marker only
//     advances when every write succeeded.
//
// Callers must not run two Synchronize calls at once; the store is single
// writer. The daemon and CLI hold that guard.
//
// Usage
//
//	st, err := store.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	src := feed.NewHTTPSource(feed.DefaultConfig(), nil)
//	syncer := sync.New(st, src, feed.NewHTTPAssets(src.Client(), ""), sync.DefaultOptions(), nil)
//
//	outcome, err := syncer.Synchronize(ctx)
//	if errors.Is(err, sync.ErrNetworkUnavailable) {
//	    // stay on cached data
//	}
//
//	snap, err := syncer.LoadCached(ctx)
package sync
