package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/palmtask/palmtask/internal/feed"
	"github.com/palmtask/palmtask/internal/store"
)

const (
	tasksCSV = "VENCE,SETOR,PDV,NOME,CLUSTER,MIX,FALTANTE,DESCRICAO,HASH,OPERACAO,MOEDAS,CATEGORIA,ASSUNTO,SCORE\n" +
		"Hoje,305,\"123.45 \",Bar do Zé,Centro,3/10,7,\"Expor, com destaque\",h1,VENDA,150,BEER,Exposição,Sim\n" +
		"Amanhã,305,999,Mercado,Sul,,0,,,VENDA,20,SODA,Preço,Não\n"
	nonBuyersCSV   = "SETOR,PDV,FANTASIA,VISITA\n305,123.45,Bar do Zé,01/03\n"
	skuMapCSV      = "HASH,SKUS\nh1,\"Coffee, Sugar\"\n"
	imagesCSV      = "ID,NOME,URL\nSKU1,Coffee,https://img/coffee.png\n,Sugar Cristal,https://img/sugar.png\n"
	consultantsCSV = "ID,SETOR,SENHA,FOTO,NOME\n" +
		"c1,305,segredo,https://avatars/ana.png,Ana\n" +
		"c2,306,,SEM FOTO,Bruno\n" +
		"c3,307,,https://avatars/broken.png,Carla\n"
)

// fakeSource serves feeds from memory.
type fakeSource struct {
	bodies   map[feed.Feed]string
	status   map[feed.Feed]int
	errs     map[feed.Feed]error
	availErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		bodies: map[feed.Feed]string{
			feed.Tasks:         tasksCSV,
			feed.NonBuyers:     nonBuyersCSV,
			feed.SkuMap:        skuMapCSV,
			feed.ProductImages: imagesCSV,
			feed.Consultants:   consultantsCSV,
		},
		status: map[feed.Feed]int{},
		errs:   map[feed.Feed]error{},
	}
}

func (s *fakeSource) Available(ctx context.Context) error { return s.availErr }

func (s *fakeSource) Open(ctx context.Context, f feed.Feed) (io.ReadCloser, error) {
	if err := s.errs[f]; err != nil {
		return nil, err
	}
	if code := s.status[f]; code != 0 {
		return nil, &feed.StatusError{Feed: f, Code: code, Status: fmt.Sprintf("%d %s", code, http.StatusText(code))}
	}
	return io.NopCloser(strings.NewReader(s.bodies[f])), nil
}

// fakeAssets inlines every URL except the ones listed as broken.
type fakeAssets struct {
	broken map[string]bool
}

func (a fakeAssets) Fetch(ctx context.Context, url string) (string, error) {
	if a.broken[url] {
		return "", errors.New("connection reset")
	}
	return "data:image/png;base64," + strings.TrimPrefix(url, "https://avatars/"), nil
}

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func setupTestSyncer(t *testing.T, src feed.Source) (Syncer, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	assets := fakeAssets{broken: map[string]bool{"https://avatars/broken.png": true}}
	opts := Options{AvatarConcurrency: 2, Now: func() time.Time { return fixedNow }}
	logger := log.New(io.Discard, "[sync] ", 0)
	return New(st, src, assets, opts, logger), st
}

func TestSynchronize_Success(t *testing.T) {
	s, _ := setupTestSyncer(t, newFakeSource())
	ctx := context.Background()

	out, err := s.Synchronize(ctx)
	if err != nil {
		t.Fatalf("Synchronize() failed: %v", err)
	}

	wantRecords := map[feed.Feed]int{
		feed.Tasks: 2, feed.NonBuyers: 1, feed.SkuMap: 1, feed.ProductImages: 2, feed.Consultants: 3,
	}
	if diff := cmp.Diff(wantRecords, out.Records); diff != "" {
		t.Errorf("Records mismatch (-want +got):\n%s", diff)
	}
	if len(out.Skipped) != 0 {
		t.Errorf("Skipped = %v, want none", out.Skipped)
	}
	if out.AvatarsInlined != 1 || out.AvatarsFailed != 1 {
		t.Errorf("avatars inlined=%d failed=%d, want 1/1", out.AvatarsInlined, out.AvatarsFailed)
	}
	if out.NonBuyerTasks != 1 {
		t.Errorf("NonBuyerTasks = %d, want 1", out.NonBuyerTasks)
	}

	snap, err := s.LoadCached(ctx)
	if err != nil {
		t.Fatalf("LoadCached() failed: %v", err)
	}
	if !snap.LastSync.Equal(fixedNow) || !snap.Synced() {
		t.Errorf("LastSync = %v, want %v", snap.LastSync, fixedNow)
	}

	if len(snap.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(snap.Tasks))
	}
	first := snap.Tasks[0]
	if !first.IsNonBuyer {
		t.Error("task at pdv 123.45 should be flagged as non-buyer")
	}
	if diff := cmp.Diff([]string{"Coffee", "Sugar"}, first.AssociatedSkus); diff != "" {
		t.Errorf("AssociatedSkus mismatch (-want +got):\n%s", diff)
	}
	if first.BoughtCount != 3 || first.MixTotal != 10 || first.Description != "Expor, com destaque" {
		t.Errorf("unexpected decoded task: %+v", first.Task)
	}
	second := snap.Tasks[1]
	if second.IsNonBuyer || len(second.AssociatedSkus) != 0 || second.ID != "1" {
		t.Errorf("unexpected second task: %+v", second)
	}

	if url, ok := snap.Index.Resolve("sugar"); !ok || url != "https://img/sugar.png" {
		t.Errorf("Resolve(sugar) = %q, %v", url, ok)
	}

	avatars := map[string]string{}
	for _, c := range snap.Consultants {
		avatars[c.ID] = c.AvatarBase64
	}
	want := map[string]string{"c1": "data:image/png;base64,ana.png", "c2": "", "c3": ""}
	if diff := cmp.Diff(want, avatars); diff != "" {
		t.Errorf("avatars mismatch (-want +got):\n%s", diff)
	}
}

func TestSynchronize_Idempotent(t *testing.T) {
	s, _ := setupTestSyncer(t, newFakeSource())
	ctx := context.Background()

	if _, err := s.Synchronize(ctx); err != nil {
		t.Fatalf("first Synchronize() failed: %v", err)
	}
	before, _ := s.LoadCached(ctx)
	if _, err := s.Synchronize(ctx); err != nil {
		t.Fatalf("second Synchronize() failed: %v", err)
	}
	after, _ := s.LoadCached(ctx)

	if diff := cmp.Diff(before.Tasks, after.Tasks); diff != "" {
		t.Errorf("re-sync changed tasks (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(before.Consultants, after.Consultants); diff != "" {
		t.Errorf("re-sync changed consultants (-before +after):\n%s", diff)
	}
}

func TestSynchronize_RecordsCountStoredRows(t *testing.T) {
	src := newFakeSource()
	src.bodies[feed.Tasks] = "VENCE,SETOR,PDV,NOME,CLUSTER,MIX,FALTANTE,DESCRICAO,HASH,OPERACAO,MOEDAS,CATEGORIA,ASSUNTO,SCORE\n" +
		"Hoje,305,1,A,C,,0,,h1,VENDA,10,BEER,S,Não\n" +
		"Hoje,305,2,B,C,,0,,h1,VENDA,20,BEER,S,Não\n"
	src.bodies[feed.SkuMap] = "HASH,SKUS\nh1,Old\nh1,New\n"
	s, _ := setupTestSyncer(t, src)

	out, err := s.Synchronize(context.Background())
	if err != nil {
		t.Fatalf("Synchronize() failed: %v", err)
	}
	if out.Stats[feed.Tasks].Decoded != 2 {
		t.Errorf("Stats[tasks].Decoded = %d, want 2", out.Stats[feed.Tasks].Decoded)
	}
	if out.Records[feed.Tasks] != 1 || out.Records[feed.SkuMap] != 1 {
		t.Errorf("Records tasks=%d skuMap=%d, want 1/1 after duplicate keys collapse",
			out.Records[feed.Tasks], out.Records[feed.SkuMap])
	}
}

func TestSynchronize_NetworkUnavailable(t *testing.T) {
	src := newFakeSource()
	src.availErr = errors.New("dial tcp: no route to host")
	s, st := setupTestSyncer(t, src)
	ctx := context.Background()

	_, err := s.Synchronize(ctx)
	if !errors.Is(err, ErrNetworkUnavailable) {
		t.Fatalf("expected ErrNetworkUnavailable, got %v", err)
	}
	if _, ok, _ := st.LastSync(ctx); ok {
		t.Error("last sync marker advanced on failure")
	}
}

// snapshotsEqual compares every collection of two snapshots.
func snapshotsEqual(t *testing.T, want, got Snapshot) {
	t.Helper()
	if diff := cmp.Diff(want.Tasks, got.Tasks); diff != "" {
		t.Errorf("tasks changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.NonBuyers, got.NonBuyers); diff != "" {
		t.Errorf("non-buyers changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.SkuMap, got.SkuMap); diff != "" {
		t.Errorf("sku map changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Images, got.Images); diff != "" {
		t.Errorf("images changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Consultants, got.Consultants); diff != "" {
		t.Errorf("consultants changed (-want +got):\n%s", diff)
	}
	if !want.LastSync.Equal(got.LastSync) {
		t.Errorf("LastSync changed: %v -> %v", want.LastSync, got.LastSync)
	}
}

func TestSynchronize_PrimaryFeedFailureLeavesStateUntouched(t *testing.T) {
	tests := []struct {
		name string
		fail func(*fakeSource)
	}{
		{name: "tasks status", fail: func(s *fakeSource) { s.status[feed.Tasks] = http.StatusInternalServerError }},
		{name: "tasks transport", fail: func(s *fakeSource) { s.errs[feed.Tasks] = errors.New("connection refused") }},
		{name: "secondary transport", fail: func(s *fakeSource) { s.errs[feed.SkuMap] = errors.New("tls handshake timeout") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource()
			s, _ := setupTestSyncer(t, src)
			ctx := context.Background()

			if _, err := s.Synchronize(ctx); err != nil {
				t.Fatalf("seed Synchronize() failed: %v", err)
			}
			before, err := s.LoadCached(ctx)
			if err != nil {
				t.Fatalf("LoadCached() failed: %v", err)
			}

			// A new upstream version that must not land.
			src.bodies[feed.NonBuyers] = "SETOR,PDV,FANTASIA,VISITA\n"
			src.bodies[feed.Consultants] = "ID,SETOR,SENHA,FOTO,NOME\n"
			tt.fail(src)

			_, err = s.Synchronize(ctx)
			if !errors.Is(err, ErrUpstream) {
				t.Fatalf("expected ErrUpstream, got %v", err)
			}
			var ue *UpstreamError
			if !errors.As(err, &ue) {
				t.Fatalf("expected *UpstreamError, got %T", err)
			}

			after, err := s.LoadCached(ctx)
			if err != nil {
				t.Fatalf("LoadCached() failed: %v", err)
			}
			snapshotsEqual(t, before, after)
		})
	}
}

func TestSynchronize_SecondaryStatusSkipsFeed(t *testing.T) {
	src := newFakeSource()
	s, _ := setupTestSyncer(t, src)
	ctx := context.Background()

	if _, err := s.Synchronize(ctx); err != nil {
		t.Fatalf("seed Synchronize() failed: %v", err)
	}

	src.status[feed.ProductImages] = http.StatusNotFound
	src.bodies[feed.Tasks] = strings.SplitAfter(tasksCSV, "\n")[0] + "Hoje,305,1,Novo,C,,0,,h9,VENDA,5,X,Y,Não\n"

	out, err := s.Synchronize(ctx)
	if err != nil {
		t.Fatalf("Synchronize() failed: %v", err)
	}
	if diff := cmp.Diff([]feed.Feed{feed.ProductImages}, out.Skipped); diff != "" {
		t.Errorf("Skipped mismatch (-want +got):\n%s", diff)
	}
	if _, ok := out.Records[feed.ProductImages]; ok {
		t.Error("skipped feed should report no records")
	}

	snap, err := s.LoadCached(ctx)
	if err != nil {
		t.Fatalf("LoadCached() failed: %v", err)
	}
	if len(snap.Images) != 2 {
		t.Errorf("skipped collection should keep its 2 images, got %d", len(snap.Images))
	}
	if len(snap.Tasks) != 1 || snap.Tasks[0].ID != "h9" {
		t.Errorf("tasks should be replaced, got %+v", snap.Tasks)
	}
}

func TestSynchronize_PersistenceErrorIsolated(t *testing.T) {
	s, st := setupTestSyncer(t, newFakeSource())
	ctx := context.Background()

	_, err := st.RawDB().Exec(`CREATE TRIGGER reject_consultants BEFORE INSERT ON consultants
		BEGIN SELECT RAISE(ABORT, 'disk full'); END;`)
	if err != nil {
		t.Fatalf("failed to create trigger: %v", err)
	}

	out, err := s.Synchronize(ctx)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	var pe *PersistenceError
	if !errors.As(err, &pe) || pe.Collection != string(feed.Consultants) {
		t.Fatalf("expected consultants PersistenceError, got %v", err)
	}
	if out.Records[feed.Tasks] != 2 {
		t.Errorf("tasks should still be written, Records=%v", out.Records)
	}

	snap, err := s.LoadCached(ctx)
	if err != nil {
		t.Fatalf("LoadCached() failed: %v", err)
	}
	if len(snap.Tasks) != 2 || len(snap.Consultants) != 0 {
		t.Errorf("tasks=%d consultants=%d, want 2/0", len(snap.Tasks), len(snap.Consultants))
	}
	if snap.Synced() {
		t.Error("last sync marker advanced despite a failed collection")
	}
}

func TestSynchronize_NilAssetsSkipsInlining(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	defer st.Close()

	s := New(st, newFakeSource(), nil, DefaultOptions(), log.New(io.Discard, "", 0))
	out, err := s.Synchronize(context.Background())
	if err != nil {
		t.Fatalf("Synchronize() failed: %v", err)
	}
	if out.AvatarsInlined != 0 || out.AvatarsFailed != 0 {
		t.Errorf("expected no avatar work, got %d/%d", out.AvatarsInlined, out.AvatarsFailed)
	}
}

func TestSynchronize_DirSource(t *testing.T) {
	dir := t.TempDir()
	src := feed.NewDirSource(dir)
	s, _ := setupTestSyncer(t, src)
	ctx := context.Background()

	// Missing tasks export is an upstream failure.
	_, err := s.Synchronize(ctx)
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Feed != feed.Tasks {
		t.Fatalf("expected tasks UpstreamError, got %v", err)
	}
	var se *feed.StatusError
	if !errors.As(err, &se) || !errors.Is(err, ErrUpstream) {
		t.Errorf("error should wrap the status error: %v", err)
	}

	writeFile(t, filepath.Join(dir, "tasks.csv"), tasksCSV)
	out, err := s.Synchronize(ctx)
	if err != nil {
		t.Fatalf("Synchronize() failed: %v", err)
	}
	if len(out.Skipped) != 4 {
		t.Errorf("expected 4 skipped feeds, got %v", out.Skipped)
	}
	if out.Records[feed.Tasks] != 2 {
		t.Errorf("Records = %v", out.Records)
	}
}

func TestLoadCached_FreshStore(t *testing.T) {
	s, _ := setupTestSyncer(t, newFakeSource())

	snap, err := s.LoadCached(context.Background())
	if err != nil {
		t.Fatalf("LoadCached() failed: %v", err)
	}
	if snap.Synced() {
		t.Error("fresh store should not report a sync")
	}
	if snap.Tasks == nil || len(snap.Tasks) != 0 || len(snap.Consultants) != 0 {
		t.Errorf("expected empty collections, got %+v", snap)
	}
	if snap.Index.Len() != 0 {
		t.Errorf("expected empty index")
	}
}

func TestErrorTypes(t *testing.T) {
	inner := fs.ErrNotExist
	ue := &UpstreamError{Feed: feed.Tasks, Err: inner}
	if !errors.Is(ue, ErrUpstream) || !errors.Is(ue, fs.ErrNotExist) || errors.Is(ue, ErrPersistence) {
		t.Errorf("UpstreamError matching is wrong: %v", ue)
	}
	pe := &PersistenceError{Collection: "tasks", Err: inner}
	if !errors.Is(pe, ErrPersistence) || errors.Is(pe, ErrUpstream) {
		t.Errorf("PersistenceError matching is wrong: %v", pe)
	}
	if !strings.Contains(ue.Error(), "tasks") || !strings.Contains(pe.Error(), "tasks") {
		t.Errorf("errors should name the feed: %q / %q", ue, pe)
	}
}
