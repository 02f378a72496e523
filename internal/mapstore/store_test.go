package mapstore

import (
	"context"
	"testing"

	"animap/internal/catalog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func intp(v int) *int { return &v }

func TestRecordAndLoadMapping(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	m := Mapping{
		NodeID:       "1001",
		Kind:         KindEpisode,
		Category:     catalog.CategorySeries,
		SequentialID: 5,
		URL:          "https://myanimelist.net/anime/5/x/episode/1",
		Season:       intp(1),
		Episode:      intp(1),
		RunID:        "run-a",
	}
	if err := store.RecordMapping(ctx, m); err != nil {
		t.Fatalf("RecordMapping returned error: %v", err)
	}

	cache, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	got, ok := cache["1001"]
	if !ok {
		t.Fatal("expected mapping in cache")
	}
	if got.SequentialID != 5 || got.Kind != KindEpisode || *got.Season != 1 {
		t.Fatalf("unexpected mapping: %+v", got)
	}
}

func TestFirstMappingWins(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := Mapping{NodeID: "7", Kind: KindSeries, Category: catalog.CategorySeries, SequentialID: 1, URL: "u1"}
	second := Mapping{NodeID: "7", Kind: KindSeries, Category: catalog.CategorySeries, SequentialID: 2, URL: "u2"}
	if err := store.RecordMapping(ctx, first); err != nil {
		t.Fatalf("RecordMapping returned error: %v", err)
	}
	if err := store.RecordMapping(ctx, second); err != nil {
		t.Fatalf("RecordMapping returned error: %v", err)
	}

	cache, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cache["7"].SequentialID != 1 {
		t.Fatalf("expected first write to win, got %+v", cache["7"])
	}
}

func TestMappingClearsUnmapped(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	u := Unmapped{NodeID: "9", Kind: KindSeason, Category: catalog.CategorySeries, SearchTerms: []string{"x"}}
	if err := store.RecordUnmapped(ctx, u); err != nil {
		t.Fatalf("RecordUnmapped returned error: %v", err)
	}
	m := Mapping{NodeID: "9", Kind: KindSeason, Category: catalog.CategorySeries, SequentialID: 4, URL: "u"}
	if err := store.RecordMapping(ctx, m); err != nil {
		t.Fatalf("RecordMapping returned error: %v", err)
	}

	records, err := store.UnmappedByKind(ctx, KindSeason)
	if err != nil {
		t.Fatalf("UnmappedByKind returned error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected unmapped record cleared, got %v", records)
	}
}

func TestUnmappedLatestAttemptWins(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := Unmapped{NodeID: "3", Kind: KindSeries, Category: catalog.CategorySeries, SearchTerms: []string{"old"}}
	second := Unmapped{NodeID: "3", Kind: KindSeries, Category: catalog.CategorySeries, SearchTerms: []string{"new"}, LastSequentialID: 42}
	if err := store.RecordUnmapped(ctx, first); err != nil {
		t.Fatalf("RecordUnmapped returned error: %v", err)
	}
	if err := store.RecordUnmapped(ctx, second); err != nil {
		t.Fatalf("RecordUnmapped returned error: %v", err)
	}

	records, err := store.UnmappedByKind(ctx, KindSeries)
	if err != nil {
		t.Fatalf("UnmappedByKind returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0].SearchTerms[0] != "new" || records[0].LastSequentialID != 42 {
		t.Fatalf("expected latest attempt, got %+v", records[0])
	}
}

func TestSummarize(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_ = store.RecordMapping(ctx, Mapping{NodeID: "a", Kind: KindSeries, Category: catalog.CategorySeries, SequentialID: 1, URL: "u"})
	_ = store.RecordMapping(ctx, Mapping{NodeID: "b", Kind: KindEpisode, Category: catalog.CategorySeries, SequentialID: 1, URL: "u"})
	_ = store.RecordUnmapped(ctx, Unmapped{NodeID: "c", Kind: KindEpisode, Category: catalog.CategorySeries})

	summary, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if summary.Mapped[KindSeries] != 1 || summary.Mapped[KindEpisode] != 1 || summary.Unmapped[KindEpisode] != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	ctx := context.Background()
	if err := store.RecordMapping(ctx, Mapping{NodeID: "x", Kind: KindSeries, Category: catalog.CategoryMovie, SequentialID: 8, URL: "u"}); err != nil {
		t.Fatalf("RecordMapping returned error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	cache, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cache["x"].SequentialID != 8 {
		t.Fatalf("expected persisted mapping, got %+v", cache["x"])
	}
}
