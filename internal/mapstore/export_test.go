package mapstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"animap/internal/catalog"
)

func TestExportArtifacts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_ = store.RecordMapping(ctx, Mapping{
		NodeID: "100", Kind: KindSeries, Category: catalog.CategorySeries,
		SequentialID: 1, URL: "https://myanimelist.net/anime/1",
	})
	_ = store.RecordMapping(ctx, Mapping{
		NodeID: "1001", Kind: KindEpisode, Category: catalog.CategorySeries,
		SequentialID: 1, URL: "https://myanimelist.net/anime/1/x/episode/3",
		Season: intp(1), Episode: intp(3),
	})
	_ = store.RecordUnmapped(ctx, Unmapped{
		NodeID: "555", Kind: KindSeason, Category: catalog.CategorySeries,
		Season: intp(2), SearchTerms: []string{"term"}, LastSequentialID: 9,
	})

	outDir := t.TempDir()
	if err := store.Export(ctx, outDir); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}

	var mapped []map[string]any
	readJSON(t, filepath.Join(outDir, "mapped-series.json"), &mapped)
	if len(mapped) != 2 {
		t.Fatalf("expected two mapped entries, got %d", len(mapped))
	}
	first := mapped[0]
	if first["thetvdb"] != float64(100) {
		t.Fatalf("expected numeric source id, got %#v", first["thetvdb"])
	}
	if first["thetvdb url"] != "https://www.thetvdb.com/dereferrer/series/100" {
		t.Fatalf("unexpected source url %v", first["thetvdb url"])
	}

	var seasons []map[string]any
	readJSON(t, filepath.Join(outDir, "unmapped-seasons.json"), &seasons)
	if len(seasons) != 1 {
		t.Fatalf("expected one unmapped season, got %d", len(seasons))
	}
	if seasons[0]["previous malid"] != float64(9) {
		t.Fatalf("expected previous malid, got %#v", seasons[0])
	}

	var episodes []map[string]any
	readJSON(t, filepath.Join(outDir, "unmapped-episodes.json"), &episodes)
	if len(episodes) != 0 {
		t.Fatalf("expected empty unmapped episodes, got %v", episodes)
	}
}

func TestImportLegacy(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	legacy := `[
	  {"thetvdb url": "x", "myanimelist url": "https://myanimelist.net/anime/30", "myanimelist": 30, "thetvdb": 123},
	  {"season": 1, "episode": 2, "thetvdb": "456", "myanimelist url": "https://myanimelist.net/anime/30/x/episode/2", "myanimelist": 30},
	  {"thetvdb": 789, "myanimelist url": ""}
	]`
	imported, err := store.ImportLegacy(ctx, []byte(legacy), catalog.CategorySeries, nil)
	if err != nil {
		t.Fatalf("ImportLegacy returned error: %v", err)
	}
	if imported != 2 {
		t.Fatalf("expected 2 imports, got %d", imported)
	}

	cache, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cache["123"].Kind != KindSeries || cache["123"].SequentialID != 30 {
		t.Fatalf("unexpected series import: %+v", cache["123"])
	}
	ep := cache["456"]
	if ep.Kind != KindEpisode || *ep.Episode != 2 || *ep.Season != 1 {
		t.Fatalf("unexpected episode import: %+v", ep)
	}
}

func TestImportDerivesTargetFromURL(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	legacy := `[{"thetvdb": 1, "myanimelist url": "https://myanimelist.net/anime/77/Title"}]`
	imported, err := store.ImportLegacy(ctx, []byte(legacy), catalog.CategoryMovie, nil)
	if err != nil {
		t.Fatalf("ImportLegacy returned error: %v", err)
	}
	if imported != 1 {
		t.Fatalf("expected 1 import, got %d", imported)
	}
	cache, _ := store.Load(ctx)
	if cache["1"].SequentialID != 77 {
		t.Fatalf("expected id parsed from url, got %+v", cache["1"])
	}
}

func readJSON(t *testing.T, path string, out any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}
