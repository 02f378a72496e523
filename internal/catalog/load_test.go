package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleSeries = `{
  "Titles": {"eng": "Example Show", "jpn": "例"},
  "Aliases": ["Example", "The Example Show"],
  "Seasons": {
    "0": {
      "ID": "900",
      "Titles": {"eng": "Specials"},
      "# Episodes": 1,
      "Episodes": {
        "1": {"ID": "9001", "Titles": {"eng": "Example Movie"}, "TYPE": "Movies"}
      }
    },
    "1": {
      "ID": "100",
      "Titles": {"eng": "Season 1"},
      "# Episodes": 2,
      "Episodes": {
        "1": {"ID": "1001", "Titles": {"eng": "First"}},
        "2": {"ID": "1002", "Titles": {"eng": "Second"}}
      }
    }
  }
}`

func writeSeries(t *testing.T, dir, category, id, content string) {
	t.Helper()
	catDir := filepath.Join(dir, category)
	if err := os.MkdirAll(catDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(catDir, id+".json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoadTree(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "series", "12345", sampleSeries)

	tree, err := Load(dir, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	series := tree.Series[CategorySeries]
	if len(series) != 1 {
		t.Fatalf("expected one series, got %d", len(series))
	}
	s := series[0]
	if s.ID != "12345" || s.Category != CategorySeries {
		t.Fatalf("unexpected series identity: %+v", s)
	}
	if got := s.SeasonNumbers(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("unexpected season numbers %v", got)
	}
	season := s.Season(1)
	if season == nil || season.EpisodeCount != 2 {
		t.Fatalf("unexpected season 1: %+v", season)
	}
	if ep := season.Episode(2); ep == nil || ep.ID != "1002" {
		t.Fatalf("unexpected episode 2: %+v", ep)
	}
	if ep := s.Season(0).Episode(1); ep.SearchType() != "movie" {
		t.Fatalf("expected movie search type for special, got %q", ep.SearchType())
	}
}

func TestLoadSkipsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "series", "1", sampleSeries)
	writeSeries(t, dir, "series", "2", `{"Titles": {"eng"`)

	tree, err := Load(dir, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := len(tree.Series[CategorySeries]); got != 1 {
		t.Fatalf("expected broken file skipped, got %d series", got)
	}
}

func TestLoadMissingCategoryDir(t *testing.T) {
	tree, err := Load(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(tree.All()) != 0 {
		t.Fatalf("expected empty tree")
	}
}

func TestSearchTitlesOrder(t *testing.T) {
	s := &Series{
		Titles:  Titles{Eng: "Primary", Jpn: "Native"},
		Aliases: []string{"Alias One"},
	}
	got := s.SearchTitles()
	want := []string{"Primary", "Native", "Alias One"}
	if len(got) != len(want) {
		t.Fatalf("unexpected titles %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected titles %v", got)
		}
	}
}

func TestCombinedTitles(t *testing.T) {
	got := CombinedTitles(Titles{Eng: "Second Act"}, Titles{Eng: "Show"})
	if len(got) != 1 || got[0] != "Show Second Act" {
		t.Fatalf("expected series prefix, got %v", got)
	}
	got = CombinedTitles(Titles{Eng: "Show: Second Act"}, Titles{Eng: "Show"})
	if len(got) != 1 || got[0] != "Show: Second Act" {
		t.Fatalf("expected no double prefix, got %v", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	catDir := filepath.Join(dir, "series")
	if err := os.MkdirAll(catDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(catDir, "77.json"), []byte(`{"MalId": 123}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(catDir, "78.json"), []byte(`{"MalId": 0}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := LoadOverrides(dir, CategorySeries, nil)
	if err != nil {
		t.Fatalf("LoadOverrides returned error: %v", err)
	}
	if len(got) != 1 || got["77"] != 123 {
		t.Fatalf("unexpected overrides %v", got)
	}
}
