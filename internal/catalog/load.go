package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Load reads the crawler's JSON export from dataDir, one file per series under
// a directory per category. Files that cannot be decoded even after salvage
// are skipped with a warning; a missing category directory is not an error.
func Load(dataDir string, logger *slog.Logger) (*Tree, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "catalog")

	tree := &Tree{Series: make(map[Category][]*Series)}
	for _, cat := range Categories() {
		dir := filepath.Join(dataDir, string(cat))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read category dir %s: %w", dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			series, err := loadSeriesFile(path)
			if err != nil {
				logger.Warn("skipping unreadable series file", "path", path, "error", err)
				continue
			}
			series.ID = strings.TrimSuffix(entry.Name(), ".json")
			series.Category = cat
			tree.Series[cat] = append(tree.Series[cat], series)
		}

		sort.Slice(tree.Series[cat], func(i, j int) bool {
			return tree.Series[cat][i].ID < tree.Series[cat][j].ID
		})
	}
	return tree, nil
}

func loadSeriesFile(path string) (*Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var series Series
	if err := json.Unmarshal(data, &series); err == nil {
		return &series, nil
	}

	salvaged, ok := Salvage(data)
	if !ok {
		return nil, fmt.Errorf("decode %s: unsalvageable", filepath.Base(path))
	}
	if err := json.Unmarshal(salvaged, &series); err != nil {
		return nil, fmt.Errorf("decode salvaged %s: %w", filepath.Base(path), err)
	}
	return &series, nil
}
