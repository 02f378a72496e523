package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Override pins a series to a known sequential id ahead of any search.
type Override struct {
	MalID int64 `json:"MalId"`
}

// LoadOverrides reads pre-known sequential ids from
// <dir>/<category>/<seriesID>.json files. Files without a usable id are
// skipped with a warning.
func LoadOverrides(dir string, cat Category, logger *slog.Logger) (map[string]int64, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "catalog")

	out := make(map[string]int64)
	categoryDir := filepath.Join(dir, string(cat))
	entries, err := os.ReadDir(categoryDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return nil, fmt.Errorf("read overrides dir %s: %w", categoryDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(categoryDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable override", "path", path, "error", err)
			continue
		}
		var ov Override
		if err := json.Unmarshal(data, &ov); err != nil || ov.MalID <= 0 {
			logger.Warn("skipping override without a valid id", "path", path)
			continue
		}
		out[strings.TrimSuffix(entry.Name(), ".json")] = ov.MalID
	}
	return out, nil
}
