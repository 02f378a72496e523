package mapstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"animap/internal/catalog"
)

type legacyEntry struct {
	Season    *int            `json:"season"`
	Episode   *int            `json:"episode"`
	TargetURL string          `json:"myanimelist url"`
	Target    int64           `json:"myanimelist"`
	Source    json.RawMessage `json:"thetvdb"`
}

// ImportLegacy seeds the store from a previously exported mapping file.
// Entries without a usable source id or target URL are skipped with a
// warning; existing mappings are never overwritten. Returns the number of
// entries imported.
func (s *Store) ImportLegacy(ctx context.Context, data []byte, cat catalog.Category, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mapstore")

	var entries []legacyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("decode legacy mapping file: %w", err)
	}

	imported := 0
	for i, entry := range entries {
		nodeID := rawID(entry.Source)
		if nodeID == "" || entry.TargetURL == "" {
			logger.Warn("skipping legacy entry", "index", i)
			continue
		}
		target := entry.Target
		if target == 0 {
			target = idFromURL(entry.TargetURL)
		}
		if target == 0 {
			logger.Warn("skipping legacy entry without target id", "index", i, "node", nodeID)
			continue
		}

		kind := KindSeries
		switch {
		case entry.Episode != nil:
			kind = KindEpisode
		case entry.Season != nil:
			kind = KindSeason
		}

		m := Mapping{
			NodeID:       nodeID,
			Kind:         kind,
			Category:     cat,
			SequentialID: target,
			URL:          entry.TargetURL,
			Season:       entry.Season,
			Episode:      entry.Episode,
			RunID:        "legacy-import",
		}
		if err := s.RecordMapping(ctx, m); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

// rawID accepts both numeric and string source ids.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asNumber int64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return strconv.FormatInt(asNumber, 10)
	}
	return ""
}

// idFromURL extracts the sequential id from a catalog URL of the form
// .../anime/<id>[/...].
func idFromURL(url string) int64 {
	const marker = "/anime/"
	idx := strings.Index(url, marker)
	if idx < 0 {
		return 0
	}
	rest := url[idx+len(marker):]
	if end := strings.IndexByte(rest, '/'); end >= 0 {
		rest = rest[:end]
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
