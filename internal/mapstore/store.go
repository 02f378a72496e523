package mapstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"animap/internal/catalog"
)

// schemaVersion is bumped when the schema changes; a mismatched database must
// be exported and recreated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different schema
// version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store persists mapping output backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the mapping database inside dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}
	dbPath := filepath.Join(dir, "mappings.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns every persisted mapping keyed by hierarchical node id.
func (s *Store) Load(ctx context.Context) (map[string]Mapping, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node_id, node_kind, category, sequential_id, url, season, episode, run_id, created_at
         FROM mappings`)
	if err != nil {
		return nil, fmt.Errorf("load mappings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Mapping)
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		out[m.NodeID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mappings: %w", err)
	}
	return out, nil
}

// RecordMapping persists one mapping. The first write for a node wins; a node
// already mapped is never overwritten. A matching unmapped record from an
// earlier run is cleared.
func (s *Store) RecordMapping(ctx context.Context, m Mapping) error {
	if m.NodeID == "" {
		return errors.New("mapping node id required")
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mappings (node_id, node_kind, category, sequential_id, url, season, episode, run_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(node_id) DO NOTHING`,
		m.NodeID, string(m.Kind), string(m.Category), m.SequentialID, m.URL,
		nullableInt(m.Season), nullableInt(m.Episode), m.RunID,
		m.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert mapping: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM unmapped WHERE node_id = ?`, m.NodeID); err != nil {
		return fmt.Errorf("clear unmapped: %w", err)
	}
	return nil
}

// RecordUnmapped persists one failure record. The latest attempt wins so a
// re-run refreshes the diagnostics.
func (s *Store) RecordUnmapped(ctx context.Context, u Unmapped) error {
	if u.NodeID == "" {
		return errors.New("unmapped node id required")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	terms, err := json.Marshal(emptyIfNil(u.SearchTerms))
	if err != nil {
		return fmt.Errorf("marshal search terms: %w", err)
	}
	titles, err := json.Marshal(emptyIfNil(u.ObservedTitles))
	if err != nil {
		return fmt.Errorf("marshal observed titles: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO unmapped (node_id, node_kind, category, season, episode, search_terms, observed_titles, last_sequential_id, run_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(node_id) DO UPDATE SET
             season = excluded.season,
             episode = excluded.episode,
             search_terms = excluded.search_terms,
             observed_titles = excluded.observed_titles,
             last_sequential_id = excluded.last_sequential_id,
             run_id = excluded.run_id,
             created_at = excluded.created_at`,
		u.NodeID, string(u.Kind), string(u.Category),
		nullableInt(u.Season), nullableInt(u.Episode),
		string(terms), string(titles), u.LastSequentialID, u.RunID,
		u.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert unmapped: %w", err)
	}
	return nil
}

// Mappings returns all mappings of one category in node-id order.
func (s *Store) Mappings(ctx context.Context, cat catalog.Category) ([]Mapping, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node_id, node_kind, category, sequential_id, url, season, episode, run_id, created_at
         FROM mappings WHERE category = ? ORDER BY node_id`, string(cat))
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()

	var out []Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UnmappedByKind returns all failure records of one hierarchy level.
func (s *Store) UnmappedByKind(ctx context.Context, kind NodeKind) ([]Unmapped, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node_id, node_kind, category, season, episode, search_terms, observed_titles, last_sequential_id, run_id, created_at
         FROM unmapped WHERE node_kind = ? ORDER BY node_id`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query unmapped: %w", err)
	}
	defer rows.Close()

	var out []Unmapped
	for rows.Next() {
		var u Unmapped
		var kindStr, category, terms, titles, createdAt string
		var season, episode sql.NullInt64
		if err := rows.Scan(&u.NodeID, &kindStr, &category, &season, &episode,
			&terms, &titles, &u.LastSequentialID, &u.RunID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan unmapped: %w", err)
		}
		u.Kind = NodeKind(kindStr)
		u.Category = catalog.Category(category)
		u.Season = intPtr(season)
		u.Episode = intPtr(episode)
		if err := json.Unmarshal([]byte(terms), &u.SearchTerms); err != nil {
			return nil, fmt.Errorf("decode search terms for %s: %w", u.NodeID, err)
		}
		if err := json.Unmarshal([]byte(titles), &u.ObservedTitles); err != nil {
			return nil, fmt.Errorf("decode observed titles for %s: %w", u.NodeID, err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			u.CreatedAt = ts
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Summarize counts records per hierarchy level.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	summary := Summary{
		Mapped:   make(map[NodeKind]int),
		Unmapped: make(map[NodeKind]int),
	}
	for table, dest := range map[string]map[NodeKind]int{
		"mappings": summary.Mapped,
		"unmapped": summary.Unmapped,
	} {
		rows, err := s.db.QueryContext(ctx,
			fmt.Sprintf(`SELECT node_kind, COUNT(*) FROM %s GROUP BY node_kind`, table))
		if err != nil {
			return Summary{}, fmt.Errorf("summarize %s: %w", table, err)
		}
		for rows.Next() {
			var kind string
			var count int
			if err := rows.Scan(&kind, &count); err != nil {
				rows.Close()
				return Summary{}, fmt.Errorf("scan summary: %w", err)
			}
			dest[NodeKind(kind)] = count
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return Summary{}, err
		}
		rows.Close()
	}
	return summary, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMapping(row rowScanner) (Mapping, error) {
	var m Mapping
	var kind, category, createdAt string
	var season, episode sql.NullInt64
	if err := row.Scan(&m.NodeID, &kind, &category, &m.SequentialID, &m.URL,
		&season, &episode, &m.RunID, &createdAt); err != nil {
		return Mapping{}, fmt.Errorf("scan mapping: %w", err)
	}
	m.Kind = NodeKind(kind)
	m.Category = catalog.Category(category)
	m.Season = intPtr(season)
	m.Episode = intPtr(episode)
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		m.CreatedAt = ts
	}
	return m, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
