package mapstore

import (
	"time"

	"animap/internal/catalog"
)

// NodeKind identifies the hierarchy level a record belongs to.
type NodeKind string

const (
	KindSeries  NodeKind = "series"
	KindSeason  NodeKind = "season"
	KindEpisode NodeKind = "episode"
)

// Mapping links one hierarchical node to its sequential-catalog identity.
type Mapping struct {
	NodeID       string
	Kind         NodeKind
	Category     catalog.Category
	SequentialID int64
	URL          string
	Season       *int
	Episode      *int
	RunID        string
	CreatedAt    time.Time
}

// Unmapped records a resolution failure for human triage, carrying the search
// terms attempted and the candidate titles observed.
type Unmapped struct {
	NodeID           string
	Kind             NodeKind
	Category         catalog.Category
	Season           *int
	Episode          *int
	SearchTerms      []string
	ObservedTitles   []string
	LastSequentialID int64
	RunID            string
	CreatedAt        time.Time
}

// Summary aggregates store contents for reporting.
type Summary struct {
	Mapped   map[NodeKind]int
	Unmapped map[NodeKind]int
}
