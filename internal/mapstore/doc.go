// Package mapstore persists resolution output. Every record is committed the
// moment it is produced, so a crash loses at most the node in flight, and a
// prior run's mappings load back as a cache keyed by hierarchical node id.
// Mapped nodes are ground truth: once written they are never re-derived.
package mapstore
