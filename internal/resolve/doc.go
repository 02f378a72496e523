// Package resolve walks the hierarchical catalog tree and assigns each
// series, season, and episode node a sequential-catalog identity, recording
// successes and failures in the mapping store.
package resolve
