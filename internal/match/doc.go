// Package match scores sequential-catalog search results against a
// hierarchical-catalog title and picks the best candidate above the configured
// similarity thresholds.
package match
