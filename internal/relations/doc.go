// Package relations walks a sequential-catalog entry's declared relations to
// find its canonical successor, skipping placeholder entries and terminating
// on relation cycles.
package relations
