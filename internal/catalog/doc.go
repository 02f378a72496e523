// Package catalog models the hierarchical series/season/episode tree produced
// by the upstream crawler and loads it from its JSON export, salvaging
// truncated files where possible. The tree is read-only input to the
// resolution engine.
package catalog
