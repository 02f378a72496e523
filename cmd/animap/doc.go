// Command animap maps a hierarchical series/season/episode catalog onto
// sequential catalog identifiers.
package main
