// Package textutil provides the title normalization pipeline and the
// string-similarity scoring shared by the matcher and the relation walker.
package textutil
