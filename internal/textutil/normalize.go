package textutil

import (
	"regexp"
	"strings"
)

var (
	seasonMarkerRE = regexp.MustCompile(`(\s|\.)S[0-9]{1,2}`)
	altNameRE      = regexp.MustCompile(`\s*~[\w\s]+~`)
	nativeNameRE   = regexp.MustCompile(`\([\p{L}\p{N}_\s]+\)$`)
	ampersandRE    = regexp.MustCompile(`\s?&\s?`)
	hashRE         = regexp.MustCompile(`#`)
	folderSuffixRE = regexp.MustCompile(`\([0-9]{4}\)\s*\[[\w-]+\]$`)
	punctuationRE  = regexp.MustCompile(`[:.!]`)
)

// Normalize reduces a title to its comparable form: release decorations,
// native-name suffixes and noise punctuation are removed, the result is
// trimmed and lower-cased. The pipeline runs to a fixed point so that
// stripping one trailing decoration cannot expose another; this keeps
// Normalize idempotent.
func Normalize(title string) string {
	out := strings.TrimSpace(title)
	for i := 0; i < 4; i++ {
		next := normalizeOnce(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func normalizeOnce(title string) string {
	s := seasonMarkerRE.ReplaceAllString(title, "")
	s = altNameRE.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = nativeNameRE.ReplaceAllString(s, "")
	s = ampersandRE.ReplaceAllString(s, " and ")
	s = hashRE.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = folderSuffixRE.ReplaceAllString(s, "")
	s = punctuationRE.ReplaceAllString(s, "")
	return strings.ToLower(strings.TrimSpace(s))
}

// TrimParenthetical cuts a title at its first opening parenthesis. Season-0
// specials often carry a disambiguating parenthetical that the sequential
// catalog omits.
func TrimParenthetical(title string) string {
	if idx := strings.IndexByte(title, '('); idx >= 0 {
		title = title[:idx]
	}
	return strings.TrimSpace(title)
}

// Subtitle returns the normalized text after the first colon, or "" when the
// title carries no subtitle.
func Subtitle(title string) string {
	_, rest, ok := strings.Cut(title, ":")
	if !ok {
		return ""
	}
	return Normalize(rest)
}
