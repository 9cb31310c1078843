package memory

import (
	"strings"
	"unicode/utf8"

	"github.com/peachbot/peachbot/internal/core"
)

// containmentRatio is the fraction of the longer string the shorter one must
// cover before containment counts as duplication.
const containmentRatio = 0.8

// IsDuplicate reports whether two contents are near-identical: exactly equal,
// or one contains the other with the shorter covering more than 80% of the
// longer. Cheap substring heuristic, symmetric by construction; no embeddings
// involved.
func IsDuplicate(a, b string) bool {
	if a == b {
		return true
	}

	shorter, longer := a, b
	if utf8.RuneCountInString(shorter) > utf8.RuneCountInString(longer) {
		shorter, longer = longer, shorter
	}
	longerLen := utf8.RuneCountInString(longer)
	if longerLen == 0 {
		return false
	}

	// The ratio counts characters, not bytes, so mixed CJK and ASCII content
	// is measured the same way as pure-Chinese content.
	return strings.Contains(longer, shorter) &&
		float64(utf8.RuneCountInString(shorter)) > containmentRatio*float64(longerLen)
}

// DedupeBatch drops fragments that duplicate an earlier fragment from the
// same extraction batch. Input order is preserved; the first occurrence wins.
func DedupeBatch(fragments []core.Fragment) []core.Fragment {
	kept := make([]core.Fragment, 0, len(fragments))
	for _, frag := range fragments {
		dup := false
		for _, k := range kept {
			if IsDuplicate(frag.Content, k.Content) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, frag)
		}
	}
	return kept
}

// DuplicatesAny reports whether content duplicates any of the given stored
// contents.
func DuplicatesAny(content string, existing []string) bool {
	for _, e := range existing {
		if IsDuplicate(content, e) {
			return true
		}
	}
	return false
}
