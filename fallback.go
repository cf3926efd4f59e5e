package stellartrace

// resolveFallback attempts to resolve a query token absent from the
// lexicon by stemming and, failing that, a single-edit typo correction
// against the full vocabulary. Grounded on
// original_source/semanticsearch.hpp's resolveToken three-step cascade:
// exact match (already tried by the caller), stem match, edit-distance-1
// scan. The lexicon's own snowball stemmer (analyzer.go) stands in for
// the original's minimal Porter stemmer.
func resolveFallback(word string, lex *Lexicon) (uint32, bool) {
	if stemmed := stemmerFilter([]string{word}); len(stemmed) > 0 {
		if wid, ok := lex.Lookup(stemmed[0]); ok {
			return wid, true
		}
	}

	return lex.FindByEditDistance(word)
}

// editDistanceAtMostOne reports whether a and b differ by at most one
// character insertion, deletion, or substitution, without allocating a
// full dynamic-programming table (original_source/semanticsearch.hpp's
// editDistanceOne: a single two-pointer scan, correct because only one
// edit is tolerated).
func editDistanceAtMostOne(a, b string) bool {
	la, lb := len(a), len(b)
	if la-lb > 1 || lb-la > 1 {
		return false
	}

	i, j, edits := 0, 0, 0
	for i < la && j < lb {
		if a[i] == b[j] {
			i++
			j++
			continue
		}
		edits++
		if edits > 1 {
			return false
		}
		switch {
		case la > lb:
			i++
		case lb > la:
			j++
		default:
			i++
			j++
		}
	}
	return true
}
