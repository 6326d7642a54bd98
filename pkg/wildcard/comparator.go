package wildcard

// compareSpecificity orders two patterns from least to most specific.
// It returns a negative number when a is more specific than b, a positive
// number when a is less specific, and zero only when no rule, including
// the final token-count comparison, distinguishes them (for example two
// different patterns of equal token count).
//
// Rule 4 deliberately stops at the first position where exactly one side
// has the single-word wildcard, even though later positions might disagree
// with that verdict. This mirrors the upstream comparator this repository
// is modeled on (see the Open Question note in DESIGN.md) and is preserved
// on purpose rather than "fixed".
func compareSpecificity(a, b *compiledPattern) int {
	if a.hasMulti != b.hasMulti {
		// The side with '#' is less specific -> a more specific means
		// negative, so if a lacks it and b has it, a is more specific.
		if a.hasMulti {
			return 1
		}
		return -1
	}

	if a.hasMulti && b.hasMulti {
		return compareByLength(a, b)
	}

	if a.hasSingle != b.hasSingle {
		if a.hasSingle {
			return 1
		}
		return -1
	}

	if a.hasSingle && b.hasSingle {
		n := len(a.tokens)
		if len(b.tokens) < n {
			n = len(b.tokens)
		}
		for i := 0; i < n; i++ {
			aw := a.tokens[i] == singleWordWildcard
			bw := b.tokens[i] == singleWordWildcard
			if aw != bw {
				// The non-wildcard side is more specific; first
				// differing position decides (truncated scan, by design).
				if aw {
					return 1
				}
				return -1
			}
		}
	}

	return compareByLength(a, b)
}

// compareByLength orders by token count, longer patterns being more
// specific. Equal length is a true tie (only possible for identical text
// or two patterns of identical shape).
func compareByLength(a, b *compiledPattern) int {
	if len(a.tokens) == len(b.tokens) {
		return 0
	}
	if len(a.tokens) > len(b.tokens) {
		return -1
	}
	return 1
}
