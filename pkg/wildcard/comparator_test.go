package wildcard

import "testing"

func mustCompile(t *testing.T, pattern string) *compiledPattern {
	t.Helper()
	p, err := compilePattern(pattern)
	if err != nil {
		t.Fatalf("compilePattern(%q): %v", pattern, err)
	}
	return p
}

func TestComparatorMultiWordLessSpecificThanPlain(t *testing.T) {
	multi := mustCompile(t, "foo.#")
	plain := mustCompile(t, "foo.bar")

	if compareSpecificity(multi, plain) <= 0 {
		t.Fatalf("expected multi-word pattern to be less specific than plain pattern")
	}
}

func TestComparatorLongerMultiWordMoreSpecific(t *testing.T) {
	short := mustCompile(t, "#")
	long := mustCompile(t, "foo.#")

	if compareSpecificity(long, short) >= 0 {
		t.Fatalf("expected longer multi-word pattern to be more specific")
	}
}

func TestComparatorTruncatedScanAtFirstDifferingPosition(t *testing.T) {
	// a.* differs from *.b at position 0 (a.* has a literal token there,
	// *.b has the wildcard): per the documented truncated-scan rule the
	// comparison is decided at position 0 without looking at position 1,
	// even though position 1 alone would suggest the opposite verdict.
	aStar := mustCompile(t, "a.*")
	starB := mustCompile(t, "*.b")

	if compareSpecificity(aStar, starB) >= 0 {
		t.Fatalf("expected a.* to be judged more specific than *.b at the first differing position")
	}
}

func TestComparatorPlainBeatsSingleWildcard(t *testing.T) {
	plain := mustCompile(t, "foo.bar")
	wild := mustCompile(t, "foo.*")

	if compareSpecificity(plain, wild) >= 0 {
		t.Fatalf("expected plain pattern to be more specific than single-wildcard pattern")
	}
}
