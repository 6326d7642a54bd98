package wildcard

import "testing"

func TestCompilePatternMatchesExact(t *testing.T) {
	p, err := compilePattern("foo.bar")
	if err != nil {
		t.Fatal(err)
	}
	if !p.matches("foo.bar") {
		t.Fatal("expected exact match")
	}
	if p.matches("foo.bar.baz") {
		t.Fatal("exact pattern must not match longer keys")
	}
}

func TestCompilePatternSingleWildcardMatchesExactlyOneToken(t *testing.T) {
	p, err := compilePattern("foo.*")
	if err != nil {
		t.Fatal(err)
	}
	if !p.matches("foo.bar") {
		t.Fatal("expected match for one token after foo")
	}
	if p.matches("foo.bar.baz") {
		t.Fatal("single wildcard must not match two tokens")
	}
	if p.matches("foo.") {
		t.Fatal("single wildcard must not match zero tokens")
	}
}

func TestCompilePatternMultiWildcardMatchesZeroOrMore(t *testing.T) {
	p, err := compilePattern("foo.#")
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"foo", "foo.bar", "foo.bar.baz"} {
		if !p.matches(key) {
			t.Fatalf("expected %q to match foo.#", key)
		}
	}
	if p.matches("bar") {
		t.Fatal("foo.# must not match keys outside the foo prefix")
	}
}

func TestCompilePatternCatchAll(t *testing.T) {
	p, err := compilePattern("#")
	if err != nil {
		t.Fatal(err)
	}
	if !p.matches("anything.at.all") {
		t.Fatal("# must match any key")
	}
}

func TestCompilePatternRejectsEmptyToken(t *testing.T) {
	if _, err := compilePattern("foo..bar"); err == nil {
		t.Fatal("expected error for empty token between dots")
	}
}

func TestCompilePatternRejectsEmptyPattern(t *testing.T) {
	if _, err := compilePattern(""); err == nil {
		t.Fatal("expected error for empty pattern")
	}
}

func TestCompilePatternLiteralDotDoesNotActAsWildcard(t *testing.T) {
	p, err := compilePattern("a.b")
	if err != nil {
		t.Fatal(err)
	}
	if p.matches("aXb") {
		t.Fatal("literal dot separator must not match an arbitrary character")
	}
}
