package wildcard

import (
	"regexp"
	"strings"
)

const (
	singleWordWildcard = "*"
	multiWordWildcard  = "#"
)

// compiledPattern is a pattern together with its compiled matcher and the
// token slice used by the specificity comparator.
type compiledPattern struct {
	text      string
	tokens    []string
	matcher   *regexp.Regexp
	immutable bool

	hasMulti  bool
	hasSingle bool
}

// compilePattern validates and compiles a dotted-token pattern into a
// regular expression anchored on both ends. '*' becomes the single-token
// class `[^.]+`; '#' becomes `.*`, matching zero or more tokens including
// the dots between them.
func compilePattern(pattern string) (*compiledPattern, error) {
	if pattern == "" {
		return nil, &InvalidPatternError{Pattern: pattern, Reason: "pattern must not be empty"}
	}

	tokens := strings.Split(pattern, ".")
	var b strings.Builder
	b.WriteByte('^')

	hasMulti, hasSingle := false, false
	for i, tok := range tokens {
		if tok == multiWordWildcard {
			hasMulti = true
			if i == 0 {
				b.WriteString(".*")
			} else {
				// The separator dot is part of the zero-or-more match: "foo.#"
				// must match the bare key "foo" too, not just "foo." + tokens.
				b.WriteString(`(\..*)?`)
			}
			continue
		}

		if i > 0 {
			b.WriteString(`\.`) // literal dot separator
		}
		switch tok {
		case singleWordWildcard:
			hasSingle = true
			b.WriteString("[^.]+")
		case "":
			return nil, &InvalidPatternError{Pattern: pattern, Reason: "empty token between dots"}
		default:
			b.WriteString(regexp.QuoteMeta(tok))
		}
	}
	b.WriteByte('$')

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, &InvalidPatternError{Pattern: pattern, Reason: err.Error()}
	}

	return &compiledPattern{
		text:      pattern,
		tokens:    tokens,
		matcher:   re,
		hasMulti:  hasMulti,
		hasSingle: hasSingle,
	}, nil
}

func (p *compiledPattern) matches(key string) bool {
	return p.matcher.MatchString(key)
}
