// Package safematch validates and compiles search patterns. Regex patterns
// are screened for shapes that cause catastrophic backtracking before they
// are compiled; literal queries are escaped and never screened.
package safematch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// maxPatternLength bounds the raw pattern size.
	maxPatternLength = 1000

	// maxRepeatBound bounds explicit {n,m} repetition counts.
	maxRepeatBound = 1000
)

// UnsafePatternError indicates a pattern rejected before compilation.
// It is fatal to the search call that supplied the pattern.
type UnsafePatternError struct {
	Pattern string
	Reason  string
}

func (e *UnsafePatternError) Error() string {
	return fmt.Sprintf("unsafe pattern %q: %s", e.Pattern, e.Reason)
}

// Compile validates a regex pattern and compiles it. Patterns with nested
// quantifiers (a quantified group whose body is itself quantified, e.g.
// "(a+)+") or oversized repetition bounds are rejected with
// *UnsafePatternError.
func Compile(pattern string, caseInsensitive bool) (*regexp.Regexp, error) {
	if err := check(pattern); err != nil {
		return nil, err
	}

	expr := pattern
	if caseInsensitive {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &UnsafePatternError{Pattern: pattern, Reason: err.Error()}
	}
	return re, nil
}

// CompileLiteral compiles a literal query into a regexp, escaping all
// metacharacters. wholeWord wraps the query in word boundaries.
func CompileLiteral(query string, caseInsensitive, wholeWord bool) *regexp.Regexp {
	expr := regexp.QuoteMeta(query)
	if wholeWord {
		expr = `\b` + expr + `\b`
	}
	if caseInsensitive {
		expr = "(?i)" + expr
	}
	return regexp.MustCompile(expr)
}

// check walks the pattern looking for pathological shapes.
func check(pattern string) error {
	if len(pattern) > maxPatternLength {
		return &UnsafePatternError{Pattern: pattern, Reason: "pattern too long"}
	}

	type group struct {
		start         int
		hasQuantifier bool
	}

	var stack []group
	inClass := false

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]

		if c == '\\' {
			i++
			continue
		}

		if inClass {
			if c == ']' {
				inClass = false
			}
			continue
		}

		switch c {
		case '[':
			inClass = true
		case '(':
			stack = append(stack, group{start: i})
		case ')':
			if len(stack) == 0 {
				continue // unbalanced, left for regexp.Compile to report
			}
			g := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if quantifierFollows(pattern, i+1) {
				if g.hasQuantifier {
					return &UnsafePatternError{Pattern: pattern, Reason: "nested quantifier"}
				}
				// The enclosing group now contains a quantified subexpression.
				if len(stack) > 0 {
					stack[len(stack)-1].hasQuantifier = true
				}
			}
			if g.hasQuantifier && len(stack) > 0 {
				stack[len(stack)-1].hasQuantifier = true
			}
		case '*', '+', '?':
			if len(stack) > 0 {
				stack[len(stack)-1].hasQuantifier = true
			}
		case '{':
			if n, ok := repeatUpperBound(pattern[i:]); ok && n > maxRepeatBound {
				return &UnsafePatternError{
					Pattern: pattern,
					Reason:  "repetition bound exceeds " + strconv.Itoa(maxRepeatBound),
				}
			}
			if len(stack) > 0 {
				stack[len(stack)-1].hasQuantifier = true
			}
		}
	}

	return nil
}

// quantifierFollows reports whether a quantifier starts at pattern[i].
func quantifierFollows(pattern string, i int) bool {
	if i >= len(pattern) {
		return false
	}
	switch pattern[i] {
	case '*', '+', '?':
		return true
	case '{':
		_, ok := repeatUpperBound(pattern[i:])
		return ok
	}
	return false
}

// repeatUpperBound parses a leading "{n}", "{n,}", or "{n,m}" and returns the
// largest bound mentioned. ok is false when s does not start a repetition.
func repeatUpperBound(s string) (int, bool) {
	end := strings.IndexByte(s, '}')
	if end < 0 {
		return 0, false
	}
	body := s[1:end]
	if body == "" {
		return 0, false
	}

	max := 0
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, false
		}
		if n > max {
			max = n
		}
	}
	return max, true
}
