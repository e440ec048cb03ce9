package patterns

import (
	"fmt"
	"regexp"
)

// compiledPattern holds a compiled regex and its original pattern string.
type compiledPattern struct {
	regex   *regexp.Regexp
	pattern string
}

// RegexMatcher implements Matcher using compiled regular expressions.
// Rules are checked in order; the first match denies.
type RegexMatcher struct {
	deny []compiledPattern
}

// NewRegexMatcher compiles the given deny rules. A rule that fails to
// compile is an error rather than being skipped.
func NewRegexMatcher(deny []string) (*RegexMatcher, error) {
	m := &RegexMatcher{deny: make([]compiledPattern, 0, len(deny))}
	for i, p := range deny {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("deny pattern %d %q: %w", i, p, err)
		}
		m.deny = append(m.deny, compiledPattern{regex: re, pattern: p})
	}
	return m, nil
}

// Match checks a command line against the deny rules.
func (m *RegexMatcher) Match(cmdline string) MatchResult {
	if m == nil {
		return MatchResult{Action: Allow}
	}
	for _, cp := range m.deny {
		if cp.regex.MatchString(cmdline) {
			return MatchResult{Action: Deny, Pattern: cp.pattern}
		}
	}
	return MatchResult{Action: Allow}
}

// Patterns returns the source of every rule, in evaluation order.
func (m *RegexMatcher) Patterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.deny))
	for i, cp := range m.deny {
		out[i] = cp.pattern
	}
	return out
}
