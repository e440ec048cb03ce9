// Package patterns provides regex deny rules evaluated against a classified
// command line. Rules catch dangerous argument shapes of otherwise
// whitelisted commands (find -exec, git config --global, ...).
package patterns

// Action represents the result of matching a command against the rules.
type Action int

const (
	// Allow indicates no deny rule matched.
	Allow Action = iota
	// Deny indicates a deny rule matched.
	Deny
)

// String returns the string representation of an Action.
func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// MatchResult contains the outcome of matching a command against the rules.
type MatchResult struct {
	Action  Action // Allow or Deny
	Pattern string // The rule that matched (empty if Allow)
}

// Matcher defines the interface for command rule matching.
type Matcher interface {
	// Match checks a normalized command line against the configured rules.
	Match(cmdline string) MatchResult
	// Patterns returns the rule sources in evaluation order.
	Patterns() []string
}
