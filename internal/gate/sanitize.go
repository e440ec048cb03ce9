package gate

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Sanitize scans the raw, untokenized command string for injection vectors.
// Each dangerous sequence is searched both in raw and in its NFKC form, so
// fullwidth lookalikes such as U+FF1B are treated as the ASCII character.
// Quoting does not exempt a character: `--message="a;b"` is rejected.
func (p *Policy) Sanitize(raw string) *Violation {
	if strings.TrimSpace(raw) == "" {
		return violationf(KindSecurityViolation, "Invalid command syntax: empty command")
	}
	if p.maxLength > 0 && len(raw) > p.maxLength {
		return violationf(KindSecurityViolation, "Command too long: %d bytes exceeds limit of %d", len(raw), p.maxLength)
	}

	normalized := norm.NFKC.String(raw)
	for _, seq := range p.dangerous {
		if strings.Contains(raw, seq) || strings.Contains(normalized, seq) {
			return violationf(KindDangerousCommand, "Dangerous character detected: %s", describeSequence(seq))
		}
	}

	for _, r := range normalized {
		if r == '\t' {
			continue
		}
		if unicode.IsControl(r) {
			return violationf(KindDangerousCommand, "Dangerous character detected: control character %U", r)
		}
	}
	return nil
}

// describeSequence renders a sequence so that invisible characters are
// readable in error messages.
func describeSequence(seq string) string {
	switch seq {
	case "\n":
		return `'\n' (newline)`
	case "\r":
		return `'\r' (carriage return)`
	case "`":
		return "'`' (backtick)"
	default:
		return "'" + seq + "'"
	}
}
