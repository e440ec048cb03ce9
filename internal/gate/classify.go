package gate

import (
	"path"
	"slices"
	"strings"

	"github.com/xdg/cmdgate/internal/patterns"
)

// CommandSpec is the classification of one command string. Args holds every
// token after the base command, so the argv to execute is always
// [Base] + Args. Subcommand repeats Args[0] when the whitelist entry is
// restricted to specific subcommands.
type CommandSpec struct {
	Raw        string
	Base       string
	Subcommand string
	Args       []string
}

// Argv returns the argument vector for execution.
func (c CommandSpec) Argv() []string {
	return append([]string{c.Base}, c.Args...)
}

// Line returns the normalized command line used for deny rule matching.
func (c CommandSpec) Line() string {
	return strings.Join(c.Argv(), " ")
}

// Classify tokenizes raw and decides whether it is permitted. The blocklist
// is checked before the whitelist, so a command on both is blocked.
func (p *Policy) Classify(raw string) (CommandSpec, *Violation) {
	words, err := splitWords(raw)
	if err != nil {
		return CommandSpec{}, violationf(KindSecurityViolation, "Invalid command syntax: %v", err)
	}

	spec := CommandSpec{
		Raw:  raw,
		Base: strings.ToLower(words[0]),
		Args: words[1:],
	}

	// A path-qualified name is blocked if its last element is; otherwise it
	// is simply not on the name-based whitelist.
	if p.IsBlocked(spec.Base) {
		return CommandSpec{}, violationf(KindDangerousCommand, "Command '%s' is blocked for security reasons", spec.Base)
	}
	if strings.ContainsAny(spec.Base, `/\`) {
		name := path.Base(strings.ReplaceAll(spec.Base, `\`, "/"))
		name = strings.TrimSuffix(name, ".exe")
		if p.IsBlocked(name) {
			return CommandSpec{}, violationf(KindDangerousCommand, "Command '%s' is blocked for security reasons", name)
		}
		return CommandSpec{}, violationf(KindNotWhitelisted, "Command '%s' is not whitelisted (use the bare command name)", spec.Base)
	}

	permitted, ok := p.whitelist[spec.Base]
	if !ok {
		return CommandSpec{}, violationf(KindNotWhitelisted, "Command '%s' is not whitelisted", spec.Base)
	}

	if len(permitted) > 0 {
		if len(spec.Args) == 0 {
			return CommandSpec{}, violationf(KindSecurityViolation,
				"Command '%s' requires a subcommand. Allowed: %s", spec.Base, strings.Join(permitted, ", "))
		}
		sub := spec.Args[0]
		if !slices.Contains(permitted, sub) {
			return CommandSpec{}, violationf(KindSecurityViolation,
				"Subcommand '%s' not allowed for '%s'. Allowed: %s", sub, spec.Base, strings.Join(permitted, ", "))
		}
		spec.Subcommand = sub
	}

	if m := p.deny.Match(spec.Line()); m.Action == patterns.Deny {
		return CommandSpec{}, violationf(KindDangerousCommand, "Command '%s' matches a blocked argument pattern", spec.Base)
	}
	return spec, nil
}
