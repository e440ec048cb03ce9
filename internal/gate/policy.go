// Package gate implements the security gate in front of host command
// execution: every command string is sanitized, classified against a
// whitelist and blocklist, given a validated working directory and a capped
// timeout, and only then run as an argument vector. Nothing here ever hands a
// string to a shell.
package gate

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/xdg/cmdgate/internal/pathutil"
	"github.com/xdg/cmdgate/internal/patterns"
)

// Policy limits.
const (
	DefaultTimeout          = 30 * time.Second
	MaxTimeout              = 300 * time.Second
	DefaultMaxCommandLength = 4096
	DefaultMaxOutputBytes   = 1 << 20
)

// DefaultDangerousSequences are shell metacharacters rejected anywhere in
// the raw command string, quoted or not.
var DefaultDangerousSequences = []string{
	";", "|", "&", ">", "<", "`", "$", "\n", "\r",
	"||", "&&", ">>",
}

// DefaultWhitelist maps each permitted base command to its permitted
// subcommands. A nil entry permits any arguments.
var DefaultWhitelist = map[string][]string{
	"ls":       nil,
	"pwd":      nil,
	"echo":     nil,
	"cat":      nil,
	"head":     nil,
	"tail":     nil,
	"grep":     nil,
	"find":     nil,
	"wc":       nil,
	"sort":     nil,
	"uniq":     nil,
	"diff":     nil,
	"date":     nil,
	"whoami":   nil,
	"which":    nil,
	"tree":     nil,
	"file":     nil,
	"stat":     nil,
	"du":       nil,
	"df":       nil,
	"uname":    nil,
	"hostname": nil,
	"git":      {"status", "log", "diff", "branch", "show", "remote", "config"},
	"npm":      {"list", "ls", "view", "outdated"},
	"go":       {"version", "env", "list", "vet", "doc"},
}

// DefaultBlocklist holds base commands that are never run: destructive file
// operations, privilege escalation, shells and interpreters, network
// fetchers, and commands that run other commands.
var DefaultBlocklist = []string{
	// destructive
	"rm", "rmdir", "mv", "dd", "mkfs", "shred", "truncate", "chmod", "chown", "chgrp",
	// privilege escalation
	"sudo", "su", "doas", "pkexec", "runas",
	// shells
	"sh", "bash", "zsh", "ksh", "dash", "fish", "csh", "tcsh", "powershell", "pwsh", "cmd",
	// interpreters
	"python", "python3", "perl", "ruby", "node", "php", "lua", "osascript",
	// network
	"curl", "wget", "nc", "ncat", "netcat", "ssh", "scp", "sftp", "rsync", "ftp", "telnet",
	// command runners
	"eval", "exec", "env", "xargs", "nohup", "timeout", "watch", "crontab", "at",
	// process and system control
	"kill", "killall", "pkill", "reboot", "shutdown", "halt", "poweroff", "systemctl", "mount", "umount",
}

// DefaultDenyPatterns reject argument shapes that turn a whitelisted command
// into a command runner or a writer.
var DefaultDenyPatterns = []string{
	`^find\s(.*\s)?-(exec|execdir|ok|okdir|delete|fprint|fprint0|fprintf|fls)(\s|$)`,
	`^git config\s(.*\s)?(--global|--system|--add|--unset|--unset-all|--replace-all|--rename-section|--remove-section|--edit|-e)(\s|$)`,
	// git config <key> <value>, git config set|unset <key>: writes that a
	// later git command executes (core.fsmonitor, diff.external, alias.*).
	`^git config\s(.*\s)?[^-\s]\S*\s+\S`,
	`^git (diff|log|show)\s(.*\s)?--(ext-diff|output)(=|\s|$)`,
	`^go (vet|list)\s(.*\s)?-(vettool|toolexec|exec)(=|\s|$)`,
	`^go env\s(.*\s)?-(w|u)(=|\s|$)`,
	`^sort\s(.*\s)?(-[a-zA-Z]*o|--output|--compress-program)`,
	`^tree\s(.*\s)?-o(\s|$)`,
}

// DefaultRestrictedDirs returns the system directories commands may never
// run in.
func DefaultRestrictedDirs() []string {
	if runtime.GOOS == "windows" {
		return []string{`C:\Windows`, `C:\Windows\System32`}
	}
	return []string{
		"/etc", "/bin", "/sbin", "/usr/bin", "/usr/sbin",
		"/boot", "/sys", "/proc", "/dev", "/root", "/var/log",
	}
}

// DefaultEnvPassthrough names the variables a child inherits when the
// environment is scrubbed.
var DefaultEnvPassthrough = []string{
	"PATH", "HOME", "USER", "LOGNAME", "LANG", "LC_ALL", "LC_CTYPE", "TERM", "TMPDIR", "TZ",
}

// PolicyConfig is the mutable input to NewPolicy. Zero values select the
// defaults above, except for the lists, which are taken as given.
type PolicyConfig struct {
	Whitelist          map[string][]string
	Blocklist          []string
	DangerousSequences []string
	RestrictedDirs     []string
	DenyPatterns       []string
	DefaultTimeout     time.Duration
	MaxTimeout         time.Duration
	MaxCommandLength   int
	MaxOutputBytes     int
	InheritEnv         bool
	EnvPassthrough     []string
}

// DefaultPolicyConfig returns the reference policy.
func DefaultPolicyConfig() PolicyConfig {
	wl := make(map[string][]string, len(DefaultWhitelist))
	for k, v := range DefaultWhitelist {
		wl[k] = slices.Clone(v)
	}
	return PolicyConfig{
		Whitelist:          wl,
		Blocklist:          slices.Clone(DefaultBlocklist),
		DangerousSequences: slices.Clone(DefaultDangerousSequences),
		RestrictedDirs:     DefaultRestrictedDirs(),
		DenyPatterns:       slices.Clone(DefaultDenyPatterns),
		DefaultTimeout:     DefaultTimeout,
		MaxTimeout:         MaxTimeout,
		MaxCommandLength:   DefaultMaxCommandLength,
		MaxOutputBytes:     DefaultMaxOutputBytes,
		EnvPassthrough:     slices.Clone(DefaultEnvPassthrough),
	}
}

// Policy is the immutable, validated rule set used by a Gate. It is safe for
// concurrent use because nothing mutates it after NewPolicy returns.
type Policy struct {
	whitelist      map[string][]string
	blocklist      map[string]struct{}
	dangerous      []string // longest first
	restricted     []string // canonical
	deny           patterns.Matcher
	defaultTimeout time.Duration
	maxTimeout     time.Duration
	maxLength      int
	maxOutput      int
	inheritEnv     bool
	envPassthrough []string
}

// NewPolicy validates cfg and freezes it into a Policy.
// It fails if a command is both whitelisted and blocked, if timeouts are
// inconsistent, or if a deny pattern does not compile.
func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	p := &Policy{
		whitelist:      make(map[string][]string, len(cfg.Whitelist)),
		blocklist:      make(map[string]struct{}, len(cfg.Blocklist)),
		defaultTimeout: cfg.DefaultTimeout,
		maxTimeout:     cfg.MaxTimeout,
		maxLength:      cfg.MaxCommandLength,
		maxOutput:      cfg.MaxOutputBytes,
		inheritEnv:     cfg.InheritEnv,
		envPassthrough: slices.Clone(cfg.EnvPassthrough),
	}
	if p.defaultTimeout == 0 {
		p.defaultTimeout = DefaultTimeout
	}
	if p.maxTimeout == 0 {
		p.maxTimeout = MaxTimeout
	}
	if p.maxLength == 0 {
		p.maxLength = DefaultMaxCommandLength
	}
	if p.maxOutput == 0 {
		p.maxOutput = DefaultMaxOutputBytes
	}

	var errs []error
	if p.defaultTimeout < 0 || p.maxTimeout < 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	} else if p.defaultTimeout > p.maxTimeout {
		errs = append(errs, fmt.Errorf("default timeout %s exceeds max timeout %s", p.defaultTimeout, p.maxTimeout))
	}
	if p.maxLength < 0 || p.maxOutput < 0 {
		errs = append(errs, errors.New("length limits must be non-negative"))
	}

	for _, name := range cfg.Blocklist {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		p.blocklist[name] = struct{}{}
	}

	for name, subs := range cfg.Whitelist {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || strings.ContainsAny(key, " \t/\\") {
			errs = append(errs, fmt.Errorf("whitelist entry %q: must be a bare command name", name))
			continue
		}
		if _, dup := p.whitelist[key]; dup {
			errs = append(errs, fmt.Errorf("whitelist entry %q: duplicate", name))
			continue
		}
		if _, blocked := p.blocklist[key]; blocked {
			errs = append(errs, fmt.Errorf("command %q is both whitelisted and blocked", key))
			continue
		}
		var permitted []string
		if len(subs) > 0 {
			permitted = slices.Clone(subs)
			slices.Sort(permitted)
			permitted = slices.Compact(permitted)
		}
		p.whitelist[key] = permitted
	}

	for _, seq := range cfg.DangerousSequences {
		if seq != "" && !slices.Contains(p.dangerous, seq) {
			p.dangerous = append(p.dangerous, seq)
		}
	}
	// Longer sequences are reported in preference to their prefixes.
	slices.SortStableFunc(p.dangerous, func(a, b string) int { return len(b) - len(a) })

	for _, dir := range cfg.RestrictedDirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		p.restricted = append(p.restricted, pathutil.CanonicalOrClean(dir))
	}

	deny, err := patterns.NewRegexMatcher(cfg.DenyPatterns)
	if err != nil {
		errs = append(errs, err)
	}
	p.deny = deny

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid policy: %w", errors.Join(errs...))
	}
	return p, nil
}

// MustPolicy is NewPolicy for configurations known to be valid.
func MustPolicy(cfg PolicyConfig) *Policy {
	p, err := NewPolicy(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

// DefaultTimeout returns the timeout used when a request names none.
func (p *Policy) DefaultTimeout() time.Duration { return p.defaultTimeout }

// MaxTimeout returns the hard timeout ceiling.
func (p *Policy) MaxTimeout() time.Duration { return p.maxTimeout }

// MaxOutputBytes returns the per-stream capture limit.
func (p *Policy) MaxOutputBytes() int { return p.maxOutput }

// RestrictedDirs returns the canonical restricted directories.
func (p *Policy) RestrictedDirs() []string { return slices.Clone(p.restricted) }

// DenyPatterns returns the deny rules in evaluation order.
func (p *Policy) DenyPatterns() []string { return p.deny.Patterns() }

// IsBlocked reports whether name is on the blocklist.
func (p *Policy) IsBlocked(name string) bool {
	_, ok := p.blocklist[strings.ToLower(name)]
	return ok
}
