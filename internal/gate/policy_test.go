package gate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicy_Defaults(t *testing.T) {
	p, err := NewPolicy(DefaultPolicyConfig())
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, p.DefaultTimeout())
	assert.Equal(t, 300*time.Second, p.MaxTimeout())
	assert.Equal(t, DefaultMaxOutputBytes, p.MaxOutputBytes())
	assert.True(t, p.IsBlocked("rm"))
	assert.True(t, p.IsBlocked("RM"))
	assert.False(t, p.IsBlocked("ls"))
}

func TestNewPolicy_ZeroValuesSelectDefaults(t *testing.T) {
	p, err := NewPolicy(PolicyConfig{Whitelist: map[string][]string{"echo": nil}})
	require.NoError(t, err)

	assert.Equal(t, DefaultTimeout, p.DefaultTimeout())
	assert.Equal(t, MaxTimeout, p.MaxTimeout())
	assert.Equal(t, DefaultMaxCommandLength, p.maxLength)
	assert.Equal(t, DefaultMaxOutputBytes, p.MaxOutputBytes())
}

func TestDefaultLists_AreDisjoint(t *testing.T) {
	for _, name := range DefaultBlocklist {
		_, ok := DefaultWhitelist[name]
		assert.False(t, ok, "%q is both whitelisted and blocked", name)
	}
}

func TestNewPolicy_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PolicyConfig)
		wantErr string
	}{
		{
			name: "whitelisted and blocked",
			mutate: func(c *PolicyConfig) {
				c.Whitelist["rm"] = nil
			},
			wantErr: `command "rm" is both whitelisted and blocked`,
		},
		{
			name: "whitelisted and blocked differ in case",
			mutate: func(c *PolicyConfig) {
				c.Whitelist["Curl"] = nil
			},
			wantErr: `command "curl" is both whitelisted and blocked`,
		},
		{
			name: "default above max",
			mutate: func(c *PolicyConfig) {
				c.DefaultTimeout = 10 * time.Minute
			},
			wantErr: "exceeds max timeout",
		},
		{
			name: "negative timeout",
			mutate: func(c *PolicyConfig) {
				c.MaxTimeout = -time.Second
			},
			wantErr: "timeouts must be positive",
		},
		{
			name: "bad deny pattern",
			mutate: func(c *PolicyConfig) {
				c.DenyPatterns = append(c.DenyPatterns, "(")
			},
			wantErr: "deny pattern",
		},
		{
			name: "path in whitelist",
			mutate: func(c *PolicyConfig) {
				c.Whitelist["/usr/bin/make"] = nil
			},
			wantErr: "must be a bare command name",
		},
		{
			name: "whitespace in whitelist",
			mutate: func(c *PolicyConfig) {
				c.Whitelist["git status"] = nil
			},
			wantErr: "must be a bare command name",
		},
		{
			name: "duplicate after lower-casing",
			mutate: func(c *PolicyConfig) {
				c.Whitelist["LS"] = nil
			},
			wantErr: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPolicyConfig()
			tt.mutate(&cfg)

			_, err := NewPolicy(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid policy")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewPolicy_ReportsEveryProblem(t *testing.T) {
	cfg := DefaultPolicyConfig()
	cfg.Whitelist["rm"] = nil
	cfg.DenyPatterns = []string{"["}

	_, err := NewPolicy(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both whitelisted and blocked")
	assert.Contains(t, err.Error(), "deny pattern")
}

func TestMustPolicy_Panics(t *testing.T) {
	cfg := DefaultPolicyConfig()
	cfg.Whitelist["sudo"] = nil
	assert.Panics(t, func() { MustPolicy(cfg) })
}

func TestPolicy_IsImmutable(t *testing.T) {
	cfg := DefaultPolicyConfig()
	p := MustPolicy(cfg)

	// Mutating the input after construction must not leak into the policy.
	cfg.Whitelist["git"][0] = "push"
	cfg.Whitelist["vim"] = nil
	cfg.Blocklist[0] = "ls"

	_, v := p.Classify("git push")
	assert.NotNil(t, v)
	_, v = p.Classify("vim notes.txt")
	assert.NotNil(t, v)
	_, v = p.Classify("ls -la")
	assert.Nil(t, v)

	dirs := p.RestrictedDirs()
	dirs[0] = "/nowhere"
	assert.NotEqual(t, "/nowhere", p.RestrictedDirs()[0])
}

func TestPolicy_SubcommandsSortedAndDeduplicated(t *testing.T) {
	p := MustPolicy(PolicyConfig{Whitelist: map[string][]string{
		"git": {"status", "log", "status", "diff"},
	}})

	_, v := p.Classify("git push")
	require.NotNil(t, v)
	assert.True(t, strings.HasSuffix(v.Reason, "Allowed: diff, log, status"), v.Reason)
}

func TestPolicy_DangerousLongestFirst(t *testing.T) {
	p := MustPolicy(DefaultPolicyConfig())
	for i := 1; i < len(p.dangerous); i++ {
		assert.GreaterOrEqual(t, len(p.dangerous[i-1]), len(p.dangerous[i]))
	}
}
