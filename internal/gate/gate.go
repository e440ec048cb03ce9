package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xdg/cmdgate/internal/audit"
	"github.com/xdg/cmdgate/internal/clog"
	"github.com/xdg/cmdgate/internal/executor"
)

// State is the position of one invocation in the gate pipeline.
type State string

// Pipeline states. REJECTED, COMPLETED, TIMED_OUT, NOT_FOUND and ERROR are
// terminal.
const (
	StateReceived   State = "RECEIVED"
	StateSanitized  State = "SANITIZED"
	StateClassified State = "CLASSIFIED"
	StateWorkdirOK  State = "WORKDIR_OK"
	StateExecuting  State = "EXECUTING"
	StateRejected   State = "REJECTED"
	StateCompleted  State = "COMPLETED"
	StateTimedOut   State = "TIMED_OUT"
	StateNotFound   State = "NOT_FOUND"
	StateError      State = "ERROR"
)

// Operation names recorded in the audit trail.
const (
	OpExecute  = "execute"
	OpValidate = "validate"
)

// Request is one command execution request.
type Request struct {
	Command string `json:"command"`
	// TimeoutSeconds is nil when the caller did not ask for a timeout.
	TimeoutSeconds *int   `json:"timeout,omitempty"`
	WorkingDir     string `json:"working_dir,omitempty"`
}

// Result is the outcome of Execute. Every field is always populated;
// Result and Error are serialized as null when empty.
type Result struct {
	Success bool
	Command string
	Stdout  string
	Stderr  string
	// ExitCode is -1 when the process did not run to completion.
	ExitCode int
	// Result mirrors Stdout on success.
	Result string
	// Error describes the failure, empty on success.
	Error string

	State            State
	Violation        Kind
	EffectiveTimeout time.Duration
	Duration         time.Duration
	Truncated        bool
	InvocationID     string
}

type resultJSON struct {
	Success          bool    `json:"success"`
	Command          string  `json:"command"`
	Stdout           string  `json:"stdout"`
	Stderr           string  `json:"stderr"`
	ExitCode         int     `json:"exit_code"`
	Result           *string `json:"result"`
	Error            *string `json:"error"`
	State            State   `json:"state"`
	Violation        Kind    `json:"violation,omitempty"`
	EffectiveTimeout int64   `json:"effective_timeout,omitempty"`
	DurationMs       int64   `json:"duration_ms"`
	Truncated        bool    `json:"truncated,omitempty"`
	InvocationID     string  `json:"invocation_id"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Success:          r.Success,
		Command:          r.Command,
		Stdout:           r.Stdout,
		Stderr:           r.Stderr,
		ExitCode:         r.ExitCode,
		Result:           nullable(r.Result),
		Error:            nullable(r.Error),
		State:            r.State,
		Violation:        r.Violation,
		EffectiveTimeout: int64(r.EffectiveTimeout / time.Second),
		DurationMs:       r.Duration.Milliseconds(),
		Truncated:        r.Truncated,
		InvocationID:     r.InvocationID,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Result) UnmarshalJSON(data []byte) error {
	var j resultJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*r = Result{
		Success:          j.Success,
		Command:          j.Command,
		Stdout:           j.Stdout,
		Stderr:           j.Stderr,
		ExitCode:         j.ExitCode,
		State:            j.State,
		Violation:        j.Violation,
		EffectiveTimeout: time.Duration(j.EffectiveTimeout) * time.Second,
		Duration:         time.Duration(j.DurationMs) * time.Millisecond,
		Truncated:        j.Truncated,
		InvocationID:     j.InvocationID,
	}
	if j.Result != nil {
		r.Result = *j.Result
	}
	if j.Error != nil {
		r.Error = *j.Error
	}
	return nil
}

// Parsed is the classified form of a valid command.
type Parsed struct {
	BaseCommand string   `json:"base_command"`
	Args        []string `json:"args"`
}

// Validation is the outcome of Validate.
type Validation struct {
	Valid  bool    `json:"valid"`
	Reason string  `json:"reason"`
	Kind   Kind    `json:"kind,omitempty"`
	Parsed *Parsed `json:"parsed,omitempty"`
}

// WhitelistInfo describes the active policy. A nil subcommand list means
// every subcommand is permitted.
type WhitelistInfo struct {
	WhitelistedCommands map[string][]string `json:"whitelisted_commands"`
	BlockedCommands     []string            `json:"blocked_commands"`
	TotalWhitelisted    int                 `json:"total_whitelisted"`
	TotalBlocked        int                 `json:"total_blocked"`
}

// Gate validates commands against a Policy and runs the ones it permits.
// A Gate holds no mutable state and is safe for concurrent use.
type Gate struct {
	policy *Policy
	runner executor.Executor
	sink   audit.Sink
	now    func() time.Time
	newID  func() string
}

// Option configures a Gate.
type Option func(*Gate)

// WithRunner sets the process runner. The default runs real processes.
func WithRunner(r executor.Executor) Option {
	return func(g *Gate) { g.runner = r }
}

// WithAuditSink sets where audit records go. The default discards them.
func WithAuditSink(s audit.Sink) Option {
	return func(g *Gate) { g.sink = s }
}

// WithClock sets the time source used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// New creates a Gate enforcing policy. A nil policy selects the defaults.
func New(policy *Policy, opts ...Option) *Gate {
	if policy == nil {
		policy = MustPolicy(DefaultPolicyConfig())
	}
	g := &Gate{
		policy: policy,
		runner: executor.NewRealExecutor(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Policy returns the policy the gate enforces.
func (g *Gate) Policy() *Policy {
	return g.policy
}

// invocation carries the audit context of one call.
type invocation struct {
	id      string
	op      string
	cmd     string
	workdir string
	timeout time.Duration
}

// Execute runs req.Command if every check passes. It never panics and never
// returns an error: rejections and failures are described by the Result.
func (g *Gate) Execute(ctx context.Context, req Request) (res Result) {
	inv := &invocation{id: g.newID(), op: OpExecute, cmd: req.Command, workdir: req.WorkingDir}
	res = Result{
		Command:      req.Command,
		ExitCode:     -1,
		State:        StateReceived,
		InvocationID: inv.id,
	}

	defer func() {
		if p := recover(); p != nil {
			clog.Error("gate: panic executing %q: %v", req.Command, p)
			res.Success = false
			res.ExitCode = -1
			res.Result = ""
			res.Error = fmt.Sprintf("Internal error: %v", p)
			res.State = StateError
			g.record(inv, audit.EventError, StateError, func(r *audit.Record) { r.Reason = res.Error })
		}
	}()

	g.record(inv, audit.EventRequest, StateReceived, nil)

	timeout, clamped, v := g.policy.EffectiveTimeout(req.TimeoutSeconds)
	if v != nil {
		return g.reject(inv, res, v)
	}
	inv.timeout = timeout
	res.EffectiveTimeout = timeout

	if v := g.policy.Sanitize(req.Command); v != nil {
		return g.reject(inv, res, v)
	}
	res.State = StateSanitized

	spec, v := g.policy.Classify(req.Command)
	if v != nil {
		return g.reject(inv, res, v)
	}
	res.State = StateClassified

	dir, v := g.policy.ResolveWorkdir(req.WorkingDir)
	if v != nil {
		return g.reject(inv, res, v)
	}
	inv.workdir = dir
	res.State = StateWorkdirOK

	if clamped {
		reason := fmt.Sprintf("requested %ds exceeds maximum %s", *req.TimeoutSeconds, g.policy.MaxTimeout())
		clog.Warn("gate: timeout clamped for %q: %s", req.Command, reason)
		g.record(inv, audit.EventClamp, StateWorkdirOK, func(r *audit.Record) { r.Reason = reason })
	}
	g.record(inv, audit.EventAllow, StateWorkdirOK, nil)

	res.State = StateExecuting
	clog.Debug("gate: executing %v in %s (timeout %s)", spec.Argv(), dir, timeout)
	resp := g.runner.Execute(ctx, executor.ExecuteRequest{
		Command:        spec.Base,
		Args:           spec.Args,
		Workdir:        dir,
		Env:            g.policy.childEnv(),
		Timeout:        timeout,
		MaxOutputBytes: g.policy.MaxOutputBytes(),
	})
	return g.finish(inv, res, resp)
}

// finish maps the runner's response onto the result.
func (g *Gate) finish(inv *invocation, res Result, resp executor.ExecuteResponse) Result {
	res.Stdout = resp.Stdout
	res.Stderr = resp.Stderr
	res.Duration = resp.Duration
	res.Truncated = resp.Truncated

	switch resp.Status {
	case executor.StatusCompleted:
		res.State = StateCompleted
		res.ExitCode = resp.ExitCode
		res.Success = resp.ExitCode == 0
		if res.Success {
			res.Result = resp.Stdout
		} else {
			res.Error = exitError(resp)
		}
		g.record(inv, audit.EventComplete, StateCompleted, func(r *audit.Record) {
			r.ExitCode = res.ExitCode
			r.Success = res.Success
			r.Duration = res.Duration
		})
	case executor.StatusTimeout:
		res.State = StateTimedOut
		res.ExitCode = -1
		res.Error = resp.Error
		g.record(inv, audit.EventTimeout, StateTimedOut, func(r *audit.Record) { r.Duration = res.Duration })
	case executor.StatusNotFound:
		res.State = StateNotFound
		res.ExitCode = -1
		res.Error = resp.Error
		g.record(inv, audit.EventNotFound, StateNotFound, func(r *audit.Record) { r.Reason = res.Error })
	default:
		res.State = StateError
		res.ExitCode = -1
		res.Error = resp.Error
		if res.Error == "" {
			res.Error = "Command failed to execute"
		}
		g.record(inv, audit.EventError, StateError, func(r *audit.Record) {
			r.Reason = res.Error
			r.Duration = res.Duration
		})
	}
	clog.Attrs(clog.LevelDebug, "gate finished",
		"id", inv.id, "state", string(res.State), "exit", res.ExitCode, "duration", res.Duration)
	return res
}

// exitError describes a non-zero exit, preferring what the command itself
// wrote to stderr.
func exitError(resp executor.ExecuteResponse) string {
	if msg := strings.TrimSpace(resp.Stderr); msg != "" {
		return msg
	}
	return fmt.Sprintf("Command exited with code %d", resp.ExitCode)
}

func (g *Gate) reject(inv *invocation, res Result, v *Violation) Result {
	clog.Attrs(clog.LevelDebug, "gate rejected",
		"id", inv.id, "op", inv.op, "stage", string(res.State), "kind", string(v.Kind), "reason", v.Reason)
	res.Success = false
	res.ExitCode = -1
	res.Error = v.Reason
	res.Violation = v.Kind
	res.State = StateRejected
	g.record(inv, audit.EventReject, StateRejected, func(r *audit.Record) {
		r.Violation = string(v.Kind)
		r.Reason = v.Reason
	})
	return res
}

// record sends one audit record. Sink failures are logged and otherwise ignored.
func (g *Gate) record(inv *invocation, typ audit.EventType, stage State, fill func(*audit.Record)) {
	if g.sink == nil {
		return
	}
	r := &audit.Record{
		ID:        inv.id,
		Timestamp: g.now().UTC(),
		Type:      typ,
		Op:        inv.op,
		Stage:     string(stage),
		Cmd:       inv.cmd,
		Workdir:   inv.workdir,
		Timeout:   inv.timeout,
	}
	if fill != nil {
		fill(r)
	}
	if err := g.sink.Record(r); err != nil {
		clog.Warn("gate: audit record %s for %s dropped: %v", typ, inv.id, err)
	}
}

// Validate runs the sanitizer and classifier without executing anything.
// A command Validate accepts is never rejected by Execute for sanitization
// or classification reasons.
func (g *Gate) Validate(raw string) Validation {
	inv := &invocation{id: g.newID(), op: OpValidate, cmd: raw}

	v := g.policy.Sanitize(raw)
	var spec CommandSpec
	if v == nil {
		spec, v = g.policy.Classify(raw)
	}
	if v != nil {
		g.record(inv, audit.EventReject, StateRejected, func(r *audit.Record) {
			r.Violation = string(v.Kind)
			r.Reason = v.Reason
		})
		return Validation{Valid: false, Reason: v.Reason, Kind: v.Kind}
	}

	g.record(inv, audit.EventAllow, StateClassified, nil)
	args := spec.Args
	if args == nil {
		args = []string{}
	}
	return Validation{
		Valid:  true,
		Reason: "Command is valid",
		Parsed: &Parsed{BaseCommand: spec.Base, Args: args},
	}
}

// Whitelist describes the commands the policy permits and blocks.
func (g *Gate) Whitelist() WhitelistInfo {
	wl := make(map[string][]string, len(g.policy.whitelist))
	for name, subs := range g.policy.whitelist {
		wl[name] = slices.Clone(subs)
	}
	blocked := slices.Sorted(maps.Keys(g.policy.blocklist))
	return WhitelistInfo{
		WhitelistedCommands: wl,
		BlockedCommands:     blocked,
		TotalWhitelisted:    len(wl),
		TotalBlocked:        len(blocked),
	}
}

// childEnv returns the environment for a child process. Nil inherits the
// parent's environment.
func (p *Policy) childEnv() []string {
	if p.inheritEnv {
		return nil
	}
	env := make([]string, 0, len(p.envPassthrough))
	for _, key := range p.envPassthrough {
		if val, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+val)
		}
	}
	return env
}
