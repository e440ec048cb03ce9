package gate

import "time"

// EffectiveTimeout turns a requested timeout in seconds into the timeout the
// command runs with. A nil request selects the default. Requests above the
// maximum are clamped rather than rejected (clamped reports this); zero and
// negative requests are rejected.
func (p *Policy) EffectiveTimeout(seconds *int) (timeout time.Duration, clamped bool, v *Violation) {
	if seconds == nil {
		return p.DefaultTimeout(), false, nil
	}
	if *seconds <= 0 {
		return 0, false, violationf(KindSecurityViolation, "Invalid timeout: must be a positive number of seconds, got %d", *seconds)
	}
	// Compare in seconds first so huge requests cannot overflow Duration.
	if int64(*seconds) > int64(p.MaxTimeout()/time.Second) {
		return p.MaxTimeout(), true, nil
	}
	return time.Duration(*seconds) * time.Second, false, nil
}
