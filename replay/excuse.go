package replay

import "github.com/hlrs-hpc/clocktalk/trace"

// excuse reports whether the transition from prev to curr should be skipped
// silently per the configured ignore policy (spec §7), without touching the
// clock bank at all. An Invalid curr state is never excused — that is always
// a fatal input-inconsistency, surfaced by the caller.
func excuse(opts SimOptions, prev, curr trace.EventKind) bool {
	if opts.IgnoreTraceEvts && (prev == trace.TraceInit || curr == trace.TraceInit) {
		return true
	}
	if opts.IgnoreFlushEvts && (prev == trace.Flush || curr == trace.Flush) {
		return true
	}
	if opts.IgnoreDisabledTracing && ((prev == trace.Disabled && curr == trace.Useful) || curr == trace.Disabled) {
		return true
	}
	return false
}
