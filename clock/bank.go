// Package clock implements the per-rank clock bank: the five parallel time
// axes (elapsed, traced, flush, useful, critical) that the replay engine
// advances as it walks each rank's event stream.
//
// Every rank's clocks live as fields on a Bank value that callers own and
// pass around explicitly, rather than as package-level globals, so multiple
// replays (e.g. concurrent tests) never share state.
package clock

import (
	"fmt"

	"github.com/hlrs-hpc/clocktalk/diag"
	"github.com/hlrs-hpc/clocktalk/trace"
)

// Bank holds the clock state for every rank in a replay. The zero value is
// not usable; construct with NewBank.
type Bank struct {
	np int

	elapsed  []float64
	traced   []float64
	flush    []float64
	useful   []float64
	critical []float64

	// state/since mirror the original's curr.state/curr.since: the kind of
	// the region a rank is currently in, and the elapsed time it entered it.
	state []trace.EventKind
	since []float64

	// tracingSince: positive means tracing has been on since this elapsed
	// time; negative (negated) means tracing has been off since -value.
	tracingSince []float64

	diag *diag.Collector
}

// NewBank allocates a clock bank for np ranks, all clocks at zero and every
// rank in the Useful state with tracing untouched (tracingSince 0, which
// isTracing treats as "on since 0"). diagC may be nil; anomalies are simply
// dropped in that case.
func NewBank(np int, diagC *diag.Collector) *Bank {
	return &Bank{
		np:           np,
		elapsed:      make([]float64, np),
		traced:       make([]float64, np),
		flush:        make([]float64, np),
		useful:       make([]float64, np),
		critical:     make([]float64, np),
		state:        make([]trace.EventKind, np),
		since:        make([]float64, np),
		tracingSince: make([]float64, np),
		diag:         diagC,
	}
}

func (b *Bank) Elapsed(p int) float64  { return b.elapsed[p] }
func (b *Bank) Traced(p int) float64   { return b.traced[p] }
func (b *Bank) Flush(p int) float64    { return b.flush[p] }
func (b *Bank) Useful(p int) float64   { return b.useful[p] }
func (b *Bank) Critical(p int) float64 { return b.critical[p] }

// UpdateCritical adds delta to rank p's critical clock. Exported for the
// collective registry, which promotes a rank's critical time to a
// last-entrant's critical time on collective leave.
func (b *Bank) UpdateCritical(p int, delta float64) { b.critical[p] += delta }

// SetCritical sets rank p's critical clock directly, bypassing delta
// accrual. Used when promoting to a remote peer's settled critical time.
func (b *Bank) SetCritical(p int, t float64) { b.critical[p] = t }

// PromoteCritical raises rank p's critical clock to t if t is the larger of
// the two (message settlement never moves a critical clock backward).
func (b *Bank) PromoteCritical(p int, t float64) {
	if t > b.critical[p] {
		b.critical[p] = t
	}
}

// RestoreTotals overwrites rank p's final elapsed/traced/flush/useful/
// critical clocks directly, bypassing incremental accrual entirely. It
// exists for the cache package's cache-hit path: replaying a memoized
// result without re-running the event loop that produced it.
func (b *Bank) RestoreTotals(p int, elapsed, traced, flush, useful, critical float64) {
	b.elapsed[p] = elapsed
	b.traced[p] = traced
	b.flush[p] = flush
	b.useful[p] = useful
	b.critical[p] = critical
}

func (b *Bank) setCritical(p int, t float64)    { b.critical[p] = t }
func (b *Bank) updateCritical(p int, t float64) { b.critical[p] += t - b.since[p] }
func (b *Bank) setTraced(p int, t float64)      { b.traced[p] = t }
func (b *Bank) updateTraced(p int, t float64)   { b.traced[p] += t - b.since[p] }
func (b *Bank) updateFlush(p int, t float64)    { b.flush[p] += t - b.since[p] }
func (b *Bank) addUseful(p int, t float64)      { b.useful[p] += t }
func (b *Bank) updateUseful(p int, t float64)   { b.useful[p] += t - b.since[p] }

func (b *Bank) isTracing(p int) bool { return b.tracingSince[p] > -0.1 }

func (b *Bank) enabledAt(p int) float64 {
	if b.isTracing(p) {
		return b.tracingSince[p]
	}
	return -1
}

func (b *Bank) disabledAt(p int) float64 {
	if b.isTracing(p) {
		return -1
	}
	return -b.tracingSince[p]
}

func (b *Bank) emit(p int, t float64, kind diag.Kind, format string, args ...interface{}) {
	b.diag.Emit(diag.Event{
		Level:   diag.Anomaly,
		Kind:    kind,
		Rank:    p,
		At:      t,
		Message: fmt.Sprintf(format, args...),
	})
}

// disable stamps tracing off at `at`. An already-disabled rank being
// disabled again at a different time is an input inconsistency: logged, not
// fatal, and the new time wins (matches the original's log-then-overwrite).
func (b *Bank) disable(p int, at float64) {
	if !b.isTracing(p) {
		b.emit(p, at, diag.KindMPIPauseWhileOff, "rank %d disabled since %.0f, overwritten at %.0f", p, b.disabledAt(p), at)
	}
	b.tracingSince[p] = -at
}

func (b *Bank) enable(p int, at float64) {
	if b.isTracing(p) && !trace.SameTime(b.enabledAt(p), at) {
		b.emit(p, at, diag.KindMPIPauseWhileOff, "rank %d enabled since %.0f, overwritten at %.0f", p, b.enabledAt(p), at)
	}
	b.tracingSince[p] = at
}

func (b *Bank) setState(p int, s trace.EventKind) { b.state[p] = s }
func (b *Bank) setSince(p int, t float64)         { b.since[p] = t }

func (b *Bank) elapse(p int, t float64, evt trace.EventKind) {
	b.setState(p, evt)
	b.setSince(p, t)
	b.elapsed[p] = t
}

func (b *Bank) isCurrPaused(p int) bool   { return b.state[p] != trace.Useful }
func (b *Bank) isCurrPlaying(p int) bool  { return b.state[p] == trace.Useful }
func (b *Bank) isCurrDisabled(p int) bool { return b.state[p] == trace.Disabled }

// currCalc advances the running totals for the region the rank is currently
// in, up to time t, before the rank transitions into evt. It mirrors the
// original's currCalc dispatch on state(p). An event arriving after Ended is
// an input inconsistency: logged, then treated as if no region-specific
// accrual applies (the original continues into its traced-time update after
// printing the same warning).
func (b *Bank) currCalc(p int, t float64, evt trace.EventKind) {
	switch b.state[p] {
	case trace.Useful:
		if b.isTracing(p) {
			b.updateCritical(p, t)
			b.updateUseful(p, t)
		}
	case trace.Disabled:
		// no useful/critical accrual while disabled
	case trace.Flush:
		b.updateFlush(p, t)
	case trace.Invalid, trace.TraceInit:
		// no accrual
	case trace.Ended:
		b.emit(p, t, diag.KindEventAfterEnded, "rank %d received event %d after Ended", p, evt)
	default:
		// MPI region: no special accrual here, handled by the caller's
		// message/collective settlement before currCalc runs.
	}

	if b.isTracing(p) {
		b.updateTraced(p, t)
	}
}

// Play transitions rank p into a Useful region at time t.
func (b *Bank) Play(p int, t float64, evt trace.EventKind) {
	b.currCalc(p, t, evt)

	if !b.isTracing(p) {
		b.enable(p, t)
	}

	b.elapse(p, t, evt)
}

// PauseMPI transitions rank p into an MPI region at time t. Tracing being
// disabled, or re-pausing at a mismatched time, are input inconsistencies:
// logged, and the transition still proceeds.
func (b *Bank) PauseMPI(p int, t float64, evt trace.EventKind) {
	if !b.isTracing(p) {
		b.emit(p, t, diag.KindMPIPauseWhileOff, "rank %d pause event (%d) at %.0f, tracing disabled at %.0f", p, int(evt), t, b.disabledAt(p))
	}
	if b.isCurrPaused(p) && b.state[p] != trace.Ended && !trace.SameTime(t, b.since[p]) {
		b.emit(p, t, diag.KindMPIPauseWhileOff, "rank %d pause event (%d) at %.0f, paused since %.0f", p, int(evt), t, b.since[p])
	}

	b.currCalc(p, t, evt)

	b.elapse(p, t, evt)
}

// PauseTrace transitions rank p into one of the reserved trace regions
// (Ended, Disabled, Flush, TraceInit).
func (b *Bank) PauseTrace(p int, t float64, evt trace.EventKind) {
	b.currCalc(p, t, evt)

	if evt == trace.Disabled && b.isTracing(p) {
		b.disable(p, t)
	}

	b.elapse(p, t, evt)
}

// Start initializes every rank's clocks from its recorded start time t0s[p],
// enabling tracing from t0 and setting traced/critical to the rank's own
// start time.
func (b *Bank) Start(t0 float64, t0s []float64) {
	for p := 0; p < b.np; p++ {
		pt0 := t0s[p]
		b.tracingSince[p] = t0 // first stamp per rank, never conflicts
		b.setCritical(p, pt0)
		b.setTraced(p, pt0)
		b.elapse(p, pt0, trace.Useful)
	}
}

// End finalizes rank p's clocks at time t, given the time the whole replay's
// universe ends. If the rank was mid-Useful-region, useful time accrues up
// to t; if it was disabled, useful time accrues for the remainder up to
// universeEnd (disabled regions are presumed ideally useful).
func (b *Bank) End(p int, t float64, universeEnd float64) {
	switch {
	case b.isCurrPlaying(p):
		b.updateUseful(p, t)
	case b.isCurrDisabled(p):
		b.addUseful(p, universeEnd-t)
	}
	b.updateCritical(p, t)
	b.updateTraced(p, t)
	b.elapse(p, t, trace.Ended)
}

// MaxElapsed returns the maximum elapsed clock across all ranks.
func (b *Bank) MaxElapsed() float64 { return max64(b.elapsed) }

// MaxTraced returns the maximum traced clock across all ranks.
func (b *Bank) MaxTraced() float64 { return max64(b.traced) }

// MaxCritical returns the maximum critical clock across all ranks.
func (b *Bank) MaxCritical() float64 { return max64(b.critical) }

// MaxUseful returns the maximum useful clock across all ranks.
func (b *Bank) MaxUseful() float64 { return max64(b.useful) }

// AvgUseful returns the average useful clock across all ranks.
func (b *Bank) AvgUseful() float64 {
	if b.np == 0 {
		return 0
	}
	var sum float64
	for _, v := range b.useful {
		sum += v
	}
	return sum / float64(b.np)
}

func max64(vs []float64) float64 {
	var m float64
	for _, v := range vs {
		if v > m {
			m = v
		}
	}
	return m
}
