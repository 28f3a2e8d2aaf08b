package replay

import (
	"fmt"

	"github.com/hlrs-hpc/clocktalk/clock"
	"github.com/hlrs-hpc/clocktalk/collective"
	"github.com/hlrs-hpc/clocktalk/diag"
	"github.com/hlrs-hpc/clocktalk/trace"
)

// StepResult reports the outcome of one Processor.Step call. A blocked
// result is routine control flow (spec §5's suspension points), not an
// error: the global replay loop uses it to decide when to retry a rank.
type StepResult int

const (
	// Progressed means the current event was fully processed and the
	// cursor advanced.
	Progressed StepResult = iota
	// BlockedRendezvous means an outgoing send is waiting for its remote
	// receive to post under the rendezvous protocol.
	BlockedRendezvous
	// BlockedRemoteNotPosted means an incoming receive is waiting for its
	// remote send to post.
	BlockedRemoteNotPosted
	// BlockedCollective means the rank tried to enter a collective whose
	// communicator slot it has already entered and not yet left.
	BlockedCollective
	// BlockedWaiting means the rank is leaving a collective before the
	// last member has entered.
	BlockedWaiting
	// Exhausted means the rank has no events left to process.
	Exhausted
)

func (r StepResult) String() string {
	switch r {
	case Progressed:
		return "progressed"
	case BlockedRendezvous:
		return "blocked-rendezvous"
	case BlockedRemoteNotPosted:
		return "blocked-remote-not-posted"
	case BlockedCollective:
		return "blocked-collective"
	case BlockedWaiting:
		return "blocked-waiting"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Blocked reports whether r represents one of the suspension reasons
// (everything except Progressed and Exhausted).
func (r StepResult) Blocked() bool {
	switch r {
	case BlockedRendezvous, BlockedRemoteNotPosted, BlockedCollective, BlockedWaiting:
		return true
	default:
		return false
	}
}

// Processor drives one rank's event stream forward (spec §4.5): the
// per-rank state-machine step that updates the clock bank and posts/settles
// messages and collectives. One Processor exists per rank for the lifetime
// of a replay; all of them share the same Trace, Bank, and Registry.
type Processor struct {
	tr    *trace.Trace
	bank  *clock.Bank
	colls *collective.Registry
	opts  SimOptions
	diag  *diag.Collector
}

// NewProcessor builds a Processor over the given trace, clock bank, and
// collective registry, applying opts' eager-limit and ignore-category
// policy. diagC may be nil; anomalies are then dropped.
func NewProcessor(tr *trace.Trace, bank *clock.Bank, colls *collective.Registry, opts SimOptions, diagC *diag.Collector) *Processor {
	return &Processor{tr: tr, bank: bank, colls: colls, opts: opts, diag: diagC}
}

func (p *Processor) emit(rank int, at float64, kind diag.Kind, format string, args ...interface{}) {
	p.diag.Emit(diag.Event{
		Level:   diag.Anomaly,
		Kind:    kind,
		Rank:    rank,
		At:      at,
		Message: fmt.Sprintf(format, args...),
	})
}

// Step processes the single event currently under rank's cursor, per the
// dispatch table in spec §4.5. stuckCounter is the global replay loop's
// current consecutive-zero-movement count, forwarded so message settlement
// can arm the illogical-recv escape hatch (spec §4.6) once it is positive.
//
// A blocked result leaves the cursor untouched so the caller can retry the
// same event once whatever it is waiting on resolves.
func (p *Processor) Step(rank int, stuckCounter int) StepResult {
	r := p.tr.Rank(rank)
	if !r.Remaining() {
		return Exhausted
	}

	ev := r.Current()
	prevKind := r.PreviousKind()

	if excuse(p.opts, prevKind, ev.Kind) {
		ev.Crit = p.bank.Critical(rank)
		r.Advance()
		return Progressed
	}

	switch {
	case ev.Kind.IsMPI():
		code := ev.Kind.MPICode()
		p.bank.PauseMPI(rank, ev.At, ev.Kind)
		p.postMessages(rank, ev)
		if res := p.settleMessages(rank, ev, stuckCounter); res != Progressed {
			return res
		}
		if collective.DimemasCompliant(code) {
			if res := p.postCollective(rank, code); res != Progressed {
				return res
			}
		}

	case ev.Kind == trace.Useful:
		if prevKind.IsMPI() && collective.DimemasCompliant(prevKind.MPICode()) {
			if res := p.leaveCollective(rank, prevKind.MPICode()); res != Progressed {
				return res
			}
		}
		p.postMessages(rank, ev)
		if res := p.settleMessages(rank, ev, stuckCounter); res != Progressed {
			return res
		}
		p.bank.Play(rank, ev.At, trace.Useful)

	default: // Disabled, Flush, TraceInit, Invalid
		if ev.Kind == trace.Invalid {
			p.emit(rank, ev.At, diag.KindInvalidEvent, "rank %d encountered an unclassified (invalid) event", rank)
		}
		p.bank.PauseTrace(rank, ev.At, ev.Kind)
	}

	ev.Crit = p.bank.Critical(rank)
	r.Advance()
	return Progressed
}

// StepMany runs Step in a tight loop until the rank blocks or its events run
// out (spec §4.8's step_many), returning the total forward movement made.
func (p *Processor) StepMany(rank int, stuckCounter int) (movement int, result StepResult) {
	r := p.tr.Rank(rank)
	for r.Remaining() {
		res := p.Step(rank, stuckCounter)
		if res != Progressed {
			return movement, res
		}
		movement++
	}
	return movement, Exhausted
}

// postCollective records rank's entry into the Dimemas-compliant collective
// identified by code, using the rank's next unconsumed recorded collective
// entry to find the communicator. Self-communicators never block (spec
// §4.5 step 2d); a rank re-entering a slot it already occupies blocks with
// BlockedCollective.
func (p *Processor) postCollective(rank int, code int) StepResult {
	r := p.tr.Rank(rank)
	if !r.RemainingColls() {
		p.emit(rank, p.bank.Critical(rank), diag.KindCollMissingEntry,
			"rank %d entered MPI collective %d with no recorded collective-entry left", rank, code)
		return Progressed
	}
	entry := r.CurrentColl()
	if p.colls.HasEntered(entry.CommID, rank) {
		return BlockedCollective
	}
	p.colls.Enter(entry.CommID, rank, code)
	return Progressed
}

// leaveCollective promotes rank's critical clock to the last-entrant's time
// on the communicator tied to its current pending collective entry, and
// advances the collective cursor once the promotion succeeds.
func (p *Processor) leaveCollective(rank int, code int) StepResult {
	r := p.tr.Rank(rank)
	if !r.RemainingColls() {
		return Progressed
	}
	entry := r.CurrentColl()
	switch p.colls.Leave(entry.CommID, rank) {
	case collective.LeaveBlockedWaiting:
		return BlockedWaiting
	default:
		r.AdvanceColl()
		return Progressed
	}
}
