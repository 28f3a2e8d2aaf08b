// Package collective implements the collective coordination registry: one
// slot per communicator tracking which ranks have entered a Dimemas-compliant
// collective, the critical time each entered at, and the maximum entry time
// once the last member arrives (the "last-entrant barrier").
package collective

import (
	"fmt"

	"github.com/hlrs-hpc/clocktalk/clock"
	"github.com/hlrs-hpc/clocktalk/diag"
	"github.com/hlrs-hpc/clocktalk/trace"
)

// DimemasCompliant reports whether the given MPI function code identifies a
// collective whose semantics match a last-entrant barrier on the critical
// path. Non-compliant collectives are treated as local and skipped by the
// rank processor.
func DimemasCompliant(code int) bool {
	_, ok := dimemasCodes[code]
	return ok
}

// MPI function codes for the Dimemas-compliant collective set, named per
// spec. Values follow the Paraver MPI event code table.
const (
	Bcast         = 7
	Barrier       = 8
	Reduce        = 9
	Allreduce     = 10
	Alltoall      = 11
	Alltoallv     = 12
	Gather        = 13
	Gatherv       = 14
	Allgather     = 17
	ReduceScatter = 80
	Igatherv      = 163
)

var dimemasCodes = map[int]struct{}{
	Bcast: {}, Barrier: {}, Reduce: {}, Allreduce: {}, Alltoall: {},
	Alltoallv: {}, Gather: {}, Gatherv: {}, Allgather: {}, ReduceScatter: {},
	Igatherv: {},
}

// slot is one communicator's collective coordination state.
type slot struct {
	eventID        int // 0 means no collective currently activated on this slot
	entryCrit      []float64
	membersRemain  int
	lastEntryCrit  float64
	lastSet        bool
}

// Registry holds one slot per communicator in a trace.
type Registry struct {
	tr    *trace.Trace
	bank  *clock.Bank
	slots []slot
	diag  *diag.Collector
}

// NewRegistry builds a registry over tr's communicators, sized for np ranks.
// Self-communicators get an empty slot and are never activated. diagC may be
// nil; anomalies are then simply dropped.
func NewRegistry(tr *trace.Trace, bank *clock.Bank, np int, diagC *diag.Collector) *Registry {
	r := &Registry{tr: tr, bank: bank, slots: make([]slot, len(tr.Communicators)), diag: diagC}
	for c := range r.slots {
		r.resetSlot(c)
	}
	return r
}

func (r *Registry) emit(p int, kind diag.Kind, format string, args ...interface{}) {
	r.diag.Emit(diag.Event{
		Level:   diag.Anomaly,
		Kind:    kind,
		Rank:    p,
		At:      r.bank.Critical(p),
		Message: fmt.Sprintf(format, args...),
	})
}

func (r *Registry) resetSlot(c int) {
	comm := r.tr.Communicator(c)
	r.slots[c] = slot{
		eventID:       0,
		entryCrit:     make([]float64, len(r.tr.Ranks)),
		membersRemain: len(comm.Ranks),
		lastEntryCrit: -1,
		lastSet:       false,
	}
	for _, p := range comm.Ranks {
		r.slots[c].entryCrit[p] = -1
	}
}

func (r *Registry) isActive(c int) bool { return r.slots[c].eventID > 0 }

// EntryCrit returns the critical time at which rank p entered communicator
// c's current collective, or -1 if it has not entered.
func (r *Registry) EntryCrit(c, p int) float64 { return r.slots[c].entryCrit[p] }

// HasEntered reports whether rank p has already posted its entry into c's
// active collective.
func (r *Registry) HasEntered(c, p int) bool { return r.slots[c].entryCrit[p] != -1 }

// Enter records rank p's entry into communicator c's collective, identified
// by MPI function code evt, at critical time bank.Critical(p). A collective
// activated on a self-communicator is an input inconsistency: logged, and
// treated as an immediate no-op entry-and-leave (self-communicators have a
// single member and can never meaningfully block). A rank entering a
// mismatched collective on an already-active slot, or completing membership
// after the last-entry time was already computed, are also input
// inconsistencies: logged, and the new arrival overrides the stale state.
func (r *Registry) Enter(c, p int, evt int) {
	if r.tr.Communicator(c).IsSelf() {
		r.emit(p, diag.KindCollOnSelf, "rank %d activating comm %d with COMM_SELF, treated as no-op", p, c)
		return
	}
	s := &r.slots[c]
	if !r.isActive(c) {
		s.eventID = evt
	} else if s.eventID != evt {
		r.emit(p, diag.KindCollOverride, "rank %d entering %d on comm %d, already active collective %d, overriding", p, evt, c, s.eventID)
		s.eventID = evt
	}

	s.entryCrit[p] = r.bank.Critical(p)
	s.membersRemain--

	if s.membersRemain == 0 {
		if s.lastSet {
			r.emit(p, diag.KindCollOverride, "comm %d everyone entered but last-entry already set, recomputing", c)
		}
		last := 0.0
		for _, m := range r.tr.Communicator(c).Ranks {
			if s.entryCrit[m] > last {
				last = s.entryCrit[m]
			}
		}
		s.lastEntryCrit = last
		s.lastSet = true
	}
}

// LeaveResult is the outcome of a Leave call.
type LeaveResult int

const (
	// LeaveDone means the rank was promoted and may continue.
	LeaveDone LeaveResult = iota
	// LeaveBlockedWaiting means the last member has not yet entered; the
	// caller must retry this rank later without advancing its cursor.
	LeaveBlockedWaiting
)

// Leave promotes rank p's critical clock to the last-entrant's critical time
// and marks it as having left communicator c's active collective. If the
// last entry time is not yet established, it returns LeaveBlockedWaiting and
// makes no changes.
func (r *Registry) Leave(c, p int) LeaveResult {
	if r.tr.Communicator(c).IsSelf() {
		return LeaveDone
	}
	s := &r.slots[c]
	if !s.lastSet {
		return LeaveBlockedWaiting
	}

	delta := s.lastEntryCrit - s.entryCrit[p]
	r.bank.UpdateCritical(p, delta)
	s.membersRemain++

	if s.membersRemain == len(r.tr.Communicator(c).Ranks) {
		r.resetSlot(c)
	}
	return LeaveDone
}
