package collective

import (
	"testing"

	"github.com/hlrs-hpc/clocktalk/clock"
	"github.com/hlrs-hpc/clocktalk/trace"
)

func newBarrierTrace() (*trace.Trace, *clock.Bank) {
	tr := &trace.Trace{
		Communicators: []trace.Communicator{
			{ID: 0, Ranks: []int{0, 1, 2}},
		},
		Ranks: []*trace.RankEvents{
			{Proc: 0}, {Proc: 1}, {Proc: 2},
		},
	}
	b := clock.NewBank(3, nil)
	b.Start(0, []float64{0, 0, 0})
	return tr, b
}

func TestBarrierAcrossThreeRanks(t *testing.T) {
	// Mirrors the literal scenario: useful durations 100, 200, 300 then
	// Barrier. After all three enter and leave, every rank's critical clock
	// should equal the slowest rank's entry time (300).
	tr, b := newBarrierTrace()
	r := NewRegistry(tr, b, 3, nil)

	b.UpdateCritical(0, 100)
	b.UpdateCritical(1, 200)
	b.UpdateCritical(2, 300)

	r.Enter(0, 0, Barrier)
	r.Enter(0, 1, Barrier)
	r.Enter(0, 2, Barrier)

	for p := 0; p < 3; p++ {
		if res := r.Leave(0, p); res != LeaveDone {
			t.Fatalf("rank %d leave: expected LeaveDone, got %v", p, res)
		}
	}

	for p := 0; p < 3; p++ {
		if got := b.Critical(p); got != 300 {
			t.Errorf("rank %d: expected critical 300 after barrier, got %v", p, got)
		}
	}
}

func TestLeaveBlockedUntilLastEntrant(t *testing.T) {
	tr, b := newBarrierTrace()
	r := NewRegistry(tr, b, 3, nil)

	r.Enter(0, 0, Barrier)

	if res := r.Leave(0, 0); res != LeaveBlockedWaiting {
		t.Errorf("expected LeaveBlockedWaiting before all ranks entered, got %v", res)
	}
}

func TestEnterOnSelfCommunicatorIsNoOp(t *testing.T) {
	tr := &trace.Trace{
		Communicators: []trace.Communicator{{ID: 0, Ranks: []int{0}}},
		Ranks:         []*trace.RankEvents{{Proc: 0}},
	}
	b := clock.NewBank(1, nil)
	b.Start(0, []float64{0})
	r := NewRegistry(tr, b, 1, nil)

	r.Enter(0, 0, Barrier)
	if r.HasEntered(0, 0) {
		t.Errorf("expected self-communicator entry to be a no-op, not recorded")
	}
	if res := r.Leave(0, 0); res != LeaveDone {
		t.Errorf("expected self-communicator leave to always report LeaveDone, got %v", res)
	}
}

func TestDimemasCompliantSet(t *testing.T) {
	compliant := []int{Bcast, Barrier, Reduce, Allreduce, Alltoall, Alltoallv, Gather, Gatherv, Allgather, ReduceScatter, Igatherv}
	for _, code := range compliant {
		if !DimemasCompliant(code) {
			t.Errorf("expected code %d to be Dimemas-compliant", code)
		}
	}
	if DimemasCompliant(9999) {
		t.Errorf("expected unknown code to be non-compliant")
	}
}

func TestSlotResetsAfterEveryoneLeaves(t *testing.T) {
	tr, b := newBarrierTrace()
	r := NewRegistry(tr, b, 3, nil)

	for p := 0; p < 3; p++ {
		r.Enter(0, p, Barrier)
	}
	for p := 0; p < 3; p++ {
		r.Leave(0, p)
	}

	// Slot should be reset: a fresh collective can activate with a
	// different event code.
	r.Enter(0, 0, Bcast)
	if !r.HasEntered(0, 0) {
		t.Errorf("expected slot reset to allow a new collective to activate")
	}
}
