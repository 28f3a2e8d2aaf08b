package clock

import (
	"testing"

	"github.com/hlrs-hpc/clocktalk/diag"
	"github.com/hlrs-hpc/clocktalk/trace"
)

func TestBankStartInitializesPerRankClocks(t *testing.T) {
	b := NewBank(2, nil)
	b.Start(0, []float64{0, 5})

	if got := b.Critical(0); got != 0 {
		t.Errorf("expected rank 0 critical 0, got %v", got)
	}
	if got := b.Critical(1); got != 5 {
		t.Errorf("expected rank 1 critical 5, got %v", got)
	}
	if got := b.Traced(1); got != 5 {
		t.Errorf("expected rank 1 traced 5, got %v", got)
	}
}

func TestBankPlayAccruesUsefulAndCritical(t *testing.T) {
	b := NewBank(1, nil)
	b.Start(0, []float64{0})

	b.PauseMPI(0, 10, 5)
	b.Play(0, 20, trace.Useful)
	b.PauseMPI(0, 30, 6)

	// Start leaves the rank in Useful from 0, so [0,10) and [20,30) both
	// accrue: 10 + 10 = 20.
	if got := b.Useful(0); got != 20 {
		t.Errorf("expected 20ns useful accrued across both Useful windows, got %v", got)
	}
	if got := b.Critical(0); got != 20 {
		t.Errorf("expected critical clock to accrue with useful time absent other propagation, got %v", got)
	}
}

func TestBankPauseTraceDisabledRegionSkipsUsefulUntilEnd(t *testing.T) {
	b := NewBank(1, nil)
	b.Start(0, []float64{0})

	b.PauseTrace(0, 10, trace.Disabled)
	// Only the Useful region [0,10) that Start opened has accrued.
	if got := b.Useful(0); got != 10 {
		t.Errorf("expected only the 10ns Useful region before Disabled to accrue, got %v", got)
	}

	b.End(0, 40, 100)
	// disabled for [10,40) accrues nothing, then the remainder to
	// universeEnd=100 is presumed ideally useful: 10 + (100-40) = 70.
	if got := b.Useful(0); got != 70 {
		t.Errorf("expected 70ns useful (10 before Disabled + 60 credited for disabled tail), got %v", got)
	}
}

func TestBankEventAfterEndedEmitsAnomalyAndContinues(t *testing.T) {
	var got []diag.Event
	d := diag.NewCollector(func(e diag.Event) { got = append(got, e) })
	b := NewBank(1, d)
	b.Start(0, []float64{0})
	b.End(0, 10, 10)

	// A further event arriving after Ended must not panic or block; it is
	// logged as an anomaly and processing continues.
	b.PauseMPI(0, 20, 1)

	if len(got) != 1 {
		t.Fatalf("expected 1 anomaly emitted, got %d", len(got))
	}
	if got[0].Kind != diag.KindEventAfterEnded {
		t.Errorf("expected KindEventAfterEnded, got %v", got[0].Kind)
	}
	if b.Elapsed(0) != 20 {
		t.Errorf("expected processing to continue and elapsed to advance to 20, got %v", b.Elapsed(0))
	}
}

func TestBankNilDiagCollectorIsSilent(t *testing.T) {
	b := NewBank(1, nil)
	b.Start(0, []float64{0})
	b.End(0, 10, 10)

	// Must not panic with a nil diag collector.
	b.PauseMPI(0, 20, 1)
}

func TestBankMaxAndAvgAcrossRanks(t *testing.T) {
	b := NewBank(3, nil)
	b.Start(0, []float64{0, 0, 0})
	b.PauseMPI(0, 10, 1)
	b.PauseMPI(1, 20, 1)
	b.PauseMPI(2, 5, 1)

	if got := b.MaxUseful(); got != 20 {
		t.Errorf("expected max useful 20, got %v", got)
	}
	want := (10.0 + 20.0 + 5.0) / 3.0
	if got := b.AvgUseful(); got != want {
		t.Errorf("expected avg useful %v, got %v", want, got)
	}
}
