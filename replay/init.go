package replay

import (
	"fmt"

	"github.com/hlrs-hpc/clocktalk/clock"
	"github.com/hlrs-hpc/clocktalk/trace"
)

// mpiInitKind is trace.EventKind(mpiInit) as a convenience for
// RankEvents.SearchNextByID/HasKind, which operate on EventKind values.
const mpiInitKind = trace.EventKind(mpiInit)

// handleMPIInit implements spec §4.7: before the main replay loop, ranks
// carrying an MPI_Init event are advanced through it via the normal
// per-event replay. If every rank has one, their critical clocks are
// barrier-synchronised to the slowest rank's entry time before the main
// loop starts; if only some do, those ranks simply advance with no
// cross-rank synchronisation.
func handleMPIInit(tr *trace.Trace, procs []*Processor, bank *clock.Bank) error {
	np := tr.NumProcs()
	any, all := false, true
	for p := 0; p < np; p++ {
		if tr.Rank(p).HasKind(mpiInitKind) {
			any = true
		} else {
			all = false
		}
	}
	if !any {
		return nil
	}

	if !all {
		for p := 0; p < np; p++ {
			if !tr.Rank(p).HasKind(mpiInitKind) {
				continue
			}
			if err := advanceThroughInit(tr, procs[p], p); err != nil {
				return err
			}
		}
		return nil
	}

	for p := 0; p < np; p++ {
		if err := advanceThroughInit(tr, procs[p], p); err != nil {
			return err
		}
	}

	barrier := bank.MaxCritical()
	for p := 0; p < np; p++ {
		r := tr.Rank(p)
		if !r.Remaining() {
			// A rank whose trace ends immediately after MPI_Init has no
			// exit event to play into; just promote its critical clock.
			bank.SetCritical(p, barrier)
			continue
		}
		exitAt := r.CurrentAt()
		bank.SetCritical(p, barrier)
		bank.Play(p, exitAt, trace.Useful)
		r.Current().Crit = bank.Critical(p)
		r.Advance()
	}
	return nil
}

// advanceThroughInit runs the normal per-event replay on rank p up to and
// including its MPI_Init entry event, leaving it paused in the MPI_Init
// region. It returns an error if the rank blocks before reaching MPI_Init
// (a condition the original engine does not expect to occur this early).
func advanceThroughInit(tr *trace.Trace, proc *Processor, rank int) error {
	r := tr.Rank(rank)
	target, ok := r.SearchNextByID(mpiInitKind)
	if !ok {
		return fmt.Errorf("rank %d: MPI_Init event not found despite HasKind match", rank)
	}

	for r.Cursor() <= target {
		res := proc.Step(rank, 0)
		if res != Progressed {
			return fmt.Errorf("rank %d blocked (%v) while advancing to MPI_Init", rank, res)
		}
	}
	return nil
}
