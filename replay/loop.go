package replay

import (
	"fmt"

	"github.com/hlrs-hpc/clocktalk/clock"
	"github.com/hlrs-hpc/clocktalk/collective"
	"github.com/hlrs-hpc/clocktalk/diag"
	"github.com/hlrs-hpc/clocktalk/trace"
)

// Result summarizes one full replay run.
type Result struct {
	// StuckRounds counts how many consecutive zero-movement rounds occurred
	// at the point the loop finished (0 if it never stalled).
	StuckRounds int
	// Aborted is true if the stuck threshold was reached before every rank
	// exhausted its events (spec §5's "wrong results" condition).
	Aborted bool
}

// Run drives the cooperative global replay loop (spec §4.8) to completion:
// MPI_Init synchronisation, then round-robin stepping of every rank until
// none can move, with the stuck counter and illogical-recv escape hatch
// wired in per spec §7. It mutates tr's event Crit fields and message
// markers in place and leaves bank holding each rank's final clock totals.
func Run(tr *trace.Trace, bank *clock.Bank, colls *collective.Registry, opts SimOptions, diagC *diag.Collector) (*Result, error) {
	np := tr.NumProcs()
	procs := make([]*Processor, np)
	for p := 0; p < np; p++ {
		procs[p] = NewProcessor(tr, bank, colls, opts, diagC)
	}

	if err := handleMPIInit(tr, procs, bank); err != nil {
		return nil, fmt.Errorf("mpi_init synchronisation: %w", err)
	}

	res := &Result{}
	stuck := 0

	for {
		movement := 0
		remaining := false

		for p := 0; p < np; p++ {
			if !tr.Rank(p).Remaining() {
				continue
			}
			remaining = true
			m, _ := procs[p].StepMany(p, stuck)
			movement += m
		}

		if !remaining {
			break
		}

		if movement == 0 {
			stuck++
			diagC.Emit(diag.Event{
				Level:   diag.Anomaly,
				Kind:    diag.KindStuckRound,
				Message: fmt.Sprintf("replay round made no progress (stuck count %d/%d)", stuck, np),
			})
			if np > 0 && stuck >= np {
				diagC.Emit(diag.Event{
					Level:   diag.Anomaly,
					Kind:    diag.KindStuckAbort,
					Message: "stuck threshold reached, aborting replay with wrong-results flag set",
				})
				res.Aborted = true
				res.StuckRounds = stuck
				break
			}
		} else {
			stuck = 0
		}
	}

	universeEnd := tr.UniverseEnd()
	for p := 0; p < np; p++ {
		bank.End(p, tr.Rank(p).TEnd, universeEnd)
	}

	return res, nil
}
