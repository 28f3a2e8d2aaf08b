package monitor

import (
	"math"

	"github.com/hlrs-hpc/clocktalk/trace"
)

// WindowRow is one (possibly merged) bin of the windowed monitor: 8 columns,
// matching the <stem>.wm.dat layout.
type WindowRow struct {
	TMax          float64
	MaxCrit       float64
	AvgCrit       float64
	MaxUseful     float64
	AvgUseful     float64
	ElapsedLocal  float64
	CriticalLocal float64
	MinEventsBin  int
}

// DefaultWindowLength is the windowed monitor's default bin width, 1e9ns
// (one second at nanosecond resolution).
const DefaultWindowLength = 1e9

// WindowedMonitor walks every rank's event stream in lockstep over fixed
// time bins, merging sparse bins forward until every rank has contributed
// at least sqrt(N) events (the adaptive merge rule).
type WindowedMonitor struct {
	tr    *trace.Trace
	delta float64
}

// NewWindowedMonitor builds a windowed monitor over tr with bin width delta.
// A non-positive delta falls back to DefaultWindowLength.
func NewWindowedMonitor(tr *trace.Trace, delta float64) *WindowedMonitor {
	if delta <= 0 {
		delta = DefaultWindowLength
	}
	return &WindowedMonitor{tr: tr, delta: delta}
}

// Run walks every bin to completion and returns one row per (possibly
// merged) bin. With a single rank the adaptive merge never triggers, even
// for a bin that holds no event.
func (w *WindowedMonitor) Run() []WindowRow {
	tr := w.tr
	np := tr.NumProcs()
	threshold := int(math.Sqrt(float64(np)))

	idx := make([]int, np)
	lastSince := make([]float64, np)
	lastCrit := make([]float64, np)
	useful := make([]float64, np)   // cumulative from the start of the run
	critical := make([]float64, np) // cumulative from the start of the run
	prevUseful := make([]float64, np)
	prevCrit := make([]float64, np)
	localUseful := make([]float64, np)
	localCrit := make([]float64, np)
	playing := make([]bool, np)
	for p := 0; p < np; p++ {
		lastSince[p] = tr.Rank(p).TStart
		playing[p] = true
	}

	tMin := tr.UniverseStart()
	tEnd := tr.UniverseEnd()

	var rows []WindowRow
	prevTMax := tMin
	eventsInBin := make([]int, np)

	binStart := true
	for binIndex := 0; ; binIndex++ {
		tMax := tMin + float64(binIndex+1)*w.delta
		final := tMax >= tEnd
		if final {
			tMax = tEnd
		}

		if binStart {
			copy(prevUseful, useful)
			copy(prevCrit, critical)
			binStart = false
		}

		for p := 0; p < np; p++ {
			evs := tr.Rank(p).Events
			for idx[p] < len(evs) && (evs[idx[p]].At < tMax || (final && evs[idx[p]].At == tMax)) {
				e := evs[idx[p]]
				delta := e.At - lastSince[p]
				if playing[p] {
					useful[p] += delta
					critical[p] += delta
				} else if e.Crit > 0 {
					critical[p] += e.Crit - lastCrit[p]
				}
				lastSince[p] = e.At
				lastCrit[p] = e.Crit
				playing[p] = e.Kind == trace.Useful
				idx[p]++
				eventsInBin[p]++
			}
		}

		minEvents := minInt(eventsInBin)
		if np > 1 && minEvents < threshold && !final {
			continue // adaptive merge: fold the next Δ into this bin
		}

		for p := 0; p < np; p++ {
			if gap := tMax - lastSince[p]; gap > 0 && playing[p] {
				useful[p] += gap
				critical[p] += gap
				lastSince[p] = tMax
			}
		}

		binWidth := tMax - prevTMax
		for p := 0; p < np; p++ {
			localUseful[p] = useful[p] - prevUseful[p]
			localCrit[p] = critical[p] - prevCrit[p]
		}

		maxCrit, avgCrit := maxAvg(localCrit)
		maxUseful, avgUseful := maxAvg(localUseful)

		crit := maxCrit
		if crit < maxUseful {
			crit = maxUseful
		}
		if binWidth > 0 && crit > binWidth {
			crit = binWidth
		}

		rows = append(rows, WindowRow{
			TMax:          tMax,
			MaxCrit:       maxCrit,
			AvgCrit:       avgCrit,
			MaxUseful:     maxUseful,
			AvgUseful:     avgUseful,
			ElapsedLocal:  binWidth,
			CriticalLocal: crit,
			MinEventsBin:  minEvents,
		})

		prevTMax = tMax
		binStart = true
		for p := range eventsInBin {
			eventsInBin[p] = 0
		}

		if allExhausted(idx, tr, np) || tMax >= tEnd {
			break
		}
	}

	return rows
}

func allExhausted(idx []int, tr *trace.Trace, np int) bool {
	for p := 0; p < np; p++ {
		if idx[p] < len(tr.Rank(p).Events) {
			return false
		}
	}
	return true
}

func minInt(vs []int) int {
	if len(vs) == 0 {
		return 0
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
