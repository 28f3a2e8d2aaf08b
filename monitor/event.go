// Package monitor implements the two post-replay projections that consume a
// completed replay's annotated event stream: the event-based monitor (one
// row per useful-transition on a chosen rank) and the windowed monitor (one
// row per fixed-width time bin, with adaptive merge for sparse bins).
package monitor

import (
	"math"

	"github.com/hlrs-hpc/clocktalk/clock"
	"github.com/hlrs-hpc/clocktalk/trace"
)

// EventRow is one sample of the event-based monitor: 11 columns, matching
// the <stem>.em.dat layout.
type EventRow struct {
	Elapsed   float64
	Traced    float64
	Critical  float64
	MaxUseful float64
	AvgUseful float64

	CumulativeLBE    float64
	CumulativeSerEff float64
	CumulativeTrfEff float64
	LocalLBE         float64
	LocalSerEff      float64
	LocalTrfEff      float64
}

// EventMonitor replays the already-annotated event stream a second time, in
// global time order, sampling a row each time the monitored rank transitions
// into a useful region.
type EventMonitor struct {
	tr   *trace.Trace
	rank int
	span int

	useful []float64 // running per-rank useful accumulator, independent of the bank
	rows   []EventRow
}

// DefaultMonitorRank returns the rank with the largest useful total in bank,
// the event monitor's default target absent an explicit --emon-rank.
func DefaultMonitorRank(bank *clock.Bank, np int) int {
	best, bestUseful := 0, -1.0
	for p := 0; p < np; p++ {
		if u := bank.Useful(p); u > bestUseful {
			best, bestUseful = p, u
		}
	}
	return best
}

// NewEventMonitor builds an event-based monitor targeting rank, with local
// efficiency ratios computed over the trailing span samples.
func NewEventMonitor(tr *trace.Trace, rank, span int) *EventMonitor {
	return &EventMonitor{
		tr:     tr,
		rank:   rank,
		span:   span,
		useful: make([]float64, tr.NumProcs()),
	}
}

type globalEvent struct {
	rank int
	idx  int
	at   float64
}

// mergedByTime returns every rank's events merged into one globally
// time-ordered sequence, ties broken by rank index for determinism.
func mergedByTime(tr *trace.Trace) []globalEvent {
	np := tr.NumProcs()
	total := 0
	for p := 0; p < np; p++ {
		total += len(tr.Rank(p).Events)
	}
	merged := make([]globalEvent, 0, total)
	for p := 0; p < np; p++ {
		evs := tr.Rank(p).Events
		for i := range evs {
			merged = append(merged, globalEvent{rank: p, idx: i, at: evs[i].At})
		}
	}
	sortGlobalEvents(merged)
	return merged
}

func sortGlobalEvents(ge []globalEvent) {
	// Insertion sort over the rank-by-rank concatenation: each rank's run is
	// already sorted, but interleaving the runs is quadratic in the worst
	// case.
	for i := 1; i < len(ge); i++ {
		for j := i; j > 0 && less(ge[j], ge[j-1]); j-- {
			ge[j], ge[j-1] = ge[j-1], ge[j]
		}
	}
}

func less(a, b globalEvent) bool {
	if a.at != b.at {
		return a.at < b.at
	}
	return a.rank < b.rank
}

// Run walks the merged global event stream once and returns every sampled
// row, in sample order.
func (m *EventMonitor) Run() []EventRow {
	tr := m.tr
	np := tr.NumProcs()
	lastAt := make([]float64, np)
	lastKind := make([]trace.EventKind, np)
	tracing := make([]bool, np)
	for p := range tracing {
		tracing[p] = true
		lastAt[p] = tr.Rank(p).TStart
	}

	var elapsedR, tracedR float64
	lastTickAt := tr.Rank(m.rank).TStart

	for _, ge := range mergedByTime(tr) {
		p := ge.rank
		e := &tr.Rank(p).Events[ge.idx]
		delta := e.At - lastAt[p]

		if lastKind[p] == trace.Useful {
			m.useful[p] += delta
		}

		switch e.Kind {
		case trace.Disabled:
			tracing[p] = false
		case trace.Useful:
			if lastKind[p] == trace.Disabled {
				tracing[p] = true
			}
		}

		if p == m.rank {
			elapsedR += e.At - lastTickAt
			lastTickAt = e.At
			if tracing[p] {
				tracedR += delta
			}
		}

		lastAt[p] = e.At
		lastKind[p] = e.Kind

		if p == m.rank && e.Kind == trace.Useful {
			m.sample(e.Crit, elapsedR, tracedR)
		}
	}

	return m.rows
}

func (m *EventMonitor) sample(idealCritical, elapsedR, tracedR float64) {
	maxUseful, avgUseful := maxAvg(m.useful)

	row := EventRow{
		Elapsed:   elapsedR,
		Traced:    tracedR,
		Critical:  idealCritical,
		MaxUseful: maxUseful,
		AvgUseful: avgUseful,
	}
	row.CumulativeLBE, row.CumulativeSerEff, row.CumulativeTrfEff = efficiencyRatios(avgUseful, maxUseful, idealCritical, tracedR)

	baseIdx := len(m.rows) - m.span
	if baseIdx < 0 {
		baseIdx = 0
	}
	if len(m.rows) > 0 {
		base := m.rows[baseIdx]
		dUseful := avgUseful - base.AvgUseful
		dMaxUseful := maxUseful - base.MaxUseful
		dCritical := idealCritical - base.Critical
		dTraced := tracedR - base.Traced
		row.LocalLBE, row.LocalSerEff, row.LocalTrfEff = efficiencyRatios(dUseful, dMaxUseful, dCritical, dTraced)
	} else {
		row.LocalLBE, row.LocalSerEff, row.LocalTrfEff = row.CumulativeLBE, row.CumulativeSerEff, row.CumulativeTrfEff
	}

	m.rows = append(m.rows, row)
}

// efficiencyTolerance is the slack within which load balance is reported as
// a clean 1.0 rather than a value infinitesimally below it from floating
// point accumulation.
const efficiencyTolerance = 1e-6

func efficiencyRatios(avgUseful, maxUseful, idealCritical, traced float64) (lbe, serEff, trfEff float64) {
	lbe = safeDiv(avgUseful, maxUseful)
	if math.Abs(lbe-1) < efficiencyTolerance {
		lbe = 1.0
	}
	serEff = safeDiv(maxUseful, idealCritical)
	trfEff = safeDiv(idealCritical, traced)
	return
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func maxAvg(vs []float64) (max, avg float64) {
	if len(vs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range vs {
		if v > max {
			max = v
		}
		sum += v
	}
	return max, sum / float64(len(vs))
}
