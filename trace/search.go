package trace

import "sort"

// EventTimeSearcher locates the local event index on a rank whose At time
// matches a target within tolerance, tie-breaking toward a given direction
// when several events share the same timestamp. It keeps a single-slot memo
// of the last (proc, t, idx) query to narrow the search range on repeated
// calls against the same rank (spec §4.1), which is the access pattern
// BuildLinkage exercises: every message endpoint on a given rank is looked
// up once, and ranks are processed in increasing message-id order.
type EventTimeSearcher struct {
	trace *Trace

	hasMemo  bool
	lastProc int
	lastTime float64
	lastIdx  int
}

// NewEventTimeSearcher creates a searcher over t.
func NewEventTimeSearcher(t *Trace) *EventTimeSearcher {
	return &EventTimeSearcher{trace: t}
}

// Find returns the index of the event on rank proc whose At time matches t
// within tolerance. tiebreak must be -1 or +1: when the matched event has a
// neighbour in that direction whose time also matches, Find keeps stepping in
// that direction until the neighbour falls outside tolerance, returning the
// furthest such index. ok is false if no event on the rank matches t.
//
// A query for exactly the memoized time on the memoized rank returns the
// memoized index directly, whatever tiebreak it passes.
func (s *EventTimeSearcher) Find(proc int, t float64, tiebreak int) (idx int, ok bool) {
	events := s.trace.Ranks[proc].Events
	lo, hi := 0, len(events)

	if s.hasMemo && s.lastProc == proc {
		switch {
		case t == s.lastTime:
			return s.lastIdx, true
		case t > s.lastTime:
			lo = s.lastIdx
		default:
			hi = s.lastIdx + 1
		}
	}

	i := sort.Search(hi-lo, func(i int) bool {
		return events[lo+i].At >= t-timeTolerance
	})
	i += lo
	if i >= len(events) || !sameTime(events[i].At, t) {
		return -1, false
	}

	for {
		next := i + tiebreak
		if next < 0 || next >= len(events) || !sameTime(events[next].At, t) {
			break
		}
		i = next
	}

	s.lastProc, s.lastTime, s.lastIdx, s.hasMemo = proc, t, i, true
	return i, true
}
