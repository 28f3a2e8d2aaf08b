// Package tracefile declares the boundary contract between the replay
// engine and a Paraver trace reader: the byte-level parsing of the trace
// file is out of scope for this engine, so this package specifies the
// two-pass build contract a reader must satisfy and leaves the Paraver
// parser itself to a collaborator. FileReader, a JSON-snapshot reader, is
// the one concrete Reader it provides.
//
// The reader is expected to run a CountingPass to size the trace's dense
// arrays, then a FillingPass with identical traversal semantics to populate
// them, matching Paraver's own record-type vocabulary.
package tracefile

import "github.com/hlrs-hpc/clocktalk/trace"

// RecordType names the Paraver record types a reader dispatches on while
// building a Trace, listed here for readers that want a shared vocabulary
// rather than bare integer literals. The replay engine itself never sees
// raw records — only the Trace a Reader has already built.
type RecordType int64

const (
	RecordStateMPI       RecordType = 50000001 // ..50000005: MPI value k
	RecordCollCommID     RecordType = 50100004 // communicator id on current collective
	RecordAppBeginEnd    RecordType = 40000001
	RecordTraceInit      RecordType = 40000002
	RecordFlush          RecordType = 40000003
	RecordTracingToggled RecordType = 40000012
)

// Counts is the result of a Reader's first pass over a trace file: the sizes
// needed to pre-allocate every dense array before the second pass fills them
// in with identical traversal semantics.
type Counts struct {
	NumNodes int
	NumApps  int
	NumProcs int

	EventsPerProc [][]int // reserved for readers that want to preallocate per-proc-per-app, keyed by rank
	Events        []int   // per-rank event counts
	Sends         []int   // per-rank send counts
	Recvs         []int   // per-rank recv counts
	Colls         []int   // per-rank collective-entry counts

	Communicators []int // size of each communicator, in declaration order
}

// Reader is the contract a trace-file parser must satisfy to feed the
// replay engine. Implementations own the byte-level Paraver format; this
// package parses no Paraver file itself.
type Reader interface {
	// CountingPass scans the source once and returns the sizes needed to
	// allocate a Trace's dense arrays.
	CountingPass() (Counts, error)

	// FillingPass scans the source a second time, with the same traversal
	// order CountingPass used, and populates a freshly allocated Trace built
	// from the Counts it returned. Event times, message timestamps, and
	// collective entries are all filled with the reader's recorded values;
	// Event.Crit and message markers are left at their zero value for the
	// replay engine to fill in.
	FillingPass(into *trace.Trace) error

	// Runtime returns the trace's total recorded duration and unit
	// ("ns" or "us"), available once CountingPass has run.
	Runtime() (ns int64, unit string)
}

// Build runs a Reader's two-pass contract and returns the fully populated,
// linkage-built Trace ready for replay. It is the only place outside a
// Reader implementation that should call CountingPass/FillingPass directly.
func Build(r Reader) (*trace.Trace, error) {
	counts, err := r.CountingPass()
	if err != nil {
		return nil, err
	}

	tr := allocate(counts)

	if err := r.FillingPass(tr); err != nil {
		return nil, err
	}

	trace.BuildLinkage(tr)
	return tr, nil
}

func allocate(c Counts) *trace.Trace {
	tr := &trace.Trace{
		NumNodes:      c.NumNodes,
		NumApps:       c.NumApps,
		Ranks:         make([]*trace.RankEvents, c.NumProcs),
		Communicators: make([]trace.Communicator, len(c.Communicators)),
	}
	for p := 0; p < c.NumProcs; p++ {
		tr.Ranks[p] = &trace.RankEvents{
			Proc:   p,
			Events: make([]trace.Event, 0, countAt(c.Events, p)),
			Sends:  make([]int, 0, countAt(c.Sends, p)),
			Recvs:  make([]int, 0, countAt(c.Recvs, p)),
			Colls:  make([]trace.CollEntry, 0, countAt(c.Colls, p)),
		}
	}
	for i, size := range c.Communicators {
		tr.Communicators[i] = trace.Communicator{ID: i, Ranks: make([]int, 0, size)}
	}
	return tr
}

func countAt(counts []int, i int) int {
	if i < len(counts) {
		return counts[i]
	}
	return 0
}
