// Package trace implements the in-memory trace store: the read-mostly
// database of per-rank events, point-to-point messages, and communicator
// membership that the replay engine walks over.
//
// The store is built once by a Reader (see package tracefile) and is never
// mutated afterward except for two fields the replay engine writes as it
// runs: Event.Crit and Marker.State/Marker.Crit on message endpoints.
package trace

// EventKind tags the kind of region an event enters. Values follow the
// Paraver-derived convention: 0 is the start of a useful (computation)
// region, positive values are MPI function entries (the value is the MPI
// function code), and negative values are reserved trace regions.
type EventKind int32

const (
	// Useful marks the start of a computation burst.
	Useful EventKind = 0
	// Ended is the terminal sentinel appended after a rank's last real event.
	Ended EventKind = -1
	// Disabled marks a tracing-disabled region.
	Disabled EventKind = -2
	// Flush marks an I/O flush region.
	Flush EventKind = -3
	// TraceInit marks the trace-initialisation region.
	TraceInit EventKind = -4
	// Invalid marks a state the reader could not classify.
	Invalid EventKind = -99
)

// IsMPI reports whether k identifies an MPI function entry.
func (k EventKind) IsMPI() bool { return k > 0 }

// MPICode returns the MPI function code for an MPI entry kind, or 0 if k is
// not an MPI entry.
func (k EventKind) MPICode() int {
	if k.IsMPI() {
		return int(k)
	}
	return 0
}

// Event is one entry in a rank's local event stream. At is the rank-local
// wall-clock time (ns) the reader recorded; Crit is filled in by the replay
// engine exactly once per event and is zero until then.
//
// SendsStarting/SendsEnding/RecvsStarting/RecvsEnding hold local indices into
// the owning RankEvents' Sends/Recvs slices: a flat, CSR-style replacement
// for per-event linked lists (see DESIGN.md).
type Event struct {
	At   float64
	Kind EventKind
	Crit float64

	SendsStarting []int
	SendsEnding   []int
	RecvsStarting []int
	RecvsEnding   []int
}

// MarkerState is the three-state lifecycle of a message endpoint.
type MarkerState int8

const (
	Unseen MarkerState = iota
	Posted
	Settled
)

// Marker is the explicit tagged value replacing the original signed-double
// encoding (0 = unseen, +x = posted at x, -x = settled at x).
type Marker struct {
	State MarkerState
	Crit  float64
}

// TimeRecord is one message endpoint: the recorded logical start/end time on
// that side of the message, plus its settlement marker.
type TimeRecord struct {
	Start  float64
	End    float64
	Marker Marker
}

// Instant reports whether the endpoint's start and end times are the same
// within tolerance, i.e. instantaneous in the trace.
func (tr TimeRecord) Instant() bool {
	return sameTime(tr.Start, tr.End)
}

// Message is one point-to-point communication. It appears exactly once in
// the sender's Sends list and exactly once in the receiver's Recvs list.
type Message struct {
	SendRank int
	RecvRank int

	// SendLocal/RecvLocal are this message's position within the sender's
	// Sends slice / the receiver's Recvs slice, filled in by BuildLinkage.
	SendLocal int
	RecvLocal int

	SendAt TimeRecord
	RecvAt TimeRecord

	Size float64
	Tag  int
}

// Communicator is a named group of ranks. A communicator of size 1 is a
// self-communicator and never participates in collective rendezvous.
type Communicator struct {
	ID    int
	Ranks []int
}

// IsSelf reports whether c is a self-communicator (size 1).
func (c Communicator) IsSelf() bool { return len(c.Ranks) == 1 }

// CollEntry is one recorded collective-entry/exit pair on a rank's timeline,
// as delivered by the reader: the communicator the collective ran on and the
// [start, end) times the reader observed for it.
type CollEntry struct {
	CommID int
	Start  float64
	End    float64
}

// timeTolerance is the epsilon used throughout the store and replay engine
// when comparing logical timestamps (spec: "within 0.1 ns tolerance").
const timeTolerance = 0.1

func sameTime(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= timeTolerance
}

// SameTime reports whether a and b are equal within the store's time
// tolerance. Exported for use by the replay and monitor packages, which
// compare timestamps against event/marker times from this package.
func SameTime(a, b float64) bool { return sameTime(a, b) }

// After reports whether a is later than b by more than the store's time
// tolerance. Exported for the replay engine's illogical-recv detection
// (spec §4.6): a recorded send-start that is After a receive-end is a
// causality violation in the input trace.
func After(a, b float64) bool { return a-b > timeTolerance }
