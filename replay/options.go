// Package replay implements the per-rank state-machine step, message
// settlement, collective post/settle, MPI_Init handling, and the
// cooperative global replay loop that drives them all to completion.
package replay

import "fmt"

// MPI function codes the rank processor dispatches on explicitly, from the
// Paraver MPI event code table.
const (
	mpiInit            = 31
	mpiIsend           = 3
	mpiIbsend          = 36
	mpiIssend          = 37
	mpiIrsend          = 38
)

func isNonblockingSendExit(code int) bool {
	switch code {
	case mpiIsend, mpiIbsend, mpiIssend, mpiIrsend:
		return true
	default:
		return false
	}
}

// Default eager-send threshold: sends strictly under this size settle
// without waiting for the remote receive to post.
const DefaultEagerLimit = 32 * 1024

// IgnoreCategory names one of the event categories a SimOptions can opt to
// skip via the excuse predicate.
type IgnoreCategory string

const (
	IgnoreTraceability IgnoreCategory = "traceability" // TraceInit boundaries
	IgnoreFlush        IgnoreCategory = "flush"        // Flush boundaries
	IgnoreOverhead     IgnoreCategory = "overhead"     // Disabled<->Useful boundaries
)

// SimOptions configures the replay engine's policy decisions: the eager/
// rendezvous threshold and which event categories the excuse predicate
// silently skips.
type SimOptions struct {
	EagerLimit float64

	IgnoreTraceEvts       bool // traceability
	IgnoreFlushEvts       bool // flush
	IgnoreDisabledTracing bool // overhead
}

// DefaultSimOptions returns the engine's defaults: a 32 KiB eager limit and
// no ignored categories.
func DefaultSimOptions() SimOptions {
	return SimOptions{EagerLimit: DefaultEagerLimit}
}

// WithIgnore returns a copy of o with the given categories' ignore flags set.
func (o SimOptions) WithIgnore(categories ...IgnoreCategory) SimOptions {
	for _, c := range categories {
		switch c {
		case IgnoreTraceability:
			o.IgnoreTraceEvts = true
		case IgnoreFlush:
			o.IgnoreFlushEvts = true
		case IgnoreOverhead:
			o.IgnoreDisabledTracing = true
		}
	}
	return o
}

// Fingerprint returns a stable, human-readable summary of o suitable as part
// of a cache.Key: every field that changes replay semantics, in a fixed
// order, so two SimOptions values with the same fields produce the same
// string regardless of construction order.
func (o SimOptions) Fingerprint() string {
	return fmt.Sprintf("eager=%.0f,trace=%t,flush=%t,disabled=%t",
		o.EagerLimit, o.IgnoreTraceEvts, o.IgnoreFlushEvts, o.IgnoreDisabledTracing)
}
