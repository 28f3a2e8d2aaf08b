// Package synthetic builds in-memory traces programmatically, without a
// Paraver file, for tests and for the cmd/gentrace demo tool: a config
// struct plus a generator function per shape, the same pattern a
// config-driven test-database seeder uses to exercise a storage engine end
// to end without needing a real input file.
package synthetic

import (
	"fmt"
	"math/rand"

	"github.com/hlrs-hpc/clocktalk/trace"
)

// PingPongConfig describes a ring of ranks that repeatedly pass a message to
// their right-hand neighbour, alternating useful bursts with MPI send/recv
// pairs. It is the smallest trace shape that exercises rendezvous settlement
// and the global replay loop's round-robin fairness.
type PingPongConfig struct {
	NumRanks   int
	Rounds     int
	BurstNS    float64 // useful-region duration between each send/recv pair
	MessageNS  float64 // logical duration of each send/recv window
	MessageSz  float64 // message size in bytes, compared against eager-limit
}

// DefaultPingPongConfig returns a small ring exercising a handful of
// rendezvous-sized sends across four ranks.
func DefaultPingPongConfig() PingPongConfig {
	return PingPongConfig{
		NumRanks:  4,
		Rounds:    8,
		BurstNS:   100,
		MessageNS: 50,
		MessageSz: 64 * 1024, // above the 32KiB default eager limit
	}
}

// BuildPingPong constructs a ring trace per cfg: rank p sends to rank
// (p+1)%N and receives from rank (p-1+N)%N, Rounds times, with a useful
// burst of BurstNS between every send/recv pair. The returned Trace has its
// event↔message linkage already built and is ready for replay.Run.
func BuildPingPong(cfg PingPongConfig) (*trace.Trace, error) {
	if cfg.NumRanks < 2 {
		return nil, fmt.Errorf("synthetic: ping-pong ring needs at least 2 ranks, got %d", cfg.NumRanks)
	}

	tr := &trace.Trace{
		NumNodes: 1,
		NumApps:  1,
		Communicators: []trace.Communicator{
			{ID: 0, Ranks: rankList(cfg.NumRanks)},
		},
		Ranks: make([]*trace.RankEvents, cfg.NumRanks),
	}
	for p := 0; p < cfg.NumRanks; p++ {
		tr.Ranks[p] = &trace.RankEvents{Proc: p}
	}

	const mpiIsend = 3
	const mpiIrecv = 6

	t := make([]float64, cfg.NumRanks)
	for round := 0; round < cfg.Rounds; round++ {
		for p := 0; p < cfg.NumRanks; p++ {
			r := tr.Rank(p)
			r.Events = append(r.Events, trace.Event{At: t[p], Kind: trace.Useful})
			t[p] += cfg.BurstNS
		}

		msgs := make([]*trace.Message, cfg.NumRanks)
		for p := 0; p < cfg.NumRanks; p++ {
			dst := (p + 1) % cfg.NumRanks
			sendStart := t[p]
			msgs[p] = &trace.Message{
				SendRank: p,
				RecvRank: dst,
				SendAt:   trace.TimeRecord{Start: sendStart, End: sendStart + cfg.MessageNS},
				Size:     cfg.MessageSz,
				Tag:      round,
			}
		}
		for p := 0; p < cfg.NumRanks; p++ {
			src := (p - 1 + cfg.NumRanks) % cfg.NumRanks
			m := msgs[src]
			recvStart := t[p]
			m.RecvAt = trace.TimeRecord{Start: recvStart, End: recvStart + cfg.MessageNS}
			tr.Messages = append(tr.Messages, m)
		}

		for p := 0; p < cfg.NumRanks; p++ {
			r := tr.Rank(p)
			r.Events = append(r.Events, trace.Event{At: t[p], Kind: trace.EventKind(mpiIsend)})
			r.Events = append(r.Events, trace.Event{At: t[p], Kind: trace.EventKind(mpiIrecv)})
			t[p] += cfg.MessageNS
			r.Events = append(r.Events, trace.Event{At: t[p], Kind: trace.Useful})
		}
	}

	for p := 0; p < cfg.NumRanks; p++ {
		r := tr.Rank(p)
		r.TStart = 0
		r.TEnd = t[p]
		r.Events = append(r.Events, trace.Event{At: t[p], Kind: trace.Ended})
	}

	trace.BuildLinkage(tr)
	return tr, nil
}

func rankList(n int) []int {
	ranks := make([]int, n)
	for i := range ranks {
		ranks[i] = i
	}
	return ranks
}

// BarrierConfig describes N ranks doing unequal useful work before a single
// Barrier collective — the textbook case for load-balance efficiency: the
// slowest rank sets the critical path and every faster rank idles at the
// barrier waiting for it.
type BarrierConfig struct {
	UsefulNS []float64 // one entry per rank
}

// BuildBarrier constructs the unequal-useful-work-then-barrier scenario
// above for len(cfg.UsefulNS) ranks.
func BuildBarrier(cfg BarrierConfig) *trace.Trace {
	np := len(cfg.UsefulNS)
	tr := &trace.Trace{
		NumNodes: 1,
		NumApps:  1,
		Communicators: []trace.Communicator{
			{ID: 0, Ranks: rankList(np)},
		},
		Ranks: make([]*trace.RankEvents, np),
	}

	const mpiBarrier = 8

	for p := 0; p < np; p++ {
		r := &trace.RankEvents{Proc: p}
		end := cfg.UsefulNS[p]
		r.Events = []trace.Event{
			{At: 0, Kind: trace.Useful},
			{At: end, Kind: trace.EventKind(mpiBarrier)},
		}
		r.Colls = []trace.CollEntry{{CommID: 0, Start: end, End: end}}
		r.TStart = 0
		r.TEnd = end
		tr.Ranks[p] = r
	}

	trace.BuildLinkage(tr)
	return tr
}

// RandomConfig describes a looser randomized ring used by cmd/gentrace to
// produce a trace of roughly arbitrary size for exercising the monitors'
// adaptive-merge and moving-average code paths.
type RandomConfig struct {
	NumRanks    int
	Rounds      int
	MinBurstNS  float64
	MaxBurstNS  float64
	MinSize     float64
	MaxSize     float64
	Seed        int64
}

// BuildRandom constructs a ring trace like BuildPingPong but with
// per-round randomized burst durations and message sizes, letting some
// messages settle eagerly and others rendezvous against the configured
// eager limit.
func BuildRandom(cfg RandomConfig) (*trace.Trace, error) {
	if cfg.NumRanks < 2 {
		return nil, fmt.Errorf("synthetic: random ring needs at least 2 ranks, got %d", cfg.NumRanks)
	}
	rnd := rand.New(rand.NewSource(cfg.Seed))

	tr := &trace.Trace{
		NumNodes:      1,
		NumApps:       1,
		Communicators: []trace.Communicator{{ID: 0, Ranks: rankList(cfg.NumRanks)}},
		Ranks:         make([]*trace.RankEvents, cfg.NumRanks),
	}
	for p := 0; p < cfg.NumRanks; p++ {
		tr.Ranks[p] = &trace.RankEvents{Proc: p}
	}

	const mpiIsend = 3
	const mpiIrecv = 6
	const messageNS = 10

	t := make([]float64, cfg.NumRanks)
	for round := 0; round < cfg.Rounds; round++ {
		for p := 0; p < cfg.NumRanks; p++ {
			r := tr.Rank(p)
			r.Events = append(r.Events, trace.Event{At: t[p], Kind: trace.Useful})
			t[p] += cfg.MinBurstNS + rnd.Float64()*(cfg.MaxBurstNS-cfg.MinBurstNS)
		}

		msgs := make([]*trace.Message, cfg.NumRanks)
		for p := 0; p < cfg.NumRanks; p++ {
			dst := (p + 1) % cfg.NumRanks
			sendStart := t[p]
			msgs[p] = &trace.Message{
				SendRank: p,
				RecvRank: dst,
				SendAt:   trace.TimeRecord{Start: sendStart, End: sendStart + messageNS},
				Size:     cfg.MinSize + rnd.Float64()*(cfg.MaxSize-cfg.MinSize),
				Tag:      round,
			}
		}
		for p := 0; p < cfg.NumRanks; p++ {
			src := (p - 1 + cfg.NumRanks) % cfg.NumRanks
			m := msgs[src]
			recvStart := t[p]
			m.RecvAt = trace.TimeRecord{Start: recvStart, End: recvStart + messageNS}
			tr.Messages = append(tr.Messages, m)
		}

		for p := 0; p < cfg.NumRanks; p++ {
			r := tr.Rank(p)
			r.Events = append(r.Events, trace.Event{At: t[p], Kind: trace.EventKind(mpiIsend)})
			r.Events = append(r.Events, trace.Event{At: t[p], Kind: trace.EventKind(mpiIrecv)})
			t[p] += messageNS
			r.Events = append(r.Events, trace.Event{At: t[p], Kind: trace.Useful})
		}
	}

	for p := 0; p < cfg.NumRanks; p++ {
		r := tr.Rank(p)
		r.TStart = 0
		r.TEnd = t[p]
		r.Events = append(r.Events, trace.Event{At: t[p], Kind: trace.Ended})
	}

	trace.BuildLinkage(tr)
	return tr, nil
}
