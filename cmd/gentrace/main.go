// Command gentrace builds a synthetic trace and writes it to disk in the
// JSON shape tracefile.FileReader reads back, seeding a demo dataset the
// same way a small build-testdb-style tool seeds a demo database for its
// own engine to run against. With no byte-level Paraver parser implemented,
// gentrace and tracefile.FileReader are how the rest of this repo gets
// exercised end to end without one.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hlrs-hpc/clocktalk/trace"
	"github.com/hlrs-hpc/clocktalk/tracefile"
	"github.com/hlrs-hpc/clocktalk/tracefile/synthetic"
)

func main() {
	shape := flag.String("shape", "pingpong", "trace shape: pingpong, barrier, or random")
	out := flag.String("out", "trace.json", "output path")
	numRanks := flag.Int("ranks", 4, "number of ranks")
	rounds := flag.Int("rounds", 8, "rounds of communication (pingpong/random shapes)")
	seed := flag.Int64("seed", 1, "random seed (random shape only)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Builds a synthetic trace and writes it as a JSON file clocktalk can read.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	tr, err := build(*shape, *numRanks, *rounds, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gentrace: %v\n", err)
		os.Exit(1)
	}

	if err := tracefile.WriteTraceFile(*out, tr); err != nil {
		fmt.Fprintf(os.Stderr, "gentrace: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s shape trace (%d ranks, %d messages) to %s\n", *shape, tr.NumProcs(), len(tr.Messages), *out)
}

func build(shape string, numRanks, rounds int, seed int64) (*trace.Trace, error) {
	switch shape {
	case "pingpong":
		cfg := synthetic.DefaultPingPongConfig()
		cfg.NumRanks = numRanks
		cfg.Rounds = rounds
		return synthetic.BuildPingPong(cfg)
	case "barrier":
		useful := make([]float64, numRanks)
		for i := range useful {
			useful[i] = float64((i + 1) * 100)
		}
		return synthetic.BuildBarrier(synthetic.BarrierConfig{UsefulNS: useful}), nil
	case "random":
		return synthetic.BuildRandom(synthetic.RandomConfig{
			NumRanks:   numRanks,
			Rounds:     rounds,
			MinBurstNS: 50,
			MaxBurstNS: 500,
			MinSize:    1024,
			MaxSize:    128 * 1024,
			Seed:       seed,
		})
	default:
		return nil, fmt.Errorf("unknown shape %q (want pingpong, barrier, or random)", shape)
	}
}
