package tracefile

import (
	"path/filepath"
	"testing"

	"github.com/hlrs-hpc/clocktalk/tracefile/synthetic"
	"github.com/stretchr/testify/assert"
)

func TestFileReaderRoundTripsSyntheticTrace(t *testing.T) {
	cfg := synthetic.DefaultPingPongConfig()
	cfg.NumRanks = 3
	cfg.Rounds = 3
	original, err := synthetic.BuildPingPong(cfg)
	assert.NoError(t, err)

	path := filepath.Join(t.TempDir(), "trace.json")
	assert.NoError(t, WriteTraceFile(path, original))

	loaded, err := Build(NewFileReader(path))
	assert.NoError(t, err)

	assert.Equal(t, original.NumProcs(), loaded.NumProcs())
	assert.Equal(t, len(original.Messages), len(loaded.Messages))

	for p := 0; p < original.NumProcs(); p++ {
		assert.Equal(t, len(original.Rank(p).Events), len(loaded.Rank(p).Events))
		assert.Equal(t, original.Rank(p).TEnd, loaded.Rank(p).TEnd)
	}

	// Linkage must have run again on the freshly loaded trace: every rank's
	// events carry the same total endpoint-list length as the original.
	for p := 0; p < original.NumProcs(); p++ {
		wantTotal, gotTotal := 0, 0
		for i, e := range original.Rank(p).Events {
			wantTotal += len(e.SendsStarting) + len(e.SendsEnding) + len(e.RecvsStarting) + len(e.RecvsEnding)
			g := loaded.Rank(p).Events[i]
			gotTotal += len(g.SendsStarting) + len(g.SendsEnding) + len(g.RecvsStarting) + len(g.RecvsEnding)
		}
		assert.Equal(t, wantTotal, gotTotal)
	}
}

func TestFileReaderMissingFile(t *testing.T) {
	_, err := Build(NewFileReader(filepath.Join(t.TempDir(), "missing.json")))
	assert.Error(t, err)
}
