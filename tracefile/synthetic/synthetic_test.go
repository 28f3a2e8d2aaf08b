package synthetic

import (
	"testing"

	"github.com/hlrs-hpc/clocktalk/trace"
	"github.com/stretchr/testify/assert"
)

func TestBuildPingPongProducesLinkedRing(t *testing.T) {
	cfg := DefaultPingPongConfig()
	cfg.NumRanks = 3
	cfg.Rounds = 2

	tr, err := BuildPingPong(cfg)
	assert.NoError(t, err)
	assert.Equal(t, 3, tr.NumProcs())
	assert.Equal(t, 3*2, len(tr.Messages)) // one send per rank per round

	for _, m := range tr.Messages {
		assert.NotEqual(t, m.SendRank, m.RecvRank)
		assert.Equal(t, (m.SendRank+1)%3, m.RecvRank)
	}

	// BuildLinkage must have run: every message's send/recv endpoints are
	// attached to some event on their owning rank.
	for _, r := range tr.Ranks {
		total := 0
		for _, e := range r.Events {
			total += len(e.SendsStarting) + len(e.SendsEnding) + len(e.RecvsStarting) + len(e.RecvsEnding)
		}
		assert.Greater(t, total, 0)
	}
}

func TestBuildPingPongRejectsTooFewRanks(t *testing.T) {
	_, err := BuildPingPong(PingPongConfig{NumRanks: 1})
	assert.Error(t, err)
}

func TestBuildBarrierMatchesSpecScenario(t *testing.T) {
	tr := BuildBarrier(BarrierConfig{UsefulNS: []float64{100, 200, 300}})
	assert.Equal(t, 3, tr.NumProcs())
	assert.Equal(t, 1, len(tr.Communicators))
	assert.False(t, tr.Communicator(0).IsSelf())

	for p, want := range []float64{100, 200, 300} {
		r := tr.Rank(p)
		assert.Equal(t, want, r.Events[1].At)
		assert.Equal(t, trace.EventKind(8), r.Events[1].Kind)
	}
}

func TestBuildRandomProducesVariedSizes(t *testing.T) {
	tr, err := BuildRandom(RandomConfig{
		NumRanks: 4, Rounds: 5, MinBurstNS: 10, MaxBurstNS: 100,
		MinSize: 100, MaxSize: 100000, Seed: 42,
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, tr.Messages)

	sizesDiffer := false
	first := tr.Messages[0].Size
	for _, m := range tr.Messages {
		if m.Size != first {
			sizesDiffer = true
		}
	}
	assert.True(t, sizesDiffer, "randomized sizes should not all be identical")
}
