package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceUniverseBoundsAndLookups(t *testing.T) {
	tr := &Trace{
		Communicators: []Communicator{
			{ID: 0, Ranks: []int{0, 1, 2}},
			{ID: 1, Ranks: []int{1}},
		},
		Ranks: []*RankEvents{
			{Proc: 0, TStart: 5, TEnd: 90},
			{Proc: 1, TStart: 0, TEnd: 100},
			{Proc: 2, TStart: 10, TEnd: 80},
		},
		Messages: []*Message{
			{SendRank: 0, RecvRank: 1, Size: 32, Tag: 7},
		},
	}

	assert.Equal(t, 3, tr.NumProcs())
	assert.Equal(t, float64(0), tr.UniverseStart())
	assert.Equal(t, float64(100), tr.UniverseEnd())

	assert.False(t, tr.Communicator(0).IsSelf())
	assert.True(t, tr.Communicator(1).IsSelf())

	msg := tr.MessageAt(0)
	assert.Equal(t, 32.0, msg.Size)
	assert.Equal(t, 7, msg.Tag)

	tr.ResetAllCursors()
	for _, r := range tr.Ranks {
		assert.Equal(t, 0, r.Cursor())
	}
}

func TestBuildLinkageHandlesRendezvousWindow(t *testing.T) {
	// A rendezvous-style send: the send side blocks across a wider window
	// than its short recv-side window, so the send-start and send-end
	// searches must land on different events.
	tr := &Trace{
		Ranks: []*RankEvents{
			{Proc: 0, Events: []Event{
				{At: 0, Kind: Useful},
				{At: 10, Kind: 5},  // send entry (blocked waiting for match)
				{At: 50, Kind: Useful}, // send released
			}},
			{Proc: 1, Events: []Event{
				{At: 0, Kind: Useful},
				{At: 48, Kind: 6}, // recv entry
				{At: 50, Kind: Useful},
			}},
		},
		Messages: []*Message{
			{
				SendRank: 0, RecvRank: 1,
				SendAt: TimeRecord{Start: 10, End: 50},
				RecvAt: TimeRecord{Start: 48, End: 50},
			},
		},
	}

	BuildLinkage(tr)

	sendRank := tr.Rank(0)
	assert.Equal(t, []int{0}, sendRank.Events[1].SendsStarting)
	assert.Equal(t, []int{0}, sendRank.Events[2].SendsEnding)

	recvRank := tr.Rank(1)
	assert.Equal(t, []int{0}, recvRank.Events[1].RecvsStarting)
	assert.Equal(t, []int{0}, recvRank.Events[2].RecvsEnding)
}
