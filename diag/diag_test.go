package diag

import (
	"bytes"
	"strings"
	"testing"
)

func TestCollectorForwardsToHandlers(t *testing.T) {
	var got []Event
	c := NewCollector(func(e Event) { got = append(got, e) })

	c.Emit(Event{Level: Anomaly, Kind: KindIllogicalRecv, Rank: 1, Message: "bad"})

	if len(got) != 1 {
		t.Fatalf("expected 1 event forwarded, got %d", len(got))
	}
	if got[0].Kind != KindIllogicalRecv {
		t.Errorf("expected forwarded event kind preserved, got %v", got[0].Kind)
	}
	if c.CountLevel(Anomaly) != 1 {
		t.Errorf("expected CountLevel(Anomaly) == 1, got %d", c.CountLevel(Anomaly))
	}
}

func TestNilCollectorIsNoOp(t *testing.T) {
	var c *Collector
	c.Emit(Event{Level: Review, Message: "should not panic"})
	if got := c.Events(); got != nil {
		t.Errorf("expected nil Events() from nil collector, got %v", got)
	}
}

func TestOutputFormatterRespectsCaps(t *testing.T) {
	var buf bytes.Buffer
	f := NewOutputFormatter(&buf, 1, 0)

	f.Handle(Event{Level: Review, Message: "first"})
	f.Handle(Event{Level: Review, Message: "second"})
	f.Handle(Event{Level: Anomaly, Message: "suppressed"})

	out := buf.String()
	lines := strings.Count(strings.TrimRight(out, "\n"), "\n") + 1
	if out == "" {
		lines = 0
	}
	if want := 1; lines != want {
		t.Errorf("expected %d printed line(s), got %d: %q", want, lines, out)
	}
}
