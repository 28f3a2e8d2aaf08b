package diag

// Collector fans diagnostic events out to zero or more handlers. A nil or
// disabled Collector is safe to call Emit on — callers never need to check
// for a configured sink before reporting.
type Collector struct {
	handlers []Handler
	events   []Event
}

// NewCollector creates a Collector that forwards every Emit to handlers, in
// order. With no handlers it still records events for later inspection via
// Events (useful in tests that assert on what anomalies fired).
func NewCollector(handlers ...Handler) *Collector {
	return &Collector{handlers: handlers}
}

// Emit records e and forwards it to every registered handler. A nil
// Collector receiver is valid and a no-op, so call sites that construct a
// Processor without a Collector don't need a guard.
func (c *Collector) Emit(e Event) {
	if c == nil {
		return
	}
	c.events = append(c.events, e)
	for _, h := range c.handlers {
		if h != nil {
			h(e)
		}
	}
}

// Events returns every event recorded so far, in emission order.
func (c *Collector) Events() []Event {
	if c == nil {
		return nil
	}
	return c.events
}

// CountLevel returns how many recorded events are at the given level.
func (c *Collector) CountLevel(l Level) int {
	if c == nil {
		return 0
	}
	n := 0
	for _, e := range c.events {
		if e.Level == l {
			n++
		}
	}
	return n
}
