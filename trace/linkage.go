package trace

// BuildLinkage wires every message in t into its sender's and receiver's
// local Sends/Recvs order and into the CSR-style start/end slices on the
// matching events, replacing the per-event linked lists of the original
// implementation (see DESIGN.md).
//
// It must run once, after all ranks and messages have been populated by a
// Reader and before any replay pass begins: SendLocal/RecvLocal and the
// event linkage slices are read-only inputs to the replay engine.
func BuildLinkage(t *Trace) {
	searcher := NewEventTimeSearcher(t)

	for id, m := range t.Messages {
		sendRank := t.Rank(m.SendRank)
		m.SendLocal = len(sendRank.Sends)
		sendRank.Sends = append(sendRank.Sends, id)

		recvRank := t.Rank(m.RecvRank)
		m.RecvLocal = len(recvRank.Recvs)
		recvRank.Recvs = append(recvRank.Recvs, id)

		linkEndpoint(searcher, sendRank, m.SendAt.Start, m.SendLocal, endSendStart)
		linkEndpoint(searcher, sendRank, m.SendAt.End, m.SendLocal, endSendEnd)
		linkEndpoint(searcher, recvRank, m.RecvAt.Start, m.RecvLocal, endRecvStart)
		linkEndpoint(searcher, recvRank, m.RecvAt.End, m.RecvLocal, endRecvEnd)
	}
}

type endpointKind int

const (
	endSendStart endpointKind = iota
	endSendEnd
	endRecvStart
	endRecvEnd
)

// tiebreak for start-time lookups favors the earliest-indexed event sharing
// the timestamp (a send/recv begins at the oldest candidate region); end-time
// lookups favor the latest-indexed event sharing the timestamp (completion is
// attributed to the region it falls out of).
func (k endpointKind) tiebreak() int {
	if k == endSendStart || k == endRecvStart {
		return -1
	}
	return 1
}

func linkEndpoint(s *EventTimeSearcher, r *RankEvents, at float64, localIdx int, kind endpointKind) {
	idx, ok := s.Find(r.Proc, at, kind.tiebreak())
	if !ok {
		return
	}
	ev := &r.Events[idx]
	switch kind {
	case endSendStart:
		ev.SendsStarting = append(ev.SendsStarting, localIdx)
	case endSendEnd:
		ev.SendsEnding = append(ev.SendsEnding, localIdx)
	case endRecvStart:
		ev.RecvsStarting = append(ev.RecvsStarting, localIdx)
	case endRecvEnd:
		ev.RecvsEnding = append(ev.RecvsEnding, localIdx)
	}
}
