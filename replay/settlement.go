package replay

import (
	"github.com/hlrs-hpc/clocktalk/diag"
	"github.com/hlrs-hpc/clocktalk/trace"
)

// postMessages stamps every send/receive endpoint listed as starting at ev
// with a Posted marker at rank's current critical time (spec §4.5 step b /
// §4.5 step a under Useful-entry). A message endpoint posted twice is an
// input inconsistency: logged, and the original posted time wins.
func (p *Processor) postMessages(rank int, ev *trace.Event) {
	r := p.tr.Rank(rank)
	for _, local := range ev.SendsStarting {
		msgID := r.Sends[local]
		p.postEndpoint(rank, msgID, &p.tr.MessageAt(msgID).SendAt, "send")
	}
	for _, local := range ev.RecvsStarting {
		msgID := r.Recvs[local]
		p.postEndpoint(rank, msgID, &p.tr.MessageAt(msgID).RecvAt, "recv")
	}
}

func (p *Processor) postEndpoint(rank, msgID int, ts *trace.TimeRecord, side string) {
	if ts.Marker.State != trace.Unseen {
		p.emit(rank, p.bank.Critical(rank), diag.KindMessageOverride,
			"message %d %s endpoint posted again on rank %d, ignoring", msgID, side, rank)
		return
	}
	ts.Marker = trace.Marker{State: trace.Posted, Crit: p.bank.Critical(rank)}
}

// settleMessages attempts to settle every send/receive endpoint listed as
// ending at ev, in list order. The first endpoint that cannot settle yet
// stops processing and its Blocked* reason is returned; endpoints already
// settled by an earlier attempt stay settled (settlement is monotone), so a
// retry after the block clears resumes cheaply.
func (p *Processor) settleMessages(rank int, ev *trace.Event, stuckCounter int) StepResult {
	r := p.tr.Rank(rank)
	for _, local := range ev.SendsEnding {
		msgID := r.Sends[local]
		if res := p.trySettleSend(rank, msgID); res != Progressed {
			return res
		}
	}
	for _, local := range ev.RecvsEnding {
		msgID := r.Recvs[local]
		if res := p.trySettleRecv(rank, msgID, stuckCounter); res != Progressed {
			return res
		}
	}
	return Progressed
}

// trySettleSend implements the send-settlement rule of spec §4.6.
func (p *Processor) trySettleSend(rank, msgID int) StepResult {
	m := p.tr.MessageAt(msgID)
	ts := &m.SendAt

	if ts.Marker.State == trace.Settled {
		return Progressed
	}

	if ts.Instant() {
		p.settleEndpoint(ts, rank)
		return Progressed
	}

	r := p.tr.Rank(rank)
	if r.Cursor() > 0 {
		prevEvent := &r.Events[r.Cursor()-1]
		if isNonblockingSendExit(prevEvent.Kind.MPICode()) &&
			trace.SameTime(ts.Start, prevEvent.At) && trace.SameTime(ts.End, r.CurrentAt()) {
			p.settleEndpoint(ts, rank)
			return Progressed
		}
	}

	if m.Size < p.opts.EagerLimit {
		p.settleEndpoint(ts, rank)
		return Progressed
	}

	// Rendezvous: wait for the remote receive to have posted or settled.
	rm := &m.RecvAt.Marker
	if rm.State != trace.Unseen {
		p.bank.PromoteCritical(rank, rm.Crit)
		p.settleEndpoint(ts, rank)
		return Progressed
	}
	return BlockedRendezvous
}

// trySettleRecv implements the receive-settlement rule of spec §4.6,
// including the illogical-recv escape hatch.
func (p *Processor) trySettleRecv(rank, msgID int, stuckCounter int) StepResult {
	m := p.tr.MessageAt(msgID)
	tr := &m.RecvAt

	if tr.Marker.State == trace.Settled {
		return Progressed
	}

	sm := &m.SendAt.Marker
	if sm.State != trace.Unseen {
		p.bank.PromoteCritical(rank, sm.Crit)
		p.settleEndpoint(tr, rank)
		return Progressed
	}

	if stuckCounter > 0 && trace.After(m.SendAt.Start, tr.End) {
		p.emit(rank, p.bank.Critical(rank), diag.KindIllogicalRecv,
			"message %d recv ends at %.0f before its recorded send starts at %.0f, forcing settlement",
			msgID, tr.End, m.SendAt.Start)
		p.settleEndpoint(tr, rank)
		return Progressed
	}

	return BlockedRemoteNotPosted
}

// settleEndpoint transitions ts to Settled at rank's current critical time,
// the final step of the unseen → posted → settled lifecycle.
func (p *Processor) settleEndpoint(ts *trace.TimeRecord, rank int) {
	ts.Marker = trace.Marker{State: trace.Settled, Crit: p.bank.Critical(rank)}
}
