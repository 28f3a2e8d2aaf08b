package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hlrs-hpc/clocktalk/monitor"
)

// emHeader/wmHeader name the 11/8 columns of the <stem>.em.dat and
// <stem>.wm.dat monitor streams. These stay plain whitespace-column text,
// not tablewriter output: they are machine-readable data, not a
// human-facing report (see DESIGN.md for why tablewriter is reserved for
// Summary/WriteAggregatedProfile instead).
var emHeader = []string{
	"elapsed", "traced", "critical", "max_useful", "avg_useful",
	"cum_lbe", "cum_sereff", "cum_trfeff", "loc_lbe", "loc_sereff", "loc_trfeff",
}

var wmHeader = []string{
	"t_max", "max_crit", "avg_crit", "max_useful", "avg_useful",
	"elapsed_local", "critical_local", "min_events",
}

// WriteEventMonitor writes rows to w as the <stem>.em.dat stream: one
// tab-aligned line per row, one column per entry in emHeader.
func WriteEventMonitor(w io.Writer, rows []monitor.EventRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, joinTabs(emHeader))
	for _, r := range rows {
		fmt.Fprintf(tw, "%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\n",
			r.Elapsed, r.Traced, r.Critical, r.MaxUseful, r.AvgUseful,
			r.CumulativeLBE, r.CumulativeSerEff, r.CumulativeTrfEff,
			r.LocalLBE, r.LocalSerEff, r.LocalTrfEff)
	}
	return tw.Flush()
}

// WriteWindowedMonitor writes rows to w as the <stem>.wm.dat stream.
func WriteWindowedMonitor(w io.Writer, rows []monitor.WindowRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, joinTabs(wmHeader))
	for _, r := range rows {
		fmt.Fprintf(tw, "%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t%d\n",
			r.TMax, r.MaxCrit, r.AvgCrit, r.MaxUseful, r.AvgUseful,
			r.ElapsedLocal, r.CriticalLocal, r.MinEventsBin)
	}
	return tw.Flush()
}

func joinTabs(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += "\t"
		}
		out += c
	}
	return out
}
