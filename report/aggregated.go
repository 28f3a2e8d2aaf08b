package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/hlrs-hpc/clocktalk/clock"
)

// aggregatedColumns is the header of the aggregated profile table: a stat
// label plus one column per clock axis. The table's four rows are min, avg,
// max, and the load-balance ratio avg/max, the shape the original tool's
// --export-profile rolls per-rank clock totals up into.
var aggregatedColumns = []string{"Stat", "Elapsed", "Traced", "Useful", "Critical"}

// WriteAggregatedProfile writes the <stem>.clocktalk.aggregated.txt report:
// a min/avg/max/load-balance roll-up across every rank's final clock
// totals, rendered as an aligned table (tablewriter, matching
// datalog/executor/table_formatter.go's genuinely-tabular-output choice).
func WriteAggregatedProfile(w io.Writer, bank *clock.Bank, np int) {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(aggregatedColumns)

	elapsed := collect(bank.Elapsed, np)
	traced := collect(bank.Traced, np)
	useful := collect(bank.Useful, np)
	critical := collect(bank.Critical, np)

	minE, avgE, maxE := minAvgMax(elapsed)
	minT, avgT, maxT := minAvgMax(traced)
	minU, avgU, maxU := minAvgMax(useful)
	minC, avgC, maxC := minAvgMax(critical)

	table.Append(row("min", minE, minT, minU, minC))
	table.Append(row("avg", avgE, avgT, avgU, avgC))
	table.Append(row("max", maxE, maxT, maxU, maxC))
	table.Append(row("LB (avg/max)", safeDiv(avgE, maxE), safeDiv(avgT, maxT), safeDiv(avgU, maxU), safeDiv(avgC, maxC)))

	table.Render()
}

func collect(f func(int) float64, np int) []float64 {
	vs := make([]float64, np)
	for p := 0; p < np; p++ {
		vs[p] = f(p)
	}
	return vs
}

func minAvgMax(vs []float64) (min, avg, max float64) {
	if len(vs) == 0 {
		return 0, 0, 0
	}
	min, max = vs[0], vs[0]
	var sum float64
	for _, v := range vs {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	return min, sum / float64(len(vs)), max
}

func row(label string, vals ...float64) []string {
	out := make([]string, 0, len(vals)+1)
	out = append(out, label)
	for _, v := range vals {
		out = append(out, formatNS(v))
	}
	return out
}

func formatNS(v float64) string {
	return fmt.Sprintf("%.0f", v)
}
