// Package report renders the replay engine's results for human consumption:
// the stdout summary (plain or --pretty-output), the optional per-rank
// aggregated profile file, and the raw monitor data streams. It ports the
// teacher's datalog/executor/table_formatter.go's use of tablewriter for
// genuinely tabular, human-facing output, and reserves plain
// text/tabwriter-formatted columns for the machine-readable .em.dat/.wm.dat
// streams (see DESIGN.md).
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/hlrs-hpc/clocktalk/clock"
)

// Summary is the set of global efficiency figures printed after a replay,
// derived from a finished clock.Bank the same way the event monitor derives
// its cumulative efficiency ratios, but from the bank's final totals:
// LoadBalance = avg_useful/max_useful, Serialization =
// max_useful/ideal_critical, Transfer = ideal_critical/traced.
//
// GlobalEfficiency is their product (the conventional Dimemas decomposition
// of parallel efficiency into load-balance × communication-efficiency,
// itself serialization × transfer); ParallelEfficiency restates it against
// the observed elapsed time instead of traced time, for runs where tracing
// overhead itself should be charged against efficiency.
type Summary struct {
	NumProcs int

	MaxElapsed  float64
	MaxTraced   float64
	MaxUseful   float64
	AvgUseful   float64
	IdealCrit   float64 // max_p critical_p: the ideal runtime

	LoadBalance        float64
	SerializationEff   float64
	TransferEff        float64
	GlobalEfficiency   float64
	ParallelEfficiency float64

	WrongResults bool
}

// Summarize computes a Summary from a finished bank and replay outcome.
func Summarize(bank *clock.Bank, np int, aborted bool) Summary {
	s := Summary{
		NumProcs:     np,
		MaxElapsed:   bank.MaxElapsed(),
		MaxTraced:    bank.MaxTraced(),
		MaxUseful:    bank.MaxUseful(),
		AvgUseful:    bank.AvgUseful(),
		IdealCrit:    bank.MaxCritical(),
		WrongResults: aborted,
	}

	s.LoadBalance = safeDiv(s.AvgUseful, s.MaxUseful)
	s.SerializationEff = safeDiv(s.MaxUseful, s.IdealCrit)
	s.TransferEff = safeDiv(s.IdealCrit, s.MaxTraced)
	s.GlobalEfficiency = s.LoadBalance * s.SerializationEff * s.TransferEff
	s.ParallelEfficiency = s.LoadBalance * s.SerializationEff * safeDiv(s.IdealCrit, s.MaxElapsed)

	return s
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// PrintPlain writes the key=value report the original tool always produced,
// one field per line.
func PrintPlain(w io.Writer, s Summary) {
	fmt.Fprintf(w, "num_procs= %d\n", s.NumProcs)
	fmt.Fprintf(w, "ideal_runtime_ns= %.0f\n", s.IdealCrit)
	fmt.Fprintf(w, "max_elapsed_ns= %.0f\n", s.MaxElapsed)
	fmt.Fprintf(w, "max_traced_ns= %.0f\n", s.MaxTraced)
	fmt.Fprintf(w, "max_useful_ns= %.0f\n", s.MaxUseful)
	fmt.Fprintf(w, "avg_useful_ns= %.0f\n", s.AvgUseful)
	fmt.Fprintf(w, "load_balance= %.4f\n", s.LoadBalance)
	fmt.Fprintf(w, "serialization_efficiency= %.4f\n", s.SerializationEff)
	fmt.Fprintf(w, "transfer_efficiency= %.4f\n", s.TransferEff)
	fmt.Fprintf(w, "global_efficiency= %.4f\n", s.GlobalEfficiency)
	fmt.Fprintf(w, "parallel_efficiency= %.4f\n", s.ParallelEfficiency)
	if s.WrongResults {
		fmt.Fprintln(w, "wrong_results= true")
	}
}

// PrintPretty writes the --pretty-output boxed report, a single two-column
// table rendered with tablewriter the way TableFormatter renders query
// results, substituting the ASCII box renderer for the markdown one since
// this goes to a terminal, not a document.
func PrintPretty(w io.Writer, s Summary) {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"Metric", "Value"})

	rows := [][2]string{
		{"Processes", fmt.Sprintf("%d", s.NumProcs)},
		{"Ideal runtime (ns)", fmt.Sprintf("%.0f", s.IdealCrit)},
		{"Max elapsed (ns)", fmt.Sprintf("%.0f", s.MaxElapsed)},
		{"Max traced (ns)", fmt.Sprintf("%.0f", s.MaxTraced)},
		{"Max useful (ns)", fmt.Sprintf("%.0f", s.MaxUseful)},
		{"Avg useful (ns)", fmt.Sprintf("%.0f", s.AvgUseful)},
		{"Load balance", fmt.Sprintf("%.4f", s.LoadBalance)},
		{"Serialization efficiency", fmt.Sprintf("%.4f", s.SerializationEff)},
		{"Transfer efficiency", fmt.Sprintf("%.4f", s.TransferEff)},
		{"Global efficiency", fmt.Sprintf("%.4f", s.GlobalEfficiency)},
		{"Parallel efficiency", fmt.Sprintf("%.4f", s.ParallelEfficiency)},
	}
	for _, r := range rows {
		table.Append([]string{r[0], r[1]})
	}
	if s.WrongResults {
		table.Append([]string{"Wrong results", "true (stuck-threshold abort)"})
	}
	table.Render()
}

// Banner returns a title line padded to width with '=' on either side,
// used for the --show-timings section headers in cmd/clocktalk's output.
func Banner(title string, width int) string {
	pad := width - len(title) - 2
	if pad < 0 {
		pad = 0
	}
	left := pad / 2
	right := pad - left
	return strings.Repeat("=", left) + " " + title + " " + strings.Repeat("=", right)
}
