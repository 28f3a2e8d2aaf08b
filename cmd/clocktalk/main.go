// Command clocktalk replays a recorded Paraver trace and reports the
// critical-path efficiency metrics and optional monitoring streams it
// produces, using a flag-parsing shape modeled on small Go CLI tools: a
// positional argument plus a flat set of flag.*Var registrations and a
// custom flag.Usage.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hlrs-hpc/clocktalk/cache"
	"github.com/hlrs-hpc/clocktalk/clock"
	"github.com/hlrs-hpc/clocktalk/collective"
	"github.com/hlrs-hpc/clocktalk/diag"
	"github.com/hlrs-hpc/clocktalk/monitor"
	"github.com/hlrs-hpc/clocktalk/replay"
	"github.com/hlrs-hpc/clocktalk/report"
	"github.com/hlrs-hpc/clocktalk/trace"
	"github.com/hlrs-hpc/clocktalk/tracefile"
)

// Version is the build version printed by --version, a package-level
// constant instead of a generated build-info header (no code generation
// step in this port).
const Version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

type cliOptions struct {
	showReviews  int
	showErrors   int
	showTimings  bool
	exportProf   bool
	prettyOutput bool
	monitors     []string
	wmonLen      float64
	wmonSMA      int
	emonRank     int
	emonRankSet  bool
	emonNEvts    int
	eagerLimit   float64
	ignore       []replay.IgnoreCategory
	version      bool
}

// optionalCap is a flag.Value for the "--flag[=N]" shape: present with no
// value means "unlimited" (N = -1), present with a value caps at N, absent
// leaves the flag at its zero default. It implements the unexported
// boolFlag interface the flag package checks for so that a bare
// "--show-reviews" (no "=N") parses without requiring an argument, the same
// trick flag.Bool itself relies on.
type optionalCap struct {
	set bool
	n   int
}

func (c *optionalCap) String() string {
	if c == nil || !c.set {
		return ""
	}
	return fmt.Sprintf("%d", c.n)
}

func (c *optionalCap) Set(s string) error {
	c.set = true
	if s == "" || s == "true" {
		c.n = -1
		return nil
	}
	_, err := fmt.Sscanf(s, "%d", &c.n)
	return err
}

func (c *optionalCap) IsBoolFlag() bool { return true }

func run(args []string) int {
	fs := flag.NewFlagSet("clocktalk", flag.ContinueOnError)

	var opts cliOptions
	var showReviews, showErrors optionalCap
	var monitorsStr, ignoreStr, eagerStr string
	var emonRank int

	fs.Var(&showReviews, "show-reviews", "show step-trace review events, optionally capped at N")
	fs.Var(&showErrors, "show-errors", "show anomaly events, optionally capped at N")
	fs.BoolVar(&opts.showTimings, "show-timings", false, "print wall-clock timing of each phase")
	fs.BoolVar(&opts.exportProf, "export-profile", false, "write the per-rank aggregated profile file")
	fs.BoolVar(&opts.prettyOutput, "pretty-output", false, "render the summary as a boxed table")
	fs.StringVar(&monitorsStr, "monitors", "", "comma-separated monitors to run: window,event")
	fs.Float64Var(&opts.wmonLen, "wmon-len", monitor.DefaultWindowLength, "windowed monitor bin width in ns")
	fs.IntVar(&opts.wmonSMA, "wmon-sma", 1, "windowed monitor trailing moving-average width")
	fs.IntVar(&emonRank, "emon-rank", -1, "event monitor target rank (default: largest useful total)")
	fs.IntVar(&opts.emonNEvts, "emon-nevts", 10, "event monitor local-efficiency window, in samples")
	fs.StringVar(&eagerStr, "eager-limit", "32k", "eager/rendezvous size threshold, e.g. 32k, 1M")
	fs.StringVar(&ignoreStr, "ignore-events", "", "comma-separated categories to ignore: overhead,flush,traceability")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <paraver-file-name>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Reconstructs the critical-path timeline of a traced distributed run.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 0 // flag already printed usage; missing/bad flags are not a hard failure
	}

	if opts.version {
		fmt.Println("clocktalk", Version)
		return 0
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "clocktalk: missing <paraver-file-name>")
		fs.Usage()
		return 0
	}
	path := fs.Arg(0)

	opts.emonRank = emonRank
	opts.emonRankSet = emonRank >= 0
	opts.monitors = splitNonEmpty(monitorsStr)
	opts.ignore = parseIgnore(ignoreStr)

	eagerLimit, err := humanize.ParseBytes(eagerStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "clocktalk: bad --eager-limit %q: %v\n", eagerStr, err)
		return 0
	}
	opts.eagerLimit = float64(eagerLimit)

	opts.showReviews = 0
	if showReviews.set {
		opts.showReviews = showReviews.n
	}
	opts.showErrors = -1 // unlimited by default: anomalies are the main diagnostic signal
	if showErrors.set {
		opts.showErrors = showErrors.n
	}

	return clocktalk(path, opts)
}

func clocktalk(path string, opts cliOptions) int {
	timings := newTimingLog(opts.showTimings)
	stem := strings.TrimSuffix(path, filepath.Ext(path))

	formatter := diag.NewOutputFormatter(os.Stderr, opts.showReviews, opts.showErrors)
	diagC := diag.NewCollector(formatter.Handle)

	store := openCache(opts.exportProf)
	defer store.Close()

	simOpts := replay.DefaultSimOptions()
	simOpts.EagerLimit = opts.eagerLimit
	simOpts = simOpts.WithIgnore(opts.ignore...)

	timings.start("connect")
	tr, err := loadTrace(path)
	timings.stop("connect")
	if err != nil {
		fmt.Fprintf(os.Stderr, "clocktalk: %v\n", err)
		return 0
	}

	var cacheKey string
	if opts.exportProf {
		cacheKey = cacheKeyFor(path, simOpts)
	}

	timings.start("replay")
	bank := clock.NewBank(tr.NumProcs(), diagC)
	bank.Start(tr.UniverseStart(), startTimes(tr))
	aborted, err := replayWithCache(tr, bank, diagC, simOpts, store, cacheKey)
	timings.stop("replay")
	if err != nil {
		fmt.Fprintf(os.Stderr, "clocktalk: replay failed: %v\n", err)
		return 0
	}

	runMonitors(tr, bank, stem, opts, timings)

	if opts.exportProf {
		writeAggregatedProfile(stem, bank, tr.NumProcs())
	}

	summary := report.Summarize(bank, tr.NumProcs(), aborted)
	if opts.prettyOutput {
		report.PrintPretty(os.Stdout, summary)
	} else {
		report.PrintPlain(os.Stdout, summary)
	}

	timings.report(os.Stderr)
	return 0
}

func loadTrace(path string) (*trace.Trace, error) {
	reader := tracefile.NewFileReader(path)
	return tracefile.Build(reader)
}

// cacheKeyFor derives the cache.Key for path under simOpts, or "" if the
// file can't be stat'd (the cache is then simply skipped, not fatal).
func cacheKeyFor(path string, simOpts replay.SimOptions) string {
	size, mtime, err := cache.StatKeyInputs(path)
	if err != nil {
		return ""
	}
	return cache.Key(path, size, mtime, simOpts.Fingerprint())
}

// replayWithCache consults store for key before running the replay loop,
// and populates it afterward on a miss. An empty key (cache unavailable or
// disabled) always falls through to a fresh replay.Run.
func replayWithCache(tr *trace.Trace, bank *clock.Bank, diagC *diag.Collector, simOpts replay.SimOptions, store cache.Store, key string) (aborted bool, err error) {
	if key != "" {
		if cached, hit, gerr := store.Get(key); gerr == nil && hit {
			applyCachedResult(tr, bank, cached)
			return cached.Aborted, nil
		}
	}

	colls := collective.NewRegistry(tr, bank, tr.NumProcs(), diagC)
	result, err := replay.Run(tr, bank, colls, simOpts, diagC)
	if err != nil {
		return false, err
	}

	if key != "" {
		if perr := store.Put(key, snapshotResult(tr, bank, result.Aborted)); perr != nil {
			fmt.Fprintf(os.Stderr, "clocktalk: cache write: %v\n", perr)
		}
	}
	return result.Aborted, nil
}

// snapshotResult captures everything a later run needs to reproduce this
// replay's reports without re-executing the event loop: every rank's final
// clock totals, plus the critical time the replay stamped onto every event.
func snapshotResult(tr *trace.Trace, bank *clock.Bank, aborted bool) *cache.Result {
	np := tr.NumProcs()
	perRank := make([]cache.RankSummary, np)
	eventCrit := make([][]float64, np)
	for p := 0; p < np; p++ {
		perRank[p] = cache.RankSummary{
			Elapsed:  bank.Elapsed(p),
			Traced:   bank.Traced(p),
			Flush:    bank.Flush(p),
			Useful:   bank.Useful(p),
			Critical: bank.Critical(p),
		}
		events := tr.Rank(p).Events
		crit := make([]float64, len(events))
		for i, e := range events {
			crit[i] = e.Crit
		}
		eventCrit[p] = crit
	}
	return &cache.Result{PerRank: perRank, EventCrit: eventCrit, Aborted: aborted}
}

// applyCachedResult restores a cache hit onto a freshly-loaded trace and
// bank, standing in for replay.Run entirely.
func applyCachedResult(tr *trace.Trace, bank *clock.Bank, cached *cache.Result) {
	np := tr.NumProcs()
	for p := 0; p < np && p < len(cached.PerRank); p++ {
		rs := cached.PerRank[p]
		bank.RestoreTotals(p, rs.Elapsed, rs.Traced, rs.Flush, rs.Useful, rs.Critical)

		if p >= len(cached.EventCrit) {
			continue
		}
		events := tr.Rank(p).Events
		crit := cached.EventCrit[p]
		for i := range events {
			if i < len(crit) {
				events[i].Crit = crit[i]
			}
		}
	}
}

func startTimes(tr *trace.Trace) []float64 {
	starts := make([]float64, tr.NumProcs())
	for p := range starts {
		starts[p] = tr.Rank(p).TStart
	}
	return starts
}

func runMonitors(tr *trace.Trace, bank *clock.Bank, stem string, opts cliOptions, timings *timingLog) {
	for _, m := range opts.monitors {
		switch m {
		case "event":
			timings.start("event-monitor")
			rank := opts.emonRank
			if !opts.emonRankSet {
				rank = monitor.DefaultMonitorRank(bank, tr.NumProcs())
			}
			rows := monitor.NewEventMonitor(tr, rank, opts.emonNEvts).Run()
			timings.stop("event-monitor")
			writeMonitorFile(stem+".em.dat", func(f *os.File) error { return report.WriteEventMonitor(f, rows) })

		case "window":
			timings.start("windowed-monitor")
			rows := monitor.NewWindowedMonitor(tr, opts.wmonLen).Run()
			rows = monitor.SmoothWindowed(rows, opts.wmonSMA)
			timings.stop("windowed-monitor")
			writeMonitorFile(stem+".wm.dat", func(f *os.File) error { return report.WriteWindowedMonitor(f, rows) })
		}
	}
}

func writeMonitorFile(name string, write func(*os.File) error) {
	f, err := os.Create(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "clocktalk: create %s: %v\n", name, err)
		return
	}
	defer f.Close()
	if err := write(f); err != nil {
		fmt.Fprintf(os.Stderr, "clocktalk: write %s: %v\n", name, err)
	}
}

func writeAggregatedProfile(stem string, bank *clock.Bank, np int) {
	name := stem + ".clocktalk.aggregated.txt"
	f, err := os.Create(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "clocktalk: create %s: %v\n", name, err)
		return
	}
	defer f.Close()
	report.WriteAggregatedProfile(f, bank, np)
}

func openCache(exportProf bool) cache.Store {
	if !exportProf {
		return cache.Disabled{}
	}
	store, err := cache.Open(".clocktalk-cache")
	if err != nil {
		fmt.Fprintf(os.Stderr, "clocktalk: cache disabled: %v\n", err)
		return cache.Disabled{}
	}
	return store
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func parseIgnore(s string) []replay.IgnoreCategory {
	var out []replay.IgnoreCategory
	for _, c := range splitNonEmpty(s) {
		out = append(out, replay.IgnoreCategory(c))
	}
	return out
}

type timingLog struct {
	enabled bool
	starts  map[string]time.Time
	elapsed map[string]time.Duration
	order   []string
}

func newTimingLog(enabled bool) *timingLog {
	return &timingLog{enabled: enabled, starts: map[string]time.Time{}, elapsed: map[string]time.Duration{}}
}

func (t *timingLog) start(phase string) {
	if !t.enabled {
		return
	}
	t.starts[phase] = time.Now()
}

func (t *timingLog) stop(phase string) {
	if !t.enabled {
		return
	}
	t.elapsed[phase] = time.Since(t.starts[phase])
	t.order = append(t.order, phase)
}

func (t *timingLog) report(w *os.File) {
	if !t.enabled {
		return
	}
	fmt.Fprintln(w, report.Banner("timings", 40))
	for _, phase := range t.order {
		fmt.Fprintf(w, "%-20s %v\n", phase, t.elapsed[phase])
	}
}
