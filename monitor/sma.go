package monitor

// SmoothWindowed applies a trailing simple moving average of width k over
// rows' numeric fields (everything except MinEventsBin, which stays the raw
// per-bin count), implementing --wmon-sma. k <= 1 returns rows unchanged.
// This is not exercised by the original monitoring.c kept in the reference
// sources; the flag is parsed by the CLI's option layer but was never wired
// to a monitor there (see DESIGN.md).
func SmoothWindowed(rows []WindowRow, k int) []WindowRow {
	if k <= 1 || len(rows) == 0 {
		return rows
	}
	out := make([]WindowRow, len(rows))
	for i := range rows {
		lo := i - k + 1
		if lo < 0 {
			lo = 0
		}
		window := rows[lo : i+1]
		n := float64(len(window))

		var maxCrit, avgCrit, maxUseful, avgUseful, elapsedLocal, criticalLocal float64
		for _, r := range window {
			maxCrit += r.MaxCrit
			avgCrit += r.AvgCrit
			maxUseful += r.MaxUseful
			avgUseful += r.AvgUseful
			elapsedLocal += r.ElapsedLocal
			criticalLocal += r.CriticalLocal
		}

		out[i] = WindowRow{
			TMax:          rows[i].TMax,
			MaxCrit:       maxCrit / n,
			AvgCrit:       avgCrit / n,
			MaxUseful:     maxUseful / n,
			AvgUseful:     avgUseful / n,
			ElapsedLocal:  elapsedLocal / n,
			CriticalLocal: criticalLocal / n,
			MinEventsBin:  rows[i].MinEventsBin,
		}
	}
	return out
}
