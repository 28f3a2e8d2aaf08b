package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// OutputFormatter renders Events to a writer, colorized by level, with an
// independent cap on how many of each level get printed — the mechanism
// behind --show-reviews[=N] and --show-errors[=N]. A negative cap means
// unlimited; zero suppresses that level entirely.
type OutputFormatter struct {
	writer     io.Writer
	maxReview  int
	maxAnomaly int

	shown map[Level]int

	reviewColor  *color.Color
	anomalyColor *color.Color
}

// NewOutputFormatter builds a formatter writing to w (os.Stdout if nil) with
// the given per-level caps.
func NewOutputFormatter(w io.Writer, maxReview, maxAnomaly int) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &OutputFormatter{
		writer:       w,
		maxReview:    maxReview,
		maxAnomaly:   maxAnomaly,
		shown:        make(map[Level]int),
		reviewColor:  color.New(color.FgCyan),
		anomalyColor: color.New(color.FgRed, color.Bold),
	}
}

// Handle implements the diag.Handler signature: it formats and prints e if
// its level's cap has not yet been reached.
func (f *OutputFormatter) Handle(e Event) {
	limit := f.maxReview
	c := f.reviewColor
	if e.Level == Anomaly {
		limit = f.maxAnomaly
		c = f.anomalyColor
	}
	if limit == 0 {
		return
	}
	if limit > 0 && f.shown[e.Level] >= limit {
		return
	}
	f.shown[e.Level]++

	fmt.Fprintln(f.writer, c.Sprint(e.String()))
}
