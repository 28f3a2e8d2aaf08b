package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hlrs-hpc/clocktalk/clock"
	"github.com/hlrs-hpc/clocktalk/trace"
	"github.com/stretchr/testify/assert"
)

func threeRankBank() *clock.Bank {
	bank := clock.NewBank(3, nil)
	bank.Start(0, []float64{0, 0, 0})
	bank.Play(0, 100, trace.Useful)
	bank.Play(1, 200, trace.Useful)
	bank.Play(2, 300, trace.Useful)
	for p := 0; p < 3; p++ {
		bank.End(p, 300, 300)
	}
	return bank
}

func TestSummarizeComputesEfficiencyRatios(t *testing.T) {
	bank := threeRankBank()
	s := Summarize(bank, 3, false)

	assert.Equal(t, 3, s.NumProcs)
	assert.InDelta(t, s.LoadBalance, s.AvgUseful/s.MaxUseful, 1e-9)
	assert.InDelta(t, s.SerializationEff, s.MaxUseful/s.IdealCrit, 1e-9)
	assert.InDelta(t, s.TransferEff, s.IdealCrit/s.MaxTraced, 1e-9)
	assert.False(t, s.WrongResults)
}

func TestSummarizeMarksWrongResultsOnAbort(t *testing.T) {
	bank := threeRankBank()
	s := Summarize(bank, 3, true)
	assert.True(t, s.WrongResults)
}

func TestPrintPlainIncludesWrongResultsOnlyWhenAborted(t *testing.T) {
	bank := threeRankBank()

	var clean bytes.Buffer
	PrintPlain(&clean, Summarize(bank, 3, false))
	assert.False(t, strings.Contains(clean.String(), "wrong_results"))

	var aborted bytes.Buffer
	PrintPlain(&aborted, Summarize(bank, 3, true))
	assert.True(t, strings.Contains(aborted.String(), "wrong_results= true"))
}

func TestPrintPrettyRendersATable(t *testing.T) {
	var buf bytes.Buffer
	PrintPretty(&buf, Summarize(threeRankBank(), 3, false))
	out := buf.String()
	assert.Contains(t, out, "Ideal runtime")
	assert.Contains(t, out, "Load balance")
}

func TestSafeDivByZeroIsZero(t *testing.T) {
	assert.Equal(t, 0.0, safeDiv(5, 0))
	assert.Equal(t, 2.5, safeDiv(5, 2))
}
