package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convertline/convertline/internal/ledger"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func day(n int) time.Time { return time.Date(2024, 3, n, 0, 0, 0, 0, time.UTC) }

func row(id int64, code ledger.ProcessCode, machine string, date time.Time, job, produced, meters, wastage, minutes string) ledger.Row {
	return ledger.Row{
		Source: ledger.SourceTransaction, SourceID: id, JobNumber: job, ProcessCode: code, MachineCode: machine,
		Date: date, Produced: d(produced), Meters: d(meters), Wastage: d(wastage), Minutes: d(minutes),
		Balance: d("1"), Troubleshoot: d("2"),
	}
}

func sampleRows() []ledger.Row {
	return []ledger.Row{
		row(1, ledger.CodePrinting, "PR-01", day(1), "JO-1", "100", "1000", "5", "60"),
		row(2, ledger.CodePrinting, "PR-01", day(1), "JO-2", "200", "2000", "10", "60"),
		row(3, ledger.CodePrinting, "PR-01", day(2), "JO-1", "50", "100", "0", "100"),
		row(4, ledger.CodePrinting, "PR-02", day(2), "JO-3", "80", "400", "20", "40"),
		row(5, ledger.CodeSlitting, "SL-01", day(3), "JO-1", "90", "0", "3", "30"),
		row(6, ledger.CodeLamination, "", day(3), "JO-2", "0", "0", "4", "0"),
	}
}

func TestAvgSpeedIsRatioOfSums(t *testing.T) {
	rows := []ledger.Row{
		row(1, ledger.CodePrinting, "PR-01", day(1), "JO-1", "10", "1000", "0", "60"),
		row(2, ledger.CodePrinting, "PR-01", day(1), "JO-1", "10", "2000", "0", "60"),
		row(3, ledger.CodePrinting, "PR-01", day(1), "JO-1", "10", "100", "0", "100"),
	}
	tree := Build(rows)
	speed := tree.Processes[0].Machines[0].Dates[0].Summary.AvgSpeed
	assert.True(t, speed.Round(2).Equal(d("14.09")), "got %s", speed)
	assert.True(t, tree.Total.AvgSpeed.Equal(speed))
}

func TestWastagePctIsRatioOfSums(t *testing.T) {
	rows := []ledger.Row{
		row(1, ledger.CodePrinting, "PR-01", day(1), "JO-1", "100", "0", "10", "0"),
		row(2, ledger.CodePrinting, "PR-01", day(1), "JO-1", "300", "0", "10", "0"),
	}
	tree := Build(rows)
	assert.Equal(t, "5", tree.Total.WastagePct.String())

	lines := tree.Processes[0].Machines[0].Dates[0].Lines
	assert.Equal(t, "10", lines[0].WastagePct.String())

	zero := Build([]ledger.Row{row(1, ledger.CodeCore, "CR-01", day(1), "JO-1", "0", "0", "4", "0")})
	assert.True(t, zero.Total.WastagePct.IsZero())
	assert.True(t, zero.Total.AvgSpeed.IsZero())
}

func TestRollupConsistency(t *testing.T) {
	tree := Build(sampleRows())

	var processSum Summary
	for _, p := range tree.Processes {
		var machineSum Summary
		for _, m := range p.Machines {
			var dateSum Summary
			for _, dn := range m.Dates {
				var lineSum Summary
				for _, l := range dn.Lines {
					lineSum.addRow(l.Row)
				}
				assertSums(t, lineSum, dn.Summary)
				dateSum.add(dn.Summary)
			}
			assertSums(t, dateSum, m.Summary)
			machineSum.add(m.Summary)
		}
		assertSums(t, machineSum, p.Summary)
		processSum.add(p.Summary)
	}
	assertSums(t, processSum, tree.Total)
	assert.Equal(t, 6, tree.Total.Rows)
	assert.Equal(t, "520", tree.Total.Produced.String())
}

func assertSums(t *testing.T, want, got Summary) {
	t.Helper()
	assert.True(t, want.Produced.Equal(got.Produced), "produced %s != %s", want.Produced, got.Produced)
	assert.True(t, want.Meters.Equal(got.Meters), "meters")
	assert.True(t, want.Wastage.Equal(got.Wastage), "wastage")
	assert.True(t, want.Minutes.Equal(got.Minutes), "minutes")
	assert.True(t, want.Balance.Equal(got.Balance), "balance")
	assert.True(t, want.Troubleshoot.Equal(got.Troubleshoot), "troubleshoot")
	assert.Equal(t, want.Rows, got.Rows)
}

func TestBuildGroupingAndOrder(t *testing.T) {
	tree := Build(sampleRows())
	require.Len(t, tree.Processes, 3)
	assert.Equal(t, "Printing", tree.Processes[0].Name)
	assert.Equal(t, "Slitting", tree.Processes[1].Name)
	assert.Equal(t, "Lamination", tree.Processes[2].Name)

	printing := tree.Processes[0]
	require.Len(t, printing.Machines, 2)
	assert.Equal(t, "PR-01", printing.Machines[0].MachineCode)
	require.Len(t, printing.Machines[0].Dates, 2)
	assert.Len(t, printing.Machines[0].Dates[0].Lines, 2)

	assert.Equal(t, UnknownMachine, tree.Processes[2].Machines[0].MachineCode)

	odd := Build([]ledger.Row{row(1, ledger.ProcessCode(40), "X", day(1), "JO-9", "1", "1", "0", "1")})
	assert.Equal(t, "Unknown (40)", odd.Processes[0].Name)
}

func TestBuildDeterministic(t *testing.T) {
	first := Build(sampleRows())
	second := Build(sampleRows())
	assert.Equal(t, first, second)

	empty := Build(nil)
	assert.Empty(t, empty.Processes)
	assert.Zero(t, empty.Total.Rows)
}

func TestShape(t *testing.T) {
	rows := sampleRows()
	full := Build(rows)

	summary := Shape(full, rows, GranularitySummary)
	require.NotEmpty(t, summary.Processes[0].Machines[0].Dates)
	assert.Nil(t, summary.Processes[0].Machines[0].Dates[0].Lines)
	assert.NotNil(t, full.Processes[0].Machines[0].Dates[0].Lines, "input tree is untouched")

	machineWise := Shape(full, rows, GranularityMachineWise)
	assert.Nil(t, machineWise.Processes[0].Machines[0].Dates)
	assert.True(t, machineWise.Processes[0].Machines[0].Summary.Produced.Equal(d("350")))

	jobWise := Shape(full, rows, GranularityJobWise)
	require.Len(t, jobWise.Jobs, 3)
	assert.Equal(t, "JO-1", jobWise.Jobs[0].JobNumber)
	assert.Equal(t, "240", jobWise.Jobs[0].Summary.Produced.String())
	assert.Equal(t, 3, jobWise.Jobs[0].Summary.Rows)

	assert.Equal(t, full, Shape(full, rows, GranularityDetail))
}
