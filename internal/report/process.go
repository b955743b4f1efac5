package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/convertline/convertline/internal/ledger"
)

// ProcessOutput is the per-process material report: every row of one process newest
// first, with input, output and waste totals. Yield and waste rates are taken against
// total input.
type ProcessOutput struct {
	ProcessCode ledger.ProcessCode `json:"process_code"`
	ProcessName string             `json:"process_name"`
	Start       time.Time          `json:"start"`
	End         time.Time          `json:"end"`
	TotalInput  decimal.Decimal    `json:"total_input"`
	TotalOutput decimal.Decimal    `json:"total_output"`
	TotalWaste  decimal.Decimal    `json:"total_waste"`
	YieldPct    decimal.Decimal    `json:"yield_pct"`
	WastePct    decimal.Decimal    `json:"waste_pct"`
	Rows        []ledger.Row       `json:"rows"`
}

// BuildProcessOutput totals rows of code. Rows of other codes are ignored.
func BuildProcessOutput(code ledger.ProcessCode, rows []ledger.Row) ProcessOutput {
	out := ProcessOutput{ProcessCode: code, ProcessName: code.Name(), Rows: make([]ledger.Row, 0, len(rows))}
	for _, r := range rows {
		if r.ProcessCode != code {
			continue
		}
		out.TotalInput = out.TotalInput.Add(r.Input)
		out.TotalOutput = out.TotalOutput.Add(r.Produced)
		out.TotalWaste = out.TotalWaste.Add(r.Wastage)
		out.Rows = append(out.Rows, r)
	}
	sort.SliceStable(out.Rows, func(i, j int) bool { return out.Rows[i].Date.After(out.Rows[j].Date) })
	out.YieldPct = ratio(out.TotalOutput, out.TotalInput, hundred)
	out.WastePct = ratio(out.TotalWaste, out.TotalInput, hundred)
	return out
}
