// Package progress infers how far each job has moved through the converting line.
package progress

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/convertline/convertline/internal/ledger"
)

// Color is the display hint attached to a stage.
type Color string

const (
	ColorGreen  Color = "green"
	ColorIndigo Color = "indigo"
	ColorAmber  Color = "amber"
	ColorBlue   Color = "blue"
	ColorGray   Color = "gray"
)

// StagePending is reported for jobs without any ledger rows.
const StagePending = "Pending"

// Stage is one step of the priority scan.
type Stage struct {
	Code  ledger.ProcessCode
	Label string
	Color Color
}

// Stages are scanned most advanced first.
var Stages = []Stage{
	{ledger.CodeSlitting, "Slitting / QC", ColorGreen},
	{ledger.CodeLamination, "Lamination", ColorIndigo},
	{ledger.CodeRewinding, "Rewinding", ColorAmber},
	{ledger.CodePrinting, "Printing", ColorBlue},
}

// Result is a job's inferred progress.
type Result struct {
	Percent int    `json:"percent"`
	Stage   string `json:"stage"`
	Color   Color  `json:"color"`
}

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Compute infers progress from per-process produced sums. A code present in sums means
// the job has rows for it. A non-positive target is treated as 1.
func Compute(sums map[ledger.ProcessCode]decimal.Decimal, target decimal.Decimal) Result {
	if !target.IsPositive() {
		target = one
	}
	for _, st := range Stages {
		if sum, ok := sums[st.Code]; ok && !sum.IsZero() {
			return Result{Percent: percent(sum, target), Stage: st.Label, Color: st.Color}
		}
	}

	others := make([]ledger.ProcessCode, 0, len(sums))
	for code, sum := range sums {
		if !isStage(code) && !sum.IsZero() {
			others = append(others, code)
		}
	}
	if len(others) > 0 {
		slices.Sort(others)
		code := others[0]
		return Result{Percent: percent(sums[code], target), Stage: fmt.Sprintf("In Progress (%d)", int(code)), Color: ColorBlue}
	}

	for _, st := range Stages {
		if _, ok := sums[st.Code]; ok {
			return Result{Percent: 0, Stage: st.Label, Color: st.Color}
		}
	}
	return Result{Percent: 0, Stage: StagePending, Color: ColorGray}
}

func isStage(code ledger.ProcessCode) bool {
	for _, st := range Stages {
		if st.Code == code {
			return true
		}
	}
	return false
}

// percent is floor(produced / target * 100) clamped to [0, 100].
func percent(produced, target decimal.Decimal) int {
	p, _ := produced.Mul(hundred).QuoRem(target, 0)
	switch {
	case p.IsNegative():
		return 0
	case p.GreaterThan(hundred):
		return 100
	}
	return int(p.IntPart())
}
