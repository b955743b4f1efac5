package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/convertline/convertline/internal/ledger"
)

// UnknownMachine labels rows recorded without a machine code.
const UnknownMachine = "Unknown Machine"

var hundred = decimal.NewFromInt(100)

// Summary holds summed quantities for one node and the rates derived from those sums.
type Summary struct {
	Produced     decimal.Decimal `json:"produced"`
	Meters       decimal.Decimal `json:"meters"`
	Wastage      decimal.Decimal `json:"wastage"`
	Minutes      decimal.Decimal `json:"minutes"`
	Balance      decimal.Decimal `json:"balance"`
	Troubleshoot decimal.Decimal `json:"troubleshoot_minutes"`
	Rows         int             `json:"rows"`
	AvgSpeed     decimal.Decimal `json:"avg_speed"`
	WastagePct   decimal.Decimal `json:"wastage_pct"`
}

func (s *Summary) addRow(r ledger.Row) {
	s.Produced = s.Produced.Add(r.Produced)
	s.Meters = s.Meters.Add(r.Meters)
	s.Wastage = s.Wastage.Add(r.Wastage)
	s.Minutes = s.Minutes.Add(r.Minutes)
	s.Balance = s.Balance.Add(r.Balance)
	s.Troubleshoot = s.Troubleshoot.Add(r.Troubleshoot)
	s.Rows++
}

func (s *Summary) add(o Summary) {
	s.Produced = s.Produced.Add(o.Produced)
	s.Meters = s.Meters.Add(o.Meters)
	s.Wastage = s.Wastage.Add(o.Wastage)
	s.Minutes = s.Minutes.Add(o.Minutes)
	s.Balance = s.Balance.Add(o.Balance)
	s.Troubleshoot = s.Troubleshoot.Add(o.Troubleshoot)
	s.Rows += o.Rows
}

// finish derives rates from the sums. Rates are never averaged across children.
func (s *Summary) finish() {
	s.AvgSpeed = ratio(s.Meters, s.Minutes, decimal.NewFromInt(1))
	s.WastagePct = ratio(s.Wastage, s.Produced, hundred)
}

func ratio(num, den, scale decimal.Decimal) decimal.Decimal {
	if !den.IsPositive() {
		return decimal.Zero
	}
	return num.Div(den).Mul(scale)
}

// Line is a ledger row with its display-only wastage percentage.
type Line struct {
	ledger.Row
	WastagePct decimal.Decimal `json:"wastage_pct"`
}

// DateNode groups one machine's rows for a single day.
type DateNode struct {
	Date    time.Time `json:"date"`
	Lines   []Line    `json:"lines,omitempty"`
	Summary Summary   `json:"summary"`
}

// MachineNode groups one process's rows by machine.
type MachineNode struct {
	MachineCode string     `json:"machine_code"`
	Dates       []DateNode `json:"dates,omitempty"`
	Summary     Summary    `json:"summary"`
}

// ProcessNode is the top level of the report tree.
type ProcessNode struct {
	Code     ledger.ProcessCode `json:"code"`
	Name     string             `json:"name"`
	Machines []MachineNode      `json:"machines"`
	Summary  Summary            `json:"summary"`
}

// JobSummary rolls up every row of one job across processes.
type JobSummary struct {
	JobNumber   string  `json:"job_number"`
	ProductName string  `json:"product_name,omitempty"`
	Summary     Summary `json:"summary"`
}

// Tree is the aggregated report. Children keep the order in which their first row
// appeared in the input.
type Tree struct {
	Processes []ProcessNode `json:"processes"`
	Jobs      []JobSummary  `json:"jobs,omitempty"`
	Total     Summary       `json:"total"`
}

// Build groups rows by process, machine and date in a single pass and rolls the sums up
// from dates to machines to processes to the grand total. It is deterministic for a
// given input order.
func Build(rows []ledger.Row) Tree {
	type machineIdx struct {
		pos   int
		dates map[string]int
	}
	type processIdx struct {
		pos      int
		machines map[string]*machineIdx
	}

	tree := Tree{Processes: make([]ProcessNode, 0)}
	processes := make(map[ledger.ProcessCode]*processIdx)

	for _, r := range rows {
		pi, ok := processes[r.ProcessCode]
		if !ok {
			pi = &processIdx{pos: len(tree.Processes), machines: make(map[string]*machineIdx)}
			processes[r.ProcessCode] = pi
			tree.Processes = append(tree.Processes, ProcessNode{Code: r.ProcessCode, Name: r.ProcessCode.Name()})
		}
		pn := &tree.Processes[pi.pos]

		machine := r.MachineCode
		if machine == "" {
			machine = UnknownMachine
		}
		mi, ok := pi.machines[machine]
		if !ok {
			mi = &machineIdx{pos: len(pn.Machines), dates: make(map[string]int)}
			pi.machines[machine] = mi
			pn.Machines = append(pn.Machines, MachineNode{MachineCode: machine})
		}
		mn := &pn.Machines[mi.pos]

		day := r.Date.Format(time.DateOnly)
		di, ok := mi.dates[day]
		if !ok {
			di = len(mn.Dates)
			mi.dates[day] = di
			mn.Dates = append(mn.Dates, DateNode{Date: r.Date})
		}
		dn := &mn.Dates[di]
		dn.Lines = append(dn.Lines, Line{Row: r, WastagePct: ratio(r.Wastage, r.Produced, hundred)})
		dn.Summary.addRow(r)
	}

	for p := range tree.Processes {
		pn := &tree.Processes[p]
		for m := range pn.Machines {
			mn := &pn.Machines[m]
			for d := range mn.Dates {
				mn.Dates[d].Summary.finish()
				mn.Summary.add(mn.Dates[d].Summary)
			}
			mn.Summary.finish()
			pn.Summary.add(mn.Summary)
		}
		pn.Summary.finish()
		tree.Total.add(pn.Summary)
	}
	tree.Total.finish()
	return tree
}

// BuildJobs rolls rows up per job number, sorted by job number.
func BuildJobs(rows []ledger.Row) []JobSummary {
	index := make(map[string]int)
	jobs := make([]JobSummary, 0)
	for _, r := range rows {
		i, ok := index[r.JobNumber]
		if !ok {
			i = len(jobs)
			index[r.JobNumber] = i
			jobs = append(jobs, JobSummary{JobNumber: r.JobNumber, ProductName: r.ProductName})
		}
		if jobs[i].ProductName == "" {
			jobs[i].ProductName = r.ProductName
		}
		jobs[i].Summary.addRow(r)
	}
	for i := range jobs {
		jobs[i].Summary.finish()
	}
	sort.SliceStable(jobs, func(a, b int) bool { return jobs[a].JobNumber < jobs[b].JobNumber })
	return jobs
}

// Shape trims a full tree to what the granularity shows. The input is not modified.
func Shape(full Tree, rows []ledger.Row, g Granularity) Tree {
	if g == GranularityDetail {
		return full
	}
	out := Tree{Total: full.Total, Processes: make([]ProcessNode, len(full.Processes))}
	for p, pn := range full.Processes {
		machines := make([]MachineNode, len(pn.Machines))
		for m, mn := range pn.Machines {
			machines[m] = MachineNode{MachineCode: mn.MachineCode, Summary: mn.Summary}
			if g == GranularityMachineWise {
				continue
			}
			dates := make([]DateNode, len(mn.Dates))
			for d, dn := range mn.Dates {
				dates[d] = DateNode{Date: dn.Date, Summary: dn.Summary}
			}
			machines[m].Dates = dates
		}
		out.Processes[p] = ProcessNode{Code: pn.Code, Name: pn.Name, Machines: machines, Summary: pn.Summary}
	}
	if g == GranularityJobWise {
		out.Jobs = BuildJobs(rows)
	}
	return out
}
