package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/convertline/convertline/internal/ledger"
)

const (
	trendDays     = 7
	topMachineCap = 10
)

// TrendPoint is one day of the production trend.
type TrendPoint struct {
	Date     time.Time       `json:"date"`
	Produced decimal.Decimal `json:"produced"`
}

// MachineWaste ranks a machine by wastage.
type MachineWaste struct {
	MachineCode string          `json:"machine_code"`
	Wastage     decimal.Decimal `json:"wastage"`
}

// Dashboard is the month-to-date overview.
type Dashboard struct {
	MonthStart    time.Time       `json:"month_start"`
	AsOf          time.Time       `json:"as_of"`
	Produced      decimal.Decimal `json:"produced"`
	Wastage       decimal.Decimal `json:"wastage"`
	WasteRatio    decimal.Decimal `json:"waste_ratio"`
	CompletedJobs int             `json:"completed_jobs"`
	Trend         []TrendPoint    `json:"trend"`
	TopWastage    []MachineWaste  `json:"top_wastage"`
}

// dashboardWindow returns the first day whose rows the dashboard needs.
func dashboardWindow(asOf time.Time) (monthStart, from time.Time) {
	day := truncateDay(asOf)
	monthStart = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	from = day.AddDate(0, 0, -(trendDays - 1))
	if monthStart.Before(from) {
		from = monthStart
	}
	return monthStart, from
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// BuildDashboard computes the dashboard from rows covering at least the window returned
// by dashboardWindow. A job counts as completed once it has slitting output this month.
func BuildDashboard(rows []ledger.Row, asOf time.Time) Dashboard {
	day := truncateDay(asOf)
	monthStart, _ := dashboardWindow(asOf)
	trendStart := day.AddDate(0, 0, -(trendDays - 1))

	dash := Dashboard{MonthStart: monthStart, AsOf: day, Trend: make([]TrendPoint, trendDays)}
	for i := range dash.Trend {
		dash.Trend[i] = TrendPoint{Date: trendStart.AddDate(0, 0, i)}
	}

	completed := make(map[string]struct{})
	waste := make(map[string]decimal.Decimal)
	for _, r := range rows {
		rd := truncateDay(r.Date.In(day.Location()))
		if rd.After(day) {
			continue
		}
		if !rd.Before(trendStart) {
			idx := int(rd.Sub(trendStart).Hours() / 24)
			if idx >= 0 && idx < trendDays {
				dash.Trend[idx].Produced = dash.Trend[idx].Produced.Add(r.Produced)
			}
		}
		if rd.Before(monthStart) {
			continue
		}
		dash.Produced = dash.Produced.Add(r.Produced)
		dash.Wastage = dash.Wastage.Add(r.Wastage)
		if r.ProcessCode == ledger.CodeSlitting && r.JobNumber != "" {
			completed[r.JobNumber] = struct{}{}
		}
		machine := r.MachineCode
		if machine == "" {
			machine = UnknownMachine
		}
		waste[machine] = waste[machine].Add(r.Wastage)
	}
	dash.CompletedJobs = len(completed)
	dash.WasteRatio = ratio(dash.Wastage, dash.Produced, hundred)

	dash.TopWastage = make([]MachineWaste, 0, len(waste))
	for code, w := range waste {
		dash.TopWastage = append(dash.TopWastage, MachineWaste{MachineCode: code, Wastage: w})
	}
	sort.Slice(dash.TopWastage, func(i, j int) bool {
		a, b := dash.TopWastage[i], dash.TopWastage[j]
		if c := a.Wastage.Cmp(b.Wastage); c != 0 {
			return c > 0
		}
		return a.MachineCode < b.MachineCode
	})
	if len(dash.TopWastage) > topMachineCap {
		dash.TopWastage = dash.TopWastage[:topMachineCap]
	}
	return dash
}
