// Package report aggregates ledger rows into the process, machine and date hierarchy
// used by the production report, and exports it.
package report

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/convertline/convertline/internal/ledger"
	"github.com/convertline/convertline/internal/shared"
)

// Granularity selects how much of the tree a report returns.
type Granularity string

const (
	GranularitySummary     Granularity = "summary"
	GranularityDetail      Granularity = "detail"
	GranularityJobWise     Granularity = "job_wise"
	GranularityMachineWise Granularity = "machine_wise"
)

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	switch g {
	case GranularitySummary, GranularityDetail, GranularityJobWise, GranularityMachineWise:
		return true
	}
	return false
}

// DefaultCodes are the process codes reported when none are requested. Core (35) is
// reportable but only on request.
var DefaultCodes = []ledger.ProcessCode{ledger.CodePrinting, ledger.CodeRewinding, ledger.CodeLamination, ledger.CodeSlitting}

// Filter is a production report query. End is inclusive.
type Filter struct {
	Start       time.Time
	End         time.Time
	Codes       []ledger.ProcessCode
	JobNumber   string
	Granularity Granularity
}

// Normalize applies defaults and rejects invalid queries with ErrInvalidQueryParameters.
func (f *Filter) Normalize() error {
	if f.Start.IsZero() || f.End.IsZero() {
		return shared.Reject(shared.ErrInvalidQueryParameters, "start and end dates are required")
	}
	if f.End.Before(f.Start) {
		return shared.Reject(shared.ErrInvalidQueryParameters, "end date %s is before start date %s",
			f.End.Format(time.DateOnly), f.Start.Format(time.DateOnly))
	}
	if f.Granularity == "" {
		f.Granularity = GranularitySummary
	}
	if !f.Granularity.Valid() {
		return shared.Reject(shared.ErrInvalidQueryParameters, "unknown report type %q", f.Granularity)
	}
	if len(f.Codes) == 0 {
		f.Codes = slices.Clone(DefaultCodes)
	}
	for _, c := range f.Codes {
		if !c.Known() {
			return shared.Reject(shared.ErrInvalidQueryParameters, "unknown process code %d", int(c))
		}
	}
	slices.Sort(f.Codes)
	f.Codes = slices.Compact(f.Codes)
	f.JobNumber = strings.TrimSpace(f.JobNumber)
	return nil
}

// Query converts the filter into a ledger read.
func (f Filter) Query() ledger.Query {
	return ledger.Query{Start: f.Start, End: f.End, Codes: f.Codes, JobNumber: f.JobNumber}
}

func (f Filter) keyParts() []string {
	codes := make([]string, len(f.Codes))
	for i, c := range f.Codes {
		codes[i] = strconv.Itoa(int(c))
	}
	return []string{
		f.Start.Format(time.DateOnly),
		f.End.Format(time.DateOnly),
		strings.Join(codes, ","),
		strings.ToLower(f.JobNumber),
		string(f.Granularity),
	}
}
