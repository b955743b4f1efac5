package progress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/convertline/convertline/internal/ledger"
	"github.com/convertline/convertline/internal/shared"
)

// Listing limits.
const (
	ScanLimit        = 1000
	ResultLimit      = 50
	PendingScanLimit = 200
)

// JobProgress pairs a job with its inferred progress.
type JobProgress struct {
	Job
	Result
}

// Filter narrows ListProgress. Nil bounds are open.
type Filter struct {
	JobNumber   string
	MinProgress *int
	MaxProgress *int
	From        *time.Time
	To          *time.Time
}

// Validate rejects out-of-range progress bounds.
func (f Filter) Validate() error {
	for _, b := range []*int{f.MinProgress, f.MaxProgress} {
		if b != nil && (*b < 0 || *b > 100) {
			return shared.Reject(shared.ErrInvalidQueryParameters, "progress bounds must be within 0..100")
		}
	}
	if f.MinProgress != nil && f.MaxProgress != nil && *f.MinProgress > *f.MaxProgress {
		return shared.Reject(shared.ErrInvalidQueryParameters, "min_progress %d exceeds max_progress %d", *f.MinProgress, *f.MaxProgress)
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return shared.Reject(shared.ErrInvalidQueryParameters, "end_date is before start_date")
	}
	return nil
}

func (f Filter) accepts(percent int) bool {
	if f.MinProgress != nil && percent < *f.MinProgress {
		return false
	}
	if f.MaxProgress != nil && percent > *f.MaxProgress {
		return false
	}
	return true
}

// Service computes job progress from the ledger.
type Service struct {
	jobs   Repository
	ledger ledger.Reader
}

// NewService constructs the progress service.
func NewService(jobs Repository, reader ledger.Reader) *Service {
	return &Service{jobs: jobs, ledger: reader}
}

// StageFor infers progress of one job against target.
func (s *Service) StageFor(ctx context.Context, jobNumber string, target decimal.Decimal) (Result, error) {
	jobNumber = strings.TrimSpace(jobNumber)
	if jobNumber == "" {
		return Result{Stage: StagePending, Color: ColorGray}, nil
	}
	sums, err := s.ledger.StageSums(ctx, []string{jobNumber})
	if err != nil {
		return Result{}, fmt.Errorf("stage sums: %w", err)
	}
	return Compute(sums[jobNumber], target), nil
}

// JobDetail is a job with its progress, per-process produced sums and its ledger rows
// oldest first.
type JobDetail struct {
	JobProgress
	Sums         map[ledger.ProcessCode]decimal.Decimal `json:"sums"`
	Transactions []ledger.Row                           `json:"transactions"`
}

// JobDetail loads one job. A nil target uses the job's own target quantity.
func (s *Service) JobDetail(ctx context.Context, jobNumber string, target *decimal.Decimal) (JobDetail, error) {
	job, err := s.jobs.GetJob(ctx, strings.TrimSpace(jobNumber))
	if err != nil {
		return JobDetail{}, err
	}
	sums, err := s.ledger.StageSums(ctx, []string{job.JobNumber})
	if err != nil {
		return JobDetail{}, fmt.Errorf("stage sums: %w", err)
	}
	rows, err := s.ledger.JobRows(ctx, job.JobNumber)
	if err != nil {
		return JobDetail{}, fmt.Errorf("job rows: %w", err)
	}
	t := job.TargetQuantity
	if target != nil {
		t = *target
	}
	jobSums := sums[job.JobNumber]
	if jobSums == nil {
		jobSums = map[ledger.ProcessCode]decimal.Decimal{}
	}
	return JobDetail{
		JobProgress:  JobProgress{Job: job, Result: Compute(jobSums, t)},
		Sums:         jobSums,
		Transactions: rows,
	}, nil
}

// ListProgress scans up to ScanLimit jobs newest first and returns at most ResultLimit
// whose progress falls within the filter bounds.
func (s *Service) ListProgress(ctx context.Context, f Filter) ([]JobProgress, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	jobs, err := s.jobs.ListJobs(ctx, JobQuery{
		JobNumber:    strings.TrimSpace(f.JobNumber),
		From:         f.From,
		To:           f.To,
		OnlyWithRows: f.MinProgress != nil && *f.MinProgress > 0,
		Limit:        ScanLimit,
	})
	if err != nil {
		return nil, err
	}
	return s.collect(ctx, jobs, f.accepts)
}

// ListPending returns up to ResultLimit of the newest PendingScanLimit jobs that are
// not yet complete.
func (s *Service) ListPending(ctx context.Context) ([]JobProgress, error) {
	jobs, err := s.jobs.ListJobs(ctx, JobQuery{Limit: PendingScanLimit})
	if err != nil {
		return nil, err
	}
	return s.collect(ctx, jobs, func(p int) bool { return p < 100 })
}

func (s *Service) collect(ctx context.Context, jobs []Job, keep func(int) bool) ([]JobProgress, error) {
	numbers := make([]string, 0, len(jobs))
	for _, j := range jobs {
		numbers = append(numbers, j.JobNumber)
	}
	sums, err := s.ledger.StageSums(ctx, numbers)
	if err != nil {
		return nil, fmt.Errorf("stage sums: %w", err)
	}

	out := make([]JobProgress, 0)
	for _, j := range jobs {
		res := Compute(sums[j.JobNumber], j.TargetQuantity)
		if !keep(res.Percent) {
			continue
		}
		out = append(out, JobProgress{Job: j, Result: res})
		if len(out) >= ResultLimit {
			break
		}
	}
	return out, nil
}
