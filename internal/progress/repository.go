package progress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/convertline/convertline/internal/platform/db"
)

// Job is a row of the production_jobs view: a job order or an imported legacy job.
type Job struct {
	Source         string          `json:"source"`
	JobNumber      string          `json:"job_number"`
	JobDate        time.Time       `json:"job_date"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	ItemCode       string          `json:"item_code,omitempty"`
	Customer       string          `json:"customer,omitempty"`
	TargetQuantity decimal.Decimal `json:"target_quantity"`
}

// JobQuery selects jobs newest first.
type JobQuery struct {
	JobNumber    string
	From         *time.Time
	To           *time.Time
	OnlyWithRows bool
	Limit        int
}

// Repository reads jobs.
type Repository interface {
	ListJobs(ctx context.Context, q JobQuery) ([]Job, error)
	GetJob(ctx context.Context, jobNumber string) (Job, error)
}

type repository struct {
	db db.DBTX
}

// NewRepository builds the progress repository over a pool or transaction.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const jobColumns = `source, job_number, job_date, due_date, COALESCE(item_code, ''), COALESCE(customer, ''), COALESCE(target_qty, 0)`

func (r *repository) ListJobs(ctx context.Context, q JobQuery) ([]Job, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	if q.JobNumber != "" {
		args = append(args, db.ContainsPattern(q.JobNumber))
		conditions = append(conditions, fmt.Sprintf("job_number ILIKE $%d", len(args)))
	}
	if q.From != nil {
		args = append(args, *q.From)
		conditions = append(conditions, fmt.Sprintf("job_date >= $%d", len(args)))
	}
	if q.To != nil {
		args = append(args, *q.To)
		conditions = append(conditions, fmt.Sprintf("job_date <= $%d", len(args)))
	}
	if q.OnlyWithRows {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM production_ledger l WHERE l.job_number = production_jobs.job_number)")
	}
	args = append(args, q.Limit)
	query := `SELECT ` + jobColumns + ` FROM production_jobs WHERE ` + strings.Join(conditions, " AND ") +
		fmt.Sprintf(` ORDER BY job_date DESC, job_number DESC LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	out := make([]Job, 0)
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.Source, &j.JobNumber, &j.JobDate, &j.DueDate, &j.ItemCode, &j.Customer, &j.TargetQuantity); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *repository) GetJob(ctx context.Context, jobNumber string) (Job, error) {
	var j Job
	err := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM production_jobs WHERE job_number = $1
ORDER BY source DESC LIMIT 1`, jobNumber).
		Scan(&j.Source, &j.JobNumber, &j.JobDate, &j.DueDate, &j.ItemCode, &j.Customer, &j.TargetQuantity)
	return j, db.MapError(err)
}
