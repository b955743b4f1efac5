package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/convertline/convertline/internal/platform/db"
)

// Row sources.
const (
	SourceTransaction = "transaction"
	SourceLegacy      = "legacy"
)

// Row is the process-agnostic projection of a ledger entry used by reporting and
// progress inference.
type Row struct {
	Source       string          `json:"source"`
	SourceID     int64           `json:"source_id"`
	JobNumber    string          `json:"job_number"`
	ProductName  string          `json:"product_name"`
	ProcessCode  ProcessCode     `json:"process_code"`
	MachineCode  string          `json:"machine_code"`
	Date         time.Time       `json:"date"`
	Produced     decimal.Decimal `json:"produced"`
	Meters       decimal.Decimal `json:"meters"`
	Wastage      decimal.Decimal `json:"wastage"`
	Minutes      decimal.Decimal `json:"minutes"`
	Balance      decimal.Decimal `json:"balance"`
	Troubleshoot decimal.Decimal `json:"troubleshoot_minutes"`
	Input        decimal.Decimal `json:"input"`
}

// Query selects ledger rows. End is inclusive. Empty Codes selects every code.
type Query struct {
	Start     time.Time
	End       time.Time
	Codes     []ProcessCode
	JobNumber string
}

// StageSums maps job number to process code to summed produced quantity. A code is
// present whenever the job has at least one row for it, even if the sum is zero.
type StageSums map[string]map[ProcessCode]decimal.Decimal

// Reader reads the unified production_ledger view.
type Reader interface {
	Rows(ctx context.Context, q Query) ([]Row, error)
	// JobRows returns every row of one job, oldest first.
	JobRows(ctx context.Context, jobNumber string) ([]Row, error)
	StageSums(ctx context.Context, jobNumbers []string) (StageSums, error)
}

type reader struct {
	db db.DBTX
}

// NewReader builds a Reader over a pool or transaction.
func NewReader(conn db.DBTX) Reader {
	return &reader{db: conn}
}

const rowColumns = `source, source_id, job_number, product_name, process_code, machine_code, trans_date,
produced, meters, wastage, minutes, balance, troubleshoot_minutes, input`

// ScanRow reads one production_ledger row selected with the standard column list.
func ScanRow(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(&r.Source, &r.SourceID, &r.JobNumber, &r.ProductName, &r.ProcessCode, &r.MachineCode, &r.Date,
		&r.Produced, &r.Meters, &r.Wastage, &r.Minutes, &r.Balance, &r.Troubleshoot, &r.Input)
	return r, err
}

func (r *reader) Rows(ctx context.Context, q Query) ([]Row, error) {
	conditions := []string{"trans_date >= $1", "trans_date <= $2"}
	args := []any{q.Start, q.End}
	if len(q.Codes) > 0 {
		codes := make([]int32, len(q.Codes))
		for i, c := range q.Codes {
			codes[i] = int32(c)
		}
		args = append(args, codes)
		conditions = append(conditions, fmt.Sprintf("process_code = ANY($%d)", len(args)))
	}
	if q.JobNumber != "" {
		args = append(args, db.ContainsPattern(q.JobNumber))
		conditions = append(conditions, fmt.Sprintf("job_number ILIKE $%d", len(args)))
	}
	query := `SELECT ` + rowColumns + ` FROM production_ledger WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY trans_date, machine_code, process_code, source, source_id`

	return r.query(ctx, query, args...)
}

func (r *reader) JobRows(ctx context.Context, jobNumber string) ([]Row, error) {
	return r.query(ctx, `SELECT `+rowColumns+` FROM production_ledger WHERE job_number = $1
ORDER BY trans_date, process_code, source, source_id`, jobNumber)
}

func (r *reader) query(ctx context.Context, sql string, args ...any) ([]Row, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	out := make([]Row, 0)
	for rows.Next() {
		row, err := ScanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *reader) StageSums(ctx context.Context, jobNumbers []string) (StageSums, error) {
	out := make(StageSums, len(jobNumbers))
	if len(jobNumbers) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `SELECT job_number, process_code, COALESCE(SUM(produced), 0)
FROM production_ledger WHERE job_number = ANY($1) GROUP BY job_number, process_code`, jobNumbers)
	if err != nil {
		return nil, fmt.Errorf("query stage sums: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			job  string
			code ProcessCode
			sum  decimal.Decimal
		)
		if err := rows.Scan(&job, &code, &sum); err != nil {
			return nil, err
		}
		if out[job] == nil {
			out[job] = make(map[ProcessCode]decimal.Decimal)
		}
		out[job][code] = sum
	}
	return out, rows.Err()
}
