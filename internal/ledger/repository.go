package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/convertline/convertline/internal/platform/db"
	"github.com/convertline/convertline/internal/registry"
	"github.com/convertline/convertline/internal/shared"
)

// Repository appends transactions. There is no update or delete.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	// LoadMachine and LoadOperator read with a share lock so a concurrent status change
	// waits for the admission to commit.
	LoadMachine(ctx context.Context, id int64) (registry.Machine, error)
	LoadOperator(ctx context.Context, id int64) (registry.Operator, error)
	ClaimIdempotencyKey(ctx context.Context, key string) error
	Insert(ctx context.Context, tx Transaction) (int64, error)
	ListRecent(ctx context.Context, kind Kind, limit int) ([]Transaction, error)
}

type repository struct {
	db          db.DBTX
	pool        *pgxpool.Pool
	idempotency *shared.IdempotencyStore
}

// NewRepository constructs the pgx-backed ledger repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool, idempotency: shared.NewIdempotencyStore()}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool, idempotency: r.idempotency})
	})
}

func (r *repository) LoadMachine(ctx context.Context, id int64) (registry.Machine, error) {
	var m registry.Machine
	err := r.db.QueryRow(ctx, `SELECT id, code, name, status FROM machines WHERE id = $1 FOR SHARE`, id).
		Scan(&m.ID, &m.Code, &m.Name, &m.Status)
	return m, db.MapError(err)
}

func (r *repository) LoadOperator(ctx context.Context, id int64) (registry.Operator, error) {
	var o registry.Operator
	err := r.db.QueryRow(ctx, `SELECT id, name, is_active FROM operators WHERE id = $1 FOR SHARE`, id).
		Scan(&o.ID, &o.Name, &o.IsActive)
	return o, db.MapError(err)
}

func (r *repository) ClaimIdempotencyKey(ctx context.Context, key string) error {
	return r.idempotency.CheckAndInsert(ctx, r.db, key, "ledger")
}

var envelopeColumns = []string{"trans_date", "job_order_id", "machine_id", "operator_id", "start_at", "end_at",
	"meters_run", "troubleshoot_minutes", "remarks"}

func envelopeValues(e Envelope) []any {
	return []any{e.Date, e.JobOrderID, e.MachineID, e.OperatorID, e.StartAt, e.EndAt, e.MetersRun, e.TroubleshootMinutes, e.Remarks}
}

func (r *repository) Insert(ctx context.Context, tx Transaction) (int64, error) {
	cols := append(append([]string{}, envelopeColumns...), tx.Payload.columns()...)
	vals := append(envelopeValues(tx.Envelope), tx.Payload.values()...)
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s, created_at) VALUES (%s, NOW()) RETURNING id`,
		tx.Kind().Table(), strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	var id int64
	if err := r.db.QueryRow(ctx, query, vals...).Scan(&id); err != nil {
		return 0, db.MapError(err)
	}
	return id, nil
}

func (r *repository) ListRecent(ctx context.Context, kind Kind, limit int) ([]Transaction, error) {
	probe, err := NewPayload(kind)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, %s, created_at, %s FROM %s ORDER BY trans_date DESC, id DESC LIMIT $1`,
		strings.Join(envelopeColumns, ", "), strings.Join(probe.columns(), ", "), kind.Table())
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		p, _ := NewPayload(kind)
		var e Envelope
		targets := []any{&e.ID, &e.Date, &e.JobOrderID, &e.MachineID, &e.OperatorID, &e.StartAt, &e.EndAt,
			&e.MetersRun, &e.TroubleshootMinutes, &e.Remarks, &e.CreatedAt}
		if err := rows.Scan(append(targets, p.targets()...)...); err != nil {
			return nil, err
		}
		out = append(out, Transaction{Envelope: e, Payload: p})
	}
	return out, rows.Err()
}
