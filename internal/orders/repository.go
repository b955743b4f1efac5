package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/convertline/convertline/internal/platform/db"
	"github.com/convertline/convertline/internal/registry"
	"github.com/convertline/convertline/internal/shared"
)

// Repository persists sales orders, job orders and the status of the reference rows
// they depend on. Lock* methods take a row lock and must run inside WithTx.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Registry() registry.Repository
	RecordAudit(ctx context.Context, entry shared.AuditLog) error

	GetSalesOrder(ctx context.Context, id int64) (*SalesOrder, error)
	LockSalesOrder(ctx context.Context, id int64) (*SalesOrder, error)
	ListSalesOrders(ctx context.Context, req ListSalesOrdersRequest) ([]SalesOrder, int, error)
	GenerateNumber(ctx context.Context, prefix string, date time.Time) (string, error)
	InsertSalesOrder(ctx context.Context, order SalesOrder) (int64, error)
	InsertSalesOrderLine(ctx context.Context, line SalesOrderLine) (int64, error)
	UpdateSalesOrderStatus(ctx context.Context, id int64, status SalesOrderStatus) error

	GetJobOrder(ctx context.Context, id int64) (*JobOrder, error)
	LockJobOrder(ctx context.Context, id int64) (*JobOrder, error)
	ListJobOrders(ctx context.Context, salesOrderID int64) ([]JobOrder, error)
	CountJobOrders(ctx context.Context, salesOrderID int64) (int, error)
	InsertJobOrder(ctx context.Context, job JobOrder) (int64, error)
	InsertJobOrderItem(ctx context.Context, item JobOrderItem) (int64, error)
	CountTransactions(ctx context.Context, jobOrderID int64) (int, error)
	DeleteJobOrder(ctx context.Context, id int64) error
	LookupJobOrders(ctx context.Context, q string, limit int) ([]JobOrderLookup, error)

	LockCustomer(ctx context.Context, id int64) (registry.Customer, error)
	CountOpenSalesOrders(ctx context.Context, customerID int64) (int, error)
	UpdateCustomerStatus(ctx context.Context, id int64, status registry.CustomerStatus) error

	LockArea(ctx context.Context, id int64) (registry.Area, error)
	CountActiveMachines(ctx context.Context, areaID int64) (int, error)
	CountActiveCustomers(ctx context.Context, areaID int64) (int, error)
	UpdateAreaStatus(ctx context.Context, id int64, status registry.AreaStatus) error
}

type repository struct {
	db    db.DBTX
	pool  *pgxpool.Pool
	audit *shared.AuditLogger
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool, audit: shared.NewAuditLogger()}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool, audit: r.audit})
	})
}

func (r *repository) Registry() registry.Repository {
	return registry.NewRepository(r.db)
}

func (r *repository) RecordAudit(ctx context.Context, entry shared.AuditLog) error {
	return r.audit.Record(ctx, r.db, entry)
}

const salesOrderColumns = `id, order_number, customer_id, status, order_date, delivery_date,
station, category, type, customer_po_ref, po_date, created_at, updated_at`

func scanSalesOrder(row pgx.Row) (*SalesOrder, error) {
	var o SalesOrder
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Status, &o.OrderDate, &o.DeliveryDate,
		&o.Station, &o.Category, &o.Type, &o.CustomerPORef, &o.PODate, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, db.MapError(err)
	}
	return &o, nil
}

func (r *repository) GetSalesOrder(ctx context.Context, id int64) (*SalesOrder, error) {
	o, err := scanSalesOrder(r.db.QueryRow(ctx, `SELECT `+salesOrderColumns+` FROM sales_orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, sales_order_id, item_id, qty, rate FROM sales_order_lines WHERE sales_order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l SalesOrderLine
		if err := rows.Scan(&l.ID, &l.SalesOrderID, &l.ItemID, &l.Qty, &l.Rate); err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, l)
	}
	return o, rows.Err()
}

func (r *repository) LockSalesOrder(ctx context.Context, id int64) (*SalesOrder, error) {
	return scanSalesOrder(r.db.QueryRow(ctx, `SELECT `+salesOrderColumns+` FROM sales_orders WHERE id = $1 FOR UPDATE`, id))
}

func (r *repository) ListSalesOrders(ctx context.Context, req ListSalesOrdersRequest) ([]SalesOrder, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("order_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("order_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM sales_orders "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM sales_orders %s ORDER BY order_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		salesOrderColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]SalesOrder, 0)
	for rows.Next() {
		o, err := scanSalesOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *o)
	}
	return out, total, rows.Err()
}

// GenerateNumber returns PREFIX-YYYYMM-NNNN using a per-prefix, per-month counter row.
func (r *repository) GenerateNumber(ctx context.Context, prefix string, date time.Time) (string, error) {
	period := date.Format("200601")
	var seq int
	err := r.db.QueryRow(ctx, `INSERT INTO document_sequences (prefix, period, last_value) VALUES ($1, $2, 1)
ON CONFLICT (prefix, period) DO UPDATE SET last_value = document_sequences.last_value + 1
RETURNING last_value`, prefix, period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, period, seq), nil
}

func (r *repository) InsertSalesOrder(ctx context.Context, o SalesOrder) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO sales_orders (order_number, customer_id, status, order_date, delivery_date,
station, category, type, customer_po_ref, po_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW()) RETURNING id`,
		o.OrderNumber, o.CustomerID, o.Status, o.OrderDate, o.DeliveryDate,
		o.Station, o.Category, o.Type, o.CustomerPORef, o.PODate).Scan(&id)
	return id, db.MapError(err)
}

func (r *repository) InsertSalesOrderLine(ctx context.Context, l SalesOrderLine) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO sales_order_lines (sales_order_id, item_id, qty, rate) VALUES ($1, $2, $3, $4) RETURNING id`,
		l.SalesOrderID, l.ItemID, l.Qty, l.Rate).Scan(&id)
	return id, db.MapError(err)
}

func (r *repository) UpdateSalesOrderStatus(ctx context.Context, id int64, status SalesOrderStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE sales_orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const jobOrderColumns = `id, job_number, sales_order_id, order_date, due_date, priority, status,
target_quantity, remarks, created_at, updated_at`

func scanJobOrder(row pgx.Row) (*JobOrder, error) {
	var j JobOrder
	if err := row.Scan(&j.ID, &j.JobNumber, &j.SalesOrderID, &j.OrderDate, &j.DueDate, &j.Priority, &j.Status,
		&j.TargetQuantity, &j.Remarks, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, db.MapError(err)
	}
	return &j, nil
}

func (r *repository) GetJobOrder(ctx context.Context, id int64) (*JobOrder, error) {
	j, err := scanJobOrder(r.db.QueryRow(ctx, `SELECT `+jobOrderColumns+` FROM job_orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, job_order_id, item_id, qty, notes FROM job_order_items WHERE job_order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it JobOrderItem
		if err := rows.Scan(&it.ID, &it.JobOrderID, &it.ItemID, &it.Qty, &it.Notes); err != nil {
			return nil, err
		}
		j.Items = append(j.Items, it)
	}
	return j, rows.Err()
}

func (r *repository) LockJobOrder(ctx context.Context, id int64) (*JobOrder, error) {
	return scanJobOrder(r.db.QueryRow(ctx, `SELECT `+jobOrderColumns+` FROM job_orders WHERE id = $1 FOR UPDATE`, id))
}

func (r *repository) ListJobOrders(ctx context.Context, salesOrderID int64) ([]JobOrder, error) {
	rows, err := r.db.Query(ctx, `SELECT `+jobOrderColumns+` FROM job_orders WHERE sales_order_id = $1 ORDER BY id`, salesOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]JobOrder, 0)
	for rows.Next() {
		j, err := scanJobOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (r *repository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *repository) CountJobOrders(ctx context.Context, salesOrderID int64) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM job_orders WHERE sales_order_id = $1`, salesOrderID)
}

func (r *repository) InsertJobOrder(ctx context.Context, j JobOrder) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO job_orders (job_number, sales_order_id, order_date, due_date, priority, status,
target_quantity, remarks, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING id`,
		j.JobNumber, j.SalesOrderID, j.OrderDate, j.DueDate, j.Priority, j.Status, j.TargetQuantity, j.Remarks).Scan(&id)
	return id, db.MapError(err)
}

func (r *repository) InsertJobOrderItem(ctx context.Context, it JobOrderItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO job_order_items (job_order_id, item_id, qty, notes) VALUES ($1, $2, $3, $4) RETURNING id`,
		it.JobOrderID, it.ItemID, it.Qty, it.Notes).Scan(&id)
	return id, db.MapError(err)
}

// CountTransactions counts ledger rows of every process kind that reference the job.
func (r *repository) CountTransactions(ctx context.Context, jobOrderID int64) (int, error) {
	return r.count(ctx, `SELECT
 (SELECT COUNT(*) FROM trans_printing WHERE job_order_id = $1)
+(SELECT COUNT(*) FROM trans_rewinding WHERE job_order_id = $1)
+(SELECT COUNT(*) FROM trans_lamination WHERE job_order_id = $1)
+(SELECT COUNT(*) FROM trans_slitting WHERE job_order_id = $1)
+(SELECT COUNT(*) FROM trans_core WHERE job_order_id = $1)`, jobOrderID)
}

func (r *repository) DeleteJobOrder(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM job_orders WHERE id = $1`, id)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) LookupJobOrders(ctx context.Context, q string, limit int) ([]JobOrderLookup, error) {
	rows, err := r.db.Query(ctx, `SELECT j.id, j.job_number, so.order_number, j.status
FROM job_orders j JOIN sales_orders so ON so.id = j.sales_order_id
WHERE j.status IN ('Pending', 'In Progress')
  AND (j.job_number ILIKE $1 OR so.order_number ILIKE $1)
ORDER BY j.id DESC LIMIT $2`, db.ContainsPattern(q), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]JobOrderLookup, 0)
	for rows.Next() {
		var l JobOrderLookup
		if err := rows.Scan(&l.ID, &l.JobNumber, &l.OrderNumber, &l.Status); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) LockCustomer(ctx context.Context, id int64) (registry.Customer, error) {
	var c registry.Customer
	err := r.db.QueryRow(ctx, `SELECT id, code, name, customer_type, area_id, status FROM customers WHERE id = $1 FOR UPDATE`, id).
		Scan(&c.ID, &c.Code, &c.Name, &c.CustomerType, &c.AreaID, &c.Status)
	if err != nil {
		return c, db.MapError(err)
	}
	return c, nil
}

func (r *repository) CountOpenSalesOrders(ctx context.Context, customerID int64) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM sales_orders WHERE customer_id = $1 AND status NOT IN ('Closed', 'Cancelled')`, customerID)
}

func (r *repository) UpdateCustomerStatus(ctx context.Context, id int64, status registry.CustomerStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE customers SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return db.MapError(err)
}

func (r *repository) LockArea(ctx context.Context, id int64) (registry.Area, error) {
	var a registry.Area
	err := r.db.QueryRow(ctx, `SELECT id, code, name, status FROM areas WHERE id = $1 FOR UPDATE`, id).
		Scan(&a.ID, &a.Code, &a.Name, &a.Status)
	if err != nil {
		return a, db.MapError(err)
	}
	return a, nil
}

func (r *repository) CountActiveMachines(ctx context.Context, areaID int64) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM machines WHERE area_id = $1 AND status = 'active'`, areaID)
}

func (r *repository) CountActiveCustomers(ctx context.Context, areaID int64) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM customers WHERE area_id = $1 AND status = 'active'`, areaID)
}

func (r *repository) UpdateAreaStatus(ctx context.Context, id int64, status registry.AreaStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE areas SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return db.MapError(err)
}
