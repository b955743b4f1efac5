package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/convertline/convertline/internal/platform/db"
)

// Repository reads reference data.
type Repository interface {
	GetArea(ctx context.Context, id int64) (Area, error)
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	GetMachine(ctx context.Context, id int64) (Machine, error)
	GetOperator(ctx context.Context, id int64) (Operator, error)

	ListAreas(ctx context.Context, f ListFilter) ([]Area, error)
	ListCustomers(ctx context.Context, f ListFilter) ([]Customer, error)
	ListItems(ctx context.Context, f ListFilter) ([]Item, error)
	ListMachines(ctx context.Context, f ListFilter) ([]Machine, error)
	ListOperators(ctx context.Context, f ListFilter) ([]Operator, error)

	LookupCustomers(ctx context.Context, q string, limit int) ([]LookupResult, error)
	LookupMachines(ctx context.Context, q string, limit int) ([]LookupResult, error)
	LookupOperators(ctx context.Context, q string, limit int) ([]LookupResult, error)
}

type repository struct {
	db db.DBTX
}

// NewRepository builds a Repository on a pool or an open transaction.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const (
	areaColumns     = `id, code, name, COALESCE(description, ''), status, created_at, updated_at`
	customerColumns = `id, code, name, customer_type, area_id, COALESCE(contact_name, ''), COALESCE(phone, ''), COALESCE(email, ''), status, created_at, updated_at`
	itemColumns     = `id, code, name, COALESCE(category, ''), COALESCE(gsm, 0), COALESCE(width, 0), COALESCE(thickness, 0), COALESCE(unit_price, 0), is_active`
	machineColumns  = `id, code, name, area_id, COALESCE(speed_capacity, 0), COALESCE(max_width_capacity, 0), status`
	operatorColumns = `id, name, COALESCE(role, ''), COALESCE(shift, ''), is_active`
)

func scanArea(row pgx.Row) (Area, error) {
	var a Area
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Description, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.CustomerType, &c.AreaID, &c.ContactName, &c.Phone, &c.Email, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanItem(row pgx.Row) (Item, error) {
	var i Item
	err := row.Scan(&i.ID, &i.Code, &i.Name, &i.Category, &i.GSM, &i.Width, &i.Thickness, &i.UnitPrice, &i.IsActive)
	return i, err
}

func scanMachine(row pgx.Row) (Machine, error) {
	var m Machine
	err := row.Scan(&m.ID, &m.Code, &m.Name, &m.AreaID, &m.SpeedCapacity, &m.MaxWidthCapacity, &m.Status)
	return m, err
}

func scanOperator(row pgx.Row) (Operator, error) {
	var o Operator
	err := row.Scan(&o.ID, &o.Name, &o.Role, &o.Shift, &o.IsActive)
	return o, err
}

func getOne[T any](ctx context.Context, conn db.DBTX, what, query string, id int64, scan func(pgx.Row) (T, error)) (T, error) {
	v, err := scan(conn.QueryRow(ctx, query, id))
	if err != nil {
		return v, fmt.Errorf("get %s %d: %w", what, id, db.MapError(err))
	}
	return v, nil
}

func listAll[T any](ctx context.Context, conn db.DBTX, query string, args []any, scan func(pgx.Row) (T, error)) ([]T, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// buildList appends the optional status filter, ordering and paging to a base select.
func buildList(base, statusExpr, orderBy string, f ListFilter) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(base)
	if f.Status != "" && statusExpr != "" {
		args = append(args, f.Status)
		sb.WriteString(fmt.Sprintf(" WHERE %s = $%d", statusExpr, len(args)))
	}
	sb.WriteString(" ORDER BY " + orderBy)
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}
	return sb.String(), args
}

func (r *repository) GetArea(ctx context.Context, id int64) (Area, error) {
	return getOne(ctx, r.db, "area", `SELECT `+areaColumns+` FROM areas WHERE id = $1`, id, scanArea)
}

func (r *repository) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	return getOne(ctx, r.db, "customer", `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id, scanCustomer)
}

func (r *repository) GetItem(ctx context.Context, id int64) (Item, error) {
	return getOne(ctx, r.db, "item", `SELECT `+itemColumns+` FROM items WHERE id = $1`, id, scanItem)
}

func (r *repository) GetMachine(ctx context.Context, id int64) (Machine, error) {
	return getOne(ctx, r.db, "machine", `SELECT `+machineColumns+` FROM machines WHERE id = $1`, id, scanMachine)
}

func (r *repository) GetOperator(ctx context.Context, id int64) (Operator, error) {
	return getOne(ctx, r.db, "operator", `SELECT `+operatorColumns+` FROM operators WHERE id = $1`, id, scanOperator)
}

func (r *repository) ListAreas(ctx context.Context, f ListFilter) ([]Area, error) {
	q, args := buildList(`SELECT `+areaColumns+` FROM areas`, "status", "code", f)
	return listAll(ctx, r.db, q, args, scanArea)
}

func (r *repository) ListCustomers(ctx context.Context, f ListFilter) ([]Customer, error) {
	q, args := buildList(`SELECT `+customerColumns+` FROM customers`, "status", "name", f)
	return listAll(ctx, r.db, q, args, scanCustomer)
}

func (r *repository) ListItems(ctx context.Context, f ListFilter) ([]Item, error) {
	q, args := buildList(`SELECT `+itemColumns+` FROM items`, "CASE WHEN is_active THEN 'active' ELSE 'inactive' END", "code", f)
	return listAll(ctx, r.db, q, args, scanItem)
}

func (r *repository) ListMachines(ctx context.Context, f ListFilter) ([]Machine, error) {
	q, args := buildList(`SELECT `+machineColumns+` FROM machines`, "status", "code", f)
	return listAll(ctx, r.db, q, args, scanMachine)
}

func (r *repository) ListOperators(ctx context.Context, f ListFilter) ([]Operator, error) {
	q, args := buildList(`SELECT `+operatorColumns+` FROM operators`, "CASE WHEN is_active THEN 'active' ELSE 'inactive' END", "name", f)
	return listAll(ctx, r.db, q, args, scanOperator)
}

func scanLookup(row pgx.Row) (LookupResult, error) {
	var l LookupResult
	err := row.Scan(&l.ID, &l.Code, &l.Label)
	return l, err
}

func (r *repository) LookupCustomers(ctx context.Context, q string, limit int) ([]LookupResult, error) {
	const query = `SELECT id, code, name FROM customers
WHERE status = 'active' AND (name ILIKE $1 OR code ILIKE $1)
ORDER BY name LIMIT $2`
	return listAll(ctx, r.db, query, []any{db.ContainsPattern(q), limit}, scanLookup)
}

func (r *repository) LookupMachines(ctx context.Context, q string, limit int) ([]LookupResult, error) {
	const query = `SELECT id, code, code || ' - ' || name FROM machines
WHERE status = 'active' AND (name ILIKE $1 OR code ILIKE $1)
ORDER BY code LIMIT $2`
	return listAll(ctx, r.db, query, []any{db.ContainsPattern(q), limit}, scanLookup)
}

func (r *repository) LookupOperators(ctx context.Context, q string, limit int) ([]LookupResult, error) {
	const query = `SELECT id, '', name FROM operators
WHERE is_active AND name ILIKE $1
ORDER BY name LIMIT $2`
	return listAll(ctx, r.db, query, []any{db.ContainsPattern(q), limit}, scanLookup)
}
