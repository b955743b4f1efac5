package orders

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/convertline/convertline/internal/registry"
	"github.com/convertline/convertline/internal/registry/registrytest"
	"github.com/convertline/convertline/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

var errLockOutsideTx = errors.New("row lock taken outside a transaction")

// mockRepository is a map-backed Repository. WithTx snapshots state and restores it
// when the callback fails, and Lock* methods refuse to run outside WithTx.
type mockRepository struct {
	reg          *registrytest.Store
	salesOrders  map[int64]SalesOrder
	jobOrders    map[int64]JobOrder
	transactions map[int64]int
	sequences    map[string]int
	audits       []shared.AuditLog
	nextID       int64
	inTx         bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		reg:          registrytest.New(),
		salesOrders:  make(map[int64]SalesOrder),
		jobOrders:    make(map[int64]JobOrder),
		transactions: make(map[int64]int),
		sequences:    make(map[string]int),
		nextID:       100,
	}
}

func (m *mockRepository) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	snapshot := struct {
		so        map[int64]SalesOrder
		jo        map[int64]JobOrder
		customers map[int64]registry.Customer
		areas     map[int64]registry.Area
		audits    int
	}{maps.Clone(m.salesOrders), maps.Clone(m.jobOrders), maps.Clone(m.reg.Customers), maps.Clone(m.reg.Areas), len(m.audits)}

	m.inTx = true
	err := fn(ctx, m)
	m.inTx = false
	if err != nil {
		m.salesOrders, m.jobOrders = snapshot.so, snapshot.jo
		m.reg.Customers, m.reg.Areas = snapshot.customers, snapshot.areas
		m.audits = m.audits[:snapshot.audits]
	}
	return err
}

func (m *mockRepository) Registry() registry.Repository { return m.reg }

func (m *mockRepository) RecordAudit(_ context.Context, entry shared.AuditLog) error {
	m.audits = append(m.audits, entry)
	return nil
}

func (m *mockRepository) GetSalesOrder(_ context.Context, id int64) (*SalesOrder, error) {
	o, ok := m.salesOrders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &o, nil
}

func (m *mockRepository) LockSalesOrder(ctx context.Context, id int64) (*SalesOrder, error) {
	if !m.inTx {
		return nil, errLockOutsideTx
	}
	return m.GetSalesOrder(ctx, id)
}

func (m *mockRepository) ListSalesOrders(_ context.Context, req ListSalesOrdersRequest) ([]SalesOrder, int, error) {
	var out []SalesOrder
	for _, o := range m.salesOrders {
		if req.Status != nil && o.Status != *req.Status {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *mockRepository) GenerateNumber(_ context.Context, prefix string, date time.Time) (string, error) {
	key := prefix + date.Format("200601")
	m.sequences[key]++
	return fmt.Sprintf("%s-%s-%04d", prefix, date.Format("200601"), m.sequences[key]), nil
}

func (m *mockRepository) InsertSalesOrder(_ context.Context, o SalesOrder) (int64, error) {
	for _, existing := range m.salesOrders {
		if existing.OrderNumber == o.OrderNumber {
			return 0, &shared.Rejection{Reason: shared.ErrDuplicate, Detail: "sales_orders_order_number_key"}
		}
	}
	o.ID = m.id()
	m.salesOrders[o.ID] = o
	return o.ID, nil
}

func (m *mockRepository) InsertSalesOrderLine(_ context.Context, l SalesOrderLine) (int64, error) {
	if _, ok := m.reg.Items[l.ItemID]; !ok {
		return 0, &shared.Rejection{Reason: shared.ErrReferentialIntegrity, Detail: "sales_order_lines_item_id_fkey"}
	}
	o := m.salesOrders[l.SalesOrderID]
	l.ID = m.id()
	o.Lines = append(o.Lines, l)
	m.salesOrders[o.ID] = o
	return l.ID, nil
}

func (m *mockRepository) UpdateSalesOrderStatus(_ context.Context, id int64, status SalesOrderStatus) error {
	o, ok := m.salesOrders[id]
	if !ok {
		return shared.ErrNotFound
	}
	o.Status = status
	m.salesOrders[id] = o
	return nil
}

func (m *mockRepository) GetJobOrder(_ context.Context, id int64) (*JobOrder, error) {
	j, ok := m.jobOrders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &j, nil
}

func (m *mockRepository) LockJobOrder(ctx context.Context, id int64) (*JobOrder, error) {
	if !m.inTx {
		return nil, errLockOutsideTx
	}
	return m.GetJobOrder(ctx, id)
}

func (m *mockRepository) ListJobOrders(_ context.Context, salesOrderID int64) ([]JobOrder, error) {
	out := make([]JobOrder, 0)
	for _, j := range m.jobOrders {
		if j.SalesOrderID == salesOrderID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *mockRepository) CountJobOrders(ctx context.Context, salesOrderID int64) (int, error) {
	jobs, _ := m.ListJobOrders(ctx, salesOrderID)
	return len(jobs), nil
}

func (m *mockRepository) InsertJobOrder(_ context.Context, j JobOrder) (int64, error) {
	j.ID = m.id()
	m.jobOrders[j.ID] = j
	return j.ID, nil
}

func (m *mockRepository) InsertJobOrderItem(_ context.Context, it JobOrderItem) (int64, error) {
	j := m.jobOrders[it.JobOrderID]
	it.ID = m.id()
	j.Items = append(j.Items, it)
	m.jobOrders[j.ID] = j
	return it.ID, nil
}

func (m *mockRepository) CountTransactions(_ context.Context, jobOrderID int64) (int, error) {
	return m.transactions[jobOrderID], nil
}

func (m *mockRepository) DeleteJobOrder(_ context.Context, id int64) error {
	if _, ok := m.jobOrders[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.jobOrders, id)
	return nil
}

func (m *mockRepository) LookupJobOrders(_ context.Context, q string, limit int) ([]JobOrderLookup, error) {
	out := make([]JobOrderLookup, 0)
	for _, j := range m.jobOrders {
		if j.Status != JobOrderStatusPending && j.Status != JobOrderStatusInProgress {
			continue
		}
		so := m.salesOrders[j.SalesOrderID]
		if !strings.Contains(strings.ToLower(j.JobNumber), strings.ToLower(q)) &&
			!strings.Contains(strings.ToLower(so.OrderNumber), strings.ToLower(q)) {
			continue
		}
		out = append(out, JobOrderLookup{ID: j.ID, JobNumber: j.JobNumber, OrderNumber: so.OrderNumber, Status: j.Status})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockRepository) LockCustomer(ctx context.Context, id int64) (registry.Customer, error) {
	if !m.inTx {
		return registry.Customer{}, errLockOutsideTx
	}
	return m.reg.GetCustomer(ctx, id)
}

func (m *mockRepository) CountOpenSalesOrders(_ context.Context, customerID int64) (int, error) {
	n := 0
	for _, o := range m.salesOrders {
		if o.CustomerID == customerID && o.Status.Open() {
			n++
		}
	}
	return n, nil
}

func (m *mockRepository) UpdateCustomerStatus(_ context.Context, id int64, status registry.CustomerStatus) error {
	c := m.reg.Customers[id]
	c.Status = status
	m.reg.Customers[id] = c
	return nil
}

func (m *mockRepository) LockArea(ctx context.Context, id int64) (registry.Area, error) {
	if !m.inTx {
		return registry.Area{}, errLockOutsideTx
	}
	return m.reg.GetArea(ctx, id)
}

func (m *mockRepository) CountActiveMachines(_ context.Context, areaID int64) (int, error) {
	n := 0
	for _, mc := range m.reg.Machines {
		if mc.AreaID != nil && *mc.AreaID == areaID && mc.Status == registry.MachineActive {
			n++
		}
	}
	return n, nil
}

func (m *mockRepository) CountActiveCustomers(_ context.Context, areaID int64) (int, error) {
	n := 0
	for _, c := range m.reg.Customers {
		if c.AreaID != nil && *c.AreaID == areaID && c.Status == registry.CustomerActive {
			n++
		}
	}
	return n, nil
}

func (m *mockRepository) UpdateAreaStatus(_ context.Context, id int64, status registry.AreaStatus) error {
	a := m.reg.Areas[id]
	a.Status = status
	m.reg.Areas[id] = a
	return nil
}

var _ Repository = (*mockRepository)(nil)
