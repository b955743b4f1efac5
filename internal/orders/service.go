package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/convertline/convertline/internal/registry"
	"github.com/convertline/convertline/internal/shared"
)

// LookupLimit caps job order typeahead results.
const LookupLimit = 15

// Service owns the sales order and job order lifecycle.
type Service struct {
	repo   Repository
	policy JobOrderPolicy
}

// NewService constructs the order lifecycle service.
func NewService(repo Repository, policy JobOrderPolicy) *Service {
	if policy == "" {
		policy = PolicyMultiple
	}
	return &Service{repo: repo, policy: policy}
}

// calendarDay drops the clock and zone of t, keeping the date the client wrote. Order
// dates are stored as DATE columns and compared by day.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validateLines(lines []CreateSalesOrderLineReq) error {
	for i, l := range lines {
		if !l.Qty.IsPositive() {
			return shared.Reject(shared.ErrInvalidInput, "line %d: quantity must be positive", i+1)
		}
		if l.Rate.IsNegative() {
			return shared.Reject(shared.ErrInvalidInput, "line %d: rate cannot be negative", i+1)
		}
	}
	return nil
}

// CreateSalesOrder stores a new Draft sales order. The customer and its area are locked
// and checked for active status in the same transaction as the insert.
func (s *Service) CreateSalesOrder(ctx context.Context, req CreateSalesOrderRequest) (*SalesOrder, error) {
	req.OrderDate = calendarDay(req.OrderDate)
	req.DeliveryDate = calendarDay(req.DeliveryDate)
	if req.PODate != nil {
		d := calendarDay(*req.PODate)
		req.PODate = &d
	}
	if req.DeliveryDate.Before(req.OrderDate) {
		return nil, shared.Reject(shared.ErrInvalidDateRange, "delivery date %s cannot be before order date %s",
			req.DeliveryDate.Format(time.DateOnly), req.OrderDate.Format(time.DateOnly))
	}
	if err := validateLines(req.Lines); err != nil {
		return nil, err
	}

	var orderID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		customer, err := repo.LockCustomer(ctx, req.CustomerID)
		if err != nil {
			return fmt.Errorf("verify customer: %w", err)
		}
		if customer.Status != registry.CustomerActive {
			return shared.Reject(shared.ErrInactiveReference, "customer %s is %s", customer.Code, customer.Status)
		}
		if customer.AreaID != nil {
			area, err := repo.Registry().GetArea(ctx, *customer.AreaID)
			if err != nil {
				return fmt.Errorf("verify area: %w", err)
			}
			if area.Status != registry.AreaActive {
				return shared.Reject(shared.ErrInactiveReference, "area %s is %s", area.Code, area.Status)
			}
		}

		number := strings.TrimSpace(req.OrderNumber)
		if number == "" {
			number, err = repo.GenerateNumber(ctx, "SO", req.OrderDate)
			if err != nil {
				return fmt.Errorf("generate order number: %w", err)
			}
		}

		id, err := repo.InsertSalesOrder(ctx, SalesOrder{
			OrderNumber:   number,
			CustomerID:    req.CustomerID,
			Status:        SalesOrderStatusDraft,
			OrderDate:     req.OrderDate,
			DeliveryDate:  req.DeliveryDate,
			Station:       req.Station,
			Category:      req.Category,
			Type:          req.Type,
			CustomerPORef: req.CustomerPORef,
			PODate:        req.PODate,
		})
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		orderID = id

		for i, l := range req.Lines {
			if _, err := repo.InsertSalesOrderLine(ctx, SalesOrderLine{
				SalesOrderID: id,
				ItemID:       l.ItemID,
				Qty:          l.Qty,
				Rate:         l.Rate,
			}); err != nil {
				return fmt.Errorf("insert order line %d: %w", i+1, err)
			}
		}
		return repo.RecordAudit(ctx, shared.AuditLog{
			Action:   "create",
			Entity:   "sales_order",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"order_number": number},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetSalesOrder(ctx, orderID)
}

// Approve moves a Draft sales order to Approved.
func (s *Service) Approve(ctx context.Context, id int64) (*SalesOrder, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		order, err := repo.LockSalesOrder(ctx, id)
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		if order.Status != SalesOrderStatusDraft {
			return shared.Reject(shared.ErrInvalidTransition, "can only approve Draft orders, %s is %s", order.OrderNumber, order.Status)
		}
		if err := repo.UpdateSalesOrderStatus(ctx, id, SalesOrderStatusApproved); err != nil {
			return fmt.Errorf("approve order: %w", err)
		}
		return repo.RecordAudit(ctx, shared.AuditLog{
			Action:   "approve",
			Entity:   "sales_order",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"from": order.Status, "to": SalesOrderStatusApproved},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetSalesOrder(ctx, id)
}

// CreateJobOrder opens a job order under a non-Draft sales order.
func (s *Service) CreateJobOrder(ctx context.Context, salesOrderID int64, req CreateJobOrderRequest) (*JobOrder, error) {
	req.DueDate = calendarDay(req.DueDate)
	if req.OrderDate != nil {
		d := calendarDay(*req.OrderDate)
		req.OrderDate = &d
	}
	target := decimal.Zero
	for i, it := range req.Items {
		if !it.Qty.IsPositive() {
			return nil, shared.Reject(shared.ErrInvalidInput, "item %d: quantity must be positive", i+1)
		}
		target = target.Add(it.Qty)
	}
	if req.TargetQuantity != nil {
		if req.TargetQuantity.IsNegative() {
			return nil, shared.Reject(shared.ErrInvalidInput, "target quantity cannot be negative")
		}
		target = *req.TargetQuantity
	}
	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	var jobID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		order, err := repo.LockSalesOrder(ctx, salesOrderID)
		if err != nil {
			return fmt.Errorf("get sales order: %w", err)
		}
		if order.Status == SalesOrderStatusDraft {
			return shared.Reject(shared.ErrOrderNotReady, "cannot create job order for Draft sales order %s", order.OrderNumber)
		}

		orderDate := calendarDay(order.OrderDate)
		if req.OrderDate != nil {
			orderDate = *req.OrderDate
		}
		if req.DueDate.Before(orderDate) {
			return shared.Reject(shared.ErrInvalidDateRange, "due date %s cannot be before order date %s",
				req.DueDate.Format(time.DateOnly), orderDate.Format(time.DateOnly))
		}

		if s.policy == PolicyOnePerSalesOrder {
			n, err := repo.CountJobOrders(ctx, salesOrderID)
			if err != nil {
				return fmt.Errorf("count job orders: %w", err)
			}
			if n > 0 {
				return shared.Reject(shared.ErrDependencyConflict, "sales order %s already has a job order", order.OrderNumber)
			}
		}

		number, err := repo.GenerateNumber(ctx, "JO", orderDate)
		if err != nil {
			return fmt.Errorf("generate job number: %w", err)
		}
		id, err := repo.InsertJobOrder(ctx, JobOrder{
			JobNumber:      number,
			SalesOrderID:   salesOrderID,
			OrderDate:      orderDate,
			DueDate:        req.DueDate,
			Priority:       priority,
			Status:         JobOrderStatusPending,
			TargetQuantity: target,
			Remarks:        req.Remarks,
		})
		if err != nil {
			return fmt.Errorf("create job order: %w", err)
		}
		jobID = id
		for i, it := range req.Items {
			if _, err := repo.InsertJobOrderItem(ctx, JobOrderItem{JobOrderID: id, ItemID: it.ItemID, Qty: it.Qty, Notes: it.Notes}); err != nil {
				return fmt.Errorf("insert job item %d: %w", i+1, err)
			}
		}
		return repo.RecordAudit(ctx, shared.AuditLog{
			Action:   "create",
			Entity:   "job_order",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"job_number": number, "sales_order": order.OrderNumber},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetJobOrder(ctx, jobID)
}

// DeleteJobOrder removes a job order that has no production transactions.
func (s *Service) DeleteJobOrder(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		job, err := repo.LockJobOrder(ctx, id)
		if err != nil {
			return fmt.Errorf("get job order: %w", err)
		}
		n, err := repo.CountTransactions(ctx, id)
		if err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}
		if n > 0 {
			return shared.Reject(shared.ErrDependencyConflict, "job order %s has %d production transactions", job.JobNumber, n)
		}
		if err := repo.DeleteJobOrder(ctx, id); err != nil {
			return fmt.Errorf("delete job order: %w", err)
		}
		return repo.RecordAudit(ctx, shared.AuditLog{
			Action:   "delete",
			Entity:   "job_order",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"job_number": job.JobNumber},
		})
	})
}

// SetCustomerStatus changes a customer's status. Leaving active is refused while the
// customer has open sales orders.
func (s *Service) SetCustomerStatus(ctx context.Context, id int64, status registry.CustomerStatus) error {
	if !status.Valid() {
		return shared.Reject(shared.ErrInvalidInput, "unknown customer status %q", status)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		customer, err := repo.LockCustomer(ctx, id)
		if err != nil {
			return fmt.Errorf("get customer: %w", err)
		}
		if status != registry.CustomerActive {
			n, err := repo.CountOpenSalesOrders(ctx, id)
			if err != nil {
				return fmt.Errorf("count open orders: %w", err)
			}
			if n > 0 {
				return shared.Reject(shared.ErrDependencyConflict, "customer %s has %d open sales orders", customer.Code, n)
			}
		}
		if err := repo.UpdateCustomerStatus(ctx, id, status); err != nil {
			return fmt.Errorf("update customer status: %w", err)
		}
		return repo.RecordAudit(ctx, shared.AuditLog{
			Action:   "set_status",
			Entity:   "customer",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"from": customer.Status, "to": status},
		})
	})
}

// SetAreaStatus changes an area's status. Deactivation is refused while active machines
// or active customers remain in the area.
func (s *Service) SetAreaStatus(ctx context.Context, id int64, status registry.AreaStatus) error {
	if !status.Valid() {
		return shared.Reject(shared.ErrInvalidInput, "unknown area status %q", status)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		area, err := repo.LockArea(ctx, id)
		if err != nil {
			return fmt.Errorf("get area: %w", err)
		}
		if status == registry.AreaInactive {
			machines, err := repo.CountActiveMachines(ctx, id)
			if err != nil {
				return fmt.Errorf("count machines: %w", err)
			}
			customers, err := repo.CountActiveCustomers(ctx, id)
			if err != nil {
				return fmt.Errorf("count customers: %w", err)
			}
			if machines > 0 || customers > 0 {
				return shared.Reject(shared.ErrDependencyConflict, "area %s has %d active machines and %d active customers", area.Code, machines, customers)
			}
		}
		if err := repo.UpdateAreaStatus(ctx, id, status); err != nil {
			return fmt.Errorf("update area status: %w", err)
		}
		return repo.RecordAudit(ctx, shared.AuditLog{
			Action:   "set_status",
			Entity:   "area",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"from": area.Status, "to": status},
		})
	})
}

func (s *Service) GetSalesOrder(ctx context.Context, id int64) (*SalesOrder, error) {
	return s.repo.GetSalesOrder(ctx, id)
}

func (s *Service) ListSalesOrders(ctx context.Context, req ListSalesOrdersRequest) ([]SalesOrder, int, error) {
	return s.repo.ListSalesOrders(ctx, req)
}

func (s *Service) GetJobOrder(ctx context.Context, id int64) (*JobOrder, error) {
	return s.repo.GetJobOrder(ctx, id)
}

func (s *Service) ListJobOrders(ctx context.Context, salesOrderID int64) ([]JobOrder, error) {
	if _, err := s.repo.GetSalesOrder(ctx, salesOrderID); err != nil {
		return nil, err
	}
	return s.repo.ListJobOrders(ctx, salesOrderID)
}

// LookupJobOrders returns open job orders whose job or order number contains q.
func (s *Service) LookupJobOrders(ctx context.Context, q string) ([]JobOrderLookup, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []JobOrderLookup{}, nil
	}
	return s.repo.LookupJobOrders(ctx, q, LookupLimit)
}
