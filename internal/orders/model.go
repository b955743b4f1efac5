package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesOrderStatus is the lifecycle state of a sales order.
type SalesOrderStatus string

const (
	SalesOrderStatusDraft        SalesOrderStatus = "Draft"
	SalesOrderStatusApproved     SalesOrderStatus = "Approved"
	SalesOrderStatusInProduction SalesOrderStatus = "In Production"
	SalesOrderStatusClosed       SalesOrderStatus = "Closed"
	SalesOrderStatusCancelled    SalesOrderStatus = "Cancelled"
)

// Open reports whether the order still binds its customer.
func (s SalesOrderStatus) Open() bool {
	return s != SalesOrderStatusClosed && s != SalesOrderStatusCancelled
}

// JobOrderStatus is the lifecycle state of a job order.
type JobOrderStatus string

const (
	JobOrderStatusPending    JobOrderStatus = "Pending"
	JobOrderStatusInProgress JobOrderStatus = "In Progress"
	JobOrderStatusCompleted  JobOrderStatus = "Completed"
	JobOrderStatusCancelled  JobOrderStatus = "Cancelled"
)

type JobOrderPriority string

const (
	PriorityLow    JobOrderPriority = "Low"
	PriorityMedium JobOrderPriority = "Medium"
	PriorityHigh   JobOrderPriority = "High"
)

// SalesOrder is a customer order. It owns its job orders.
type SalesOrder struct {
	ID            int64            `json:"id"`
	OrderNumber   string           `json:"order_number"`
	CustomerID    int64            `json:"customer_id"`
	Status        SalesOrderStatus `json:"status"`
	OrderDate     time.Time        `json:"order_date"`
	DeliveryDate  time.Time        `json:"delivery_date"`
	Station       *string          `json:"station,omitempty"`
	Category      *string          `json:"category,omitempty"`
	Type          *string          `json:"type,omitempty"`
	CustomerPORef *string          `json:"customer_po_ref,omitempty"`
	PODate        *time.Time       `json:"po_date,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	Lines         []SalesOrderLine `json:"lines,omitempty"`
}

type SalesOrderLine struct {
	ID           int64           `json:"id"`
	SalesOrderID int64           `json:"sales_order_id"`
	ItemID       int64           `json:"item_id"`
	Qty          decimal.Decimal `json:"qty"`
	Rate         decimal.Decimal `json:"rate"`
}

// Amount is qty x rate.
func (l SalesOrderLine) Amount() decimal.Decimal {
	return l.Qty.Mul(l.Rate)
}

// JobOrder is a unit of production work under a sales order.
type JobOrder struct {
	ID             int64            `json:"id"`
	JobNumber      string           `json:"job_number"`
	SalesOrderID   int64            `json:"sales_order_id"`
	OrderDate      time.Time        `json:"order_date"`
	DueDate        time.Time        `json:"due_date"`
	Priority       JobOrderPriority `json:"priority"`
	Status         JobOrderStatus   `json:"status"`
	TargetQuantity decimal.Decimal  `json:"target_quantity"`
	Remarks        *string          `json:"remarks,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Items          []JobOrderItem   `json:"items,omitempty"`
}

type JobOrderItem struct {
	ID         int64           `json:"id"`
	JobOrderID int64           `json:"job_order_id"`
	ItemID     int64           `json:"item_id"`
	Qty        decimal.Decimal `json:"qty"`
	Notes      *string         `json:"notes,omitempty"`
}

// JobOrderLookup is a typeahead row for job selection on transaction entry.
type JobOrderLookup struct {
	ID          int64          `json:"id"`
	JobNumber   string         `json:"job_number"`
	OrderNumber string         `json:"order_number"`
	Status      JobOrderStatus `json:"status"`
}
