package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateSalesOrderRequest struct {
	OrderNumber   string                    `json:"order_number,omitempty" validate:"omitempty,max=50"`
	CustomerID    int64                     `json:"customer_id" validate:"required,gt=0"`
	OrderDate     time.Time                 `json:"order_date" validate:"required"`
	DeliveryDate  time.Time                 `json:"delivery_date" validate:"required"`
	Station       *string                   `json:"station,omitempty" validate:"omitempty,max=100"`
	Category      *string                   `json:"category,omitempty" validate:"omitempty,max=100"`
	Type          *string                   `json:"type,omitempty" validate:"omitempty,max=100"`
	CustomerPORef *string                   `json:"customer_po_ref,omitempty" validate:"omitempty,max=100"`
	PODate        *time.Time                `json:"po_date,omitempty"`
	Lines         []CreateSalesOrderLineReq `json:"lines" validate:"dive"`
}

type CreateSalesOrderLineReq struct {
	ItemID int64           `json:"item_id" validate:"required,gt=0"`
	Qty    decimal.Decimal `json:"qty"`
	Rate   decimal.Decimal `json:"rate"`
}

type CreateJobOrderRequest struct {
	OrderDate      *time.Time              `json:"order_date,omitempty"`
	DueDate        time.Time               `json:"due_date" validate:"required"`
	Priority       JobOrderPriority        `json:"priority,omitempty" validate:"omitempty,oneof=Low Medium High"`
	TargetQuantity *decimal.Decimal        `json:"target_quantity,omitempty"`
	Remarks        *string                 `json:"remarks,omitempty"`
	Items          []CreateJobOrderItemReq `json:"items" validate:"dive"`
}

type CreateJobOrderItemReq struct {
	ItemID int64           `json:"item_id" validate:"required,gt=0"`
	Qty    decimal.Decimal `json:"qty"`
	Notes  *string         `json:"notes,omitempty"`
}

type ListSalesOrdersRequest struct {
	CustomerID *int64            `json:"customer_id,omitempty"`
	Status     *SalesOrderStatus `json:"status,omitempty"`
	DateFrom   *time.Time        `json:"date_from,omitempty"`
	DateTo     *time.Time        `json:"date_to,omitempty"`
	Limit      int               `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int               `json:"offset" validate:"gte=0"`
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
