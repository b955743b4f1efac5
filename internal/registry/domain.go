// Package registry exposes the reference data every production record points at:
// areas, customers, items, machines and operators.
package registry

import (
	"time"

	"github.com/shopspring/decimal"
)

// AreaStatus enumerates area states.
type AreaStatus string

const (
	AreaActive      AreaStatus = "active"
	AreaInactive    AreaStatus = "inactive"
	AreaMaintenance AreaStatus = "maintenance"
)

// Valid reports whether s is a known area status.
func (s AreaStatus) Valid() bool {
	switch s {
	case AreaActive, AreaInactive, AreaMaintenance:
		return true
	}
	return false
}

// CustomerStatus enumerates customer states.
type CustomerStatus string

const (
	CustomerActive          CustomerStatus = "active"
	CustomerInactive        CustomerStatus = "inactive"
	CustomerSuspended       CustomerStatus = "suspended"
	CustomerPendingApproval CustomerStatus = "pending_approval"
)

// Valid reports whether s is a known customer status.
func (s CustomerStatus) Valid() bool {
	switch s {
	case CustomerActive, CustomerInactive, CustomerSuspended, CustomerPendingApproval:
		return true
	}
	return false
}

// MachineStatus enumerates machine states.
type MachineStatus string

const (
	MachineActive      MachineStatus = "active"
	MachineDisabled    MachineStatus = "disabled"
	MachineMaintenance MachineStatus = "maintenance"
)

// Area is a plant zone grouping machines and customers.
type Area struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      AreaStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Customer is a buyer of converted goods.
type Customer struct {
	ID           int64          `json:"id"`
	Code         string         `json:"code"`
	Name         string         `json:"name"`
	CustomerType string         `json:"customer_type"`
	AreaID       *int64         `json:"area_id,omitempty"`
	ContactName  string         `json:"contact_name,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	Email        string         `json:"email,omitempty"`
	Status       CustomerStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Item is a product or material master record.
type Item struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Category  string          `json:"category,omitempty"`
	GSM       decimal.Decimal `json:"gsm"`
	Width     decimal.Decimal `json:"width"`
	Thickness decimal.Decimal `json:"thickness"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	IsActive  bool            `json:"is_active"`
}

// Machine is a production line station.
type Machine struct {
	ID               int64           `json:"id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	AreaID           *int64          `json:"area_id,omitempty"`
	SpeedCapacity    decimal.Decimal `json:"speed_capacity"`
	MaxWidthCapacity decimal.Decimal `json:"max_width_capacity"`
	Status           MachineStatus   `json:"status"`
}

// Disabled reports whether the machine refuses new transactions.
func (m Machine) Disabled() bool {
	return m.Status == MachineDisabled
}

// Operator is a person running machines.
type Operator struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
	Shift    string `json:"shift,omitempty"`
	IsActive bool   `json:"is_active"`
}

// Kind names a reference data collection.
type Kind string

const (
	KindAreas     Kind = "areas"
	KindCustomers Kind = "customers"
	KindItems     Kind = "items"
	KindMachines  Kind = "machines"
	KindOperators Kind = "operators"
)

// LookupResult is a compact row returned by typeahead lookups.
type LookupResult struct {
	ID    int64  `json:"id"`
	Code  string `json:"code,omitempty"`
	Label string `json:"label"`
}

// ListFilter narrows reference listings.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}
