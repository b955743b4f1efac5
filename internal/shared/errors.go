package shared

import (
	"errors"
	"fmt"
)

// Rejection reasons shared by the order lifecycle, ledger, report and progress packages.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate indicates a unique key already exists.
	ErrDuplicate = errors.New("duplicate entry")

	// ErrInvalidInput marks malformed requests caught before any business rule runs.
	ErrInvalidInput = errors.New("invalid input")

	ErrInvalidDateRange       = errors.New("invalid date range")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrOrderNotReady          = errors.New("sales order not ready for production")
	ErrDependencyConflict     = errors.New("dependency conflict")
	ErrInactiveReference      = errors.New("inactive reference")
	ErrMachineDisabled        = errors.New("machine disabled")
	ErrOperatorInactive       = errors.New("operator inactive")
	ErrMassBalanceViolation   = errors.New("mass balance violation")
	ErrReferentialIntegrity   = errors.New("referential integrity violation")
	ErrInvalidQueryParameters = errors.New("invalid query parameters")
)

// Rejection is a structured refusal: a sentinel reason plus a human readable detail.
type Rejection struct {
	Reason error
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return r.Reason.Error()
	}
	return r.Reason.Error() + ": " + r.Detail
}

func (r *Rejection) Unwrap() error { return r.Reason }

// Reject builds a Rejection for reason with a formatted detail.
func Reject(reason error, format string, args ...any) error {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// RejectionCode returns a stable snake_case code for the rejection reason, or "" when
// err is not one of the known rejections.
func RejectionCode(err error) string {
	for _, c := range rejectionCodes {
		if errors.Is(err, c.reason) {
			return c.code
		}
	}
	return ""
}

var rejectionCodes = []struct {
	reason error
	code   string
}{
	{ErrInvalidDateRange, "invalid_date_range"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrOrderNotReady, "order_not_ready"},
	{ErrDependencyConflict, "dependency_conflict"},
	{ErrInactiveReference, "inactive_reference"},
	{ErrMachineDisabled, "machine_disabled"},
	{ErrOperatorInactive, "operator_inactive"},
	{ErrMassBalanceViolation, "mass_balance_violation"},
	{ErrReferentialIntegrity, "referential_integrity"},
	{ErrInvalidQueryParameters, "invalid_query_parameters"},
	{ErrInvalidInput, "invalid_input"},
	{ErrDuplicate, "duplicate"},
	{ErrNotFound, "not_found"},
}
