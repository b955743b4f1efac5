package ledger

import (
	"sort"

	"github.com/convertline/convertline/internal/registry"
	"github.com/convertline/convertline/internal/shared"
)

// CheckShape rejects malformed candidates before any reference data is consulted.
func CheckShape(tx Transaction) error {
	if tx.Payload == nil {
		return shared.Reject(shared.ErrInvalidInput, "transaction details are required")
	}
	if tx.Date.IsZero() {
		return shared.Reject(shared.ErrInvalidInput, "transaction date is required")
	}
	if tx.JobOrderID <= 0 || tx.MachineID <= 0 || tx.OperatorID <= 0 {
		return shared.Reject(shared.ErrInvalidInput, "job order, machine and operator are required")
	}
	if tx.StartAt != nil && tx.EndAt != nil && tx.EndAt.Before(*tx.StartAt) {
		return shared.Reject(shared.ErrInvalidInput, "end time is before start time")
	}
	if tx.MetersRun.IsNegative() {
		return shared.Reject(shared.ErrInvalidInput, "meters_run cannot be negative")
	}
	if tx.TroubleshootMinutes.IsNegative() {
		return shared.Reject(shared.ErrInvalidInput, "troubleshoot_minutes cannot be negative")
	}
	q := tx.Payload.quantities()
	names := make([]string, 0, len(q))
	for name := range q {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if q[name].IsNegative() {
			return shared.Reject(shared.ErrInvalidInput, "%s cannot be negative", name)
		}
	}
	return nil
}

// Validate applies the admission rules in order: machine enabled, operator active,
// then the variant's mass balance. It has no side effects.
func Validate(tx Transaction, machine registry.Machine, operator registry.Operator) error {
	if machine.Disabled() {
		return shared.Reject(shared.ErrMachineDisabled, "machine %s is disabled", machine.Code)
	}
	if !operator.IsActive {
		return shared.Reject(shared.ErrOperatorInactive, "operator %s is inactive", operator.Name)
	}
	return tx.Payload.CheckMassBalance()
}
