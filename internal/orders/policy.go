package orders

import "fmt"

// JobOrderPolicy controls how many job orders a sales order may own.
type JobOrderPolicy string

const (
	PolicyMultiple         JobOrderPolicy = "multiple"
	PolicyOnePerSalesOrder JobOrderPolicy = "one_per_sales_order"
)

// ParseJobOrderPolicy validates a configured policy name. Empty selects PolicyMultiple.
func ParseJobOrderPolicy(raw string) (JobOrderPolicy, error) {
	switch JobOrderPolicy(raw) {
	case "", PolicyMultiple:
		return PolicyMultiple, nil
	case PolicyOnePerSalesOrder:
		return PolicyOnePerSalesOrder, nil
	}
	return "", fmt.Errorf("orders: unknown job order policy %q", raw)
}
