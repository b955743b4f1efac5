// Package registrytest provides an in-memory registry.Repository for tests.
package registrytest

import (
	"context"
	"sort"
	"strings"

	"github.com/convertline/convertline/internal/registry"
	"github.com/convertline/convertline/internal/shared"
)

// Store keeps reference data in maps keyed by id.
type Store struct {
	Areas     map[int64]registry.Area
	Customers map[int64]registry.Customer
	Items     map[int64]registry.Item
	Machines  map[int64]registry.Machine
	Operators map[int64]registry.Operator
}

// New returns an empty store.
func New() *Store {
	return &Store{
		Areas:     make(map[int64]registry.Area),
		Customers: make(map[int64]registry.Customer),
		Items:     make(map[int64]registry.Item),
		Machines:  make(map[int64]registry.Machine),
		Operators: make(map[int64]registry.Operator),
	}
}

func get[T any](m map[int64]T, id int64) (T, error) {
	v, ok := m[id]
	if !ok {
		return v, shared.ErrNotFound
	}
	return v, nil
}

func sorted[T any](m map[int64]T, keep func(T) bool) []T {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if keep(m[id]) {
			out = append(out, m[id])
		}
	}
	return out
}

func statusIs(f registry.ListFilter, status string) bool {
	return f.Status == "" || f.Status == status
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func (s *Store) GetArea(_ context.Context, id int64) (registry.Area, error) {
	return get(s.Areas, id)
}

func (s *Store) GetCustomer(_ context.Context, id int64) (registry.Customer, error) {
	return get(s.Customers, id)
}

func (s *Store) GetItem(_ context.Context, id int64) (registry.Item, error) {
	return get(s.Items, id)
}

func (s *Store) GetMachine(_ context.Context, id int64) (registry.Machine, error) {
	return get(s.Machines, id)
}

func (s *Store) GetOperator(_ context.Context, id int64) (registry.Operator, error) {
	return get(s.Operators, id)
}

func (s *Store) ListAreas(_ context.Context, f registry.ListFilter) ([]registry.Area, error) {
	return sorted(s.Areas, func(a registry.Area) bool { return statusIs(f, string(a.Status)) }), nil
}

func (s *Store) ListCustomers(_ context.Context, f registry.ListFilter) ([]registry.Customer, error) {
	return sorted(s.Customers, func(c registry.Customer) bool { return statusIs(f, string(c.Status)) }), nil
}

func (s *Store) ListItems(_ context.Context, f registry.ListFilter) ([]registry.Item, error) {
	return sorted(s.Items, func(i registry.Item) bool { return statusIs(f, activeLabel(i.IsActive)) }), nil
}

func (s *Store) ListMachines(_ context.Context, f registry.ListFilter) ([]registry.Machine, error) {
	return sorted(s.Machines, func(m registry.Machine) bool { return statusIs(f, string(m.Status)) }), nil
}

func (s *Store) ListOperators(_ context.Context, f registry.ListFilter) ([]registry.Operator, error) {
	return sorted(s.Operators, func(o registry.Operator) bool { return statusIs(f, activeLabel(o.IsActive)) }), nil
}

func matches(q string, fields ...string) bool {
	q = strings.ToLower(q)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func limitTo(out []registry.LookupResult, limit int) []registry.LookupResult {
	if limit > 0 && len(out) > limit {
		return out[:limit]
	}
	return out
}

func (s *Store) LookupCustomers(_ context.Context, q string, limit int) ([]registry.LookupResult, error) {
	var out []registry.LookupResult
	for _, c := range sorted(s.Customers, func(c registry.Customer) bool {
		return c.Status == registry.CustomerActive && matches(q, c.Name, c.Code)
	}) {
		out = append(out, registry.LookupResult{ID: c.ID, Code: c.Code, Label: c.Name})
	}
	return limitTo(out, limit), nil
}

func (s *Store) LookupMachines(_ context.Context, q string, limit int) ([]registry.LookupResult, error) {
	var out []registry.LookupResult
	for _, m := range sorted(s.Machines, func(m registry.Machine) bool {
		return m.Status == registry.MachineActive && matches(q, m.Name, m.Code)
	}) {
		out = append(out, registry.LookupResult{ID: m.ID, Code: m.Code, Label: m.Code + " - " + m.Name})
	}
	return limitTo(out, limit), nil
}

func (s *Store) LookupOperators(_ context.Context, q string, limit int) ([]registry.LookupResult, error) {
	var out []registry.LookupResult
	for _, o := range sorted(s.Operators, func(o registry.Operator) bool {
		return o.IsActive && matches(q, o.Name)
	}) {
		out = append(out, registry.LookupResult{ID: o.ID, Label: o.Name})
	}
	return limitTo(out, limit), nil
}

var _ registry.Repository = (*Store)(nil)
