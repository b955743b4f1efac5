package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/convertline/convertline/internal/shared"
)

// LookupLimit caps typeahead results.
const LookupLimit = 15

// Service serves reference data reads.
type Service struct {
	repo Repository
}

// NewService constructs the registry service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns one reference record of the given kind.
func (s *Service) Get(ctx context.Context, kind Kind, id int64) (any, error) {
	switch kind {
	case KindAreas:
		return s.repo.GetArea(ctx, id)
	case KindCustomers:
		return s.repo.GetCustomer(ctx, id)
	case KindItems:
		return s.repo.GetItem(ctx, id)
	case KindMachines:
		return s.repo.GetMachine(ctx, id)
	case KindOperators:
		return s.repo.GetOperator(ctx, id)
	}
	return nil, shared.Reject(shared.ErrNotFound, "unknown registry %q", kind)
}

// List returns reference records of the given kind.
func (s *Service) List(ctx context.Context, kind Kind, f ListFilter) (any, error) {
	var (
		out any
		err error
	)
	switch kind {
	case KindAreas:
		out, err = s.repo.ListAreas(ctx, f)
	case KindCustomers:
		out, err = s.repo.ListCustomers(ctx, f)
	case KindItems:
		out, err = s.repo.ListItems(ctx, f)
	case KindMachines:
		out, err = s.repo.ListMachines(ctx, f)
	case KindOperators:
		out, err = s.repo.ListOperators(ctx, f)
	default:
		return nil, shared.Reject(shared.ErrNotFound, "unknown registry %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return out, nil
}

// Lookup returns up to LookupLimit active records matching q. An empty query matches
// nothing.
func (s *Service) Lookup(ctx context.Context, kind Kind, q string) ([]LookupResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []LookupResult{}, nil
	}
	var (
		out []LookupResult
		err error
	)
	switch kind {
	case KindCustomers:
		out, err = s.repo.LookupCustomers(ctx, q, LookupLimit)
	case KindMachines:
		out, err = s.repo.LookupMachines(ctx, q, LookupLimit)
	case KindOperators:
		out, err = s.repo.LookupOperators(ctx, q, LookupLimit)
	default:
		return nil, shared.Reject(shared.ErrNotFound, "no lookup for %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", kind, err)
	}
	if len(out) > LookupLimit {
		out = out[:LookupLimit]
	}
	return out, nil
}
