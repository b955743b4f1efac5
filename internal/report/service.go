package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/convertline/convertline/internal/ledger"
	"github.com/convertline/convertline/internal/shared"
)

// Service answers report queries from the ledger, caching built trees.
type Service struct {
	reader ledger.Reader
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewService builds the report service. cache may be nil.
func NewService(reader ledger.Reader, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{reader: reader, cache: cache, logger: logger}
}

// Production builds the report for f. Identical concurrent queries share one build.
func (s *Service) Production(ctx context.Context, f Filter) (Tree, error) {
	if err := f.Normalize(); err != nil {
		return Tree{}, err
	}
	key, err := s.cache.BuildKey(ctx, append([]string{"report", "production"}, f.keyParts()...)...)
	if err != nil {
		s.logger.Warn("report cache key", slog.Any("error", err))
		return s.build(ctx, f)
	}

	res := s.group.DoChan(key, func() (any, error) {
		var tree Tree
		err := s.cache.FetchJSON(ctx, key, &tree, func(ctx context.Context) (any, error) {
			return s.build(ctx, f)
		})
		return tree, err
	})
	select {
	case <-ctx.Done():
		return Tree{}, ctx.Err()
	case r := <-res:
		if r.Err != nil {
			return Tree{}, r.Err
		}
		return r.Val.(Tree), nil
	}
}

func (s *Service) build(ctx context.Context, f Filter) (Tree, error) {
	rows, err := s.reader.Rows(ctx, f.Query())
	if err != nil {
		return Tree{}, fmt.Errorf("load ledger rows: %w", err)
	}
	return Shape(Build(rows), rows, f.Granularity), nil
}

// Dashboard returns the month-to-date overview as of asOf.
func (s *Service) Dashboard(ctx context.Context, asOf time.Time) (Dashboard, error) {
	_, from := dashboardWindow(asOf)
	load := func(ctx context.Context) (any, error) {
		rows, err := s.reader.Rows(ctx, ledger.Query{Start: from, End: asOf, Codes: ledger.KnownCodes})
		if err != nil {
			return nil, fmt.Errorf("load dashboard rows: %w", err)
		}
		return BuildDashboard(rows, asOf), nil
	}
	key, err := s.cache.BuildKey(ctx, "report", "dashboard", asOf.Format(time.DateOnly))
	if err != nil {
		s.logger.Warn("report cache key", slog.Any("error", err))
		v, err := load(ctx)
		if err != nil {
			return Dashboard{}, err
		}
		return v.(Dashboard), nil
	}
	var dash Dashboard
	err = s.cache.FetchJSON(ctx, key, &dash, load)
	return dash, err
}

// ProcessOutput loads one process's rows between start and end inclusive and totals
// them. It reads the ledger directly; the listing is not cached.
func (s *Service) ProcessOutput(ctx context.Context, code ledger.ProcessCode, start, end time.Time) (ProcessOutput, error) {
	start, end = truncateDay(start), truncateDay(end)
	if end.Before(start) {
		return ProcessOutput{}, shared.Reject(shared.ErrInvalidQueryParameters, "end %s is before start %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	rows, err := s.reader.Rows(ctx, ledger.Query{Start: start, End: end, Codes: []ledger.ProcessCode{code}})
	if err != nil {
		return ProcessOutput{}, fmt.Errorf("load process rows: %w", err)
	}
	out := BuildProcessOutput(code, rows)
	out.Start, out.End = start, end
	return out, nil
}

// Warm builds and caches the summary report for the trailing days up to asOf.
func (s *Service) Warm(ctx context.Context, asOf time.Time, days int) error {
	if days <= 0 {
		days = 30
	}
	day := truncateDay(asOf)
	_, err := s.Production(ctx, Filter{Start: day.AddDate(0, 0, -(days - 1)), End: day})
	if err != nil {
		return err
	}
	_, err = s.Dashboard(ctx, day)
	return err
}
