package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/convertline/convertline/internal/shared"
)

// Recorder counts admission outcomes per process.
type Recorder interface {
	ObserveAdmission(process, outcome string)
}

// Invalidator is told after every committed admission so cached aggregates can expire.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service admits transactions.
type Service struct {
	repo        Repository
	logger      *slog.Logger
	recorder    Recorder
	invalidator Invalidator
}

// NewService constructs the ledger service. recorder and invalidator may be nil.
func NewService(repo Repository, logger *slog.Logger, recorder Recorder, invalidator Invalidator) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, recorder: recorder, invalidator: invalidator}
}

// Admit validates tx and appends it to the ledger. Reference checks and the insert run
// in one transaction. A non-empty idempotencyKey that was already used yields
// shared.ErrDuplicate without writing.
func (s *Service) Admit(ctx context.Context, tx Transaction, idempotencyKey string) (Transaction, error) {
	kind := tx.Kind()
	admitted, err := s.admit(ctx, tx, idempotencyKey)
	s.observe(kind, err)
	if err != nil {
		return Transaction{}, err
	}

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.Warn("invalidate report cache", slog.Any("error", err))
		}
	}
	s.logger.Info("transaction admitted",
		slog.String("kind", string(kind)),
		slog.Int64("id", admitted.ID),
		slog.Int64("job_order_id", admitted.JobOrderID))
	return admitted, nil
}

func (s *Service) admit(ctx context.Context, tx Transaction, idempotencyKey string) (Transaction, error) {
	if err := CheckShape(tx); err != nil {
		return Transaction{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		machine, err := repo.LoadMachine(ctx, tx.MachineID)
		if err != nil {
			return referenceError("machine", tx.MachineID, err)
		}
		operator, err := repo.LoadOperator(ctx, tx.OperatorID)
		if err != nil {
			return referenceError("operator", tx.OperatorID, err)
		}
		if err := Validate(tx, machine, operator); err != nil {
			return err
		}
		if idempotencyKey != "" {
			if err := repo.ClaimIdempotencyKey(ctx, idempotencyKey); err != nil {
				return fmt.Errorf("claim idempotency key: %w", err)
			}
		}
		id, err := repo.Insert(ctx, tx)
		if err != nil {
			return fmt.Errorf("insert %s transaction: %w", tx.Kind(), err)
		}
		tx.ID = id
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

func referenceError(what string, id int64, err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.Reject(shared.ErrReferentialIntegrity, "%s %d does not exist", what, id)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func (s *Service) observe(kind Kind, err error) {
	if s.recorder == nil {
		return
	}
	outcome := "accepted"
	if err != nil {
		outcome = shared.RejectionCode(err)
		if outcome == "" {
			outcome = "error"
		}
	}
	process := string(kind)
	if process == "" {
		process = "unknown"
	}
	s.recorder.ObserveAdmission(process, outcome)
}

// ListRecent returns the newest transactions of kind.
func (s *Service) ListRecent(ctx context.Context, kind Kind, limit int) ([]Transaction, error) {
	return s.repo.ListRecent(ctx, kind, limit)
}
