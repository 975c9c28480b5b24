package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/internal/metrics"
	"github.com/fastygo/boatclosers/repository"
	"github.com/fastygo/boatclosers/usecase"
)

// Change describes a mutation for the journal and event subscribers.
type Change struct {
	Event   string
	Path    string
	Payload any
}

// MutateFunc derives the next snapshot. It must build it with domain.Apply (or
// the other copy-on-write helpers) and never modify its argument.
type MutateFunc func(tx *domain.Transaction) (*domain.Transaction, error)

type Option func(*UseCase)

func WithJournal(j repository.JournalRepository) Option {
	return func(uc *UseCase) { uc.journal = j }
}

func WithPublisher(p usecase.EventPublisher) Option {
	return func(uc *UseCase) { uc.publisher = p }
}

func WithArchiver(a usecase.Archiver) Option {
	return func(uc *UseCase) { uc.archiver = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(uc *UseCase) { uc.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

// WithStrictPersistence surfaces store failures instead of logging them. Use it
// with a shared store where the saved record is authoritative.
func WithStrictPersistence(strict bool) Option {
	return func(uc *UseCase) { uc.strict = strict }
}

// UseCase is the application-state container: it owns the active snapshot and
// is the only path through which the record changes.
type UseCase struct {
	mu      sync.Mutex
	current *domain.Transaction

	store     repository.TransactionRepository
	journal   repository.JournalRepository
	publisher usecase.EventPublisher
	archiver  usecase.Archiver
	metrics   *metrics.Metrics
	logger    *zap.Logger
	strict    bool
	now       func() time.Time
}

func New(store repository.TransactionRepository, logger *zap.Logger, opts ...Option) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &UseCase{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Now returns the session clock.
func (uc *UseCase) Now() time.Time {
	return uc.now().UTC()
}

// Start resumes the saved transaction unless it is missing or closed, in which
// case a fresh one is created for role. A closed record is left in place as
// history until the next save or Reset replaces it.
func (uc *UseCase) Start(ctx context.Context, role domain.Role) (tx *domain.Transaction, resumed bool, err error) {
	if !role.Valid() {
		return nil, false, domain.ErrInvalidRole
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	saved, err := uc.load(ctx)
	if err != nil {
		return nil, false, err
	}
	if saved != nil && !saved.IsClosed() {
		uc.current = saved
		uc.logger.Info("resumed transaction", zap.String("transaction_id", saved.ID), zap.Int("step", saved.CurrentStep))
		return saved, true, nil
	}

	tx, err = uc.begin(ctx, role)
	return tx, false, err
}

// StartFresh always begins a new transaction, replacing whatever was saved.
func (uc *UseCase) StartFresh(ctx context.Context, role domain.Role) (*domain.Transaction, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.begin(ctx, role)
}

func (uc *UseCase) begin(ctx context.Context, role domain.Role) (*domain.Transaction, error) {
	tx, err := domain.New(role, uc.Now())
	if err != nil {
		return nil, err
	}
	if err := uc.persist(ctx, tx); err != nil {
		return nil, err
	}
	uc.current = tx
	uc.record(ctx, domain.NewEvent(tx, domain.EventStarted, "", map[string]string{"role": string(role)}))
	uc.metrics.RecordMutation(domain.EventStarted, nil)
	uc.logger.Info("started transaction", zap.String("transaction_id", tx.ID), zap.String("role", string(role)))
	return tx, nil
}

// Resume loads the saved record, closed or not. It returns ErrNoTransaction when
// nothing usable is stored.
func (uc *UseCase) Resume(ctx context.Context) (*domain.Transaction, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	saved, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, domain.ErrNoTransaction
	}
	uc.current = saved
	return saved, nil
}

// Current returns the active snapshot, loading it from the store on first use.
func (uc *UseCase) Current(ctx context.Context) (*domain.Transaction, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.active(ctx)
}

func (uc *UseCase) active(ctx context.Context) (*domain.Transaction, error) {
	if uc.current != nil {
		return uc.current, nil
	}
	saved, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, domain.ErrNoTransaction
	}
	uc.current = saved
	return saved, nil
}

// Mutate applies fn to the active snapshot, stamps the result and persists it.
// It is the single write entry point; every other operation goes through it.
func (uc *UseCase) Mutate(ctx context.Context, change Change, fn MutateFunc) (*domain.Transaction, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.mutate(ctx, change, fn)
}

func (uc *UseCase) mutate(ctx context.Context, change Change, fn MutateFunc) (*domain.Transaction, error) {
	tx, err := uc.active(ctx)
	if err != nil {
		return nil, err
	}
	if tx.IsClosed() {
		uc.metrics.RecordMutation(change.Event, domain.ErrTransactionClosed)
		return nil, domain.ErrTransactionClosed
	}

	next, err := fn(tx)
	if err == nil {
		next, err = domain.Touch(next, uc.Now())
	}
	if err != nil {
		uc.metrics.RecordMutation(change.Event, err)
		return nil, err
	}

	if err := uc.persist(ctx, next); err != nil {
		uc.metrics.RecordMutation(change.Event, err)
		return nil, err
	}
	uc.current = next

	uc.record(ctx, domain.NewEvent(next, change.Event, change.Path, change.Payload))
	uc.metrics.RecordMutation(change.Event, nil)
	return next, nil
}

// Update sets one field by dot path. Fields owned by the signing, offer, escrow
// and deposit operations are rejected with domain.ErrImmutableField.
func (uc *UseCase) Update(ctx context.Context, path string, value any) (*domain.Transaction, error) {
	return uc.Mutate(ctx, Change{Event: domain.EventFieldUpdated, Path: path, Payload: value}, func(tx *domain.Transaction) (*domain.Transaction, error) {
		return domain.Update(tx, path, value)
	})
}

// GoStep navigates to step n, clamped to the step sequence. Navigation is never
// blocked by incomplete data.
func (uc *UseCase) GoStep(ctx context.Context, n int) (*domain.Transaction, error) {
	step := domain.ClampStep(n)
	return uc.Mutate(ctx, Change{Event: domain.EventStepChanged, Path: "currentStep", Payload: step}, func(tx *domain.Transaction) (*domain.Transaction, error) {
		return domain.WithStep(tx, step)
	})
}

func (uc *UseCase) Readiness(ctx context.Context) (domain.Readiness, error) {
	tx, err := uc.Current(ctx)
	if err != nil {
		return domain.Readiness{}, err
	}
	return domain.EvaluateReadiness(tx), nil
}

func (uc *UseCase) StepStates(ctx context.Context) ([]domain.StepState, error) {
	tx, err := uc.Current(ctx)
	if err != nil {
		return nil, err
	}
	return domain.StepStates(tx), nil
}

// Close finalizes the deal. It is only available from the closing step and only
// once every required document is signed; afterwards the record is read-only.
func (uc *UseCase) Close(ctx context.Context) (*domain.Transaction, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	closed, err := uc.mutate(ctx, Change{Event: domain.EventTransactionDone, Path: "status", Payload: domain.StatusClosed}, func(tx *domain.Transaction) (*domain.Transaction, error) {
		if tx.CurrentStep != domain.StepClosing {
			return nil, domain.ErrNotAtClosingStep
		}
		if r := domain.EvaluateReadiness(tx); !r.CanClose {
			return nil, fmt.Errorf("%w: %s", domain.ErrClosingBlocked, strings.Join(r.MissingRequired, ", "))
		}
		return domain.MarkClosed(tx, uc.Now())
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("transaction closed", zap.String("transaction_id", closed.ID))
	uc.archive(ctx, closed)
	return closed, nil
}

// Reset discards the saved record and its journal.
func (uc *UseCase) Reset(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	id := ""
	if uc.current != nil {
		id = uc.current.ID
	} else if saved, err := uc.load(ctx); err == nil && saved != nil {
		id = saved.ID
	}

	if err := uc.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	if uc.journal != nil && id != "" {
		if err := uc.journal.Clear(ctx, id); err != nil {
			uc.logger.Warn("failed to clear journal", zap.String("transaction_id", id), zap.Error(err))
		}
	}
	uc.current = nil
	uc.logger.Info("transaction reset", zap.String("transaction_id", id))
	return nil
}

// Journal lists the events applied to the active transaction.
func (uc *UseCase) Journal(ctx context.Context) ([]domain.Event, error) {
	tx, err := uc.Current(ctx)
	if err != nil {
		return nil, err
	}
	if uc.journal == nil {
		return []domain.Event{}, nil
	}
	return uc.journal.List(ctx, tx.ID)
}

func (uc *UseCase) load(ctx context.Context) (*domain.Transaction, error) {
	saved, err := uc.store.Load(ctx)
	if err == nil {
		return saved, nil
	}
	uc.metrics.RecordPersistenceFailure("load")
	if uc.strict {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to load transaction", err)
	}
	uc.logger.Warn("failed to load saved transaction, starting without one", zap.Error(err))
	return nil, nil
}

// persist saves tx. Without strict persistence a failed save only costs the
// on-disk copy, so it is logged and the in-memory snapshot moves on.
func (uc *UseCase) persist(ctx context.Context, tx *domain.Transaction) error {
	err := uc.store.Save(ctx, tx)
	if err == nil {
		return nil
	}
	uc.metrics.RecordPersistenceFailure("save")
	if !uc.strict {
		uc.logger.Warn("failed to persist transaction", zap.String("transaction_id", tx.ID), zap.Int64("version", tx.Version), zap.Error(err))
		return nil
	}
	if errors.Is(err, domain.ErrVersionConflict) {
		return err
	}
	return domain.WrapError(domain.ErrCodeInternal, domain.ErrPersistenceFailure.Message, err)
}

func (uc *UseCase) record(ctx context.Context, ev domain.Event) {
	if uc.journal != nil {
		if err := uc.journal.Append(ctx, ev); err != nil {
			uc.logger.Warn("failed to journal event", zap.String("event", ev.Name), zap.String("transaction_id", ev.TransactionID), zap.Error(err))
		}
	}
	if uc.publisher != nil {
		if err := uc.publisher.Publish(ctx, ev); err != nil {
			uc.logger.Warn("failed to publish event", zap.String("event", ev.Name), zap.String("transaction_id", ev.TransactionID), zap.Error(err))
		}
	}
}

func (uc *UseCase) archive(ctx context.Context, tx *domain.Transaction) {
	if uc.archiver == nil {
		return
	}
	events := []domain.Event{}
	if uc.journal != nil {
		list, err := uc.journal.List(ctx, tx.ID)
		if err != nil {
			uc.logger.Warn("failed to read journal for archive", zap.String("transaction_id", tx.ID), zap.Error(err))
		} else {
			events = list
		}
	}
	if err := uc.archiver.ArchiveTransaction(ctx, tx, events); err != nil {
		uc.logger.Error("failed to queue transaction for archive", zap.String("transaction_id", tx.ID), zap.Error(err))
	}
}
