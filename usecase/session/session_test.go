package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/internal/infrastructure/nats"
	"github.com/fastygo/boatclosers/internal/metrics"
	"github.com/fastygo/boatclosers/repository/memory"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	uc        *UseCase
	store     *memory.TransactionStore
	journal   *memory.JournalStore
	publisher *nats.MockPublisher
	archiver  *recordingArchiver
}

type recordingArchiver struct {
	archived []*domain.Transaction
	events   [][]domain.Event
}

func (a *recordingArchiver) ArchiveTransaction(ctx context.Context, tx *domain.Transaction, events []domain.Event) error {
	a.archived = append(a.archived, tx)
	a.events = append(a.events, events)
	return nil
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:     memory.NewTransactionStore(),
		journal:   memory.NewJournalStore(),
		publisher: nats.NewMockPublisher(),
		archiver:  &recordingArchiver{},
	}
	base := []Option{
		WithJournal(f.journal),
		WithPublisher(f.publisher),
		WithArchiver(f.archiver),
		WithMetrics(metrics.NewMetrics(prometheus.NewRegistry())),
		WithClock(func() time.Time { return testNow }),
	}
	f.uc = New(f.store, nil, append(base, opts...)...)
	return f
}

func TestStart_CreatesAndResumes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tx, resumed, err := f.uc.Start(ctx, domain.RoleSeller)
	require.NoError(t, err)
	assert.False(t, resumed)
	assert.Equal(t, domain.RoleSeller, tx.Role)
	assert.Equal(t, 1, f.store.Saves())

	_, err = f.uc.Update(ctx, "vessel.make", "Grady-White")
	require.NoError(t, err)

	other := New(f.store, nil)
	again, resumed, err := other.Start(ctx, domain.RoleBuyer)
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.Equal(t, tx.ID, again.ID)
	assert.Equal(t, domain.RoleSeller, again.Role)
	assert.Equal(t, "Grady-White", again.Vessel.Make)
}

func TestStart_InvalidRole(t *testing.T) {
	_, _, err := newFixture(t).uc.Start(context.Background(), domain.Role("broker"))
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestCurrent_WithoutTransaction(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.Current(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoTransaction)

	_, err = f.uc.Update(context.Background(), "vessel.make", "x")
	assert.ErrorIs(t, err, domain.ErrNoTransaction)
}

func TestUpdate_StampsJournalsAndPublishes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start, _, err := f.uc.Start(ctx, domain.RoleBuyer)
	require.NoError(t, err)

	next, err := f.uc.Update(ctx, "terms.price", "50000")
	require.NoError(t, err)
	assert.Equal(t, start.Version+1, next.Version)
	assert.Equal(t, "50000", next.Terms.Price.String())
	assert.Same(t, start.Vessel, next.Vessel)

	events, err := f.uc.Journal(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventStarted, events[0].Name)
	assert.Equal(t, domain.EventFieldUpdated, events[1].Name)
	assert.Equal(t, "terms.price", events[1].Path)
	assert.Equal(t, next.Version, events[1].Version)

	assert.Equal(t, []string{domain.EventStarted, domain.EventFieldUpdated}, f.publisher.EventNames())
}

func TestUpdate_InvalidPathLeavesSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start, _, err := f.uc.Start(ctx, domain.RoleBuyer)
	require.NoError(t, err)

	_, err = f.uc.Update(ctx, "vessel.nope", "x")
	var pathErr *domain.InvalidPathError
	require.ErrorAs(t, err, &pathErr)

	current, err := f.uc.Current(ctx)
	require.NoError(t, err)
	assert.Same(t, start, current)
}

func TestUpdate_RejectsWorkflowFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start, _, err := f.uc.Start(ctx, domain.RoleBuyer)
	require.NoError(t, err)

	for path, value := range map[string]any{
		"signatures.bill-of-sale":               domain.Signature{Signed: true, Signer: domain.RoleSeller},
		"offer.hasPaid":                         true,
		"offer.status":                          "accepted",
		"escrow.status":                         "released",
		"escrow.released":                       true,
		"depositVerification.confirmedBySeller": true,
		"diligence.depositReceived":             true,
	} {
		_, err := f.uc.Update(ctx, path, value)
		assert.ErrorIs(t, err, domain.ErrImmutableField, path)
	}

	current, err := f.uc.Current(ctx)
	require.NoError(t, err)
	assert.Same(t, start, current)
	assert.Empty(t, current.Signatures)
	assert.False(t, current.Offer.HasPaid)
	assert.Equal(t, domain.EscrowNotStarted, current.Escrow.Status)

	events, err := f.uc.Journal(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestGoStep_Clamps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _, err := f.uc.Start(ctx, domain.RoleBuyer)
	require.NoError(t, err)

	tx, err := f.uc.GoStep(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 5, tx.CurrentStep)

	tx, err = f.uc.GoStep(ctx, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, tx.CurrentStep)

	states, err := f.uc.StepStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, domain.StepCount())
	assert.True(t, states[0].Current)
}

func TestPersistence_AdvisoryByDefault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _, err := f.uc.Start(ctx, domain.RoleBuyer)
	require.NoError(t, err)

	f.store.SetSaveError(errors.New("disk full"))
	tx, err := f.uc.Update(ctx, "vessel.make", "Sea Ray")
	require.NoError(t, err)
	assert.Equal(t, "Sea Ray", tx.Vessel.Make)

	current, err := f.uc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sea Ray", current.Vessel.Make)

	f.store.SetLoadError(errors.New("unreadable"))
	_, err = New(f.store, nil).Resume(ctx)
	assert.ErrorIs(t, err, domain.ErrNoTransaction)
}

func TestPersistence_Strict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithStrictPersistence(true))
	start, _, err := f.uc.Start(ctx, domain.RoleBuyer)
	require.NoError(t, err)

	f.store.SetSaveError(errors.New("disk full"))
	_, err = f.uc.Update(ctx, "vessel.make", "Sea Ray")
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInternal))

	current, err := f.uc.Current(ctx)
	require.NoError(t, err)
	assert.Same(t, start, current)

	f.store.SetSaveError(domain.ErrVersionConflict)
	_, err = f.uc.Update(ctx, "vessel.make", "Sea Ray")
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tx, _, err := f.uc.Start(ctx, domain.RoleBuyer)
	require.NoError(t, err)

	require.NoError(t, f.uc.Reset(ctx))

	_, err = f.uc.Current(ctx)
	assert.ErrorIs(t, err, domain.ErrNoTransaction)
	events, err := f.journal.List(ctx, tx.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStartFresh_ReplacesSaved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first, _, err := f.uc.Start(ctx, domain.RoleBuyer)
	require.NoError(t, err)

	second, err := f.uc.StartFresh(ctx, domain.RoleSeller)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	resumed, err := New(f.store, nil).Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, resumed.ID)
}
