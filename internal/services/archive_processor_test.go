package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/internal/infrastructure/boltdb"
	"github.com/fastygo/boatclosers/internal/metrics"
	"github.com/fastygo/boatclosers/repository"
)

type fakeArchive struct {
	mu       sync.Mutex
	fail     error
	archived map[string]int
	events   map[string][]domain.Event
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{archived: map[string]int{}, events: map[string][]domain.Event{}}
}

func (f *fakeArchive) Archive(ctx context.Context, tx *domain.Transaction, events []domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.archived[tx.ID]++
	f.events[tx.ID] = events
	return nil
}

func (f *fakeArchive) Get(ctx context.Context, id string) (*repository.ArchivedTransaction, error) {
	return nil, domain.ErrNoTransaction
}

func (f *fakeArchive) List(ctx context.Context, filter repository.ArchiveFilter) ([]repository.ArchivedTransaction, error) {
	return nil, nil
}

func (f *fakeArchive) Events(ctx context.Context, id string) ([]domain.Event, error) {
	return nil, nil
}

type switchMonitor struct{ online bool }

func (m *switchMonitor) IsOnline() bool { return m.online }

func openOutbox(t *testing.T) *boltdb.Outbox {
	t.Helper()
	db, err := boltdb.Open(filepath.Join(t.TempDir(), "outbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return boltdb.NewOutbox(db, "")
}

func newProcessor(t *testing.T, outbox *boltdb.Outbox, monitor ConnectionHealth, archive repository.ArchiveRepository, m *metrics.Metrics, logger *zap.Logger, cfg ProcessorConfig) *ArchiveProcessor {
	t.Helper()
	processor, err := NewArchiveProcessor(outbox, monitor, archive, m, logger, cfg)
	require.NoError(t, err)
	return processor
}

func closedTransaction(t *testing.T) *domain.Transaction {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tx, err := domain.New(domain.RoleBuyer, now)
	require.NoError(t, err)
	tx, err = domain.MarkClosed(tx, now)
	require.NoError(t, err)
	return tx
}

func TestArchiveBridge_ArchivesImmediatelyWhenOnline(t *testing.T) {
	archive := newFakeArchive()
	outbox := openOutbox(t)
	processor := newProcessor(t, outbox, &switchMonitor{online: true}, archive, metrics.NewMetrics(prometheus.NewRegistry()), nil, ProcessorConfig{})
	tx := closedTransaction(t)

	events := []domain.Event{domain.NewEvent(tx, domain.EventTransactionDone, "status", nil)}
	require.NoError(t, NewArchiveBridge(processor).ArchiveTransaction(context.Background(), tx, events))

	assert.Equal(t, 1, archive.archived[tx.ID])
	assert.Len(t, archive.events[tx.ID], 1)
	assert.Equal(t, 0, processor.Size())
}

func TestArchiveBridge_QueuesWhileOfflineAndDrainsLater(t *testing.T) {
	ctx := context.Background()
	archive := newFakeArchive()
	monitor := &switchMonitor{online: false}
	processor := newProcessor(t, openOutbox(t), monitor, archive, nil, nil, ProcessorConfig{})
	tx := closedTransaction(t)

	require.NoError(t, NewArchiveBridge(processor).ArchiveTransaction(ctx, tx, nil))
	assert.Equal(t, 1, processor.Size())

	require.NoError(t, processor.Drain(ctx))
	assert.Equal(t, 1, processor.Size())
	assert.Zero(t, archive.archived[tx.ID])

	monitor.online = true
	require.NoError(t, processor.Drain(ctx))
	assert.Equal(t, 0, processor.Size())
	assert.Equal(t, 1, archive.archived[tx.ID])
}

func TestArchiveProcessor_WithoutArchiveKeepsQueue(t *testing.T) {
	ctx := context.Background()
	processor := newProcessor(t, openOutbox(t), nil, nil, nil, nil, ProcessorConfig{})

	require.NoError(t, NewArchiveBridge(processor).ArchiveTransaction(ctx, closedTransaction(t), nil))
	require.NoError(t, processor.Drain(ctx))
	assert.Equal(t, 1, processor.Size())
}

func TestArchiveProcessor_DropsAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	archive := newFakeArchive()
	archive.fail = errors.New("archive down")
	processor := newProcessor(t, openOutbox(t), nil, archive, nil, nil, ProcessorConfig{MaxRetries: 2})

	require.NoError(t, NewArchiveBridge(processor).ArchiveTransaction(ctx, closedTransaction(t), nil))
	assert.Equal(t, 1, processor.Size())

	require.NoError(t, processor.Drain(ctx))
	assert.Equal(t, 1, processor.Size())

	require.NoError(t, processor.Drain(ctx))
	assert.Equal(t, 0, processor.Size())
}

func TestArchiveBridge_RejectsNil(t *testing.T) {
	err := NewArchiveBridge(nil).ArchiveTransaction(context.Background(), closedTransaction(t), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestNewArchiveProcessor_Schedule(t *testing.T) {
	processor, err := NewArchiveProcessor(openOutbox(t), nil, nil, nil, nil, ProcessorConfig{Schedule: "*/10 * * * * *"})
	require.NoError(t, err)
	require.NotNil(t, processor)
	assert.Len(t, processor.cron.Entries(), 1)

	processor, err = NewArchiveProcessor(openOutbox(t), nil, nil, nil, nil, ProcessorConfig{Schedule: "every ten seconds"})
	require.Error(t, err)
	assert.Nil(t, processor)
	assert.Contains(t, err.Error(), "every ten seconds")
}
