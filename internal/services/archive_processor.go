package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/internal/infrastructure/boltdb"
	"github.com/fastygo/boatclosers/internal/metrics"
	"github.com/fastygo/boatclosers/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how frequently the outbox is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	// Retention drops queued items older than this; zero keeps them forever.
	Retention time.Duration
	// Schedule overrides Interval with a cron spec (seconds field first).
	Schedule string
}

// ArchiveProcessor moves closed transactions from the local outbox into the
// archive database.
type ArchiveProcessor struct {
	outbox  *boltdb.Outbox
	monitor ConnectionHealth
	archive repository.ArchiveRepository
	metrics *metrics.Metrics
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     ProcessorConfig
	now     func() time.Time
}

type archivePayload struct {
	Transaction json.RawMessage `json:"transaction"`
	Events      []domain.Event  `json:"events"`
}

// NewArchiveProcessor wires the drain job. A nil archive keeps items queued
// until a process with archive access drains them. An unparsable schedule is
// an error: archiving would otherwise never run.
func NewArchiveProcessor(
	outbox *boltdb.Outbox,
	monitor ConnectionHealth,
	archive repository.ArchiveRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg ProcessorConfig,
) (*ArchiveProcessor, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ap := &ArchiveProcessor{
		outbox:  outbox,
		monitor: monitor,
		archive: archive,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
		now:     time.Now,
	}

	schedule := cfg.Schedule
	if schedule == "" {
		schedule = fmt.Sprintf("@every %ds", max(1, int(cfg.Interval.Seconds())))
	}
	if _, err := ap.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := ap.Drain(ctx); err != nil {
			ap.logger.Error("archive drain failed", zap.Error(err))
		}
	}); err != nil {
		logger.Error("invalid archive schedule", zap.String("schedule", schedule), zap.Error(err))
		return nil, fmt.Errorf("archive schedule %q: %w", schedule, err)
	}

	return ap, nil
}

// Start launches the cron scheduler.
func (ap *ArchiveProcessor) Start() {
	if ap == nil || ap.cron == nil {
		return
	}
	ap.cron.Start()
	ap.logger.Info("archive processor started", zap.Duration("interval", ap.cfg.Interval))
}

// Stop gracefully stops the scheduler.
func (ap *ArchiveProcessor) Stop(ctx context.Context) {
	if ap == nil || ap.cron == nil {
		return
	}
	stopCtx := ap.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	ap.logger.Info("archive processor stopped")
}

// Drain processes queued items synchronously.
func (ap *ArchiveProcessor) Drain(ctx context.Context) error {
	if ap == nil || ap.outbox == nil {
		return nil
	}
	defer ap.reportSize()

	if ap.cfg.Retention > 0 {
		if err := ap.outbox.Cleanup(ap.now().Add(-ap.cfg.Retention)); err != nil {
			ap.logger.Warn("outbox cleanup failed", zap.Error(err))
		}
	}
	if ap.archive == nil {
		return nil
	}
	if ap.monitor != nil && !ap.monitor.IsOnline() {
		ap.logger.Debug("skipping archive drain (offline)")
		return nil
	}

	items, err := ap.outbox.GetBatch(ap.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := ap.processItem(ctx, item); err != nil {
			ap.logger.Error("failed to archive outbox item",
				zap.String("item_id", item.ID),
				zap.String("transaction_id", item.TransactionID),
				zap.Error(err))
			ap.metrics.RecordArchive("error")

			item.Retries++
			if item.Retries >= ap.cfg.MaxRetries {
				ap.logger.Warn("dropping outbox item (max retries reached)", zap.String("item_id", item.ID))
				ap.metrics.RecordArchive("dropped")
				_ = ap.outbox.Remove(item)
				continue
			}

			if err := ap.outbox.Remove(item); err != nil {
				ap.logger.Warn("failed to remove outbox item", zap.Error(err))
			}
			if err := ap.outbox.Requeue(item); err != nil {
				ap.logger.Error("failed to requeue outbox item", zap.Error(err))
			}
			continue
		}

		ap.metrics.RecordArchive("success")
		if err := ap.outbox.Remove(item); err != nil {
			ap.logger.Warn("failed to purge archived outbox item", zap.Error(err))
		}
	}
	return nil
}

// Enqueue attempts to archive immediately and falls back to the outbox.
func (ap *ArchiveProcessor) Enqueue(ctx context.Context, item boltdb.Item) error {
	if ap == nil || ap.outbox == nil {
		return fmt.Errorf("archive processor not configured")
	}

	if ap.archive != nil && (ap.monitor == nil || ap.monitor.IsOnline()) {
		if err := ap.processItem(ctx, item); err == nil {
			ap.metrics.RecordArchive("success")
			return nil
		} else {
			ap.logger.Warn("immediate archive failed, queueing", zap.String("transaction_id", item.TransactionID), zap.Error(err))
		}
	}
	defer ap.reportSize()
	return ap.outbox.Enqueue(item)
}

// Size returns the number of queued items.
func (ap *ArchiveProcessor) Size() int {
	if ap == nil || ap.outbox == nil {
		return 0
	}
	size, err := ap.outbox.Size()
	if err != nil {
		return 0
	}
	return size
}

func (ap *ArchiveProcessor) reportSize() {
	ap.metrics.SetArchiveOutboxSize(ap.Size())
}

func (ap *ArchiveProcessor) processItem(ctx context.Context, item boltdb.Item) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if item.Entity != boltdb.EntityTransaction {
		return fmt.Errorf("unsupported entity %s", item.Entity)
	}
	if item.Operation != boltdb.OperationArchive {
		return fmt.Errorf("unsupported operation %s", item.Operation)
	}

	var payload archivePayload
	if err := json.Unmarshal(item.Data, &payload); err != nil {
		return err
	}
	tx, err := domain.Decode(payload.Transaction)
	if err != nil {
		return err
	}
	return ap.archive.Archive(ctx, tx, payload.Events)
}
