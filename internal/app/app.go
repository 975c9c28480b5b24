package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/internal/config"
	"github.com/fastygo/boatclosers/internal/infrastructure/boltdb"
	"github.com/fastygo/boatclosers/internal/infrastructure/monitor"
	natsInfra "github.com/fastygo/boatclosers/internal/infrastructure/nats"
	pgInfra "github.com/fastygo/boatclosers/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/boatclosers/internal/infrastructure/redis"
	"github.com/fastygo/boatclosers/internal/metrics"
	"github.com/fastygo/boatclosers/internal/payment"
	"github.com/fastygo/boatclosers/internal/render"
	"github.com/fastygo/boatclosers/internal/services"
	"github.com/fastygo/boatclosers/internal/services/lifecycle"
	"github.com/fastygo/boatclosers/repository"
	boltRepo "github.com/fastygo/boatclosers/repository/bolt"
	"github.com/fastygo/boatclosers/repository/memory"
	"github.com/fastygo/boatclosers/repository/postgres"
	redisRepo "github.com/fastygo/boatclosers/repository/redis"
	"github.com/fastygo/boatclosers/usecase"
	depositUC "github.com/fastygo/boatclosers/usecase/deposit"
	documentUC "github.com/fastygo/boatclosers/usecase/document"
	escrowUC "github.com/fastygo/boatclosers/usecase/escrow"
	offerUC "github.com/fastygo/boatclosers/usecase/offer"
	sessionUC "github.com/fastygo/boatclosers/usecase/session"
	signatureUC "github.com/fastygo/boatclosers/usecase/signature"
)

// App holds every component of a running process. Backends that are not
// configured stay nil.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Bolt    *boltdb.DB
	Redis   *goRedis.Client
	Pool    *pgxpool.Pool
	Archive repository.ArchiveRepository

	Monitor   *monitor.Monitor
	Processor *services.ArchiveProcessor

	Session    *sessionUC.UseCase
	Offer      *offerUC.UseCase
	Deposit    *depositUC.UseCase
	Escrow     *escrowUC.UseCase
	Documents  *documentUC.UseCase
	Signatures *signatureUC.UseCase
}

// New connects the configured backends and assembles the use cases. Every
// opened resource is registered with manager for release.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, manager *lifecycle.Manager) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  metrics.NewMetrics(registry),
	}

	store, journal, err := a.openStore(manager)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Enabled {
		if err := pgInfra.RunMigrations(cfg, logger); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		manager.Register("postgres", func(context.Context) error {
			pgInfra.Close(pool, logger)
			return nil
		})
		a.Pool = pool
		a.Archive = postgres.NewArchiveRepository(pool)
	}

	var outbox *boltdb.Outbox
	if a.Bolt != nil {
		outbox = boltdb.NewOutbox(a.Bolt, boltdb.BucketOutbox)
	}

	a.Monitor = monitor.New(a.Pool, a.Redis, a.Bolt, outbox, 10*time.Second, logger)
	manager.Register("monitor", func(context.Context) error {
		a.Monitor.Stop()
		return nil
	})

	var archiver usecase.Archiver
	if outbox != nil {
		processor, err := services.NewArchiveProcessor(outbox, a.Monitor, a.Archive, a.Metrics, logger, services.ProcessorConfig{
			Interval:   cfg.Archive.SyncInterval,
			BatchSize:  cfg.Archive.BatchSize,
			MaxRetries: cfg.Archive.MaxRetry,
			Retention:  time.Duration(cfg.Archive.RetentionHours) * time.Hour,
			Schedule:   cfg.Archive.Schedule,
		})
		if err != nil {
			return nil, err
		}
		a.Processor = processor
		manager.Register("archive_processor", func(ctx context.Context) error {
			a.Processor.Stop(ctx)
			return nil
		})
		archiver = services.NewArchiveBridge(a.Processor)
	}

	var publisher usecase.EventPublisher = natsInfra.NoopPublisher{}
	if cfg.NATS.URL != "" {
		p, err := natsInfra.NewPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger, a.Metrics)
		if err != nil {
			return nil, err
		}
		manager.RegisterCloser("nats", p)
		publisher = p
	}

	opts := []sessionUC.Option{
		sessionUC.WithPublisher(publisher),
		sessionUC.WithMetrics(a.Metrics),
		sessionUC.WithStrictPersistence(cfg.Store.Strict),
	}
	if journal != nil {
		opts = append(opts, sessionUC.WithJournal(journal))
	}
	if archiver != nil {
		opts = append(opts, sessionUC.WithArchiver(archiver))
	}
	a.Session = sessionUC.New(store, logger, opts...)

	gateway := payment.NewRetrying(payment.NewLocalGateway(0), payment.RetryConfig{
		Timeout:     cfg.Payment.Timeout,
		MaxAttempts: cfg.Payment.MaxAttempts,
		BaseBackoff: cfg.Payment.BaseBackoff,
		MaxBackoff:  cfg.Payment.MaxBackoff,
	}, logger, a.Metrics)
	plans := payment.Plans{Standard: cfg.Payment.StandardPrice, Premium: cfg.Payment.PremiumPrice}

	a.Offer = offerUC.New(a.Session, gateway, plans, a.Metrics, logger)
	a.Deposit = depositUC.New(a.Session, logger)
	a.Escrow = escrowUC.New(a.Session, logger)
	a.Documents = documentUC.New(a.Session, render.New(), a.Metrics, logger)
	a.Signatures = signatureUC.New(a.Session, a.Metrics, logger)

	return a, nil
}

// StartBackground launches the health monitor and the archive drain.
func (a *App) StartBackground() {
	a.Monitor.Refresh()
	a.Monitor.Start()
	a.Processor.Start()
}

// openStore selects the transaction slot backend. The bolt file is also
// opened for the archive outbox whenever archiving is enabled.
func (a *App) openStore(manager *lifecycle.Manager) (repository.TransactionRepository, repository.JournalRepository, error) {
	cfg := a.Config
	if cfg.Store.Driver == config.StoreDriverBolt || cfg.Archive.Enabled {
		db, err := boltdb.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open bolt store: %w", err)
		}
		manager.RegisterCloser("bolt", db)
		a.Bolt = db
	}

	switch cfg.Store.Driver {
	case config.StoreDriverRedis:
		client, err := redisInfra.NewClient(cfg.Redis, a.Logger)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		manager.RegisterCloser("redis", client)
		a.Redis = client
		var journal repository.JournalRepository = memory.NewJournalStore()
		if a.Bolt != nil {
			journal = boltRepo.NewJournalRepository(a.Bolt, a.Logger)
		}
		return redisRepo.NewTransactionRepository(client, cfg.Store.Key, a.Logger), journal, nil
	case config.StoreDriverMemory:
		return memory.NewTransactionStore(), memory.NewJournalStore(), nil
	default:
		return boltRepo.NewTransactionRepository(a.Bolt, cfg.Store.Key, a.Logger), boltRepo.NewJournalRepository(a.Bolt, a.Logger), nil
	}
}
