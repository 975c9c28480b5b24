package main

import (
	"context"
	"log"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/boatclosers/api/handler"
	"github.com/fastygo/boatclosers/internal/app"
	"github.com/fastygo/boatclosers/internal/config"
	"github.com/fastygo/boatclosers/internal/middleware"
	"github.com/fastygo/boatclosers/internal/router"
	"github.com/fastygo/boatclosers/internal/services/lifecycle"
	"github.com/fastygo/boatclosers/pkg/httpcontext"
	"github.com/fastygo/boatclosers/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, cancel := manager.Listen(context.Background())
	defer cancel()

	a, err := app.New(appCtx, cfg, zapLogger, manager)
	if err != nil {
		_ = manager.Shutdown(context.Background())
		zapLogger.Fatal("startup failed", zap.Error(err))
	}
	a.StartBackground()

	if _, err := a.Session.Resume(appCtx); err == nil {
		zapLogger.Info("resumed saved transaction")
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Transaction: apiHandler.NewTransactionHandler(a.Session, ctxAdapter, zapLogger),
		Offer:       apiHandler.NewOfferHandler(a.Offer, ctxAdapter, zapLogger),
		Deposit:     apiHandler.NewDepositHandler(a.Deposit, ctxAdapter, zapLogger),
		Escrow:      apiHandler.NewEscrowHandler(a.Escrow, ctxAdapter, zapLogger),
		Document:    apiHandler.NewDocumentHandler(a.Documents, a.Signatures, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(a.Monitor, apiHandler.Requirements{
			Store:      a.Bolt != nil,
			Redis:      a.Redis != nil,
			PostgreSQL: a.Pool != nil,
		}, ctxAdapter, zapLogger),
	}
	if a.Archive != nil {
		handlers.Archive = apiHandler.NewArchiveHandler(a.Archive, ctxAdapter, zapLogger)
	}

	opts := router.Options{
		Access:      middleware.AccessGate(cfg.JWT.Secret, cfg.JWT.Issuer, zapLogger),
		Metrics:     a.Metrics,
		EnablePprof: cfg.HTTP.EnablePprof,
	}
	if cfg.HTTP.EnableMetrics {
		opts.Gatherer = a.Registry
	}
	r := router.New(handlers, opts)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()), zap.String("store", cfg.Store.Driver))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Error("server crashed", zap.Error(err))
			cancel()
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
