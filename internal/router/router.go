package router

import (
	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"github.com/valyala/fasthttp/pprofhandler"

	apiHandler "github.com/fastygo/boatclosers/api/handler"
	"github.com/fastygo/boatclosers/internal/metrics"
	"github.com/fastygo/boatclosers/internal/middleware"
)

type Handlers struct {
	Transaction *apiHandler.TransactionHandler
	Offer       *apiHandler.OfferHandler
	Deposit     *apiHandler.DepositHandler
	Escrow      *apiHandler.EscrowHandler
	Document    *apiHandler.DocumentHandler
	Health      *apiHandler.HealthHandler
	// Archive is nil when the archive database is disabled.
	Archive *apiHandler.ArchiveHandler
}

type Options struct {
	Access  func(fasthttp.RequestHandler) fasthttp.RequestHandler
	Metrics *metrics.Metrics
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer    prometheus.Gatherer
	EnablePprof bool
}

func New(handlers Handlers, opts Options) *router.Router {
	r := router.New()

	access := opts.Access
	if access == nil {
		access = func(next fasthttp.RequestHandler) fasthttp.RequestHandler { return next }
	}
	open := func(name string, h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return middleware.Instrument(opts.Metrics, name)(h)
	}
	protected := func(name string, h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return open(name, access(h))
	}

	r.GET("/health", open("health", handlers.Health.Check))
	if opts.Gatherer != nil {
		r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	if opts.EnablePprof {
		r.GET("/debug/pprof/{profile:*}", pprofhandler.PprofHandler)
	}

	api := r.Group("/api/v1")

	api.POST("/transaction", protected("transaction.start", handlers.Transaction.Start))
	api.GET("/transaction", protected("transaction.get", handlers.Transaction.Get))
	api.PATCH("/transaction", protected("transaction.update", handlers.Transaction.Update))
	api.DELETE("/transaction", protected("transaction.reset", handlers.Transaction.Reset))
	api.GET("/transaction/field", protected("transaction.field", handlers.Transaction.Field))
	api.PUT("/transaction/step", protected("transaction.step", handlers.Transaction.GoStep))
	api.GET("/transaction/steps", protected("transaction.steps", handlers.Transaction.Steps))
	api.GET("/transaction/readiness", protected("transaction.readiness", handlers.Transaction.Readiness))
	api.POST("/transaction/close", protected("transaction.close", handlers.Transaction.Close))
	api.GET("/transaction/events", protected("transaction.events", handlers.Transaction.Events))

	api.GET("/offer/check", protected("offer.check", handlers.Offer.Check))
	api.POST("/offer", protected("offer.generate", handlers.Offer.Generate))
	api.PUT("/offer/status", protected("offer.status", handlers.Offer.SetStatus))
	api.POST("/offer/payment", protected("offer.payment", handlers.Offer.Pay))

	api.GET("/deposit", protected("deposit.status", handlers.Deposit.Status))
	api.POST("/deposit/confirm", protected("deposit.confirm", handlers.Deposit.Confirm))

	api.GET("/escrow", protected("escrow.show", handlers.Escrow.Show))
	api.POST("/escrow/advance", protected("escrow.advance", handlers.Escrow.Advance))
	api.POST("/escrow/reset", protected("escrow.reset", handlers.Escrow.Reset))

	api.GET("/documents", protected("documents.list", handlers.Document.List))
	api.GET("/documents/{id}", protected("documents.render", handlers.Document.Render))
	api.GET("/documents/{id}/export", protected("documents.export", handlers.Document.Export))
	api.POST("/documents/{id}/sign", protected("documents.sign", handlers.Document.Sign))

	if handlers.Archive != nil {
		api.GET("/archive", protected("archive.list", handlers.Archive.List))
		api.GET("/archive/{id}", protected("archive.get", handlers.Archive.Get))
		api.GET("/archive/{id}/events", protected("archive.events", handlers.Archive.Events))
	}

	return r
}
