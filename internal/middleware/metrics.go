package middleware

import (
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/boatclosers/internal/metrics"
)

// Instrument records latency and status of every request served by next under
// the given handler label.
func Instrument(m *metrics.Metrics, handler string) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		if m == nil {
			return next
		}
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)
			m.RecordHTTPRequest(handler, string(ctx.Method()), ctx.Response.StatusCode(), time.Since(start).Seconds())
		}
	}
}
