package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/api/transport"
	"github.com/fastygo/boatclosers/internal/infrastructure/monitor"
	"github.com/fastygo/boatclosers/pkg/httpcontext"
)

// Requirements names the backends that must be up for the service to report healthy.
type Requirements struct {
	Store      bool
	Redis      bool
	PostgreSQL bool
}

type HealthHandler struct {
	baseHandler
	monitor  *monitor.Monitor
	required Requirements
}

func NewHealthHandler(mon *monitor.Monitor, required Requirements, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
		required:    required,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := map[string]interface{}{
		"timestamp": status.LastCheck.UTC(),
		"services": map[string]interface{}{
			"store":      status.Store,
			"redis":      status.Redis,
			"postgresql": status.PostgreSQL,
			"outbox": map[string]interface{}{
				"online": status.Outbox,
				"size":   status.OutboxSize,
			},
		},
	}

	if h.healthy(status) {
		h.respondSuccess(ctx, http.StatusOK, payload)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.Failure("DEGRADED", "dependencies unhealthy", payload))
}

func (h *HealthHandler) healthy(status monitor.Status) bool {
	if h.required.Store && !status.Store {
		return false
	}
	if h.required.Redis && !status.Redis {
		return false
	}
	if h.required.PostgreSQL && !status.PostgreSQL {
		return false
	}
	return true
}
