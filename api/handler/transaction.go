package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/api/transport"
	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/pkg/httpcontext"
	sessionUC "github.com/fastygo/boatclosers/usecase/session"
)

type TransactionHandler struct {
	baseHandler
	uc *sessionUC.UseCase
}

func NewTransactionHandler(uc *sessionUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Start or resume the transaction
// @Tags transaction
// @Router /api/v1/transaction [post]
func (h *TransactionHandler) Start(ctx *fasthttp.RequestCtx) {
	var req transport.StartRequest
	if !h.decode(ctx, &req) {
		return
	}
	role := domain.Role(strings.ToLower(strings.TrimSpace(req.Role)))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if req.Fresh {
		tx, err := h.uc.StartFresh(stdCtx, role)
		if err != nil {
			h.respondError(ctx, err)
			return
		}
		h.respondJSON(ctx, http.StatusCreated, transport.Success(tx, map[string]bool{"resumed": false}))
		return
	}

	tx, resumed, err := h.uc.Start(stdCtx, role)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	status := http.StatusCreated
	if resumed {
		status = http.StatusOK
	}
	h.respondJSON(ctx, status, transport.Success(tx, map[string]bool{"resumed": resumed}))
}

// @Summary Get the active transaction
// @Tags transaction
// @Router /api/v1/transaction [get]
func (h *TransactionHandler) Get(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tx, err := h.uc.Current(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, tx)
}

// @Summary Read one field by dot path
// @Tags transaction
// @Router /api/v1/transaction/field [get]
func (h *TransactionHandler) Field(ctx *fasthttp.RequestCtx) {
	path := string(ctx.QueryArgs().Peek("path"))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tx, err := h.uc.Current(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	value, err := domain.Field(tx, path)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{"path": path, "value": value})
}

// @Summary Set one field by dot path
// @Tags transaction
// @Router /api/v1/transaction [patch]
func (h *TransactionHandler) Update(ctx *fasthttp.RequestCtx) {
	var req transport.UpdateRequest
	if !h.decode(ctx, &req) {
		return
	}
	if len(req.Value) == 0 {
		req.Value = json.RawMessage("null")
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tx, err := h.uc.Update(stdCtx, req.Path, req.Value)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.logger.Debug("field updated", zap.String("path", req.Path), zap.String("party", httpcontext.Role(stdCtx)))
	h.respondSuccess(ctx, http.StatusOK, tx)
}

// @Summary Navigate to a step
// @Tags transaction
// @Router /api/v1/transaction/step [put]
func (h *TransactionHandler) GoStep(ctx *fasthttp.RequestCtx) {
	var req transport.StepRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tx, err := h.uc.GoStep(stdCtx, req.Step)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, tx)
}

// @Summary Step readiness indicators
// @Tags transaction
// @Router /api/v1/transaction/steps [get]
func (h *TransactionHandler) Steps(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	states, err := h.uc.StepStates(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, states)
}

// @Summary Closing checklist
// @Tags transaction
// @Router /api/v1/transaction/readiness [get]
func (h *TransactionHandler) Readiness(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	readiness, err := h.uc.Readiness(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, readiness)
}

// @Summary Close the deal
// @Tags transaction
// @Router /api/v1/transaction/close [post]
func (h *TransactionHandler) Close(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tx, err := h.uc.Close(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, tx)
}

// @Summary Discard the transaction
// @Tags transaction
// @Router /api/v1/transaction [delete]
func (h *TransactionHandler) Reset(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Reset(stdCtx); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]bool{"reset": true})
}

// @Summary Applied events
// @Tags transaction
// @Router /api/v1/transaction/events [get]
func (h *TransactionHandler) Events(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	events, err := h.uc.Journal(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, events)
}
