package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/api/transport"
	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/pkg/httpcontext"
	escrowUC "github.com/fastygo/boatclosers/usecase/escrow"
)

type EscrowHandler struct {
	baseHandler
	uc *escrowUC.UseCase
}

func NewEscrowHandler(uc *escrowUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *EscrowHandler {
	return &EscrowHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Escrow timeline and wire instructions
// @Tags escrow
// @Router /api/v1/escrow [get]
func (h *EscrowHandler) Show(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	stages, err := h.uc.Stages(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	wire, err := h.uc.WireInstructions(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"stages": stages,
		"wire":   wire,
	})
}

// @Summary Advance escrow to a later stage
// @Tags escrow
// @Router /api/v1/escrow/advance [post]
func (h *EscrowHandler) Advance(ctx *fasthttp.RequestCtx) {
	var req transport.EscrowStatusRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tx, err := h.uc.Advance(stdCtx, domain.EscrowStatus(req.Status))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, escrowUC.Stages(tx))
}

// @Summary Roll escrow back to a stage
// @Tags escrow
// @Router /api/v1/escrow/reset [post]
func (h *EscrowHandler) Reset(ctx *fasthttp.RequestCtx) {
	var req transport.EscrowStatusRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tx, err := h.uc.Reset(stdCtx, domain.EscrowStatus(req.Status))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, escrowUC.Stages(tx))
}
