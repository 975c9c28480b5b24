package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/api/transport"
	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/pkg/httpcontext"
	depositUC "github.com/fastygo/boatclosers/usecase/deposit"
)

type DepositHandler struct {
	baseHandler
	uc *depositUC.UseCase
}

func NewDepositHandler(uc *depositUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *DepositHandler {
	return &DepositHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Confirm the deposit for one party
// @Tags deposit
// @Router /api/v1/deposit/confirm [post]
func (h *DepositHandler) Confirm(ctx *fasthttp.RequestCtx) {
	var req transport.DepositConfirmRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	party := req.Party
	if party == "" {
		party = httpcontext.Role(stdCtx)
	}
	confirmed := true
	if req.Confirmed != nil {
		confirmed = *req.Confirmed
	}

	if _, err := h.uc.Confirm(stdCtx, domain.Role(party), confirmed); err != nil {
		h.respondError(ctx, err)
		return
	}
	status, err := h.uc.Status(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, status)
}

// @Summary Deposit verification status
// @Tags deposit
// @Router /api/v1/deposit [get]
func (h *DepositHandler) Status(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	status, err := h.uc.Status(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, status)
}
