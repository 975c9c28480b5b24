package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/api/transport"
	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/pkg/httpcontext"
	offerUC "github.com/fastygo/boatclosers/usecase/offer"
)

type OfferHandler struct {
	baseHandler
	uc *offerUC.UseCase
}

func NewOfferHandler(uc *offerUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *OfferHandler {
	return &OfferHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Check whether the offer can be generated
// @Tags offer
// @Router /api/v1/offer/check [get]
func (h *OfferHandler) Check(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	missing, err := h.uc.Missing(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"canGenerate": len(missing) == 0,
		"missing":     missing,
	})
}

// @Summary Generate or regenerate the offer
// @Tags offer
// @Router /api/v1/offer [post]
func (h *OfferHandler) Generate(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tx, err := h.uc.Generate(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, tx)
}

// @Summary Set the offer status
// @Tags offer
// @Router /api/v1/offer/status [put]
func (h *OfferHandler) SetStatus(ctx *fasthttp.RequestCtx) {
	var req transport.OfferStatusRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	res, err := h.uc.SetStatus(stdCtx, domain.OfferStatus(req.Status))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, res)
}

// @Summary Pay to unlock the offer
// @Tags offer
// @Router /api/v1/offer/payment [post]
func (h *OfferHandler) Pay(ctx *fasthttp.RequestCtx) {
	var req transport.PaymentRequest
	if !h.decode(ctx, &req) {
		return
	}
	if req.Plan == "" {
		req.Plan = string(domain.PlanStandard)
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tx, err := h.uc.RecordPayment(stdCtx, domain.Plan(req.Plan))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, tx)
}
