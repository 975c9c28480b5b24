package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/pkg/httpcontext"
	"github.com/fastygo/boatclosers/repository"
)

// ArchiveHandler reads closed transactions back out of the archive database.
type ArchiveHandler struct {
	baseHandler
	archive repository.ArchiveRepository
}

func NewArchiveHandler(archive repository.ArchiveRepository, adapter *httpcontext.Adapter, logger *zap.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		baseHandler: newBaseHandler(adapter, logger),
		archive:     archive,
	}
}

// @Summary List archived transactions
// @Tags archive
// @Router /api/v1/archive [get]
func (h *ArchiveHandler) List(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	filter := repository.ArchiveFilter{}
	if v := args.Peek("limit"); len(v) > 0 {
		limit, err := strconv.Atoi(string(v))
		if err != nil {
			h.respondInvalid(ctx, "limit must be a number")
			return
		}
		filter.Limit = limit
	}
	if v := args.Peek("offset"); len(v) > 0 {
		offset, err := strconv.Atoi(string(v))
		if err != nil {
			h.respondInvalid(ctx, "offset must be a number")
			return
		}
		filter.Offset = offset
	}
	if v := args.Peek("closedAfter"); len(v) > 0 {
		after, err := time.Parse(time.RFC3339, string(v))
		if err != nil {
			h.respondInvalid(ctx, "closedAfter must be an RFC 3339 timestamp")
			return
		}
		filter.ClosedAfter = after
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	items, err := h.archive.List(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, items)
}

// @Summary Get an archived transaction
// @Tags archive
// @Router /api/v1/archive/{id} [get]
func (h *ArchiveHandler) Get(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	item, err := h.archive.Get(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, item)
}

// @Summary Journal of an archived transaction
// @Tags archive
// @Router /api/v1/archive/{id}/events [get]
func (h *ArchiveHandler) Events(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	events, err := h.archive.Events(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, events)
}
