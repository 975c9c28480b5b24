package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/api/transport"
	"github.com/fastygo/boatclosers/pkg/httpcontext"
	documentUC "github.com/fastygo/boatclosers/usecase/document"
	signatureUC "github.com/fastygo/boatclosers/usecase/signature"
)

type DocumentHandler struct {
	baseHandler
	documents  *documentUC.UseCase
	signatures *signatureUC.UseCase
}

func NewDocumentHandler(documents *documentUC.UseCase, signatures *signatureUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		baseHandler: newBaseHandler(adapter, logger),
		documents:   documents,
		signatures:  signatures,
	}
}

// @Summary Document catalog grouped by category
// @Tags documents
// @Router /api/v1/documents [get]
func (h *DocumentHandler) List(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	groups, err := h.documents.List(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, groups)
}

// @Summary Render a document
// @Description format=html returns the markup without the JSON envelope
// @Tags documents
// @Router /api/v1/documents/{id} [get]
func (h *DocumentHandler) Render(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	rendered, err := h.documents.Render(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if string(ctx.QueryArgs().Peek("format")) == "html" {
		ctx.Response.Header.SetContentType("text/html; charset=utf-8")
		ctx.SetStatusCode(http.StatusOK)
		ctx.SetBodyString(rendered.Content)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, rendered)
}

// @Summary Export a sealed document for print
// @Tags documents
// @Router /api/v1/documents/{id}/export [get]
func (h *DocumentHandler) Export(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	export, err := h.documents.Export(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, export)
}

// @Summary Sign a document
// @Tags documents
// @Router /api/v1/documents/{id}/sign [post]
func (h *DocumentHandler) Sign(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)

	var req transport.SignRequest
	if !h.decode(ctx, &req) {
		return
	}
	capture, ok := signatureCapture(req)
	if !ok {
		h.respondInvalid(ctx, "mode must be typed or freehand")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tx, err := h.signatures.Sign(stdCtx, id, capture)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, tx.Signatures[id])
}

func signatureCapture(req transport.SignRequest) (signatureUC.Capture, bool) {
	switch req.Mode {
	case signatureUC.ModeTyped:
		return signatureUC.Typed{Name: req.Name}, true
	case signatureUC.ModeFreehand:
		strokes := make([][]signatureUC.Point, 0, len(req.Strokes))
		for _, stroke := range req.Strokes {
			points := make([]signatureUC.Point, 0, len(stroke))
			for _, p := range stroke {
				points = append(points, signatureUC.Point{X: p.X, Y: p.Y})
			}
			strokes = append(strokes, points)
		}
		return signatureUC.Freehand{Strokes: strokes}, true
	}
	return nil, false
}

