package document

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/internal/metrics"
	"github.com/fastygo/boatclosers/internal/render"
)

type Session interface {
	Current(ctx context.Context) (*domain.Transaction, error)
}

type Renderer interface {
	Render(def domain.DocumentDef, tx *domain.Transaction) (string, error)
}

type Entry struct {
	domain.DocumentDef
	Template string      `json:"template"`
	Signed   bool        `json:"signed"`
	SignedAt *time.Time  `json:"signedAt,omitempty"`
	Signer   domain.Role `json:"signer,omitempty"`
}

type Group struct {
	Category  domain.Category `json:"category"`
	Label     string          `json:"label"`
	Documents []Entry         `json:"documents"`
}

type Rendered struct {
	Document domain.DocumentDef `json:"document"`
	Template string             `json:"template"`
	Content  string             `json:"content"`
}

// Export is a rendered document ready for print, stamped with its seal.
type Export struct {
	Rendered
	TransactionID string      `json:"transactionId"`
	Version       int64       `json:"version"`
	Seal          render.Seal `json:"seal"`
}

type UseCase struct {
	session  Session
	renderer Renderer
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func New(s Session, renderer Renderer, m *metrics.Metrics, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{session: s, renderer: renderer, metrics: m, logger: logger}
}

// List returns the catalog grouped by category with each entry's signature state.
func (uc *UseCase) List(ctx context.Context) ([]Group, error) {
	tx, err := uc.session.Current(ctx)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[domain.Category][]Entry)
	for _, def := range domain.Catalog() {
		entry := Entry{DocumentDef: def, Template: render.TemplateKind(def.ID)}
		if sig, ok := tx.Signatures[def.ID]; ok && sig.Signed {
			date := sig.Date
			entry.Signed = true
			entry.SignedAt = &date
			entry.Signer = sig.Signer
		}
		byCategory[def.Category] = append(byCategory[def.Category], entry)
	}

	groups := make([]Group, 0, len(byCategory))
	for _, cat := range domain.Categories() {
		docs, ok := byCategory[cat]
		if !ok {
			continue
		}
		groups = append(groups, Group{Category: cat, Label: cat.Label(), Documents: docs})
	}
	return groups, nil
}

func (uc *UseCase) Render(ctx context.Context, docID string) (Rendered, error) {
	tx, err := uc.session.Current(ctx)
	if err != nil {
		return Rendered{}, err
	}
	return uc.render(docID, tx)
}

func (uc *UseCase) render(docID string, tx *domain.Transaction) (Rendered, error) {
	def, ok := domain.LookupDocument(docID)
	if !ok {
		return Rendered{}, domain.ErrUnknownDocument
	}
	content, err := uc.renderer.Render(def, tx)
	if err != nil {
		uc.logger.Error("failed to render document", zap.String("document", docID), zap.Error(err))
		return Rendered{}, err
	}
	kind := render.TemplateKind(docID)
	uc.metrics.RecordDocumentRendered(docID, kind)
	return Rendered{Document: def, Template: kind, Content: content}, nil
}

// Export renders docID and seals the content with its fingerprint.
func (uc *UseCase) Export(ctx context.Context, docID string) (Export, error) {
	tx, err := uc.session.Current(ctx)
	if err != nil {
		return Export{}, err
	}
	rendered, err := uc.render(docID, tx)
	if err != nil {
		return Export{}, err
	}
	seal, err := render.NewSeal(docID, tx.ID, rendered.Content)
	if err != nil {
		return Export{}, err
	}
	return Export{Rendered: rendered, TransactionID: tx.ID, Version: tx.Version, Seal: seal}, nil
}
