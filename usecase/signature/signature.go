package signature

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/internal/metrics"
	"github.com/fastygo/boatclosers/usecase/session"
)

const (
	ModeFreehand = "freehand"
	ModeTyped    = "typed"
)

type Session interface {
	Mutate(ctx context.Context, change session.Change, fn session.MutateFunc) (*domain.Transaction, error)
	Now() time.Time
}

// Capture is a collected signature mark.
type Capture interface {
	Mode() string
	Valid() bool
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Freehand is a drawn signature: a list of strokes, each a list of points.
type Freehand struct {
	Strokes [][]Point `json:"strokes"`
}

func (Freehand) Mode() string { return ModeFreehand }

// Valid reports whether anything was drawn.
func (f Freehand) Valid() bool {
	for _, stroke := range f.Strokes {
		if len(stroke) > 0 {
			return true
		}
	}
	return false
}

type Typed struct {
	Name string `json:"name"`
}

func (Typed) Mode() string { return ModeTyped }

// Valid requires more than one character once surrounding space is removed.
func (t Typed) Valid() bool {
	return utf8.RuneCountInString(strings.TrimSpace(t.Name)) > 1
}

type UseCase struct {
	session Session
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func New(s Session, m *metrics.Metrics, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{session: s, metrics: m, logger: logger}
}

// Sign applies a signature to docID on behalf of the transaction's role.
// Signatures are never revoked, so signing twice is a conflict.
func (uc *UseCase) Sign(ctx context.Context, docID string, capture Capture) (*domain.Transaction, error) {
	if _, ok := domain.LookupDocument(docID); !ok {
		return nil, domain.ErrUnknownDocument
	}
	if capture == nil || !capture.Valid() {
		return nil, domain.ErrInvalidSignature
	}

	path := "signatures." + docID
	tx, err := uc.session.Mutate(ctx, session.Change{Event: domain.EventDocumentSigned, Path: path, Payload: map[string]string{"mode": capture.Mode()}}, func(tx *domain.Transaction) (*domain.Transaction, error) {
		if tx.IsSigned(docID) {
			return nil, domain.ErrAlreadySigned
		}
		return domain.Apply(tx, path, domain.Signature{
			Signed: true,
			Date:   uc.session.Now(),
			Signer: tx.Role,
			Mode:   capture.Mode(),
		})
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.RecordSignature(docID, capture.Mode())
	uc.logger.Info("document signed",
		zap.String("transaction_id", tx.ID),
		zap.String("document", docID),
		zap.String("signer", string(tx.Role)),
		zap.String("mode", capture.Mode()))
	return tx, nil
}
