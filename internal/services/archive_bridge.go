package services

import (
	"context"
	"encoding/json"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/internal/infrastructure/boltdb"
	"github.com/fastygo/boatclosers/usecase"
)

type ArchiveBridge struct {
	processor *ArchiveProcessor
}

func NewArchiveBridge(processor *ArchiveProcessor) *ArchiveBridge {
	return &ArchiveBridge{processor: processor}
}

func (b *ArchiveBridge) ArchiveTransaction(ctx context.Context, tx *domain.Transaction, events []domain.Event) error {
	if b.processor == nil || tx == nil {
		return domain.ErrInvalidPayload
	}
	raw, err := domain.Encode(tx)
	if err != nil {
		return err
	}
	if events == nil {
		events = []domain.Event{}
	}
	payload, err := json.Marshal(archivePayload{Transaction: raw, Events: events})
	if err != nil {
		return err
	}
	item := boltdb.Item{
		ID:            tx.ID,
		TransactionID: tx.ID,
		Entity:        boltdb.EntityTransaction,
		Operation:     boltdb.OperationArchive,
		Data:          payload,
		Priority:      2,
	}
	return b.processor.Enqueue(ctx, item)
}

var _ usecase.Archiver = (*ArchiveBridge)(nil)
