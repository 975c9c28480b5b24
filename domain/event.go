package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event names recorded in the journal and published to subscribers.
const (
	EventStarted         = "transaction.started"
	EventFieldUpdated    = "transaction.field_updated"
	EventStepChanged     = "transaction.step_changed"
	EventOfferGenerated  = "offer.generated"
	EventOfferStatus     = "offer.status_changed"
	EventOfferPaid       = "offer.paid"
	EventDepositConfirm  = "deposit.confirmed"
	EventEscrowAdvanced  = "escrow.advanced"
	EventEscrowReset     = "escrow.reset"
	EventDocumentSigned  = "document.signed"
	EventTransactionDone = "transaction.closed"
)

// Event represents a change applied to a transaction.
type Event struct {
	ID            string            `json:"id"`
	TransactionID string            `json:"transactionId"`
	Name          string            `json:"name"`
	Path          string            `json:"path,omitempty"`
	Version       int64             `json:"version"`
	Payload       json.RawMessage   `json:"payload,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// NewEvent stamps an event for tx. Payload marshal failures leave the payload empty.
func NewEvent(tx *Transaction, name, path string, payload any) Event {
	ev := Event{
		ID:        uuid.NewString(),
		Name:      name,
		Path:      path,
		CreatedAt: time.Now().UTC(),
	}
	if tx != nil {
		ev.TransactionID = tx.ID
		ev.Version = tx.Version
		ev.CreatedAt = tx.UpdatedAt
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			ev.Payload = raw
		}
	}
	return ev
}
