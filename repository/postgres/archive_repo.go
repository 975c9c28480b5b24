package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/repository"
)

type archiveRepository struct {
	pool *pgxpool.Pool
}

// NewArchiveRepository creates a Postgres-backed ArchiveRepository implementation.
func NewArchiveRepository(pool *pgxpool.Pool) repository.ArchiveRepository {
	return &archiveRepository{pool: pool}
}

func (r *archiveRepository) Archive(ctx context.Context, tx *domain.Transaction, events []domain.Event) error {
	if tx == nil || tx.ID == "" {
		return domain.ErrInvalidPayload
	}
	payload, err := domain.Encode(tx)
	if err != nil {
		return err
	}

	const upsert = `
	INSERT INTO transaction_archive (id, role, status, vessel, price, closed_at, version, payload, archived_at)
	VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, NOW())
	ON CONFLICT (id) DO UPDATE
	SET status = EXCLUDED.status,
		vessel = EXCLUDED.vessel,
		price = EXCLUDED.price,
		closed_at = EXCLUDED.closed_at,
		version = EXCLUDED.version,
		payload = EXCLUDED.payload,
		archived_at = NOW()
	`
	const insertEvent = `
	INSERT INTO transaction_archive_events (id, transaction_id, name, path, version, payload, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
	ON CONFLICT (id) DO NOTHING
	`

	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = dbTx.Rollback(ctx) }()

	if _, err := dbTx.Exec(ctx, upsert,
		tx.ID,
		string(tx.Role),
		string(tx.Status),
		vesselLabel(tx),
		priceText(tx),
		tx.ClosedAt,
		tx.Version,
		payload,
	); err != nil {
		return err
	}

	for _, ev := range events {
		if _, err := dbTx.Exec(ctx, insertEvent,
			ev.ID,
			tx.ID,
			ev.Name,
			ev.Path,
			ev.Version,
			nullJSON(ev.Payload),
			marshalMap(ev.Metadata),
			nullTime(ev.CreatedAt),
		); err != nil {
			return err
		}
	}

	return dbTx.Commit(ctx)
}

func (r *archiveRepository) Get(ctx context.Context, id string) (*repository.ArchivedTransaction, error) {
	const query = `
	SELECT payload, archived_at
	FROM transaction_archive
	WHERE id = $1
	`
	return scanArchived(r.pool.QueryRow(ctx, query, id))
}

func (r *archiveRepository) List(ctx context.Context, filter repository.ArchiveFilter) ([]repository.ArchivedTransaction, error) {
	const query = `
	SELECT payload, archived_at
	FROM transaction_archive
	WHERE ($1::timestamptz IS NULL OR closed_at > $1)
	ORDER BY closed_at DESC NULLS LAST
	LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, nullTime(filter.ClosedAfter), clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.ArchivedTransaction
	for rows.Next() {
		entry, err := scanArchived(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

func (r *archiveRepository) Events(ctx context.Context, id string) ([]domain.Event, error) {
	const query = `
	SELECT id, transaction_id, name, path, version, payload, metadata, created_at
	FROM transaction_archive_events
	WHERE transaction_id = $1
	ORDER BY version ASC, created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var (
			ev       domain.Event
			payload  []byte
			metadata []byte
		)
		if err := rows.Scan(&ev.ID, &ev.TransactionID, &ev.Name, &ev.Path, &ev.Version, &payload, &metadata, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			ev.Payload = append(json.RawMessage(nil), payload...)
		}
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &ev.Metadata)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func scanArchived(row interface {
	Scan(dest ...interface{}) error
}) (*repository.ArchivedTransaction, error) {
	var (
		payload    []byte
		archivedAt time.Time
	)
	if err := row.Scan(&payload, &archivedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoTransaction
		}
		return nil, err
	}
	tx, err := domain.Decode(payload)
	if err != nil {
		return nil, err
	}
	return &repository.ArchivedTransaction{Transaction: tx, ArchivedAt: archivedAt}, nil
}

func vesselLabel(tx *domain.Transaction) string {
	if tx.Vessel == nil {
		return ""
	}
	return joinNonEmpty(" ", yearText(tx.Vessel.Year), tx.Vessel.Make, tx.Vessel.Model)
}

func priceText(tx *domain.Transaction) interface{} {
	if tx.Terms == nil || tx.Terms.Price.IsZero() {
		return nil
	}
	return tx.Terms.Price.String()
}
