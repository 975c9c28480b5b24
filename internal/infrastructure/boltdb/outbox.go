package boltdb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

const (
	EntityTransaction = "transaction"

	OperationArchive = "archive"
)

// Item is an operation waiting for the archive database to accept it.
type Item struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transactionId"`
	Entity        string          `json:"entity"`
	Operation     string          `json:"operation"`
	Data          json.RawMessage `json:"data"`
	Priority      int             `json:"priority"`
	Retries       int             `json:"retries"`
	Timestamp     time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority <= 0 || i.Priority > 5 {
		i.Priority = 3
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}

// Outbox is a priority-ordered queue kept in one bucket of the DB.
type Outbox struct {
	db     *DB
	bucket []byte
}

// NewOutbox returns a queue over bucket, defaulting to BucketOutbox.
func NewOutbox(db *DB, bucket string) *Outbox {
	if bucket == "" {
		bucket = BucketOutbox
	}
	return &Outbox{db: db, bucket: []byte(bucket)}
}

// Enqueue stores an item using a priority-aware key.
func (o *Outbox) Enqueue(item Item) error {
	if o == nil || o.db == nil || o.db.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	item.normalize()
	item.bucketKey = []byte(buildKey(item))

	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}

	return o.db.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(o.bucket).Put(item.bucketKey, payload)
	})
}

// GetBatch returns up to limit items without removing them.
func (o *Outbox) GetBatch(limit int) ([]Item, error) {
	if o == nil || o.db == nil || o.db.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var items []Item
	err := o.db.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(o.bucket).Cursor()
		for k, v := c.First(); k != nil && len(items) < limit; k, v = c.Next() {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			item.bucketKey = append([]byte(nil), k...)
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

// Remove deletes the provided item from the queue.
func (o *Outbox) Remove(item Item) error {
	if o == nil || o.db == nil || o.db.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if len(item.bucketKey) == 0 {
		return o.deleteByID(item.ID)
	}
	return o.db.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(o.bucket).Delete(item.bucketKey)
	})
}

// Requeue re-inserts an item after bumping its timestamp.
func (o *Outbox) Requeue(item Item) error {
	item.bucketKey = nil
	item.Timestamp = time.Now()
	return o.Enqueue(item)
}

// Size returns the number of queued items.
func (o *Outbox) Size() (int, error) {
	if o == nil || o.db == nil || o.db.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := o.db.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(o.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Cleanup removes items older than the provided timestamp.
func (o *Outbox) Cleanup(olderThan time.Time) error {
	if o == nil || o.db == nil || o.db.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return o.db.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(o.bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			if item.Timestamp.Before(olderThan) {
				if err := c.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (o *Outbox) deleteByID(id string) error {
	if id == "" {
		return nil
	}
	return o.db.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(o.bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			if item.ID == id {
				return c.Delete()
			}
		}
		return nil
	})
}

func buildKey(item Item) string {
	return fmt.Sprintf("%d_%020d_%s", item.Priority, item.Timestamp.UnixNano(), item.ID)
}
