package boltdb

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	BucketTransactions = "transactions"
	BucketJournal      = "journal"
	BucketOutbox       = "outbox"
)

// DB wraps a BoltDB file holding the local transaction slot, its journal and the archive outbox.
type DB struct {
	db *bolt.DB
}

// Open initializes the BoltDB file and ensures the buckets exist.
func Open(path string, buckets ...string) (*DB, error) {
	if len(buckets) == 0 {
		buckets = []string{BucketTransactions, BucketJournal, BucketOutbox}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db}, nil
}

// Get returns a copy of the value stored under key, or nil when absent.
func (d *DB) Get(bucket, key string) ([]byte, error) {
	if d == nil || d.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	var out []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		b, err := d.bucket(tx, bucket)
		if err != nil {
			return err
		}
		if v := b.Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

func (d *DB) Put(bucket, key string, value []byte) error {
	if d == nil || d.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		b, err := d.bucket(tx, bucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
}

func (d *DB) Delete(bucket, key string) error {
	if d == nil || d.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		b, err := d.bucket(tx, bucket)
		if err != nil {
			return err
		}
		return b.Delete([]byte(key))
	})
}

// Append stores value under prefix followed by the bucket sequence, keeping insertion order per prefix.
func (d *DB) Append(bucket, prefix string, value []byte) error {
	if d == nil || d.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		b, err := d.bucket(tx, bucket)
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put([]byte(fmt.Sprintf("%s%020d", prefix, seq)), value)
	})
}

// Scan visits every entry whose key starts with prefix, in key order.
func (d *DB) Scan(bucket, prefix string, fn func(key, value []byte) error) error {
	if d == nil || d.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return d.db.View(func(tx *bolt.Tx) error {
		b, err := d.bucket(tx, bucket)
		if err != nil {
			return err
		}
		p := []byte(prefix)
		c := b.Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			if err := fn(k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeletePrefix removes every entry whose key starts with prefix.
func (d *DB) DeletePrefix(bucket, prefix string) error {
	if d == nil || d.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		b, err := d.bucket(tx, bucket)
		if err != nil {
			return err
		}
		p := []byte(prefix)
		c := b.Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Seek(p) {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

// Ping verifies the file is still readable.
func (d *DB) Ping() error {
	if d == nil || d.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return d.db.View(func(*bolt.Tx) error { return nil })
}

// Close closes the Bolt database.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Stats exposes Bolt statistics for monitoring endpoints.
func (d *DB) Stats() bolt.Stats {
	if d == nil || d.db == nil {
		return bolt.Stats{}
	}
	return d.db.Stats()
}

// Path returns the backing file location.
func (d *DB) Path() string {
	if d == nil || d.db == nil {
		return ""
	}
	return d.db.Path()
}

func (d *DB) bucket(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	b := tx.Bucket([]byte(name))
	if b == nil {
		return nil, fmt.Errorf("bucket %q does not exist", name)
	}
	return b, nil
}
