// Package bolt implements the invoice index on a local bbolt file, for
// single-node deployments without PostgreSQL.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"invoicescan/internal/model"
	"invoicescan/internal/repository"

	bolt "go.etcd.io/bbolt"
)

var (
	invoicesBucket = []byte("invoices")
	byTimeBucket   = []byte("invoices_by_time")
)

// timeKeyLayout sorts lexically in chronological order.
const timeKeyLayout = "20060102T150405.000000000Z"

// InvoiceBolt stores one JSON summary per handle and a secondary
// processed_at index used for newest-first listing.
type InvoiceBolt struct {
	db *bolt.DB
}

var _ repository.InvoiceIndex = (*InvoiceBolt)(nil)

// Open opens (or creates) the index file at path.
func Open(path string) (*InvoiceBolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{invoicesBucket, byTimeBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &InvoiceBolt{db: db}, nil
}

// Close closes the underlying database file.
func (b *InvoiceBolt) Close() error {
	return b.db.Close()
}

func timeKey(s *model.InvoiceSummary) []byte {
	return []byte(s.ProcessedAt.UTC().Format(timeKeyLayout) + "|" + s.Handle)
}

func (b *InvoiceBolt) Create(ctx context.Context, s *model.InvoiceSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		inv := tx.Bucket(invoicesBucket)
		if inv.Get([]byte(s.Handle)) != nil {
			return repository.ErrDuplicate
		}
		if err := inv.Put([]byte(s.Handle), val); err != nil {
			return err
		}
		return tx.Bucket(byTimeBucket).Put(timeKey(s), []byte(s.Handle))
	})
}

func (b *InvoiceBolt) FindByHandle(ctx context.Context, handle string) (*model.InvoiceSummary, error) {
	var s *model.InvoiceSummary
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(invoicesBucket).Get([]byte(handle))
		if v == nil {
			return repository.ErrNotFound
		}
		s = new(model.InvoiceSummary)
		return json.Unmarshal(v, s)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (b *InvoiceBolt) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.InvoiceSummary], error) {
	res := &repository.PageResult[model.InvoiceSummary]{Items: make([]model.InvoiceSummary, 0)}
	err := b.db.View(func(tx *bolt.Tx) error {
		inv := tx.Bucket(invoicesBucket)
		res.Total = inv.Stats().KeyN

		c := tx.Bucket(byTimeBucket).Cursor()
		skipped := 0
		for k, h := c.Last(); k != nil && len(res.Items) < pq.Limit; k, h = c.Prev() {
			if skipped < pq.Offset {
				skipped++
				continue
			}
			v := inv.Get(h)
			if v == nil {
				continue
			}
			var s model.InvoiceSummary
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("decode %s: %w", h, err)
			}
			res.Items = append(res.Items, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Ping reports an error once the database has been closed.
func (b *InvoiceBolt) Ping(ctx context.Context) error {
	return b.db.View(func(tx *bolt.Tx) error { return nil })
}
