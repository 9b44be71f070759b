// Package recordstore persists processed invoice records as one JSON object
// per upload and reads them back by handle.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"invoicescan/internal/model"
	"invoicescan/internal/storage"

	"github.com/google/uuid"
)

const (
	DefaultPrefix = "processed"

	maxStemLen = 64
	recordExt  = ".json"
)

var (
	ErrInvalidHandle = errors.New("invalid record handle")
	ErrNotFound      = errors.New("record not found")
)

var (
	reHandle  = regexp.MustCompile(`^[a-z0-9_]{1,64}-\d{8}T\d{6}Z-[0-9a-f]{8}$`)
	reNonStem = regexp.MustCompile(`[^a-z0-9]+`)
)

// WriteError reports a record that could not be persisted. Nothing is left
// behind under the handle when it is returned.
type WriteError struct {
	Handle string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write record %s: %v", e.Handle, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Store is a record store over an object storage backend.
type Store struct {
	objects storage.Storage
	prefix  string
	now     func() time.Time
	suffix  func() string
}

// Option customizes a Store.
type Option func(*Store)

// WithClock sets the time source used for new handles.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSuffix sets the source of the random handle suffix. It must return 8 lowercase hex chars.
func WithSuffix(suffix func() string) Option {
	return func(s *Store) { s.suffix = suffix }
}

// New returns a Store keeping records under prefix in objects. An empty prefix means DefaultPrefix.
func New(objects storage.Storage, prefix string, opts ...Option) *Store {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	s := &Store{
		objects: objects,
		prefix:  prefix,
		now:     time.Now,
		suffix:  randomSuffix,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// NewHandle derives a fresh handle from the upload's filename.
func (s *Store) NewHandle(filename string) string {
	return fmt.Sprintf("%s-%s-%s", stem(filename), s.now().UTC().Format("20060102T150405Z"), s.suffix())
}

func stem(filename string) string {
	st := strings.Trim(reNonStem.ReplaceAllString(strings.ToLower(filename), "_"), "_")
	if len(st) > maxStemLen {
		st = strings.TrimRight(st[:maxStemLen], "_")
	}
	if st == "" {
		return "invoice"
	}
	return st
}

// ValidHandle reports whether h has the shape produced by NewHandle.
func ValidHandle(h string) bool {
	return reHandle.MatchString(h)
}

func (s *Store) key(h string) string {
	return s.prefix + "/" + h + recordExt
}

// Save persists rec under a new handle derived from its source filename.
func (s *Store) Save(ctx context.Context, rec model.InvoiceRecord) (string, error) {
	h := s.NewHandle(rec.SourceFilename)
	if err := s.SaveAs(ctx, h, rec); err != nil {
		return "", err
	}
	return h, nil
}

// SaveAs persists rec under a handle obtained earlier from NewHandle.
func (s *Store) SaveAs(ctx context.Context, h string, rec model.InvoiceRecord) error {
	if !ValidHandle(h) {
		return &WriteError{Handle: h, Err: ErrInvalidHandle}
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return &WriteError{Handle: h, Err: err}
	}
	_, err = s.objects.Put(ctx, s.key(h), bytes.NewReader(b), storage.PutObjectOptions{
		Size:        int64(len(b)),
		ContentType: "application/json",
	})
	if err != nil {
		return &WriteError{Handle: h, Err: err}
	}
	return nil
}

// List returns the handles of all stored records in lexical key order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	keys, err := s.objects.List(ctx, s.prefix+"/")
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	handles := make([]string, 0, len(keys))
	for _, k := range keys {
		name := strings.TrimPrefix(k, s.prefix+"/")
		if !strings.HasSuffix(name, recordExt) {
			continue
		}
		h := strings.TrimSuffix(name, recordExt)
		if ValidHandle(h) {
			handles = append(handles, h)
		}
	}
	return handles, nil
}

// Load reads the record stored under h.
func (s *Store) Load(ctx context.Context, h string) (*model.InvoiceRecord, error) {
	if !ValidHandle(h) {
		return nil, ErrInvalidHandle
	}
	rc, _, err := s.objects.Get(ctx, s.key(h))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read record %s: %w", h, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", h, err)
	}
	var rec model.InvoiceRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", h, err)
	}
	return &rec, nil
}

// Discard removes the record stored under h. It is used to undo a Save whose
// follow-up steps failed.
func (s *Store) Discard(ctx context.Context, h string) error {
	if !ValidHandle(h) {
		return ErrInvalidHandle
	}
	return s.objects.Delete(ctx, s.key(h))
}
