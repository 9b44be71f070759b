// Package service implements the invoice use cases: processing an upload
// into a stored record, listing, fetching and exporting records.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"invoicescan/internal/export"
	"invoicescan/internal/extract"
	"invoicescan/internal/model"
	"invoicescan/internal/recordstore"
	"invoicescan/internal/repository"
	"invoicescan/internal/storage"
	"invoicescan/internal/textextract"
)

var (
	ErrReaderNil        = errors.New("reader is nil")
	ErrFilenameRequired = errors.New("filename is required")
	ErrTooLarge         = errors.New("document exceeds upload limit")
	ErrHandleRequired   = errors.New("handle is required")
	ErrNotFound         = errors.New("invoice not found")
)

// WarningNoText is attached to a result whose document yielded no text.
const WarningNoText = "could not read document"

const (
	DefaultMaxUploadBytes = 20 << 20
	DefaultUploadsPrefix  = "uploads"

	defaultLimit  = 10
	presignExpiry = 15 * time.Minute
)

var tracer = otel.Tracer("invoicescan/internal/service")

// ProcessResult is the outcome of one upload.
type ProcessResult struct {
	Handle  string               `json:"handle"`
	Record  *model.InvoiceRecord `json:"record"`
	Warning string               `json:"warning,omitempty"`
}

// InvoiceListResult is the service-level DTO for paginated invoices.
type InvoiceListResult struct {
	Items []model.InvoiceSummary `json:"data"`
	Total int                    `json:"total"`
}

// ExportResult is a rendered download.
type ExportResult struct {
	Data        []byte
	ContentType string
	Filename    string
}

// SourceResult locates an uploaded original: either a presigned URL or a stream.
type SourceResult struct {
	URL         string
	Body        io.ReadCloser
	ContentType string
	Filename    string
}

// InvoiceService defines the use cases for handling invoices.
type InvoiceService interface {
	// Process stores the upload, extracts its text and fields, and persists one record.
	// A document that yields no text still produces a record, with a warning.
	Process(ctx context.Context, r io.Reader, filename, contentType string, size int64) (*ProcessResult, error)

	// List returns record summaries using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*InvoiceListResult, error)

	// Get returns a single record by its handle.
	Get(ctx context.Context, handle string) (*model.InvoiceRecord, error)

	// Export renders the given records, or every stored record when handles is empty.
	Export(ctx context.Context, handles []string, format export.Format) (*ExportResult, error)

	// Source returns the original upload behind a record.
	Source(ctx context.Context, handle string) (*SourceResult, error)

	// Ping checks the dependencies needed to serve requests.
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the invoice service. Index and Metrics are optional.
type Deps struct {
	Objects storage.Storage
	Records *recordstore.Store
	Text    textextract.Extractor
	Index   repository.InvoiceIndex
	Metrics *Metrics
	Logger  *zap.Logger

	MaxUploadBytes int64
	UploadsPrefix  string
}

type invoiceService struct {
	objects  storage.Storage
	records  *recordstore.Store
	text     textextract.Extractor
	index    repository.InvoiceIndex
	metrics  *Metrics
	log      *zap.Logger
	maxBytes int64
	uploads  string
}

// NewInvoiceService constructs a new InvoiceService.
func NewInvoiceService(d Deps) InvoiceService {
	s := &invoiceService{
		objects:  d.Objects,
		records:  d.Records,
		text:     d.Text,
		index:    d.Index,
		metrics:  d.Metrics,
		log:      d.Logger,
		maxBytes: d.MaxUploadBytes,
		uploads:  strings.Trim(d.UploadsPrefix, "/"),
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.maxBytes <= 0 {
		s.maxBytes = DefaultMaxUploadBytes
	}
	if s.uploads == "" {
		s.uploads = DefaultUploadsPrefix
	}
	return s
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case textextract.MediaTypePDF:
		return ".pdf"
	case textextract.MediaTypeJPEG:
		return ".jpg"
	case textextract.MediaTypePNG:
		return ".png"
	default:
		return ""
	}
}

func (s *invoiceService) Process(ctx context.Context, r io.Reader, filename, contentType string, size int64) (res *ProcessResult, err error) {
	ctx, span := tracer.Start(ctx, "InvoiceService.Process")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "process failed")
		}
		span.End()
	}()

	if r == nil {
		return nil, ErrReaderNil
	}
	if strings.TrimSpace(filename) == "" {
		return nil, ErrFilenameRequired
	}
	if size > s.maxBytes {
		s.metrics.observeOutcome(OutcomeRejected)
		return nil, ErrTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		s.metrics.observeOutcome(OutcomeError)
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		s.metrics.observeOutcome(OutcomeRejected)
		return nil, ErrTooLarge
	}

	mediaType, err := textextract.DetectMediaType(data)
	if err != nil {
		s.metrics.observeOutcome(OutcomeRejected)
		return nil, err
	}

	handle := s.records.NewHandle(filename)
	span.SetAttributes(
		attribute.String("invoice.handle", handle),
		attribute.String("invoice.media_type", mediaType),
		attribute.Int("invoice.size", len(data)),
	)
	log := s.log.With(zap.String("handle", handle), zap.String("media_type", mediaType))

	uploadKey := s.uploads + "/" + handle + extensionFor(mediaType)
	if _, err := s.objects.Put(ctx, uploadKey, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: mediaType,
		Metadata: map[string]string{
			"original-filename": filename,
			"declared-type":     contentType,
		},
	}); err != nil {
		s.metrics.observeOutcome(OutcomeWriteError)
		return nil, &recordstore.WriteError{Handle: handle, Err: fmt.Errorf("store upload: %w", err)}
	}

	text, warning, err := s.extractText(ctx, data, mediaType)
	if err != nil {
		s.rollbackUpload(ctx, log, uploadKey)
		s.metrics.observeOutcome(OutcomeError)
		return nil, err
	}

	fields := extract.Extract(text.Text)
	rec := model.NewInvoiceRecord(filename, text.Text, fields)
	rec.MediaType = mediaType
	rec.SourceKey = uploadKey
	if warning == "" {
		rec.ExtractionMethod = text.Method
	}

	_, saveSpan := tracer.Start(ctx, "recordstore.SaveAs")
	err = s.records.SaveAs(ctx, handle, rec)
	saveSpan.End()
	if err != nil {
		s.rollbackUpload(ctx, log, uploadKey)
		s.metrics.observeOutcome(OutcomeWriteError)
		return nil, err
	}

	if s.index != nil {
		summary := rec.Summary(handle)
		if err := s.index.Create(ctx, &summary); err != nil {
			if discardErr := s.records.Discard(ctx, handle); discardErr != nil {
				log.Error("rollback record failed", zap.Error(discardErr))
			}
			s.rollbackUpload(ctx, log, uploadKey)
			s.metrics.observeOutcome(OutcomeError)
			return nil, fmt.Errorf("index record: %w", err)
		}
	}

	s.metrics.observeFields(rec.Fields())
	if warning != "" {
		s.metrics.observeOutcome(OutcomeNoText)
	} else {
		s.metrics.observeOutcome(OutcomeOK)
	}
	log.Info("invoice processed",
		zap.String("source_filename", filename),
		zap.String("method", rec.ExtractionMethod),
		zap.Bool("invoice_number", fields.InvoiceNumber != nil),
		zap.Bool("invoice_date", fields.InvoiceDate != nil),
		zap.Bool("total_amount", fields.TotalAmount != nil),
	)

	return &ProcessResult{Handle: handle, Record: &rec, Warning: warning}, nil
}

// extractText returns a warning instead of an error when the document is unreadable.
func (s *invoiceService) extractText(ctx context.Context, data []byte, mediaType string) (textextract.Result, string, error) {
	ctx, span := tracer.Start(ctx, "textextract.Extract")
	defer span.End()

	res, err := s.text.Extract(ctx, data, mediaType)
	if err == nil {
		span.SetAttributes(attribute.String("text.method", res.Method), attribute.Int("text.pages", res.Pages))
		return res, "", nil
	}
	var inErr *textextract.InputError
	if errors.As(err, &inErr) {
		span.AddEvent("document unreadable")
		s.log.Warn("document unreadable, storing record without text", zap.Error(err))
		return textextract.Result{MediaType: mediaType}, WarningNoText, nil
	}
	span.RecordError(err)
	return textextract.Result{}, "", fmt.Errorf("extract text: %w", err)
}

func (s *invoiceService) rollbackUpload(ctx context.Context, log *zap.Logger, key string) {
	if err := s.objects.Delete(ctx, key); err != nil {
		log.Error("rollback upload failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *invoiceService) List(ctx context.Context, limit, offset int) (*InvoiceListResult, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}

	if s.index != nil {
		res, err := s.index.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
		if err != nil {
			return nil, err
		}
		return &InvoiceListResult{Items: res.Items, Total: res.Total}, nil
	}

	handles, err := s.records.List(ctx)
	if err != nil {
		return nil, err
	}
	out := &InvoiceListResult{Items: make([]model.InvoiceSummary, 0), Total: len(handles)}
	if offset >= len(handles) {
		return out, nil
	}
	end := min(offset+limit, len(handles))
	for _, h := range handles[offset:end] {
		rec, err := s.records.Load(ctx, h)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, rec.Summary(h))
	}
	return out, nil
}

func (s *invoiceService) Get(ctx context.Context, handle string) (*model.InvoiceRecord, error) {
	if handle == "" {
		return nil, ErrHandleRequired
	}
	if !recordstore.ValidHandle(handle) {
		return nil, recordstore.ErrInvalidHandle
	}
	// with an index configured, only indexed records are visible
	if s.index != nil {
		if _, err := s.index.FindByHandle(ctx, handle); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("index lookup: %w", err)
		}
	}
	rec, err := s.records.Load(ctx, handle)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *invoiceService) Export(ctx context.Context, handles []string, format export.Format) (*ExportResult, error) {
	ctx, span := tracer.Start(ctx, "InvoiceService.Export")
	defer span.End()

	if len(handles) == 0 {
		all, err := s.records.List(ctx)
		if err != nil {
			return nil, err
		}
		handles = all
	}
	span.SetAttributes(attribute.String("export.format", string(format)), attribute.Int("export.records", len(handles)))

	records := make([]model.InvoiceRecord, 0, len(handles))
	for _, h := range handles {
		rec, err := s.Get(ctx, h)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", h, err)
		}
		records = append(records, *rec)
	}

	data, err := export.Export(records, format)
	if err != nil {
		return nil, err
	}

	name := "invoices"
	if len(handles) == 1 {
		name = handles[0]
	}
	return &ExportResult{
		Data:        data,
		ContentType: export.ContentType(format),
		Filename:    name + export.Extension(format),
	}, nil
}

func (s *invoiceService) Source(ctx context.Context, handle string) (*SourceResult, error) {
	rec, err := s.Get(ctx, handle)
	if err != nil {
		return nil, err
	}
	if rec.SourceKey == "" {
		return nil, ErrNotFound
	}

	if url, err := s.objects.PresignGet(ctx, rec.SourceKey, presignExpiry); err == nil {
		return &SourceResult{URL: url, Filename: rec.SourceFilename}, nil
	}

	body, info, err := s.objects.Get(ctx, rec.SourceKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	ct := rec.MediaType
	if ct == "" {
		ct = info.ContentType
	}
	return &SourceResult{Body: body, ContentType: ct, Filename: rec.SourceFilename}, nil
}

func (s *invoiceService) Ping(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	return s.index.Ping(ctx)
}
