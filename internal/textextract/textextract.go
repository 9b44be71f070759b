// Package textextract produces plain text from uploaded invoice documents.
// PDFs are read from their text layer first; scanned PDFs and images go
// through OCR with the external pdftoppm and tesseract binaries.
package textextract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const (
	MediaTypePDF  = "application/pdf"
	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"

	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
	MethodImageOCR = "image-ocr"
)

var ErrUnsupportedMediaType = errors.New("unsupported media type")

// InputError reports that no text could be produced from a document
// (corrupt file, unsupported encoding, OCR unavailable).
type InputError struct {
	MediaType string
	Err       error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("could not read %s document: %v", e.MediaType, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// Result is the text produced from one document.
type Result struct {
	Text      string
	Pages     int
	MediaType string
	Method    string
	Duration  time.Duration
	Warnings  []string
}

// Extractor turns document bytes of a sniffed media type into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mediaType string) (Result, error)
}

// DetectMediaType sniffs the document content and accepts only PDF, JPEG and PNG.
func DetectMediaType(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	for _, allowed := range []string{MediaTypePDF, MediaTypeJPEG, MediaTypePNG} {
		if mt.Is(allowed) {
			return allowed, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mt.String())
}

// Config controls the OCR toolchain.
type Config struct {
	Pdftoppm    string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "eng"
	TessdataDir string
	DPI         int // rasterization DPI for scanned PDFs, default 300
	MaxPages    int // 0 = no limit
	Preprocess  bool
	Timeout     time.Duration
}

// Engine is the default Extractor.
type Engine struct {
	cfg    Config
	runner Runner
	logger *zap.Logger
}

func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	return NewEngineWithRunner(cfg, execRunner{logger: logger}, logger)
}

// NewEngineWithRunner builds an Engine that runs external commands through r.
func NewEngineWithRunner(cfg Config, r Runner, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Engine{cfg: cfg, runner: r, logger: logger}
}

var _ Extractor = (*Engine)(nil)

// Extract picks a strategy based on the sniffed media type.
func (e *Engine) Extract(ctx context.Context, data []byte, mediaType string) (Result, error) {
	start := time.Now()
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	var (
		res Result
		err error
	)
	switch mediaType {
	case MediaTypePDF:
		res, err = e.extractPDF(ctx, data)
	case MediaTypeJPEG, MediaTypePNG:
		res, err = e.extractImage(ctx, data, mediaType)
	default:
		return Result{MediaType: mediaType}, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mediaType)
	}
	res.MediaType = mediaType
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Warn("text extraction failed",
			zap.String("media_type", mediaType),
			zap.Strings("warnings", res.Warnings),
			zap.Error(err),
		)
		return res, &InputError{MediaType: mediaType, Err: err}
	}
	res.Text = Normalize(res.Text)
	e.logger.Debug("text extraction ok",
		zap.String("media_type", mediaType),
		zap.String("method", res.Method),
		zap.Int("pages", res.Pages),
		zap.Int("chars", len(res.Text)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}
