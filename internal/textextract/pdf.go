package textextract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

func (e *Engine) extractPDF(ctx context.Context, data []byte) (Result, error) {
	text, pages, err := pdfTextLayer(data)
	if err == nil && strings.TrimSpace(text) != "" {
		return Result{Text: text, Pages: pages, Method: MethodPDFText}, nil
	}

	var warns []string
	if err != nil {
		warns = append(warns, "text layer unreadable: "+err.Error())
	} else {
		warns = append(warns, "no embedded text found, running OCR")
	}
	e.logger.Info("falling back to pdf ocr", zap.Int("pages", pages), zap.NamedError("text_layer_error", err))

	text, pages, w, err := e.pdfOCR(ctx, data)
	warns = append(warns, w...)
	if err != nil {
		return Result{Pages: pages, Warnings: warns}, err
	}
	return Result{Text: text, Pages: pages, Method: MethodPDFOCR, Warnings: warns}, nil
}

// pdfTextLayer concatenates the plain text of every page. The pdf reader
// panics on some malformed inputs, so panics are turned into errors.
func pdfTextLayer(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, err
	}
	pages = r.NumPage()

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		t, err := p.GetPlainText(nil)
		if err != nil {
			return "", pages, fmt.Errorf("page %d: %w", i, err)
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t)
	}
	return b.String(), pages, nil
}

func (e *Engine) pdfOCR(ctx context.Context, data []byte) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "invoicescan-pdf-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("failed to remove temp dir", zap.String("dir", tmpDir), zap.Error(rmErr))
		}
	}()

	in := filepath.Join(tmpDir, "document.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return "", 0, nil, err
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", in, prefix)
	if err != nil {
		return "", 0, []string{string(errb)}, fmt.Errorf("pdftoppm: %w", err)
	}

	// prefix-1.png, prefix-2.png, ... (zero padded for larger documents)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		warnings = append(warnings, fmt.Sprintf("only the first %d of %d pages were read", e.cfg.MaxPages, len(matches)))
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, append(warnings, "pdftoppm produced no images"), fmt.Errorf("no pages rendered")
	}

	var (
		b      strings.Builder
		failed int
	)
	for _, img := range matches {
		if e.cfg.Preprocess {
			if err := preprocessFile(img); err != nil {
				warnings = append(warnings, err.Error())
			}
		}
		txt, w, err := e.tesseractOCR(ctx, img)
		warnings = append(warnings, w...)
		if err != nil {
			warnings = append(warnings, err.Error())
			failed++
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(txt)
	}
	if failed == len(matches) {
		return "", len(matches), warnings, fmt.Errorf("ocr failed on all %d pages", len(matches))
	}
	return b.String(), len(matches), warnings, nil
}
