package textextract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"
)

var reBoxNoise = regexp.MustCompile(`(?m)^\s*[_\-]{3,}\s*$`)

func (e *Engine) extractImage(ctx context.Context, data []byte, mediaType string) (Result, error) {
	tmpDir, err := os.MkdirTemp("", "invoicescan-img-*")
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("failed to remove temp dir", zap.String("dir", tmpDir), zap.Error(rmErr))
		}
	}()

	ext := ".png"
	if mediaType == MediaTypeJPEG {
		ext = ".jpg"
	}
	path := filepath.Join(tmpDir, "document"+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Result{}, err
	}

	var warns []string
	if e.cfg.Preprocess {
		if err := preprocessFile(path); err != nil {
			// a file the decoder rejects is handed to tesseract unchanged
			warns = append(warns, err.Error())
		}
	}

	txt, w, err := e.tesseractOCR(ctx, path)
	warns = append(warns, w...)
	if err != nil {
		return Result{Warnings: warns}, err
	}
	return Result{Text: txt, Pages: 1, Method: MethodImageOCR, Warnings: warns}, nil
}

func (e *Engine) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	args := []string{path, "stdout", "-l", e.cfg.Lang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil, nil
}
