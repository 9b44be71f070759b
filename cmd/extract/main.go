// Command extract runs the invoice pipeline on one local file and prints the
// result as CSV or JSON, without storing anything.
//
// Usage: extract <file> [csv|json]
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"invoicescan/internal/config"
	"invoicescan/internal/export"
	"invoicescan/internal/extract"
	"invoicescan/internal/logger"
	"invoicescan/internal/model"
	"invoicescan/internal/textextract"
)

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		fmt.Fprintln(os.Stderr, "usage: extract <file> [csv|json]")
		os.Exit(2)
	}
	format := export.FormatJSON
	if len(os.Args) == 3 {
		f, err := export.ParseFormat(os.Args[2])
		if err != nil || f == export.FormatXLSX {
			fmt.Fprintln(os.Stderr, "format must be csv or json")
			os.Exit(2)
		}
		format = f
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, logger.Location(cfg.Timezone))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	path := os.Args[1]
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal("read file", zap.String("path", path), zap.Error(err))
	}
	mediaType, err := textextract.DetectMediaType(data)
	if err != nil {
		log.Fatal("unsupported file", zap.String("path", path), zap.Error(err))
	}

	timeout := time.Duration(cfg.OCR.TimeoutSec) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout+10*time.Second)
	defer cancel()

	engine := textextract.NewEngine(textextract.Config{
		Pdftoppm:    cfg.OCR.Pdftoppm,
		Tesseract:   cfg.OCR.Tesseract,
		Lang:        cfg.OCR.Lang,
		TessdataDir: cfg.OCR.TessdataDir,
		DPI:         cfg.OCR.DPI,
		MaxPages:    cfg.OCR.MaxPages,
		Preprocess:  cfg.OCR.Preprocess,
		Timeout:     timeout,
	}, log)

	res, err := engine.Extract(ctx, data, mediaType)
	if err != nil {
		// an unreadable document still yields a record with no fields
		log.Warn("could not read document", zap.Error(err))
	}
	for _, w := range res.Warnings {
		log.Warn("extraction warning", zap.String("warning", w))
	}

	rec := model.NewInvoiceRecord(filepath.Base(path), res.Text, extract.Extract(res.Text))
	rec.MediaType = mediaType
	rec.ExtractionMethod = res.Method
	out, err := export.Export([]model.InvoiceRecord{rec}, format)
	if err != nil {
		log.Fatal("export", zap.Error(err))
	}
	os.Stdout.Write(out)
}
