package textextract

import (
	"fmt"

	"github.com/disintegration/imaging"
)

// preprocessFile rewrites the image at path in place with settings that
// help tesseract on phone photos and low-contrast scans.
func preprocessFile(path string) error {
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("preprocess: open image: %w", err)
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 20)
	img = imaging.Sharpen(img, 1.0)

	// Upscale small images; tesseract wants roughly 300 DPI text.
	if b := img.Bounds(); b.Dx() < 1000 {
		img = imaging.Resize(img, 1000, 0, imaging.Lanczos)
	}

	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("preprocess: save image: %w", err)
	}
	return nil
}
