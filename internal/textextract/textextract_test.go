package textextract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls  [][]string
	pages  int
	ocrOut string
	failOn map[string]error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if err := f.failOn[name]; err != nil {
		return nil, []byte(name + " exploded"), err
	}
	switch name {
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i := 1; i <= f.pages; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), testPNG(), 0o600); err != nil {
				return nil, nil, err
			}
		}
	case "tesseract":
		return []byte(f.ocrOut), nil, nil
	}
	return nil, nil, nil
}

func (f *fakeRunner) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c[0] == name {
			n++
		}
	}
	return n
}

func testPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.Black)
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func TestDetectMediaType(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr bool
	}{
		{name: "pdf", data: []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n"), want: MediaTypePDF},
		{name: "png", data: testPNG(), want: MediaTypePNG},
		{name: "jpeg", data: []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, want: MediaTypeJPEG},
		{name: "plain text", data: []byte("Invoice No: 1"), wantErr: true},
		{name: "empty", data: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectMediaType(tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedMediaType)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_ExtractImage(t *testing.T) {
	ctx := context.Background()

	t.Run("ocr output is normalized", func(t *testing.T) {
		r := &fakeRunner{ocrOut: "Invoice No: 1\r\n\r\n\r\n\r\nTotal\t  5\n-----\n"}
		e := NewEngineWithRunner(Config{}, r, nil)

		res, err := e.Extract(ctx, testPNG(), MediaTypePNG)

		require.NoError(t, err)
		assert.Equal(t, "Invoice No: 1\n\nTotal 5", res.Text)
		assert.Equal(t, MethodImageOCR, res.Method)
		assert.Equal(t, MediaTypePNG, res.MediaType)
		assert.Equal(t, 1, res.Pages)
		require.Len(t, r.calls, 1)
		assert.Equal(t, "tesseract", r.calls[0][0])
		assert.Equal(t, []string{"stdout", "-l", "eng"}, r.calls[0][2:])
	})

	t.Run("preprocessing and tessdata dir", func(t *testing.T) {
		r := &fakeRunner{ocrOut: "Total 5"}
		e := NewEngineWithRunner(Config{Preprocess: true, Lang: "deu", TessdataDir: "/opt/tessdata"}, r, nil)

		res, err := e.Extract(ctx, testPNG(), MediaTypePNG)

		require.NoError(t, err)
		assert.Empty(t, res.Warnings)
		assert.Equal(t, []string{"stdout", "-l", "deu", "--tessdata-dir", "/opt/tessdata"}, r.calls[0][2:])
	})

	t.Run("undecodable image still goes to ocr", func(t *testing.T) {
		r := &fakeRunner{ocrOut: "text"}
		e := NewEngineWithRunner(Config{Preprocess: true}, r, nil)

		res, err := e.Extract(ctx, []byte{0xff, 0xd8, 0xff, 0x00}, MediaTypeJPEG)

		require.NoError(t, err)
		assert.Equal(t, "text", res.Text)
		assert.NotEmpty(t, res.Warnings)
	})

	t.Run("tesseract failure is an input error", func(t *testing.T) {
		boom := errors.New("exit status 1")
		r := &fakeRunner{failOn: map[string]error{"tesseract": boom}}
		e := NewEngineWithRunner(Config{}, r, nil)

		res, err := e.Extract(ctx, testPNG(), MediaTypePNG)

		var inErr *InputError
		require.ErrorAs(t, err, &inErr)
		assert.Equal(t, MediaTypePNG, inErr.MediaType)
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, res.Text)
	})
}

func TestEngine_ExtractPDF(t *testing.T) {
	ctx := context.Background()
	corrupt := []byte("%PDF-1.4\nthis is not really a pdf")

	t.Run("unreadable text layer falls back to ocr", func(t *testing.T) {
		r := &fakeRunner{pages: 2, ocrOut: "page text"}
		e := NewEngineWithRunner(Config{DPI: 150}, r, nil)

		res, err := e.Extract(ctx, corrupt, MediaTypePDF)

		require.NoError(t, err)
		assert.Equal(t, MethodPDFOCR, res.Method)
		assert.Equal(t, 2, res.Pages)
		assert.Equal(t, "page text\n\f\npage text", res.Text)
		assert.Equal(t, 1, r.count("pdftoppm"))
		assert.Equal(t, 2, r.count("tesseract"))
		assert.Equal(t, []string{"pdftoppm", "-r", "150", "-png"}, r.calls[0][:4])
		assert.NotEmpty(t, res.Warnings)
	})

	t.Run("page limit", func(t *testing.T) {
		r := &fakeRunner{pages: 3, ocrOut: "p"}
		e := NewEngineWithRunner(Config{MaxPages: 1}, r, nil)

		res, err := e.Extract(ctx, corrupt, MediaTypePDF)

		require.NoError(t, err)
		assert.Equal(t, 1, res.Pages)
		assert.Equal(t, 1, r.count("tesseract"))
	})

	t.Run("rasterization failure is an input error", func(t *testing.T) {
		r := &fakeRunner{failOn: map[string]error{"pdftoppm": errors.New("exit status 99")}}
		e := NewEngineWithRunner(Config{}, r, nil)

		_, err := e.Extract(ctx, corrupt, MediaTypePDF)

		var inErr *InputError
		assert.ErrorAs(t, err, &inErr)
		assert.Equal(t, 0, r.count("tesseract"))
	})

	t.Run("no rendered pages", func(t *testing.T) {
		r := &fakeRunner{pages: 0}
		e := NewEngineWithRunner(Config{}, r, nil)

		_, err := e.Extract(ctx, corrupt, MediaTypePDF)

		var inErr *InputError
		assert.ErrorAs(t, err, &inErr)
	})

	t.Run("ocr fails on every page", func(t *testing.T) {
		r := &fakeRunner{pages: 2, failOn: map[string]error{"tesseract": errors.New("missing lang")}}
		e := NewEngineWithRunner(Config{}, r, nil)

		_, err := e.Extract(ctx, corrupt, MediaTypePDF)

		var inErr *InputError
		assert.ErrorAs(t, err, &inErr)
	})
}

func TestEngine_UnsupportedMediaType(t *testing.T) {
	e := NewEngineWithRunner(Config{}, &fakeRunner{}, nil)

	_, err := e.Extract(context.Background(), []byte("GIF89a"), "image/gif")

	assert.ErrorIs(t, err, ErrUnsupportedMediaType)
	var inErr *InputError
	assert.False(t, errors.As(err, &inErr))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "a b\n\nc", Normalize("  a \t  b  \r\n\r\n\r\n\r\nc  \n"))
	assert.Equal(t, "Date: 12/01/2024", Normalize("Date:  12/01/2024"))
}
