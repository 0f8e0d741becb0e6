package pdfocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "spa"

// Recognizer turns a decoded image into text.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Tesseract is a Recognizer backed by a single gosseract client.
// It is not safe for concurrent use.
type Tesseract struct {
	client *gosseract.Client
	lang   string
}

func NewTesseract(lang string) (*Tesseract, error) {
	if lang == "" {
		lang = DefaultLanguage
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("set language %q: %w", lang, err)
	}
	return &Tesseract{client: client, lang: lang}, nil
}

func (t *Tesseract) Language() string {
	return t.lang
}

// TesseractVersion reports the version of the linked Tesseract library.
func TesseractVersion() string {
	return gosseract.Version()
}

// Check verifies that Tesseract can be initialized with the configured
// language, by recognizing a blank image.
func (t *Tesseract) Check(ctx context.Context) error {
	if TesseractVersion() == "" {
		return fmt.Errorf("%w: tesseract did not report a version", ErrOCRUnavailable)
	}
	blank := image.NewGray(image.Rect(0, 0, 1, 1))
	if _, err := t.Recognize(ctx, blank); err != nil {
		return fmt.Errorf("%w: %v", ErrOCRUnavailable, err)
	}
	return nil
}

// Recognize returns the raw Tesseract output, untrimmed.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

func (t *Tesseract) Close() error {
	return t.client.Close()
}
