package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine implements Engine using the gosseract client.
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
	languages     []string
}

// NewTesseractEngine constructs a Tesseract-backed OCR engine.
// Languages are BCP-47 trained-data hints (e.g. "eng"); empty means
// the Tesseract default.
func NewTesseractEngine(languages []string) *TesseractEngine {
	return &TesseractEngine{
		clientFactory: gosseract.NewClient,
		languages:     languages,
	}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize performs OCR on the image at path.
// A fresh client is used per call; gosseract clients are not safe for
// concurrent reuse.
func (e *TesseractEngine) Recognize(ctx context.Context, path string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	// Surface unreadable files before handing off to the C library
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImage(path); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
