package ocr

import (
	"context"
	"testing"
)

func TestTesseractEngine_Name(t *testing.T) {
	e := NewTesseractEngine(nil)
	if e.Name() != "tesseract" {
		t.Errorf("Name() = %q, want tesseract", e.Name())
	}
}

func TestRecognize_CanceledContext(t *testing.T) {
	e := NewTesseractEngine([]string{"eng"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Recognize(ctx, "unused.png"); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestRecognize_MissingFile(t *testing.T) {
	e := NewTesseractEngine([]string{"eng"})

	// Fails on the stat pre-check, before any native call
	if _, err := e.Recognize(context.Background(), "/does/not/exist.png"); err == nil {
		t.Error("expected error for missing file")
	}
}
