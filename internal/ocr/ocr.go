// Package ocr wraps the external optical character recognition
// capability behind a one-image-in, text-out contract.
package ocr

import "context"

// Engine is the OCR provider contract: an image path in, raw text out.
// The pipeline aborts when Recognize fails; there is no partial output.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, path string) (string, error)
}
