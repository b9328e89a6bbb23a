// Package ner wraps the external named-entity recognition capability.
package ner

import "context"

// Span is a single tagged text span, in document order.
type Span struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Extractor is the NER provider contract: text in, ordered spans out.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, text string) ([]Span, error)
}
