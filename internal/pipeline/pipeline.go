// Package pipeline composes image intake, OCR, entity extraction, and
// geocoding into one request/response cycle.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/tribalgis/claimgis/internal/claim"
	"github.com/tribalgis/claimgis/internal/errors"
	"github.com/tribalgis/claimgis/internal/geocode"
	"github.com/tribalgis/claimgis/internal/ner"
	"github.com/tribalgis/claimgis/internal/ocr"
)

// Pipeline runs the extraction cycle: store the upload, OCR it, tag
// entities, geocode the place-like ones. All collaborators are
// injected; the pipeline itself holds no ambient state.
type Pipeline struct {
	uploadDir string
	engine    ocr.Engine
	extractor ner.Extractor
	geocoder  geocode.Geocoder
	labels    []string

	// now is swappable for tests that exercise the fallback filename
	now func() time.Time
}

// Result is the pipeline output for one uploaded image.
type Result struct {
	Text     string         `json:"text"`
	Entities []claim.Entity `json:"entities"`

	// Filename is the name the upload was stored under
	Filename string `json:"filename"`

	// StoredPath is the on-disk location of the stored upload
	StoredPath string `json:"-"`
}

// New creates a Pipeline. Labels defaults to the built-in geocode
// allow-list when empty.
func New(uploadDir string, engine ocr.Engine, extractor ner.Extractor, geocoder geocode.Geocoder, labels []string) *Pipeline {
	if len(labels) == 0 {
		labels = claim.GeocodeLabels
	}
	return &Pipeline{
		uploadDir: uploadDir,
		engine:    engine,
		extractor: extractor,
		geocoder:  geocoder,
		labels:    labels,
		now:       time.Now,
	}
}

// Run processes one uploaded image.
//
// Failure modes: a storage or OCR failure aborts the whole run; an
// extractor failure aborts after the file write; a geocode failure is
// advisory and recorded on the single entity it concerns.
func (p *Pipeline) Run(ctx context.Context, filename string, content io.Reader) (*Result, error) {
	storedName, storedPath, err := p.intake(filename, content)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	text, err := p.engine.Recognize(ctx, storedPath)
	if err != nil {
		return nil, errors.NewOCRFailed(err)
	}

	spans, err := p.extractor.Extract(ctx, text)
	if err != nil {
		return nil, errors.NewExtractionFailed(err)
	}

	entities := make([]claim.Entity, 0, len(spans))
	for i, s := range spans {
		e := claim.Entity{
			Label: s.Label,
			Text:  s.Text,
			Seq:   i + 1,
		}
		if claim.GeocodeCandidate(e.Label, e.Text, p.labels) {
			place, err := p.geocoder.Geocode(ctx, e.Text)
			switch {
			case err != nil:
				// rate limited or provider failure: non-fatal
				e.GeoError = err.Error()
			case place != nil:
				e.Coordinates = &claim.Coordinates{Lat: place.Lat, Lon: place.Lon}
			}
		}
		entities = append(entities, e)
	}

	return &Result{
		Text:       text,
		Entities:   entities,
		Filename:   storedName,
		StoredPath: storedPath,
	}, nil
}

// intake persists the upload under its original base name, or a
// timestamp-derived fallback when no name was given. Collisions
// silently overwrite.
func (p *Pipeline) intake(filename string, content io.Reader) (string, string, error) {
	name := filepath.Base(filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = fmt.Sprintf("upload_%d.png", p.now().Unix())
	}

	if err := os.MkdirAll(p.uploadDir, 0700); err != nil {
		return "", "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(p.uploadDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("store upload: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		return "", "", fmt.Errorf("write upload: %w", err)
	}

	return name, path, nil
}
