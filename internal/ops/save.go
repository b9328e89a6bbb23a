package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tribalgis/claimgis/internal/claim"
	"github.com/tribalgis/claimgis/internal/db"
	"github.com/tribalgis/claimgis/internal/errors"
)

// SaveInput contains parameters for the Save operation.
type SaveInput struct {
	Text     string         // OCR output; may be empty
	Entities []claim.Entity // extraction result, in extractor order
	Filename string         // default: "uploaded"
}

// SaveOutput contains the result of the Save operation.
type SaveOutput struct {
	Success bool   `json:"success"`
	ClaimID string `json:"claim_id"`
}

// Save inserts one claim row plus one point row per geocoded entity.
//
// Point seq values are recomputed here: dense, 1-based, counting only
// entities that carry coordinates. This deliberately diverges from the
// extraction-time seq, which numbers the full entity list.
//
// All inserts share one transaction and one commit. Save does not
// deduplicate: calling it twice with the same payload creates two
// distinct claims.
func Save(ctx context.Context, database *sql.DB, input SaveInput) (*SaveOutput, error) {
	if input.Filename == "" {
		input.Filename = "uploaded"
	}

	claimID, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	c := &claim.Claim{
		ID:       claimID,
		Filename: input.Filename,
		Text:     input.Text,
		Entities: claim.Flatten(input.Entities),
		SavedAt:  time.Now().Unix(),
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	defer tx.Rollback()

	if err := db.InsertClaim(tx, c); err != nil {
		return nil, err
	}

	seq := 0
	for _, e := range input.Entities {
		if !e.Geocoded() {
			continue
		}
		seq++

		pointID, err := generateULID()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		p := &claim.Point{
			ID:      pointID,
			ClaimID: claimID,
			Label:   e.Label,
			Name:    e.Text,
			Lat:     e.Coordinates.Lat,
			Lon:     e.Coordinates.Lon,
			Seq:     seq,
		}
		if err := db.InsertPoint(tx, p); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStorage(err)
	}

	return &SaveOutput{Success: true, ClaimID: claimID}, nil
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
