package ops

import (
	"context"
	"database/sql"

	"github.com/tribalgis/claimgis/internal/claim"
	"github.com/tribalgis/claimgis/internal/db"
)

// Markers returns all saved points across all claims, newest-first by
// id, with no pagination or filtering.
func Markers(ctx context.Context, database *sql.DB) ([]claim.Point, error) {
	return db.ListPoints(database)
}

// DumpOutput contains every claim and every point, newest-first, for
// the database viewer.
type DumpOutput struct {
	Claims []claim.Claim `json:"claims"`
	Points []claim.Point `json:"points"`
}

// Dump returns all claims and all points, unfiltered.
func Dump(ctx context.Context, database *sql.DB) (*DumpOutput, error) {
	claims, err := db.ListClaims(database)
	if err != nil {
		return nil, err
	}
	points, err := db.ListPoints(database)
	if err != nil {
		return nil, err
	}
	return &DumpOutput{Claims: claims, Points: points}, nil
}

// FetchOutput is a single claim with its points, seq-ordered.
type FetchOutput struct {
	Claim  *claim.Claim  `json:"claim"`
	Points []claim.Point `json:"points"`
}

// Fetch returns one claim and its points by claim id.
func Fetch(ctx context.Context, database *sql.DB, id string) (*FetchOutput, error) {
	c, err := db.GetClaim(database, id)
	if err != nil {
		return nil, err
	}
	points, err := db.ListClaimPoints(database, id)
	if err != nil {
		return nil, err
	}
	return &FetchOutput{Claim: c, Points: points}, nil
}
