package db

import (
	"database/sql"

	"github.com/tribalgis/claimgis/internal/claim"
	"github.com/tribalgis/claimgis/internal/errors"
)

// InsertClaim stores a new claim row inside the given transaction.
func InsertClaim(tx *sql.Tx, c *claim.Claim) error {
	query := `
		INSERT INTO claims (id, filename, text, entities, saved_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := tx.Exec(query, c.ID, c.Filename, c.Text, c.Entities, c.SavedAt)
	if err != nil {
		return errors.NewStorage(err)
	}
	return nil
}

// InsertPoint stores a new point row inside the given transaction.
// The point must reference an existing claim.
func InsertPoint(tx *sql.Tx, p *claim.Point) error {
	query := `
		INSERT INTO points (id, claim_id, label, name, lat, lon, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := tx.Exec(query, p.ID, p.ClaimID, p.Label, p.Name, p.Lat, p.Lon, p.Seq)
	if err != nil {
		return errors.NewStorage(err)
	}
	return nil
}

// GetClaim retrieves a claim by ID.
func GetClaim(db *sql.DB, id string) (*claim.Claim, error) {
	query := `
		SELECT id, filename, text, entities, saved_at
		FROM claims
		WHERE id = ?
	`
	var c claim.Claim
	err := db.QueryRow(query, id).Scan(&c.ID, &c.Filename, &c.Text, &c.Entities, &c.SavedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	return &c, nil
}

// ListClaims returns all claims, newest-first by id.
// ULIDs sort lexicographically by creation time, so id DESC is
// insertion order reversed.
func ListClaims(db *sql.DB) ([]claim.Claim, error) {
	query := `
		SELECT id, filename, text, entities, saved_at
		FROM claims
		ORDER BY id DESC
	`
	rows, err := db.Query(query)
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	defer rows.Close()

	claims := make([]claim.Claim, 0)
	for rows.Next() {
		var c claim.Claim
		if err := rows.Scan(&c.ID, &c.Filename, &c.Text, &c.Entities, &c.SavedAt); err != nil {
			return nil, errors.NewStorage(err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage(err)
	}
	return claims, nil
}

// ListPoints returns all points across all claims, newest-first by id,
// with no pagination or filtering.
func ListPoints(db *sql.DB) ([]claim.Point, error) {
	query := `
		SELECT id, claim_id, label, name, lat, lon, seq
		FROM points
		ORDER BY id DESC
	`
	rows, err := db.Query(query)
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	defer rows.Close()

	points := make([]claim.Point, 0)
	for rows.Next() {
		var p claim.Point
		if err := rows.Scan(&p.ID, &p.ClaimID, &p.Label, &p.Name, &p.Lat, &p.Lon, &p.Seq); err != nil {
			return nil, errors.NewStorage(err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage(err)
	}
	return points, nil
}

// ListClaimPoints returns the points of one claim ordered by seq.
func ListClaimPoints(db *sql.DB, claimID string) ([]claim.Point, error) {
	query := `
		SELECT id, claim_id, label, name, lat, lon, seq
		FROM points
		WHERE claim_id = ?
		ORDER BY seq ASC
	`
	rows, err := db.Query(query, claimID)
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	defer rows.Close()

	points := make([]claim.Point, 0)
	for rows.Next() {
		var p claim.Point
		if err := rows.Scan(&p.ID, &p.ClaimID, &p.Label, &p.Name, &p.Lat, &p.Lon, &p.Seq); err != nil {
			return nil, errors.NewStorage(err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage(err)
	}
	return points, nil
}
