package claim

// Claim represents one uploaded and processed document record.
// Claims are immutable once saved and are never deleted.
type Claim struct {
	// ID is a ULID that uniquely identifies this claim
	ID string `json:"id"`

	// Filename is the original upload name (or the generated fallback)
	Filename string `json:"filename"`

	// Text is the raw text the OCR engine produced
	Text string `json:"text"`

	// Entities is the flattened text serialization of the entity list.
	// It is an opaque display representation; round-tripping is not
	// guaranteed. The points table holds the queryable projection.
	Entities string `json:"entities"`

	// SavedAt is the Unix timestamp when the claim was persisted
	SavedAt int64 `json:"saved_at"`
}

// Point represents one geocoded entity associated with a claim.
type Point struct {
	// ID is a ULID that uniquely identifies this point
	ID string `json:"id"`

	// ClaimID references the owning claim
	ClaimID string `json:"claim_id"`

	// Label is the entity category (GPE, LOC, ...)
	Label string `json:"label"`

	// Name is the entity text the geocoder resolved
	Name string `json:"name"`

	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	// Seq is the 1-based position among the geocoded entities of this
	// claim, recomputed at save time. It is independent of the entity's
	// extraction-time seq, which counts all entities.
	Seq int `json:"seq"`
}

// Coordinates is a WGS 84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Entity is a single named-entity span produced by the extraction
// pipeline. It is transient: only entities carrying coordinates become
// points when a claim is saved.
type Entity struct {
	// Label is the entity category as reported by the extractor
	Label string `json:"label"`

	// Text is the entity span text
	Text string `json:"text"`

	// Seq is the 1-based position within the full entity list,
	// including entities that were never geocoded
	Seq int `json:"seq"`

	// Coordinates is set when geocoding succeeded
	Coordinates *Coordinates `json:"coordinates,omitempty"`

	// GeoError carries an advisory note when geocoding was attempted
	// and failed. Never set together with Coordinates.
	GeoError string `json:"geo_error,omitempty"`
}

// Geocoded reports whether the entity carries resolved coordinates.
func (e Entity) Geocoded() bool {
	return e.Coordinates != nil
}
