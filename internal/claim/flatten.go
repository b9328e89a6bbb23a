package claim

import (
	"fmt"
	"strings"
)

// GeocodeLabels is the allow-list of entity categories that are
// geocode candidates. Other labels are never sent to the geocoder.
var GeocodeLabels = []string{"GPE", "LOC", "FAC", "NORP", "ORG"}

// MaxGeocodeTextLen caps the span length for geocode attempts.
// Spans at or above this length are skipped.
const MaxGeocodeTextLen = 120

// GeocodeCandidate reports whether an entity with the given label and
// text would be submitted to the geocoder.
func GeocodeCandidate(label, text string, allowed []string) bool {
	if len(text) >= MaxGeocodeTextLen {
		return false
	}
	for _, l := range allowed {
		if label == l {
			return true
		}
	}
	return false
}

// Flatten serializes an entity list into the opaque text stored in the
// claims.entities column. One entity per line:
//
//	3. GPE "Delhi" @ 28.613900,77.209000
//	4. DATE "12 March 2021"
//	5. ORG "Forest Department" (geocode: no match)
func Flatten(entities []Entity) string {
	if len(entities) == 0 {
		return ""
	}
	var b strings.Builder
	for i, e := range entities {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s %q", e.Seq, e.Label, e.Text)
		switch {
		case e.Coordinates != nil:
			fmt.Fprintf(&b, " @ %.6f,%.6f", e.Coordinates.Lat, e.Coordinates.Lon)
		case e.GeoError != "":
			fmt.Fprintf(&b, " (geocode: %s)", e.GeoError)
		}
	}
	return b.String()
}
