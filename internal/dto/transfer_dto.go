package dto

// RawRecord is one unvalidated product row as it arrives from a JSON bulk
// body or a parsed CSV line. Keys are field names (CSV: header-derived);
// values are whatever the source produced — the ingestion pipeline owns all
// coercion so both paths share one normalization routine.
type RawRecord map[string]any

// ImportResponse reports what the ingestion batch actually did.
// Imported counts rows written by the store (skips and unique-key conflicts
// excluded), not the raw input length.
type ImportResponse struct {
	Received int `json:"received"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
