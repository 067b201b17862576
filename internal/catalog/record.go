package catalog

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// attribute is one labeled column of the car dataset. The order of the
// attributes slice is the order in which they appear in the derived text.
type attribute struct {
	Label  string
	Column string
}

var attributes = []attribute{
	{"Company", "Company Names"},
	{"Car", "Cars Names"},
	{"Engine", "Engines"},
	{"CC/Battery", "CC/Battery Capacity"},
	{"HP", "HorsePower"},
	{"Speed", "Total Speed"},
	{"Performance(0-100 km/h)", "Performance(0 - 100 )KM/H"},
	{"Price", "Cars Prices"},
	{"Fuel", "Fuel Types"},
	{"Seats", "Seats"},
}

const textDelimiter = " | "

// Record is one car of the catalog. Fields carries every column of the
// source row; Text is the derived description used as embedding input and
// stored as vector metadata.
type Record struct {
	ID     string
	Text   string
	Fields map[string]string
}

// Metadata returns the full row as a metadata mapping, including the
// derived id and text, mirroring what gets stored alongside the vector.
func (r Record) Metadata() map[string]any {
	meta := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		meta[k] = v
	}
	meta["id"] = r.ID
	meta["text"] = r.Text
	return meta
}

// buildText joins every attribute as "Label: value" in the fixed order,
// trimming each value.
func buildText(fields map[string]string) string {
	parts := make([]string, 0, len(attributes))
	for _, attr := range attributes {
		parts = append(parts, attr.Label+": "+strings.TrimSpace(fields[attr.Column]))
	}
	return strings.Join(parts, textDelimiter)
}

// contentID derives a stable identifier from the record text, so that
// re-ingesting the same dataset (in any row order) upserts the same ids.
func contentID(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
