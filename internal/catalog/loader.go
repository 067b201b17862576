// Package catalog reads the car dataset and turns each row into a Record
// ready for indexing.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/charmap"
)

// missingValue replaces empty dataset cells.
const missingValue = "0"

// Load reads the Latin-1 encoded car dataset at path. It fails if the file
// is missing or a required column is absent.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads dataset rows from r. The input is decoded as Latin-1, the
// encoding the dataset ships with.
func Parse(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	reader.FieldsPerRecord = -1 // rows are validated against the header below

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[name] = i
	}
	for _, attr := range attributes {
		if _, ok := colIndex[attr.Column]; !ok {
			return nil, fmt.Errorf("dataset is missing required column %q", attr.Column)
		}
	}
	idCol, hasID := colIndex["id"]

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset row: %w", err)
		}

		fields := make(map[string]string, len(header))
		for name, idx := range colIndex {
			fields[name] = cell(row, idx)
		}

		rec := Record{Fields: fields}
		rec.Text = buildText(fields)
		// Empty cells read back as missingValue, so an id column holding a
		// literal "0" is treated as absent and gets a content hash too.
		if hasID && cell(row, idCol) != missingValue {
			rec.ID = cell(row, idCol)
		} else {
			rec.ID = contentID(rec.Text)
		}
		records = append(records, rec)
	}
	return records, nil
}

// cell returns the value at idx, substituting the neutral default for
// missing or empty cells.
func cell(row []string, idx int) string {
	if idx >= len(row) || row[idx] == "" {
		return missingValue
	}
	return row[idx]
}
