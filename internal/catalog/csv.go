package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chrisdamba/mealplanner/internal/models"
)

// ReadCSV reads a header row followed by data rows into raw records.
func ReadCSV(r io.Reader) ([]RawRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("catalog: empty csv input")
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var records []RawRecord
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: read row %d: %w", len(records)+1, err)
		}
		rec := make(RawRecord, len(header))
		for i, col := range header {
			rec[col] = fields[i]
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadFile reads and validates a CSV catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := ReadCSV(file)
	if err != nil {
		return nil, err
	}
	return Load(records)
}

// WriteCSV writes records with a stable header: identity and price, required
// nutrients, extended nutrients, tag columns in tag order, then any other
// column sorted. A tag column missing from a record is written as 0.
func WriteCSV(w io.Writer, records []RawRecord) error {
	header := Header(records)
	tagColumn := make(map[string]bool)
	for _, t := range models.AllTags() {
		for _, col := range t.Columns() {
			tagColumn[col] = true
		}
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, rec := range records {
		for i, col := range header {
			v, ok := rec[col]
			if !ok && tagColumn[col] {
				v = "0"
			}
			row[i] = v
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Header returns the column order WriteCSV uses for records.
func Header(records []RawRecord) []string {
	present := make(map[string]bool)
	for _, rec := range records {
		for col := range rec {
			present[col] = true
		}
	}
	var header []string
	take := func(col string) {
		if present[col] {
			header = append(header, col)
			delete(present, col)
		}
	}
	take(ColumnRestaurant)
	take(ColumnMeal)
	take(ColumnPrice)
	for _, n := range nutrientColumns(records) {
		take(string(n))
	}
	for _, t := range models.AllTags() {
		for _, col := range t.Columns() {
			take(col)
		}
	}
	rest := make([]string, 0, len(present))
	for col := range present {
		rest = append(rest, col)
	}
	sort.Strings(rest)
	return append(header, rest...)
}
