package retrieval

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// header-keyed CSV parsing for catalog exports. Column order is free; names
// are matched case-insensitively.

func readCatalogCSV(r io.Reader, required []string) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, eris.Errorf("catalog: missing column %q", name)
		}
	}

	var records []map[string]string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "catalog: read row")
		}
		record := make(map[string]string, len(cols))
		for name, i := range cols {
			if i < len(row) {
				record[name] = strings.TrimSpace(row[i])
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "x", "y", "yes", "○":
		return true
	}
	return false
}

// ParseCatalogCSV reads a field catalog export (custom or view fields).
// Required columns: view_name, field_name. Remaining columns are optional.
func ParseCatalogCSV(r io.Reader) ([]CatalogEntry, error) {
	records, err := readCatalogCSV(r, []string{"view_name", "field_name"})
	if err != nil {
		return nil, err
	}

	entries := make([]CatalogEntry, 0, len(records))
	for _, rec := range records {
		if rec["field_name"] == "" {
			continue
		}
		entries = append(entries, CatalogEntry{
			View:        rec["view_name"],
			ViewDesc:    rec["view_desc"],
			Field:       rec["field_name"],
			Description: rec["description"],
			IsKey:       truthy(rec["is_key"]),
			Obligatory:  truthy(rec["obligatory"]),
			DataType:    rec["data_type"],
			LengthTotal: rec["length_total"],
			LengthDec:   rec["length_dec"],
			Custom:      truthy(rec["custom"]),
		})
	}
	return entries, nil
}

// ParseScenarioCSV reads a business scenario export. Required columns:
// id, scenario, view_category.
func ParseScenarioCSV(r io.Reader) ([]ScenarioEntry, error) {
	records, err := readCatalogCSV(r, []string{"id", "scenario", "view_category"})
	if err != nil {
		return nil, err
	}

	entries := make([]ScenarioEntry, 0, len(records))
	for _, rec := range records {
		if rec["scenario"] == "" {
			continue
		}
		entries = append(entries, ScenarioEntry{
			ID:           rec["id"],
			Scenario:     rec["scenario"],
			Description:  rec["description"],
			ViewCategory: rec["view_category"],
		})
	}
	return entries, nil
}

// ParseViewCSV reads a view catalog export. Required columns: name,
// view_category.
func ParseViewCSV(r io.Reader) ([]ViewEntry, error) {
	records, err := readCatalogCSV(r, []string{"name", "view_category"})
	if err != nil {
		return nil, err
	}

	entries := make([]ViewEntry, 0, len(records))
	for _, rec := range records {
		if rec["name"] == "" {
			continue
		}
		entries = append(entries, ViewEntry{
			Name:         rec["name"],
			Description:  rec["description"],
			ViewCategory: rec["view_category"],
		})
	}
	return entries, nil
}
