// Package extract turns interface specification workbooks into ordered
// field lists and writes resolution results back into a processed copy.
package extract

import "strings"

// HeaderColumns locate the interface-level header block of the sheet.
type HeaderColumns struct {
	Module string `yaml:"module" mapstructure:"module"`
	IFName string `yaml:"if_name" mapstructure:"if_name"`
	IFDesc string `yaml:"if_desc" mapstructure:"if_desc"`
}

// RowColumns locate the per-field input columns.
type RowColumns struct {
	FieldName   string `yaml:"field_name" mapstructure:"field_name"`
	FieldText   string `yaml:"field_text" mapstructure:"field_text"`
	KeyFlag     string `yaml:"key_flag" mapstructure:"key_flag"`
	Obligatory  string `yaml:"obligatory" mapstructure:"obligatory"`
	DataType    string `yaml:"data_type" mapstructure:"data_type"`
	FieldID     string `yaml:"field_id" mapstructure:"field_id"`
	LengthTotal string `yaml:"length_total" mapstructure:"length_total"`
	LengthDec   string `yaml:"length_dec" mapstructure:"length_dec"`
	SampleValue string `yaml:"sample_value" mapstructure:"sample_value"`
	Verify      string `yaml:"verify" mapstructure:"verify"`
}

// OutputColumns locate the result columns written back to the sheet.
type OutputColumns struct {
	View        string `yaml:"view" mapstructure:"view"`
	Field       string `yaml:"field" mapstructure:"field"`
	FieldDesc   string `yaml:"field_desc" mapstructure:"field_desc"`
	KeyFlag     string `yaml:"key_flag" mapstructure:"key_flag"`
	Obligatory  string `yaml:"obligatory" mapstructure:"obligatory"`
	DataType    string `yaml:"data_type" mapstructure:"data_type"`
	LengthTotal string `yaml:"length_total" mapstructure:"length_total"`
	LengthDec   string `yaml:"length_dec" mapstructure:"length_dec"`
	Match       string `yaml:"match" mapstructure:"match"`
	Notes       string `yaml:"notes" mapstructure:"notes"`
}

// Layout describes where the header block, input rows and output columns live
// in a workbook. Column references are spreadsheet letters; rows are 1-based.
type Layout struct {
	SheetName string        `yaml:"sheet_name" mapstructure:"sheet_name"`
	HeaderRow int           `yaml:"header_row" mapstructure:"header_row"`
	StartRow  int           `yaml:"start_row" mapstructure:"start_row"`
	Header    HeaderColumns `yaml:"header" mapstructure:"header"`
	Input     RowColumns    `yaml:"input" mapstructure:"input"`
	Output    OutputColumns `yaml:"output" mapstructure:"output"`
}

// DefaultLayout matches the standard interface specification template.
func DefaultLayout() Layout {
	return Layout{
		SheetName: "Interface",
		HeaderRow: 3,
		StartRow:  8,
		Header:    HeaderColumns{Module: "B", IFName: "C", IFDesc: "D"},
		Input: RowColumns{
			FieldName:   "C",
			FieldText:   "D",
			KeyFlag:     "E",
			Obligatory:  "F",
			DataType:    "G",
			FieldID:     "H",
			LengthTotal: "I",
			LengthDec:   "J",
			SampleValue: "K",
			Verify:      "L",
		},
		Output: OutputColumns{
			View:        "N",
			Field:       "O",
			FieldDesc:   "P",
			KeyFlag:     "Q",
			Obligatory:  "R",
			DataType:    "S",
			LengthTotal: "T",
			LengthDec:   "U",
			Match:       "V",
			Notes:       "W",
		},
	}
}

// colIndex converts a column letter reference ("A", "F", "AA") to a zero-based
// index. Returns -1 for an empty or malformed reference.
func colIndex(ref string) int {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref == "" {
		return -1
	}
	idx := 0
	for _, r := range ref {
		if r < 'A' || r > 'Z' {
			return -1
		}
		idx = idx*26 + int(r-'A') + 1
	}
	return idx - 1
}

// flagSet interprets the workbook's key/obligatory markers.
func flagSet(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x", "y", "yes", "true", "○", "◯", "o":
		return true
	}
	return false
}
