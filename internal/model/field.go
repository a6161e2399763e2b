package model

import (
	"fmt"
	"strings"

	"github.com/crosslogic/fieldmap-cli/internal/textutil"
)

// InterfaceField is one input row awaiting resolution against the reference
// schema. Fields are extracted once per workbook and never mutated afterwards.
type InterfaceField struct {
	ID          string `json:"id"`
	RowIndex    int    `json:"row_index"`
	Module      string `json:"module"`
	IFName      string `json:"if_name"`
	IFDesc      string `json:"if_desc"`
	FieldName   string `json:"field_name"`
	FieldText   string `json:"field_text"`
	KeyFlag     bool   `json:"key_flag"`
	Obligatory  bool   `json:"obligatory"`
	DataType    string `json:"data_type"`
	FieldID     string `json:"field_id"`
	LengthTotal string `json:"length_total"`
	LengthDec   string `json:"length_dec"`
	SampleValue string `json:"sample_value"`
}

// QueryString builds the retrieval query representation from the non-empty
// attributes, as 'key':'value' pairs joined by commas.
func (f InterfaceField) QueryString() string {
	pairs := []struct {
		key   string
		value string
	}{
		{"field_name", f.FieldName},
		{"field_desc", f.FieldText},
		{"data_type", f.DataType},
		{"field_id", f.FieldID},
		{"length_total", f.LengthTotal},
		{"length_dec", f.LengthDec},
		{"sample_value", f.SampleValue},
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("'%s':'%s'", p.key, textutil.EscapeQuotes(p.value)))
	}
	return strings.Join(parts, ",")
}

// ContextString builds the interface-level query used for scenario discovery:
// the module code plus interface name and description.
func (f InterfaceField) ContextString() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{f.Module, f.IFName, f.IFDesc} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ",")
}
