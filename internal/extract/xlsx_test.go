package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

// testLayout keeps everything in columns A..O so test workbooks stay small.
func testLayout() Layout {
	return Layout{
		SheetName: "Interface",
		HeaderRow: 1,
		StartRow:  2,
		Header:    HeaderColumns{Module: "A", IFName: "B", IFDesc: "C"},
		Input: RowColumns{
			FieldName:   "A",
			FieldText:   "B",
			KeyFlag:     "C",
			Obligatory:  "D",
			DataType:    "E",
			FieldID:     "F",
			LengthTotal: "G",
			LengthDec:   "H",
			SampleValue: "I",
			Verify:      "J",
		},
		Output: OutputColumns{
			View:      "K",
			Field:     "L",
			FieldDesc: "M",
			Match:     "N",
			Notes:     "O",
		},
	}
}

func createWorkbook(t *testing.T, name, sheetName string, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.Save(path))
	return path
}

func interfaceRows() [][]string {
	return [][]string{
		{"SD", "IF_ORDER_01", "Sales order inbound"},
		{"KUNNR", "Customer number", "○", "X", "CHAR", "KUNNR", "10", "", "1000123", ""},
		{"", "blank row skipped"},
		{"NETWR", "Net value", "", "", "CURR", "NETWR", "15", "2", "1999.99", "-"},
		{"AUDAT", "Document date", "", "x", "DATS", "AUDAT", "8", "", "20240401", "done"},
	}
}

func TestExtract_Fields(t *testing.T) {
	path := createWorkbook(t, "order.xlsx", "Interface", interfaceRows())

	fields, err := NewExtractor(testLayout()).Extract(path)
	require.NoError(t, err)
	require.Len(t, fields, 3)

	first := fields[0]
	assert.Equal(t, "order.xlsx#2", first.ID)
	assert.Equal(t, 2, first.RowIndex)
	assert.Equal(t, "SD", first.Module)
	assert.Equal(t, "IF_ORDER_01", first.IFName)
	assert.Equal(t, "Sales order inbound", first.IFDesc)
	assert.Equal(t, "KUNNR", first.FieldName)
	assert.Equal(t, "Customer number", first.FieldText)
	assert.True(t, first.KeyFlag)
	assert.True(t, first.Obligatory)
	assert.Equal(t, "CHAR", first.DataType)
	assert.Equal(t, "10", first.LengthTotal)
	assert.Equal(t, "1000123", first.SampleValue)

	// Blank field-name row dropped; row indexes stay workbook-relative.
	assert.Equal(t, 4, fields[1].RowIndex)
	assert.False(t, fields[1].KeyFlag)
	assert.Equal(t, "2", fields[1].LengthDec)
	assert.Equal(t, 5, fields[2].RowIndex)
	assert.True(t, fields[2].Obligatory)
}

func TestExtract_SheetNotFound(t *testing.T) {
	path := createWorkbook(t, "order.xlsx", "Other", interfaceRows())

	_, err := NewExtractor(testLayout()).Extract(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := NewExtractor(testLayout()).Extract(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
}

func TestExtract_EmptyBody(t *testing.T) {
	path := createWorkbook(t, "empty.xlsx", "Interface", [][]string{
		{"SD", "IF_EMPTY", "No rows"},
	})

	fields, err := NewExtractor(testLayout()).Extract(path)
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestListWorkbooks(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.xlsx", "a.XLSX", "~$a.xlsx", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.xlsx"), 0o755))

	paths, err := ListWorkbooks(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "a.XLSX"), paths[0])
	assert.Equal(t, filepath.Join(dir, "b.xlsx"), paths[1])
}

func TestColIndex(t *testing.T) {
	tests := []struct {
		ref  string
		want int
	}{
		{"A", 0},
		{"F", 5},
		{"Z", 25},
		{"AA", 26},
		{"ab", 27},
		{" C ", 2},
		{"", -1},
		{"A1", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, colIndex(tt.ref), "ref %q", tt.ref)
	}
}

func TestFlagSet(t *testing.T) {
	assert.True(t, flagSet("○"))
	assert.True(t, flagSet(" X "))
	assert.True(t, flagSet("yes"))
	assert.False(t, flagSet(""))
	assert.False(t, flagSet("-"))
	assert.False(t, flagSet("no"))
}
