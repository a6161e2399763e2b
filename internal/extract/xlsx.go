package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/crosslogic/fieldmap-cli/internal/model"
)

// Extractor reads interface workbooks into ordered InterfaceField slices.
type Extractor struct {
	layout Layout
}

// NewExtractor creates an extractor for the given sheet layout.
func NewExtractor(layout Layout) *Extractor {
	return &Extractor{layout: layout}
}

// Extract opens the workbook and returns its fields in sheet order. Rows with
// an empty field name are skipped. The returned slice may be empty.
func (e *Extractor) Extract(path string) ([]model.InterfaceField, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "extract: open workbook")
	}

	sheet, err := findSheet(f, e.layout.SheetName)
	if err != nil {
		return nil, err
	}

	headerRow := e.layout.HeaderRow - 1
	module := cellString(sheet, headerRow, colIndex(e.layout.Header.Module))
	ifName := cellString(sheet, headerRow, colIndex(e.layout.Header.IFName))
	ifDesc := cellString(sheet, headerRow, colIndex(e.layout.Header.IFDesc))

	base := filepath.Base(path)
	cols := e.layout.Input

	var fields []model.InterfaceField
	for row := e.layout.StartRow; row <= len(sheet.Rows); row++ {
		r := row - 1
		name := cellString(sheet, r, colIndex(cols.FieldName))
		if name == "" {
			continue
		}

		fields = append(fields, model.InterfaceField{
			ID:          fmt.Sprintf("%s#%d", base, row),
			RowIndex:    row,
			Module:      module,
			IFName:      ifName,
			IFDesc:      ifDesc,
			FieldName:   name,
			FieldText:   cellString(sheet, r, colIndex(cols.FieldText)),
			KeyFlag:     flagSet(cellString(sheet, r, colIndex(cols.KeyFlag))),
			Obligatory:  flagSet(cellString(sheet, r, colIndex(cols.Obligatory))),
			DataType:    cellString(sheet, r, colIndex(cols.DataType)),
			FieldID:     cellString(sheet, r, colIndex(cols.FieldID)),
			LengthTotal: cellString(sheet, r, colIndex(cols.LengthTotal)),
			LengthDec:   cellString(sheet, r, colIndex(cols.LengthDec)),
			SampleValue: cellString(sheet, r, colIndex(cols.SampleValue)),
		})
	}

	zap.L().Info("workbook extracted",
		zap.String("file", base),
		zap.String("module", module),
		zap.Int("fields", len(fields)))
	return fields, nil
}

// ListWorkbooks returns the .xlsx files in dir, sorted by name. Excel lock
// files (~$ prefix) are skipped.
func ListWorkbooks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrap(err, "extract: read input dir")
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "~$") || !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

func findSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name == "" {
		if len(f.Sheets) == 0 {
			return nil, eris.New("extract: workbook has no sheets")
		}
		return f.Sheets[0], nil
	}
	sheet, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Errorf("extract: sheet %q not found", name)
	}
	return sheet, nil
}

// cellString reads a cell without growing the sheet; out-of-range reads
// return "".
func cellString(sheet *xlsx.Sheet, row, col int) string {
	if row < 0 || col < 0 || row >= len(sheet.Rows) {
		return ""
	}
	cells := sheet.Rows[row].Cells
	if col >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[col].String())
}
