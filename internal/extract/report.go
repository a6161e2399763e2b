package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/crosslogic/fieldmap-cli/internal/model"
)

const timestampLayout = "20060102_150405"

// ReportWriter writes a batch outcome back into a processed copy of the
// source workbook.
type ReportWriter struct {
	layout Layout
	now    func() time.Time
}

// NewReportWriter creates a writer for the given sheet layout.
func NewReportWriter(layout Layout) *ReportWriter {
	return &ReportWriter{layout: layout, now: time.Now}
}

// Write fills the output columns of a copy of srcPath and saves it to outDir
// as processed_<timestamp>_<name>. Rows whose verify cell is already filled
// are left untouched. Returns the path of the processed file.
func (w *ReportWriter) Write(srcPath, outDir string, outcome *model.BatchOutcome) (string, error) {
	f, err := xlsx.OpenFile(srcPath)
	if err != nil {
		return "", eris.Wrap(err, "extract: open workbook for report")
	}

	sheet, err := findSheet(f, w.layout.SheetName)
	if err != nil {
		return "", err
	}

	verifyCol := colIndex(w.layout.Input.Verify)
	written := 0
	for _, result := range outcome.Results {
		row := result.Field.RowIndex - 1
		if row < 0 {
			continue
		}
		verify := cellString(sheet, row, verifyCol)
		if verify != "" && verify != "-" {
			continue
		}
		w.writeRow(sheet, row, result)
		written++
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", eris.Wrap(err, "extract: create output dir")
	}
	name := fmt.Sprintf("processed_%s_%s", w.now().Format(timestampLayout), filepath.Base(srcPath))
	outPath := filepath.Join(outDir, name)
	if err := f.Save(outPath); err != nil {
		return "", eris.Wrap(err, "extract: save processed workbook")
	}

	zap.L().Info("processed workbook written",
		zap.String("file", name),
		zap.Int("rows", written))
	return outPath, nil
}

func (w *ReportWriter) writeRow(sheet *xlsx.Sheet, row int, result model.MatchResult) {
	out := w.layout.Output

	if result.Status == model.StatusMatched && result.Match != nil {
		m := result.Match
		setCell(sheet, row, out.View, m.View)
		setCell(sheet, row, out.Field, m.Field)
		setCell(sheet, row, out.FieldDesc, m.FieldDesc)
		setCell(sheet, row, out.KeyFlag, mark(m.IsKey, "○"))
		setCell(sheet, row, out.Obligatory, mark(m.Obligatory, "X"))
		setCell(sheet, row, out.DataType, m.DataType)
		setCell(sheet, row, out.LengthTotal, m.LengthTotal)
		setCell(sheet, row, out.LengthDec, m.LengthDec)
		setCell(sheet, row, out.Match, matchLabel(m.Provenance))
		setCell(sheet, row, out.Notes, matchedNote(result))
		return
	}

	setCell(sheet, row, out.Match, "")
	setCell(sheet, row, out.Notes, unmatchedNote(result))
}

func matchedNote(result model.MatchResult) string {
	note := result.Match.Rationale
	if note == "" {
		note = "matched"
	}
	return fmt.Sprintf("%d%% - %s", result.Percent, note)
}

func unmatchedNote(result model.MatchResult) string {
	switch result.Status {
	case model.StatusError:
		if result.ErrDetail != "" {
			return fmt.Sprintf("%s: %s", result.ErrKind, result.ErrDetail)
		}
		return string(result.ErrKind)
	default:
		if result.ErrDetail != "" {
			return result.ErrDetail
		}
		return "no match"
	}
}

func matchLabel(p model.Provenance) string {
	if p == model.ProvenanceCustom {
		return "Custom"
	}
	return "CDS"
}

func mark(set bool, symbol string) string {
	if set {
		return symbol
	}
	return ""
}

func setCell(sheet *xlsx.Sheet, row int, ref, value string) {
	col := colIndex(ref)
	if col < 0 {
		return
	}
	sheet.Cell(row, col).SetString(value)
}

// ArchiveSource moves a successfully processed workbook into archiveDir with
// a timestamp prefix. Falls back to copy+remove when rename crosses devices.
func ArchiveSource(srcPath, archiveDir string) (string, error) {
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", eris.Wrap(err, "extract: create archive dir")
	}

	dest := filepath.Join(archiveDir, time.Now().Format(timestampLayout)+"_"+filepath.Base(srcPath))
	if err := os.Rename(srcPath, dest); err != nil {
		data, readErr := os.ReadFile(srcPath)
		if readErr != nil {
			return "", eris.Wrap(err, "extract: archive source file")
		}
		if writeErr := os.WriteFile(dest, data, 0o644); writeErr != nil {
			return "", eris.Wrap(writeErr, "extract: archive source file")
		}
		if removeErr := os.Remove(srcPath); removeErr != nil {
			return "", eris.Wrap(removeErr, "extract: remove archived source")
		}
	}
	return dest, nil
}
