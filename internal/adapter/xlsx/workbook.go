// Package xlsx exports extracted profiles to an Excel workbook.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/merra2-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	maxSheetName = 31
	defaultSheet = "Sheet1"
	timeLayout   = "2006-01-02 15:04:05"
)

// Workbook holds one square and one long sheet per location.
type Workbook struct {
	file   *excelize.File
	sheets int
}

// New creates an empty workbook.
func New() *Workbook {
	return &Workbook{file: excelize.NewFile()}
}

// AddLocation writes the square_<name> and long_<name> sheets for a
// location's profiles, given in day order.
func (w *Workbook) AddLocation(name string, profiles []domain.Profile) error {
	if len(profiles) == 0 {
		return fmt.Errorf("location %q has no profiles", name)
	}

	square := SheetName("square", name)
	long := SheetName("long", name)
	for _, sheet := range []string{square, long} {
		idx, err := w.file.GetSheetIndex(sheet)
		if err != nil {
			return err
		}
		if idx >= 0 {
			return fmt.Errorf("sheet %q already exists", sheet)
		}
	}

	if err := w.writeSquare(square, domain.NewSquareTable(profiles)); err != nil {
		return fmt.Errorf("sheet %s: %w", square, err)
	}
	if err := w.writeLong(long, valueHeader(profiles[0]), domain.LongSeries(profiles)); err != nil {
		return fmt.Errorf("sheet %s: %w", long, err)
	}
	return nil
}

func (w *Workbook) writeSquare(sheet string, table domain.SquareTable) error {
	if err := w.newSheet(sheet); err != nil {
		return err
	}

	header := make([]any, 0, len(table.Days)+1)
	header = append(header, "Hour")
	for _, d := range table.Days {
		header = append(header, d.Format("2006-01-02"))
	}
	if err := w.file.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for h, row := range table.Rows {
		cells := make([]any, 0, len(row)+1)
		cells = append(cells, h)
		for _, v := range row {
			cells = append(cells, v)
		}
		if err := w.setRow(sheet, h+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workbook) writeLong(sheet, valueHeader string, records []domain.HourlyRecord) error {
	if err := w.newSheet(sheet); err != nil {
		return err
	}

	if err := w.setRow(sheet, 1, []any{"Time (s)", "Date", valueHeader}); err != nil {
		return err
	}
	for i, r := range records {
		if err := w.setRow(sheet, i+2, []any{r.Elapsed, r.Time.UTC().Format(timeLayout), r.Value}); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workbook) setRow(sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return w.file.SetSheetRow(sheet, cell, &cells)
}

// newSheet adds a sheet, dropping excelize's placeholder sheet on first use.
func (w *Workbook) newSheet(name string) error {
	idx, err := w.file.NewSheet(name)
	if err != nil {
		return err
	}
	if w.sheets == 0 {
		if err := w.file.DeleteSheet(defaultSheet); err != nil {
			return err
		}
		idx, err = w.file.GetSheetIndex(name)
		if err != nil {
			return err
		}
		w.file.SetActiveSheet(idx)
	}
	w.sheets++
	return nil
}

// SaveAs writes the workbook to path.
func (w *Workbook) SaveAs(path string) error {
	if w.sheets == 0 {
		return errors.New("workbook has no sheets")
	}
	return w.file.SaveAs(path)
}

// WriteTo writes the workbook to out.
func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	if w.sheets == 0 {
		return 0, errors.New("workbook has no sheets")
	}
	return w.file.WriteTo(out)
}

func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetName joins prefix and location into a valid Excel sheet name:
// spaces become dashes, forbidden characters are dropped and the result is
// cut to 31 characters.
func SheetName(prefix, location string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('_')
	for _, r := range strings.TrimSpace(location) {
		switch {
		case r == ' ':
			b.WriteByte('-')
		case strings.ContainsRune(`:\/?*[]'`, r):
		default:
			b.WriteRune(r)
		}
	}
	name := []rune(b.String())
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return string(name)
}

func valueHeader(p domain.Profile) string {
	if len(p.Celsius) > 0 {
		return "Temperature (degC)"
	}
	if p.Units != "" {
		return fmt.Sprintf("%s (%s)", p.Variable, p.Units)
	}
	return p.Variable
}
