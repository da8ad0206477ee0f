package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/crimemap/internal/dataset"
	"github.com/sells-group/crimemap/internal/model"
	"github.com/sells-group/crimemap/internal/state"
)

// Table is the filtered record table of one view. Zero rows is valid.
type Table struct {
	Columns []string            `json:"columns"`
	Records []model.CrimeRecord `json:"records"`
}

// BuildTable returns the view's filtered records under the dataset column names.
func BuildTable(view state.View) Table {
	records := view.Table
	if records == nil {
		records = []model.CrimeRecord{}
	}
	return Table{
		Columns: append([]string(nil), dataset.Columns...),
		Records: records,
	}
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Records) }

// Rows returns the table cells as strings, in column order.
func (t Table) Rows() [][]string {
	rows := make([][]string, 0, len(t.Records))
	for _, r := range t.Records {
		rows = append(rows, []string{
			r.DepartmentCode,
			r.Indicator,
			r.UnitOfCount,
			strconv.FormatInt(r.Count, 10),
			r.RateString(),
			r.Year,
		})
	}
	return rows
}

// WriteCSV writes the header and rows as comma-separated values.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Columns); err != nil {
		return eris.Wrap(err, "render: write CSV header")
	}
	for _, row := range t.Rows() {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "render: write CSV row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "render: flush CSV")
	}
	return nil
}

// WriteXLSX writes the table as a single-sheet workbook. Count and rate are
// numeric cells.
func (t Table) WriteXLSX(w io.Writer) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("crimes")
	if err != nil {
		return eris.Wrap(err, "render: add XLSX sheet")
	}

	header := sheet.AddRow()
	for _, col := range t.Columns {
		header.AddCell().SetString(col)
	}

	for _, r := range t.Records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.DepartmentCode)
		row.AddCell().SetString(r.Indicator)
		row.AddCell().SetString(r.UnitOfCount)
		row.AddCell().SetInt64(r.Count)
		row.AddCell().SetFloat(r.RatePerThousand)
		row.AddCell().SetString(r.Year)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "render: write XLSX")
	}
	return nil
}

// WriteText writes an aligned plain-text table for terminals.
func (t Table) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if err := writeTabbed(tw, t.Columns); err != nil {
		return eris.Wrap(err, "render: write table header")
	}
	for _, row := range t.Rows() {
		if err := writeTabbed(tw, row); err != nil {
			return eris.Wrap(err, "render: write table row")
		}
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "render: flush table")
	}
	return nil
}

func writeTabbed(w io.Writer, cells []string) error {
	for i, c := range cells {
		sep := "\t"
		if i == len(cells)-1 {
			sep = "\n"
		}
		if _, err := fmt.Fprint(w, c, sep); err != nil {
			return err
		}
	}
	return nil
}
