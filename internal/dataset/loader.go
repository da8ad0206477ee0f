// Package dataset loads the per-department crime indicator CSV and serves filtered views of it.
package dataset

import (
	"context"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crimemap/internal/fetcher"
	"github.com/sells-group/crimemap/internal/model"
)

// CSV column names.
const (
	ColDepartment = "Code_departement"
	ColIndicator  = "indicateur"
	ColUnit       = "unite_de_compte"
	ColCount      = "nombre"
	ColRate       = "taux_pour_mille"
	ColYear       = "annee"
)

// Columns lists the required columns in display order.
var Columns = []string{ColDepartment, ColIndicator, ColUnit, ColCount, ColRate, ColYear}

// Options configures CSV decoding.
type Options struct {
	Delimiter rune   // default ','
	Charset   string // default utf-8
}

// Load reads the dataset from a CSV file.
func Load(ctx context.Context, path string, opts Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close() //nolint:errcheck

	ds, err := parse(ctx, f, path, opts)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// Parse reads the dataset from an already opened CSV stream.
func Parse(ctx context.Context, r io.Reader, opts Options) (*Dataset, error) {
	return parse(ctx, r, "", opts)
}

func parse(ctx context.Context, r io.Reader, path string, opts Options) (*Dataset, error) {
	log := zap.L().With(zap.String("component", "dataset.loader"))
	start := time.Now()

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		Delimiter: opts.Delimiter,
		Charset:   opts.Charset,
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var (
		idx     columnIndex
		records []model.CrimeRecord
		skipped int
		line    = 1
		rowErr  error
	)
	for row := range rowCh {
		line++
		if rowErr != nil {
			continue // drain so the producer can exit
		}
		if idx == nil {
			var err error
			if idx, err = newColumnIndex(<-headerCh); err != nil {
				rowErr = &LoadError{Path: path, Line: 1, Err: err}
				continue
			}
		}

		rec, ok, err := idx.record(row)
		if err != nil {
			rowErr = &LoadError{Path: path, Line: line, Err: err}
			continue
		}
		if !ok {
			skipped++
			log.Debug("skipping row with missing value", zap.Int("line", line))
			continue
		}
		records = append(records, rec)
	}
	for err := range errCh {
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
	}
	if rowErr != nil {
		return nil, rowErr
	}

	if idx == nil {
		// Header only, or an empty file.
		select {
		case header := <-headerCh:
			if _, err := newColumnIndex(header); err != nil {
				return nil, &LoadError{Path: path, Line: 1, Err: err}
			}
		default:
			return nil, &LoadError{Path: path, Err: eris.New("empty csv: no header row")}
		}
	}

	if skipped > 0 {
		log.Warn("skipped rows with missing count or rate", zap.Int("skipped", skipped))
	}
	log.Info("dataset loaded",
		zap.String("path", path),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return New(records), nil
}

// columnIndex maps required column names to positions in a row.
type columnIndex map[string]int

func newColumnIndex(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	var missing []string
	for _, col := range Columns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func (c columnIndex) field(row []string, col string) string {
	i := c[col]
	if i >= len(row) {
		return ""
	}
	return row[i]
}

// record converts a row. ok is false when the count or rate cell is empty or NA.
func (c columnIndex) record(row []string) (model.CrimeRecord, bool, error) {
	rec := model.CrimeRecord{
		DepartmentCode: c.field(row, ColDepartment),
		Indicator:      c.field(row, ColIndicator),
		UnitOfCount:    c.field(row, ColUnit),
		Year:           c.field(row, ColYear),
	}
	if rec.DepartmentCode == "" {
		return rec, false, eris.Errorf("empty %s", ColDepartment)
	}

	countRaw, rateRaw := c.field(row, ColCount), c.field(row, ColRate)
	if isMissing(countRaw) || isMissing(rateRaw) {
		return rec, false, nil
	}

	count, err := parseCount(countRaw)
	if err != nil {
		return rec, false, eris.Wrapf(err, "parse %s", ColCount)
	}
	rate, err := parseDecimal(rateRaw)
	if err != nil {
		return rec, false, eris.Wrapf(err, "parse %s", ColRate)
	}
	if rate < 0 {
		return rec, false, eris.Errorf("negative %s %v", ColRate, rate)
	}

	rec.Count = count
	rec.RatePerThousand = rate
	return rec, true, nil
}

func isMissing(s string) bool {
	switch strings.ToUpper(s) {
	case "", "NA", "NAN", "N/A":
		return true
	}
	return false
}

// parseDecimal accepts both "3.4" and the French "3,4".
func parseDecimal(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, eris.Errorf("not a finite number: %q", s)
	}
	return v, nil
}

// parseCount accepts integers and integral decimals such as "120.0".
func parseCount(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	v, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, eris.Errorf("not an integer: %q", s)
	}
	return int64(v), nil
}
