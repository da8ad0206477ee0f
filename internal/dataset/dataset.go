package dataset

import (
	"slices"

	"github.com/sells-group/crimemap/internal/model"
)

// Dataset is an immutable, load-ordered set of crime records.
// Every query returns a new slice; the underlying records are never mutated.
type Dataset struct {
	records []model.CrimeRecord
	byCode  map[string][]int
	codes   []string
}

// New builds a Dataset over a copy of records.
func New(records []model.CrimeRecord) *Dataset {
	d := &Dataset{
		records: slices.Clone(records),
		byCode:  make(map[string][]int),
	}
	for i, r := range d.records {
		if _, seen := d.byCode[r.DepartmentCode]; !seen {
			d.codes = append(d.codes, r.DepartmentCode)
		}
		d.byCode[r.DepartmentCode] = append(d.byCode[r.DepartmentCode], i)
	}
	return d
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Records returns a copy of all records in load order.
func (d *Dataset) Records() []model.CrimeRecord {
	return slices.Clone(d.records)
}

// Codes returns the distinct department codes in load order.
func (d *Dataset) Codes() []string {
	return slices.Clone(d.codes)
}

// ForDepartment returns the records of one department in load order.
func (d *Dataset) ForDepartment(code string) []model.CrimeRecord {
	out := make([]model.CrimeRecord, 0, len(d.byCode[code]))
	for _, i := range d.byCode[code] {
		out = append(out, d.records[i])
	}
	return out
}

// Filter returns the records matching department, indicator and unit exactly.
// An empty result is a valid, non-nil slice.
func (d *Dataset) Filter(code, indicator, unit string) []model.CrimeRecord {
	out := make([]model.CrimeRecord, 0)
	for _, i := range d.byCode[code] {
		if r := d.records[i]; r.Matches(code, indicator, unit) {
			out = append(out, r)
		}
	}
	return out
}

// Indicators returns the distinct indicators of a department in first-seen order.
func (d *Dataset) Indicators(code string) []string {
	return d.distinct(code, func(r model.CrimeRecord) string { return r.Indicator })
}

// Units returns the distinct units of count of a department in first-seen order.
func (d *Dataset) Units(code string) []string {
	return d.distinct(code, func(r model.CrimeRecord) string { return r.UnitOfCount })
}

func (d *Dataset) distinct(code string, key func(model.CrimeRecord) string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, i := range d.byCode[code] {
		k := key(d.records[i])
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
