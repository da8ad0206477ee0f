// Package model defines the records, boundaries and selections shared by the crime map.
package model

import (
	"strconv"

	"github.com/twpayne/go-geom"
)

// Severity is the three-bucket classification of a crime rate.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AllSeverities returns the severities from lowest to highest.
func AllSeverities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh}
}

// CrimeRecord is one row of the per-department indicator dataset.
type CrimeRecord struct {
	DepartmentCode  string  `json:"department_code"`
	Indicator       string  `json:"indicator"`
	UnitOfCount     string  `json:"unit_of_count"`
	Count           int64   `json:"count"`
	RatePerThousand float64 `json:"rate_per_thousand"`
	Year            string  `json:"year"` // opaque label, never used arithmetically
}

// RateString formats the rate in its shortest round-tripping form ("3.4", "5").
func (r CrimeRecord) RateString() string {
	return strconv.FormatFloat(r.RatePerThousand, 'f', -1, 64)
}

// Matches reports whether the record belongs to the given department, indicator and unit.
func (r CrimeRecord) Matches(code, indicator, unit string) bool {
	return r.DepartmentCode == code && r.Indicator == indicator && r.UnitOfCount == unit
}

// LatLon is a WGS84 position.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the position lies within WGS84 bounds.
func (p LatLon) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// DepartmentBoundary is one department polygon with its derived centroid.
type DepartmentBoundary struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Geometry geom.T `json:"-"`
	Centroid LatLon `json:"centroid"`
}

// Label returns the selectable "{code}-{name}" label.
func (b DepartmentBoundary) Label() string {
	return b.Code + "-" + b.Name
}

// Selection is the transient UI state: a department label plus the two table filters.
type Selection struct {
	Department string `json:"department"`
	Indicator  string `json:"indicator"`
	Unit       string `json:"unit"`
}
