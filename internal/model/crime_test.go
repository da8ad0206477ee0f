package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllSeverities(t *testing.T) {
	assert.Equal(t, []Severity{SeverityLow, SeverityMedium, SeverityHigh}, AllSeverities())
}

func TestCrimeRecord_RateString(t *testing.T) {
	tests := []struct {
		rate     float64
		expected string
	}{
		{3.4, "3.4"},
		{5, "5"},
		{0, "0"},
		{12.125, "12.125"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, CrimeRecord{RatePerThousand: tt.rate}.RateString())
		})
	}
}

func TestCrimeRecord_Matches(t *testing.T) {
	r := CrimeRecord{DepartmentCode: "49", Indicator: "Vol", UnitOfCount: "victime"}

	assert.True(t, r.Matches("49", "Vol", "victime"))
	assert.False(t, r.Matches("44", "Vol", "victime"))
	assert.False(t, r.Matches("49", "vol", "victime"))
	assert.False(t, r.Matches("49", "Vol", "infraction"))
}

func TestLatLon_Valid(t *testing.T) {
	assert.True(t, LatLon{Lat: 47.39, Lon: -0.56}.Valid())
	assert.True(t, LatLon{Lat: -90, Lon: 180}.Valid())
	assert.False(t, LatLon{Lat: 6_700_000, Lon: 400_000}.Valid())
	assert.False(t, LatLon{Lat: 0, Lon: -180.5}.Valid())
}

func TestDepartmentBoundary_Label(t *testing.T) {
	b := DepartmentBoundary{Code: "2A", Name: "Corse-du-Sud"}
	assert.Equal(t, "2A-Corse-du-Sud", b.Label())
}
