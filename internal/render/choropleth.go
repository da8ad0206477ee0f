package render

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crimemap/internal/model"
)

// Aggregation reduces the rates of one department to a single choropleth value.
type Aggregation string

const (
	AggregateLast Aggregation = "last"
	AggregateMean Aggregation = "mean"
	AggregateMax  Aggregation = "max"
)

// ParseAggregation validates an aggregation name; "" means AggregateLast.
func ParseAggregation(s string) (Aggregation, error) {
	switch a := Aggregation(s); a {
	case "":
		return AggregateLast, nil
	case AggregateLast, AggregateMean, AggregateMax:
		return a, nil
	default:
		return "", eris.Errorf("render: unknown choropleth aggregation %q", s)
	}
}

// Bin bounds accepted for the equal-width classification.
const (
	MinBins     = 3
	MaxBins     = 9
	DefaultBins = 6
)

const (
	ChoroplethName = "Taux de criminalité pour mille habitants (%)"
	NoDataColor    = "black"
)

// ylOrRd holds the ColorBrewer YlOrRd sequential palettes keyed by class count.
var ylOrRd = map[int][]string{
	3: {"#ffeda0", "#feb24c", "#f03b20"},
	4: {"#ffffb2", "#fecc5c", "#fd8d3c", "#e31a1c"},
	5: {"#ffffb2", "#fecc5c", "#fd8d3c", "#f03b20", "#bd0026"},
	6: {"#ffffb2", "#fed976", "#feb24c", "#fd8d3c", "#f03b20", "#bd0026"},
	7: {"#ffffb2", "#fed976", "#feb24c", "#fd8d3c", "#fc4e2a", "#e31a1c", "#b10026"},
	8: {"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c", "#fc4e2a", "#e31a1c", "#b10026"},
	9: {"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c", "#fc4e2a", "#e31a1c", "#bd0026", "#800026"},
}

// ChoroplethOptions controls value aggregation and classification.
type ChoroplethOptions struct {
	Aggregation Aggregation
	Bins        int
}

// Choropleth is the department fill layer keyed by department code.
type Choropleth struct {
	Name        string             `json:"name"`
	KeyOn       string             `json:"key_on"`
	Values      map[string]float64 `json:"values"`
	Thresholds  []float64          `json:"thresholds"`
	Colors      []string           `json:"colors"`
	Fills       map[string]string  `json:"fills"`
	NoDataColor string             `json:"no_data_color"`
	FillOpacity float64            `json:"fill_opacity"`
	LineOpacity float64            `json:"line_opacity"`
}

// BuildChoropleth aggregates every record's rate per department and assigns
// each code in codes a fill color. Codes without records are filled NoDataColor.
func BuildChoropleth(records []model.CrimeRecord, codes []string, opts ChoroplethOptions) (Choropleth, error) {
	agg, err := ParseAggregation(string(opts.Aggregation))
	if err != nil {
		return Choropleth{}, err
	}
	bins := opts.Bins
	if bins == 0 {
		bins = DefaultBins
	}
	colors, ok := ylOrRd[bins]
	if !ok {
		return Choropleth{}, eris.Errorf("render: choropleth bins must be between %d and %d, got %d", MinBins, MaxBins, bins)
	}

	values := aggregate(records, agg)

	c := Choropleth{
		Name:        ChoroplethName,
		KeyOn:       "feature.properties.code",
		Values:      values,
		Thresholds:  equalWidthThresholds(values, bins),
		Colors:      colors,
		Fills:       make(map[string]string, len(codes)),
		NoDataColor: NoDataColor,
		FillOpacity: 0.7,
		LineOpacity: 0.2,
	}
	for _, code := range codes {
		c.Fills[code] = c.FillFor(code)
	}
	return c, nil
}

// FillFor returns the fill color of a department.
func (c Choropleth) FillFor(code string) string {
	v, ok := c.Values[code]
	if !ok {
		return c.NoDataColor
	}
	return c.ColorFor(v)
}

// ColorFor returns the palette color of the class containing v. The last
// class is closed on both ends.
func (c Choropleth) ColorFor(v float64) string {
	if len(c.Colors) == 0 || len(c.Thresholds) < 2 {
		return c.NoDataColor
	}
	for k := 1; k < len(c.Thresholds)-1; k++ {
		if v < c.Thresholds[k] {
			return c.Colors[k-1]
		}
	}
	return c.Colors[len(c.Colors)-1]
}

func aggregate(records []model.CrimeRecord, agg Aggregation) map[string]float64 {
	values := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range records {
		code := r.DepartmentCode
		switch agg {
		case AggregateMean:
			values[code] += r.RatePerThousand
			counts[code]++
		case AggregateMax:
			if cur, ok := values[code]; !ok || r.RatePerThousand > cur {
				values[code] = r.RatePerThousand
			}
		default:
			values[code] = r.RatePerThousand
		}
	}
	if agg == AggregateMean {
		for code, n := range counts {
			values[code] /= float64(n)
		}
	}
	return values
}

// equalWidthThresholds returns bins+1 edges from min to max. With no values
// there are no edges; with a single distinct value every edge is that value
// and every department falls in the last class.
func equalWidthThresholds(values map[string]float64, bins int) []float64 {
	if len(values) == 0 {
		return nil
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	edges := make([]float64, bins+1)
	step := (hi - lo) / float64(bins)
	for k := range edges {
		edges[k] = lo + step*float64(k)
	}
	edges[bins] = hi
	return edges
}
