package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crimemap/internal/model"
)

func rec(code string, rate float64) model.CrimeRecord {
	return model.CrimeRecord{DepartmentCode: code, Indicator: "Vol", UnitOfCount: "victime", RatePerThousand: rate}
}

func TestParseAggregation(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Aggregation
	}{
		{"", AggregateLast},
		{"last", AggregateLast},
		{"mean", AggregateMean},
		{"max", AggregateMax},
	} {
		got, err := ParseAggregation(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseAggregation("median")
	require.Error(t, err)
}

func TestBuildChoropleth_Aggregations(t *testing.T) {
	records := []model.CrimeRecord{rec("49", 2), rec("49", 6), rec("49", 4), rec("75", 9)}

	tests := []struct {
		agg  Aggregation
		want float64
	}{
		{AggregateLast, 4},
		{AggregateMean, 4},
		{AggregateMax, 6},
	}
	for _, tt := range tests {
		t.Run(string(tt.agg), func(t *testing.T) {
			c, err := BuildChoropleth(records, []string{"49", "75"}, ChoroplethOptions{Aggregation: tt.agg})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, c.Values["49"], 1e-12)
			assert.InDelta(t, 9.0, c.Values["75"], 1e-12)
		})
	}
}

func TestBuildChoropleth_EqualWidthBins(t *testing.T) {
	records := []model.CrimeRecord{rec("01", 0), rec("02", 3), rec("03", 6), rec("04", 5.99)}

	c, err := BuildChoropleth(records, []string{"01", "02", "03", "04", "05"}, ChoroplethOptions{Bins: 3})
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 2, 4, 6}, c.Thresholds)
	assert.Equal(t, ylOrRd[3], c.Colors)
	assert.Equal(t, "#ffeda0", c.Fills["01"])
	assert.Equal(t, "#feb24c", c.Fills["02"])
	assert.Equal(t, "#f03b20", c.Fills["03"], "max value falls in the last class")
	assert.Equal(t, "#f03b20", c.Fills["04"])
	assert.Equal(t, NoDataColor, c.Fills["05"])
}

func TestBuildChoropleth_Defaults(t *testing.T) {
	c, err := BuildChoropleth([]model.CrimeRecord{rec("49", 3.4)}, []string{"49"}, ChoroplethOptions{})
	require.NoError(t, err)

	assert.Equal(t, ChoroplethName, c.Name)
	assert.Equal(t, "feature.properties.code", c.KeyOn)
	assert.Len(t, c.Colors, DefaultBins)
	assert.Equal(t, 0.7, c.FillOpacity)
	assert.Equal(t, 0.2, c.LineOpacity)
	assert.Equal(t, ylOrRd[DefaultBins][DefaultBins-1], c.Fills["49"], "single value collapses to the last class")
}

func TestBuildChoropleth_NoRecords(t *testing.T) {
	c, err := BuildChoropleth(nil, []string{"49"}, ChoroplethOptions{})
	require.NoError(t, err)
	assert.Empty(t, c.Thresholds)
	assert.Equal(t, NoDataColor, c.Fills["49"])
}

func TestBuildChoropleth_BinBounds(t *testing.T) {
	for bins := MinBins; bins <= MaxBins; bins++ {
		c, err := BuildChoropleth([]model.CrimeRecord{rec("49", 1), rec("75", 2)}, nil, ChoroplethOptions{Bins: bins})
		require.NoError(t, err)
		assert.Len(t, c.Colors, bins)
		assert.Len(t, c.Thresholds, bins+1)
	}

	for _, bins := range []int{1, 2, 10} {
		_, err := BuildChoropleth(nil, nil, ChoroplethOptions{Bins: bins})
		assert.Error(t, err, "bins %d", bins)
	}
}
