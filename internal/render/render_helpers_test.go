package render

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/crimemap/internal/dataset"
	"github.com/sells-group/crimemap/internal/geo"
	"github.com/sells-group/crimemap/internal/model"
	"github.com/sells-group/crimemap/internal/state"
)

var scenarioRecords = []model.CrimeRecord{
	{DepartmentCode: "49", Indicator: "Vol", UnitOfCount: "victime", Count: 120, RatePerThousand: 3.4, Year: "2022"},
	{DepartmentCode: "49", Indicator: "Vol", UnitOfCount: "victime", Count: 180, RatePerThousand: 5.0, Year: "2023"},
	{DepartmentCode: "49", Indicator: "Cambriolage", UnitOfCount: "logement", Count: 40, RatePerThousand: 1.2, Year: "2022"},
	{DepartmentCode: "75", Indicator: "Vol", UnitOfCount: "victime", Count: 9000, RatePerThousand: 9.8, Year: "2022"},
}

func square(minX, minY, size float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		minX, minY, minX, minY + size, minX + size, minY + size, minX + size, minY, minX, minY,
	}, []int{10})
}

func scenario(t *testing.T, sel model.Selection) (state.View, *dataset.Dataset, *geo.Index) {
	t.Helper()

	ds := dataset.New(scenarioRecords)

	var boundaries []model.DepartmentBoundary
	for _, d := range []struct {
		code, name string
		x, y       float64
	}{
		{"49", "Maine-et-Loire", -0.6, 47.3},
		{"75", "Paris", 2.25, 48.8},
		{"01", "Ain", 5.2, 46.0},
	} {
		b, err := geo.NewBoundary(d.code, d.name, square(d.x, d.y, 0.2))
		require.NoError(t, err)
		boundaries = append(boundaries, b)
	}
	idx, err := geo.BuildIndex(boundaries)
	require.NoError(t, err)

	view, err := state.Resolve(ds, idx, sel)
	require.NoError(t, err)
	return view, ds, idx
}
