package dataset

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crimemap/internal/model"
)

func sampleDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := Parse(context.Background(), strings.NewReader(sampleCSV), Options{})
	require.NoError(t, err)
	return ds
}

func TestDataset_Filter(t *testing.T) {
	ds := sampleDataset(t)

	got := ds.Filter("49", "Vol", "victime")
	require.Len(t, got, 1)
	for _, r := range got {
		assert.True(t, r.Matches("49", "Vol", "victime"))
	}
}

func TestDataset_FilterEmpty(t *testing.T) {
	ds := sampleDataset(t)

	got := ds.Filter("49", "Homicides", "infraction")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, ds.Filter("99", "Vol", "victime"))
}

func TestDataset_ForDepartment(t *testing.T) {
	ds := sampleDataset(t)

	got := ds.ForDepartment("49")
	require.Len(t, got, 3)
	assert.Equal(t, "victime", got[0].UnitOfCount)
	assert.Equal(t, "infraction", got[1].UnitOfCount)
	assert.Equal(t, "Homicides", got[2].Indicator)
}

func TestDataset_DistinctOptions(t *testing.T) {
	ds := sampleDataset(t)

	assert.Equal(t, []string{"Vol", "Homicides"}, ds.Indicators("49"))
	assert.Equal(t, []string{"victime", "infraction"}, ds.Units("49"))
	assert.Equal(t, []string{"Vol"}, ds.Indicators("75"))
	assert.Empty(t, ds.Indicators("01"))
}

func TestDataset_Codes(t *testing.T) {
	assert.Equal(t, []string{"49", "75"}, sampleDataset(t).Codes())
}

func TestDataset_Immutable(t *testing.T) {
	src := []model.CrimeRecord{{DepartmentCode: "49", Indicator: "Vol", RatePerThousand: 3.4}}
	ds := New(src)

	src[0].RatePerThousand = 99
	recs := ds.Records()
	recs[0].Indicator = "changed"

	got := ds.Records()[0]
	assert.InDelta(t, 3.4, got.RatePerThousand, 1e-9)
	assert.Equal(t, "Vol", got.Indicator)
}
