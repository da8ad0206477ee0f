package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLambert93ToWGS84_Origin(t *testing.T) {
	lat, lon := lambert93ToWGS84(700000, 6600000)
	assert.InDelta(t, 46.5, lat, 1e-9)
	assert.InDelta(t, 3.0, lon, 1e-9)
}

func TestLambert93ToWGS84_Paris(t *testing.T) {
	lat, lon := lambert93ToWGS84(652296.97, 6861636.36)
	assert.InDelta(t, 48.853, lat, 1e-5)
	assert.InDelta(t, 2.3499, lon, 1e-5)
}

func TestLambert93ToWGS84_Angers(t *testing.T) {
	lat, lon := lambert93ToWGS84(431532.12, 6704903.85)
	assert.InDelta(t, 47.39, lat, 1e-5)
	assert.InDelta(t, -0.56, lon, 1e-5)
}
