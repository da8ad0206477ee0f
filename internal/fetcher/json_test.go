package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFeature struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
}

func TestDecodeJSONObject(t *testing.T) {
	input := `{"type":"Feature","properties":{"code":"49","nom":"Maine-et-Loire"}}`
	f, err := DecodeJSONObject[testFeature](strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "Feature", f.Type)
	assert.Equal(t, "Maine-et-Loire", f.Properties["nom"])
}

func TestDecodeJSONObject_Invalid(t *testing.T) {
	_, err := DecodeJSONObject[testFeature](strings.NewReader(`not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json: decode object")
}
