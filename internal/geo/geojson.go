package geo

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/crimemap/internal/fetcher"
	"github.com/sells-group/crimemap/internal/model"
)

// GeoJSON property keys carrying the department code and name.
const (
	PropCode = "code"
	PropName = "nom"
)

type rawFeature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

type rawFeatureCollection struct {
	Type     string       `json:"type"`
	Features []rawFeature `json:"features"`
}

// LoadGeoJSON reads department boundaries from a GeoJSON file.
func LoadGeoJSON(ctx context.Context, path string) ([]model.DepartmentBoundary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open geojson %s", path)
	}
	defer f.Close() //nolint:errcheck

	return ReadGeoJSON(ctx, f)
}

// ReadGeoJSON decodes a FeatureCollection of department polygons. Features
// without a code or name, or whose geometry is not a Polygon/MultiPolygon,
// are skipped with a warning.
func ReadGeoJSON(ctx context.Context, r io.Reader) ([]model.DepartmentBoundary, error) {
	log := zap.L().With(zap.String("component", "geo.geojson"))

	fc, err := fetcher.DecodeJSONObject[rawFeatureCollection](r)
	if err != nil {
		return nil, eris.Wrap(err, "geo: decode geojson")
	}
	if fc.Type != "FeatureCollection" {
		return nil, eris.Errorf("geo: geojson type %q, want FeatureCollection", fc.Type)
	}

	boundaries := make([]model.DepartmentBoundary, 0, len(fc.Features))
	for i, feat := range fc.Features {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "geo: read geojson")
		}

		code := propertyString(feat.Properties, PropCode)
		name := propertyString(feat.Properties, PropName)
		if code == "" || name == "" {
			log.Warn("skipping feature without code or name", zap.Int("feature", i))
			continue
		}

		var g geom.T
		if err := geojson.Unmarshal(feat.Geometry, &g); err != nil {
			log.Warn("skipping feature with undecodable geometry",
				zap.String("code", code), zap.Error(err))
			continue
		}

		b, err := NewBoundary(code, name, g)
		if err != nil {
			log.Warn("skipping feature", zap.String("code", code), zap.Error(err))
			continue
		}
		boundaries = append(boundaries, b)
	}

	log.Debug("geojson decoded",
		zap.Int("features", len(fc.Features)),
		zap.Int("boundaries", len(boundaries)),
	)
	return boundaries, nil
}

// propertyString reads a string or numeric property. Numeric codes such as
// 1 are kept as written ("1"); callers that need "01" must ship strings.
func propertyString(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
