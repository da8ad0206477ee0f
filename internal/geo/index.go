package geo

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/crimemap/internal/model"
)

// ErrLookup matches any failure to find a department code in the index.
var ErrLookup = eris.New("geo: department lookup failed")

// LookupError reports a department code absent from the boundary index.
type LookupError struct {
	Code string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("geo: department %q not in boundary index", e.Code)
}

// Is makes errors.Is(err, ErrLookup) hold for every LookupError.
func (e *LookupError) Is(target error) bool {
	return target == ErrLookup
}

// NewBoundary builds a DepartmentBoundary and derives its centroid.
// The geometry must be a WGS84 Polygon or MultiPolygon.
func NewBoundary(code, name string, g geom.T) (model.DepartmentBoundary, error) {
	switch g.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
	default:
		return model.DepartmentBoundary{}, eris.Errorf("geo: department %s: unsupported geometry %T", code, g)
	}

	c, err := xy.Centroid(g)
	if err != nil {
		return model.DepartmentBoundary{}, eris.Wrapf(err, "geo: centroid of department %s", code)
	}

	return model.DepartmentBoundary{
		Code:     code,
		Name:     name,
		Geometry: g,
		Centroid: model.LatLon{Lat: c[1], Lon: c[0]},
	}, nil
}

// Index maps department codes to names and centroids. It is read-only
// after BuildIndex and safe for concurrent use.
type Index struct {
	boundaries []model.DepartmentBoundary
	byCode     map[string]int
	labels     []string
	geoJSON    []byte
}

// BuildIndex indexes boundaries in the given order. Duplicate codes keep
// the first boundary. A centroid outside WGS84 bounds fails the build,
// which usually means the source was not reprojected.
func BuildIndex(boundaries []model.DepartmentBoundary) (*Index, error) {
	log := zap.L().With(zap.String("component", "geo.index"))

	idx := &Index{
		boundaries: make([]model.DepartmentBoundary, 0, len(boundaries)),
		byCode:     make(map[string]int, len(boundaries)),
		labels:     make([]string, 0, len(boundaries)),
	}

	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(boundaries))}

	for _, b := range boundaries {
		if b.Code == "" {
			return nil, eris.New("geo: boundary with empty code")
		}
		if _, dup := idx.byCode[b.Code]; dup {
			log.Warn("duplicate department code, keeping first", zap.String("code", b.Code))
			continue
		}
		if !b.Centroid.Valid() {
			return nil, eris.Errorf("geo: department %s centroid (%g, %g) outside WGS84 bounds",
				b.Code, b.Centroid.Lat, b.Centroid.Lon)
		}

		idx.byCode[b.Code] = len(idx.boundaries)
		idx.boundaries = append(idx.boundaries, b)
		idx.labels = append(idx.labels, b.Label())

		if b.Geometry != nil {
			fc.Features = append(fc.Features, &geojson.Feature{
				Geometry: b.Geometry,
				Properties: map[string]interface{}{
					"code": b.Code,
					"nom":  b.Name,
				},
			})
		}
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode boundary feature collection")
	}
	idx.geoJSON = data

	log.Info("boundary index built", zap.Int("departments", len(idx.boundaries)))
	return idx, nil
}

// Len returns the number of indexed departments.
func (i *Index) Len() int { return len(i.boundaries) }

// Name returns the department name, or "" when the code is unknown.
func (i *Index) Name(code string) string {
	if n, ok := i.byCode[code]; ok {
		return i.boundaries[n].Name
	}
	return ""
}

// Position returns the centroid of a department.
func (i *Index) Position(code string) (model.LatLon, error) {
	n, ok := i.byCode[code]
	if !ok {
		return model.LatLon{}, &LookupError{Code: code}
	}
	return i.boundaries[n].Centroid, nil
}

// Boundary returns the indexed boundary for a code.
func (i *Index) Boundary(code string) (model.DepartmentBoundary, bool) {
	n, ok := i.byCode[code]
	if !ok {
		return model.DepartmentBoundary{}, false
	}
	return i.boundaries[n], true
}

// Has reports whether a code is indexed.
func (i *Index) Has(code string) bool {
	_, ok := i.byCode[code]
	return ok
}

// Labels returns "{code}-{name}" labels in source order.
func (i *Index) Labels() []string {
	out := make([]string, len(i.labels))
	copy(out, i.labels)
	return out
}

// Codes returns the indexed codes in source order.
func (i *Index) Codes() []string {
	out := make([]string, len(i.boundaries))
	for n, b := range i.boundaries {
		out[n] = b.Code
	}
	return out
}

// GeoJSON returns the boundaries as a FeatureCollection with code and nom properties.
func (i *Index) GeoJSON() []byte { return i.geoJSON }

// Missing returns the codes absent from the index, without duplicates, in input order.
func (i *Index) Missing(codes []string) []string {
	var missing []string
	seen := make(map[string]struct{})
	for _, c := range codes {
		if i.Has(c) {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		missing = append(missing, c)
	}
	return missing
}

// CodeFromLabel extracts the department code from a "{code}-{name}" label.
// Codes never contain '-', names may ("Maine-et-Loire").
func CodeFromLabel(label string) string {
	code, _, _ := strings.Cut(label, "-")
	return code
}
