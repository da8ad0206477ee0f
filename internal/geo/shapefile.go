package geo

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/crimemap/internal/model"
)

// Coordinate reference systems accepted for shapefile input.
const (
	CRSWGS84     = "wgs84"
	CRSLambert93 = "lambert93"
)

// ShapefileOptions selects the attribute fields and source CRS of a shapefile.
type ShapefileOptions struct {
	CodeField string // default INSEE_DEP
	NameField string // default NOM
	CRS       string // wgs84 (default) or lambert93
}

func (o ShapefileOptions) withDefaults() ShapefileOptions {
	if o.CodeField == "" {
		o.CodeField = "INSEE_DEP"
	}
	if o.NameField == "" {
		o.NameField = "NOM"
	}
	if o.CRS == "" {
		o.CRS = CRSWGS84
	}
	return o
}

// LoadShapefile reads department boundaries from a .shp file or a .zip
// archive containing one (as distributed by IGN ADMIN-EXPRESS).
func LoadShapefile(path string, opts ShapefileOptions) ([]model.DepartmentBoundary, error) {
	opts = opts.withDefaults()
	if opts.CRS != CRSWGS84 && opts.CRS != CRSLambert93 {
		return nil, eris.Errorf("geo: unsupported shapefile crs %q", opts.CRS)
	}

	log := zap.L().With(zap.String("component", "geo.shapefile"))

	shpPath := path
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		extractDir, err := os.MkdirTemp("", "crimemap-shp-*")
		if err != nil {
			return nil, eris.Wrap(err, "geo: create extract dir")
		}
		defer os.RemoveAll(extractDir) //nolint:errcheck

		if err := extractZIP(path, extractDir); err != nil {
			return nil, eris.Wrap(err, "geo: extract shapefile zip")
		}
		shpPath, err = findFileByExt(extractDir, ".shp")
		if err != nil {
			return nil, eris.Wrap(err, "geo: find .shp file")
		}
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	codeIdx := fieldIndex(reader, opts.CodeField)
	nameIdx := fieldIndex(reader, opts.NameField)
	if codeIdx < 0 || nameIdx < 0 {
		return nil, eris.Errorf("geo: required shapefile fields (%s, %s) not found", opts.CodeField, opts.NameField)
	}

	var (
		boundaries []model.DepartmentBoundary
		skipped    int
	)
	for reader.Next() {
		_, shape := reader.Shape()

		code := attribute(reader, codeIdx)
		name := attribute(reader, nameIdx)
		if code == "" || name == "" {
			skipped++
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}

		g := polygonToMultiPolygon(poly, opts.CRS == CRSLambert93)
		if g == nil {
			skipped++
			continue
		}

		b, err := NewBoundary(code, name, g)
		if err != nil {
			log.Warn("skipping shapefile record", zap.String("code", code), zap.Error(err))
			skipped++
			continue
		}
		boundaries = append(boundaries, b)
	}

	if skipped > 0 {
		log.Warn("skipped shapefile records", zap.Int("skipped", skipped))
	}
	log.Debug("shapefile decoded", zap.String("path", path), zap.Int("boundaries", len(boundaries)))
	return boundaries, nil
}

func attribute(reader *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
}

// polygonToMultiPolygon converts a shapefile polygon into a WGS84
// MultiPolygon. Clockwise rings start a new polygon; counter-clockwise
// rings are holes of the preceding one.
func polygonToMultiPolygon(p *shp.Polygon, fromLambert93 bool) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	var current *geom.Polygon

	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("geo: skipping malformed polygon", zap.Error(err))
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			x, y := p.Points[j].X, p.Points[j].Y
			if fromLambert93 {
				lat, lon := lambert93ToWGS84(x, y)
				x, y = lon, lat
			}
			flat = append(flat, x, y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		if signedArea(flat) < 0 || current == nil {
			flush()
			current = geom.NewPolygon(geom.XY)
		}
		if err := current.Push(ring); err != nil {
			zap.L().Debug("geo: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea is the shoelace area of a flat XY ring; negative when clockwise.
func signedArea(flat []float64) float64 {
	var sum float64
	n := len(flat) / 2
	for k := 0; k < n; k++ {
		x1, y1 := flat[2*k], flat[2*k+1]
		x2, y2 := flat[2*((k+1)%n)], flat[2*((k+1)%n)+1]
		sum += x1*y2 - x2*y1
	}
	return sum / 2
}

// extractZIP extracts a ZIP archive to the destination directory.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		destPath := filepath.Join(destDir, filepath.Base(f.Name))

		rc, err := f.Open()
		if err != nil {
			return eris.Wrapf(err, "open zip entry %s", f.Name)
		}

		outFile, err := os.Create(destPath)
		if err != nil {
			_ = rc.Close()
			return eris.Wrapf(err, "create %s", destPath)
		}

		if _, err := io.Copy(outFile, rc); err != nil {
			_ = outFile.Close()
			_ = rc.Close()
			return eris.Wrapf(err, "extract %s", f.Name)
		}
		_ = outFile.Close()
		_ = rc.Close()
	}

	return nil
}

// findFileByExt finds the first file with the given extension in a directory.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
