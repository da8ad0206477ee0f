package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crimemap/internal/config"
	"github.com/sells-group/crimemap/internal/dataset"
	"github.com/sells-group/crimemap/internal/geo"
	"github.com/sells-group/crimemap/internal/model"
	"github.com/sells-group/crimemap/internal/render"
)

// sampleDepartment is logged at startup as a lookup smoke test.
const sampleDepartment = "49"

// appEnv holds the loaded inputs shared by serve, check and export.
type appEnv struct {
	Dataset *dataset.Dataset
	Index   *geo.Index
	// Unmatched lists dataset department codes absent from the boundary index.
	Unmatched []string
}

// initEnv loads the dataset and the boundary index concurrently and
// cross-checks their department codes. With data.strict_references set,
// unmatched codes fail startup.
func initEnv(ctx context.Context, c *config.Config) (*appEnv, error) {
	var (
		ds  *dataset.Dataset
		idx *geo.Index
	)

	cache := dataset.NewFileCache(c.Data.CSVPath, datasetOptions(c.Data))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ds, err = cache.Get(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		idx, err = loadIndex(gctx, c.Data)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	env := &appEnv{Dataset: ds, Index: idx, Unmatched: idx.Missing(ds.Codes())}
	log := zap.L().With(zap.String("component", "startup"))

	if len(env.Unmatched) > 0 {
		if c.Data.StrictReferences {
			return nil, eris.Wrapf(&geo.LookupError{Code: env.Unmatched[0]},
				"startup: dataset codes missing from boundaries: %s", strings.Join(env.Unmatched, ", "))
		}
		log.Warn("dataset codes missing from boundaries",
			zap.Strings("codes", env.Unmatched),
		)
	}

	logSampleLookup(log, idx)
	log.Info("inputs loaded",
		zap.Int("records", ds.Len()),
		zap.Int("departments", idx.Len()),
	)
	return env, nil
}

func datasetOptions(d config.DataConfig) dataset.Options {
	return dataset.Options{Delimiter: d.DelimiterRune(), Charset: d.Charset}
}

// loadIndex reads boundaries from the shapefile when configured, otherwise from GeoJSON.
func loadIndex(ctx context.Context, d config.DataConfig) (*geo.Index, error) {
	var (
		boundaries []model.DepartmentBoundary
		err        error
	)
	if d.ShapefilePath != "" {
		boundaries, err = geo.LoadShapefile(d.ShapefilePath, geo.ShapefileOptions{
			CodeField: d.ShapefileCodeField,
			NameField: d.ShapefileNameField,
			CRS:       d.ShapefileCRS,
		})
	} else {
		boundaries, err = geo.LoadGeoJSON(ctx, d.GeoJSONPath)
	}
	if err != nil {
		return nil, err
	}
	return geo.BuildIndex(boundaries)
}

func logSampleLookup(log *zap.Logger, idx *geo.Index) {
	code := sampleDepartment
	if !idx.Has(code) {
		codes := idx.Codes()
		if len(codes) == 0 {
			return
		}
		code = codes[0]
	}
	log.Info("department "+code+" is "+idx.Name(code), zap.String("code", code))
}

func mapOptions(m config.MapConfig) (render.MapOptions, error) {
	agg, err := render.ParseAggregation(m.ChoroplethAggregation)
	if err != nil {
		return render.MapOptions{}, err
	}
	return render.MapOptions{
		ZoomStart:    m.ZoomStart,
		ZoomControl:  m.ZoomControl,
		TileURL:      m.TileURL,
		Attribution:  m.Attribution,
		MarkerRadius: m.MarkerRadius,
		Choropleth: render.ChoroplethOptions{
			Aggregation: agg,
			Bins:        m.ChoroplethBins,
		},
	}, nil
}
