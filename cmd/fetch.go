package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crimemap/internal/config"
	"github.com/sells-group/crimemap/internal/fetcher"
)

type fetchTarget struct {
	name string
	url  string
	path string
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the crime CSV and department GeoJSON",
	Long:  "Downloads the configured inputs to data.csv_path and data.geojson_path. A file is only rewritten when the server reports a new ETag.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetch.MaxRetries,
		})

		g, gctx := errgroup.WithContext(cmd.Context())
		for _, t := range fetchTargets(cfg) {
			g.Go(func() error {
				log := zap.L().With(zap.String("input", t.name), zap.String("path", t.path))
				changed, n, err := f.SyncFile(gctx, t.url, t.path)
				if err != nil {
					return err
				}
				if !changed {
					log.Info("input unchanged")
					return nil
				}
				log.Info("input downloaded", zap.Int64("bytes", n))
				return nil
			})
		}
		return g.Wait()
	},
}

// fetchTargets pairs each configured URL with its destination path.
func fetchTargets(c *config.Config) []fetchTarget {
	var targets []fetchTarget
	if c.Fetch.CSVURL != "" && c.Data.CSVPath != "" {
		targets = append(targets, fetchTarget{name: "crimes", url: c.Fetch.CSVURL, path: c.Data.CSVPath})
	}
	if c.Fetch.GeoJSONURL != "" && c.Data.GeoJSONPath != "" {
		targets = append(targets, fetchTarget{name: "boundaries", url: c.Fetch.GeoJSONURL, path: c.Data.GeoJSONPath})
	}
	return targets
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
