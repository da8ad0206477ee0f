package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crimemap/internal/model"
	"github.com/sells-group/crimemap/internal/render"
	"github.com/sells-group/crimemap/internal/state"
)

var (
	exportDepartment string
	exportIndicator  string
	exportUnit       string
	exportFormat     string
	exportOutput     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the filtered table for one selection",
	Long:  "Resolves a department/indicator/unit selection the same way the map page does and writes its table as CSV, XLSX or aligned text.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("export"); err != nil {
			return err
		}
		switch exportFormat {
		case "csv", "xlsx", "table":
		default:
			return eris.Errorf("export: unknown format %q", exportFormat)
		}

		env, err := initEnv(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		sel := model.Selection{
			Department: exportDepartment,
			Indicator:  exportIndicator,
			Unit:       exportUnit,
		}
		view, err := state.Resolve(env.Dataset, env.Index, sel)
		if err != nil {
			return err
		}
		table := render.BuildTable(view)

		var w io.Writer = cmd.OutOrStdout()
		if exportOutput != "" && exportOutput != "-" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return eris.Wrap(err, "export: create output")
			}
			defer f.Close() //nolint:errcheck
			w = f
		}

		if err := writeTable(w, table, exportFormat); err != nil {
			return err
		}

		zap.L().Info("table exported",
			zap.String("department", view.Code),
			zap.String("indicator", view.Selection.Indicator),
			zap.String("unit", view.Selection.Unit),
			zap.Int("rows", table.Len()),
			zap.String("format", exportFormat),
		)
		return nil
	},
}

func writeTable(w io.Writer, t render.Table, format string) error {
	switch format {
	case "xlsx":
		return t.WriteXLSX(w)
	case "table":
		return t.WriteText(w)
	default:
		return t.WriteCSV(w)
	}
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportDepartment, "department", "", "department code or label (default: first department)")
	f.StringVar(&exportIndicator, "indicator", "", "indicator (default: first for the department)")
	f.StringVar(&exportUnit, "unit", "", "unit of count (default: first for the department)")
	f.StringVar(&exportFormat, "format", "csv", "output format: csv, xlsx or table")
	f.StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}
