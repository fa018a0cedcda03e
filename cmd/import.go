package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/airscope/coverage-cli/internal/importer"
	"github.com/airscope/coverage-cli/internal/model"
)

var (
	importOut          string
	importGeocode      bool
	importWorkers      int
	importAddressField string
	importLimit        int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Build the candidate address list from an external source",
}

var importShpCmd = &cobra.Command{
	Use:   "shp <file.shp>",
	Short: "Import addresses from a shapefile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := importer.FromShapefile(args[0], importAddressField, cfg.Index.BBox)
		if err != nil {
			return err
		}
		return finishImport(cmd, rows)
	},
}

var importXLSXCmd = &cobra.Command{
	Use:   "xlsx <file.xlsx>",
	Short: "Import addresses from an xlsx workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := importer.FromXLSX(args[0])
		if err != nil {
			return err
		}
		return finishImport(cmd, rows)
	},
}

var importOverpassCmd = &cobra.Command{
	Use:   "overpass",
	Short: "Fetch addresses inside the configured bounding box from Overpass",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Geocode.Enabled {
			return eris.New("import: geocoding is disabled in config")
		}
		rows, err := importer.FromOverpass(cmd.Context(), buildGeocoder(nil), cfg.Index.BBox, importLimit)
		if err != nil {
			return err
		}
		return finishImport(cmd, rows)
	},
}

// finishImport optionally backfills missing coordinates and writes the rows
// to the output CSV.
func finishImport(cmd *cobra.Command, rows []model.InputRow) error {
	if importGeocode {
		filled, err := importer.BackfillCoordinates(cmd.Context(), buildGeocoder(nil), rows, importWorkers)
		if err != nil {
			return err
		}
		zap.L().Info("import: geocode backfill complete", zap.Int("filled", filled))
	}

	out := importOut
	if out == "" {
		out = cfg.Index.InputCSV
	}
	if err := importer.WriteInputCSV(out, rows); err != nil {
		return err
	}

	zap.L().Info("import complete",
		zap.String("output", out),
		zap.Int("rows", len(rows)),
	)
	return nil
}

func init() {
	importCmd.PersistentFlags().StringVar(&importOut, "out", "", "output CSV path (default from config)")
	importCmd.PersistentFlags().BoolVar(&importGeocode, "geocode", false, "geocode rows missing coordinates")
	importCmd.PersistentFlags().IntVar(&importWorkers, "workers", 4, "concurrent geocode lookups")

	importShpCmd.Flags().StringVar(&importAddressField, "address-field", "EZI_ADD", "attribute holding the address")
	importOverpassCmd.Flags().IntVar(&importLimit, "limit", 5000, "maximum addresses to fetch")

	importCmd.AddCommand(importShpCmd)
	importCmd.AddCommand(importXLSXCmd)
	importCmd.AddCommand(importOverpassCmd)
	rootCmd.AddCommand(importCmd)
}
