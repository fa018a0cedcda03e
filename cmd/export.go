package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/airscope/coverage-cli/internal/store"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the newest stored result per address",
}

var exportCSVCmd = &cobra.Command{
	Use:   "csv",
	Short: "Export stored results to the results CSV consumed by the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.New(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = cfg.Index.ResultsCSV
		}
		n, err := store.ExportResultsCSV(ctx, st, out)
		if err != nil {
			return err
		}

		zap.L().Info("export complete", zap.String("output", out), zap.Int("rows", n))
		return nil
	},
}

var exportXLSXCmd = &cobra.Command{
	Use:   "xlsx <file.xlsx>",
	Short: "Export stored results to an xlsx workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.New(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		n, err := store.ExportResultsXLSX(ctx, st, args[0])
		if err != nil {
			return err
		}

		zap.L().Info("export complete", zap.String("output", args[0]), zap.Int("rows", n))
		return nil
	},
}

func init() {
	exportCSVCmd.Flags().StringVar(&exportOut, "out", "", "output CSV path (default from config)")
	exportCmd.AddCommand(exportCSVCmd)
	exportCmd.AddCommand(exportXLSXCmd)
	rootCmd.AddCommand(exportCmd)
}
