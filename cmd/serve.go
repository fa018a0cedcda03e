package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/airscope/coverage-cli/internal/geo"
	"github.com/airscope/coverage-cli/internal/server"
	"github.com/airscope/coverage-cli/internal/spatial"
	"github.com/airscope/coverage-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the coverage query API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := store.New(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		proj := geo.NewProjection(cfg.Index.AnchorLat, cfg.Index.AnchorLon)
		results := spatial.NewResultsIndex(proj)
		inputs := spatial.NewInputIndex(proj)

		// Load both indexes concurrently. A missing CSV is not an error;
		// the index stays not-ready until data arrives and a reload runs.
		var g errgroup.Group
		g.Go(func() error { return results.Load(cfg.Index.ResultsCSV) })
		g.Go(func() error { return inputs.Load(cfg.Index.InputCSV) })
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "serve: initial index load")
		}

		srv := server.New(cfg, st, results, inputs, buildGeocoder(st))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			httpSrv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Bool("results_ready", results.Ready()),
			zap.Int("result_rows", results.RowCount()),
			zap.Int("input_rows", inputs.RowCount()),
		)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
