package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/naka-gawa/pr-tracker/internal/logging"
	"github.com/naka-gawa/pr-tracker/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the pull request and habit tracker API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("address"); addr != "" {
			a.cfg.HTTPServer.Address = addr
		}

		srv := server.NewServer(a.cfg.HTTPServer, a.service, a.gateway, a.log).HTTPServer()

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			a.log.Info("starting http server", slog.String("address", srv.Addr), slog.String("env", a.cfg.Env))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to start http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			a.log.Info("shutting down http server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPServer.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil {
			a.log.Error("http server stopped", logging.Err(err))
			return err
		}
		a.log.Info("http server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("address", "a", "", "Listen address, overriding the configured one")
}
