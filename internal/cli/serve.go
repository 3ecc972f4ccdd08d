package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	apphttp "github.com/Ryuko2/dinerito/internal/http"
	"github.com/Ryuko2/dinerito/internal/log"
	"github.com/Ryuko2/dinerito/internal/migrate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync layer and JSON API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	app, err := Bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()
	logger := app.Logger

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Legacy data goes up through the normal add path before the
	// managers start consuming snapshots.
	runner := migrate.NewRunner(app.Config.DataDir, app.Cache, app.Backend.Managers.Targets(), logger)
	if err := runner.Run(ctx); err != nil {
		logger.Warn("legacy migration incomplete, will retry next start", log.FieldError, err)
	}

	app.Backend.Managers.StartAll(ctx)
	defer app.Backend.Managers.CloseAll()

	srv := &http.Server{
		Addr:           ":" + app.Config.Port,
		Handler:        apphttp.NewServer(app.Backend.Managers, logger).Handler(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
