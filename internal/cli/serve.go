package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bigislandtech/meetup-sync/internal/api"
	"github.com/bigislandtech/meetup-sync/internal/calendar"
	"github.com/bigislandtech/meetup-sync/internal/config"
	"github.com/bigislandtech/meetup-sync/internal/logger"
	"github.com/bigislandtech/meetup-sync/internal/metrics"
	"github.com/bigislandtech/meetup-sync/internal/storage"
	"github.com/spf13/cobra"
)

var flagAddr string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dataset over a read-only HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&flagAddr, "addr", ":8080", "Listen address")
	return cmd
}

func datasetStore(cfg config.Config) *storage.Store {
	return storage.New(cfg.Dataset.Path, cfg.Dataset.ArrayName)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	log := setupLogger(cmd, cfg)

	handler := api.NewRouter(api.Options{
		Dataset: datasetStore(cfg),
		Metrics: metrics.New(),
		Calendar: calendar.Options{
			Name:            cfg.Source.Group,
			Location:        loc,
			DefaultDuration: cfg.Extract.DefaultDuration,
		},
		Location: loc,
		Log:      log,
	})

	srv := &http.Server{
		Addr:              flagAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx := commandContext(cmd)
	errCh := make(chan error, 1)
	go func() {
		log.Info("Serving events API", logger.Fields{"addr": flagAddr, "dataset": cfg.Dataset.Path})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
