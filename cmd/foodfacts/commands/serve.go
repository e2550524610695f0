package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpDelivery "github.com/foodfacts/scraper/internal/delivery/http"
	"github.com/foodfacts/scraper/internal/infrastructure/cache"
	"github.com/foodfacts/scraper/internal/infrastructure/store"
	"github.com/foodfacts/scraper/internal/usecase"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the stored catalog over a read-only HTTP API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger.Info().
			Str("environment", cfg.Server.Environment).
			Str("port", cfg.Server.Port).
			Str("store", cfg.Store.Driver).
			Str("cache", cfg.Cache.Type).
			Dur("cache_ttl", cfg.Cache.TTL).
			Msg("starting foodfacts API")

		repo, err := store.Open(ctx, cfg.Store, logger)
		if err != nil {
			return err
		}
		defer closeRepository(repo)

		cacheStore, err := cache.New(ctx, cfg.Cache)
		if err != nil {
			return err
		}
		defer cacheStore.Close()

		catalog := usecase.NewCatalogService(repo, cacheStore, usecase.CatalogServiceConfig{
			CacheTTL: cfg.Cache.TTL,
		}, logger)

		handler := httpDelivery.NewHandler(catalog, logger)
		router := httpDelivery.SetupRouter(cfg, handler, logger)

		server := &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", server.Addr).Msg("server listening")
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
		}

		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}
