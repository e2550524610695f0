package commands

import (
	"context"
	"errors"
	"time"

	"github.com/foodfacts/scraper/internal/domain"
	"github.com/foodfacts/scraper/internal/infrastructure/export"
	"github.com/foodfacts/scraper/internal/infrastructure/fetcher"
	"github.com/foodfacts/scraper/internal/infrastructure/openfoodfacts"
	"github.com/foodfacts/scraper/internal/infrastructure/store"
	"github.com/foodfacts/scraper/internal/usecase"
	"github.com/spf13/cobra"
)

var (
	scrapeCategories []string
	scrapePages      int
	scrapeLimit      int
	scrapeNoExport   bool
)

func init() {
	scrapeCmd.Flags().StringSliceVar(&scrapeCategories, "categories", nil, "category slugs to scrape (overrides discovery.categories)")
	scrapeCmd.Flags().IntVar(&scrapePages, "pages", 0, "listing pages per category (overrides discovery.max_pages)")
	scrapeCmd.Flags().IntVar(&scrapeLimit, "limit", 0, "maximum barcodes, 0 for unlimited (overrides discovery.limit)")
	scrapeCmd.Flags().BoolVar(&scrapeNoExport, "no-export", false, "skip the spreadsheet and chart export")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--categories a,b] [--pages N] [--limit N] [--no-export]",
	Short: "Discovers and scrapes products into the store, then exports them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		req := usecase.ScrapeRequest{
			Categories: cfg.Discovery.Categories,
			MaxPages:   cfg.Discovery.MaxPages,
			Limit:      cfg.Discovery.Limit,
		}
		if cmd.Flags().Changed("categories") {
			req.Categories = scrapeCategories
		}
		if cmd.Flags().Changed("pages") {
			req.MaxPages = scrapePages
		}
		if cmd.Flags().Changed("limit") {
			req.Limit = scrapeLimit
		}

		repo, err := store.Open(ctx, cfg.Store, logger)
		if err != nil {
			return err
		}
		defer closeRepository(repo)

		client := fetcher.NewClient(fetcher.Options{
			UserAgent:      cfg.Scraper.UserAgent,
			AcceptLanguage: cfg.Scraper.AcceptLanguage,
			Timeout:        cfg.Scraper.Timeout,
			Retries:        cfg.Scraper.Retries,
			RetryBase:      cfg.Scraper.RetryBase,
			DelayMin:       cfg.Scraper.DelayMin,
			DelayMax:       cfg.Scraper.DelayMax,
		}, logger)

		scraper := usecase.NewScrapeService(
			openfoodfacts.NewDiscoverer(client, cfg.Scraper.BaseURL, logger),
			openfoodfacts.NewExtractor(client, cfg.Scraper.BaseURL, logger),
			repo,
			usecase.ScrapeServiceConfig{
				ItemDelayMin: cfg.Scraper.ItemDelayMin,
				ItemDelayMax: cfg.Scraper.ItemDelayMax,
			},
			logger,
		)

		if _, err := scraper.Run(ctx, req); err != nil {
			return err
		}

		if scrapeNoExport {
			return nil
		}
		return runExport(ctx, repo)
	},
}

// runExport exports the store; an empty store is only a warning
func runExport(ctx context.Context, repo domain.ProductRepository) error {
	exporter := export.NewFileExporter(cfg.Export, logger)
	_, err := usecase.NewExportService(repo, exporter, logger).Export(ctx)
	if errors.Is(err, domain.ErrNoRecords) {
		return nil
	}
	return err
}

func closeRepository(repo domain.ProductRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.Close(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to close store")
	}
}
