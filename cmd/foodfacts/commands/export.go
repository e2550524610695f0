package commands

import (
	"github.com/foodfacts/scraper/internal/infrastructure/store"
	"github.com/spf13/cobra"
)

var exportDir string

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "output directory (overrides export.dir)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [--dir <path>]",
	Short: "Exports the stored products to a spreadsheet and charts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if exportDir != "" {
			cfg.Export.Dir = exportDir
		}

		repo, err := store.Open(ctx, cfg.Store, logger)
		if err != nil {
			return err
		}
		defer closeRepository(repo)

		return runExport(ctx, repo)
	},
}
