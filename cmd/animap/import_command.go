package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"animap/internal/catalog"
	"animap/internal/mapstore"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var categoryFlag string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Seed the mapping store from a previously exported mapping file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			categories, err := parseCategories(categoryFlag)
			if err != nil {
				return err
			}
			if len(categories) != 1 {
				return fmt.Errorf("import requires a single category (series or movie)")
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read mapping file: %w", err)
			}

			store, err := mapstore.Open(cfg.Paths.StoreDir)
			if err != nil {
				return fmt.Errorf("open mapping store: %w", err)
			}
			defer func() { _ = store.Close() }()

			imported, err := store.ImportLegacy(cmd.Context(), data, categories[0], logger)
			if err != nil {
				return fmt.Errorf("import mappings: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d mappings from %s\n", imported, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&categoryFlag, "category", string(catalog.CategorySeries), "Category the file belongs to (series or movie)")
	return cmd
}
