package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"animap/internal/mapstore"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write mapped and unmapped JSON artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := mapstore.Open(cfg.Paths.StoreDir)
			if err != nil {
				return fmt.Errorf("open mapping store: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.Export(cmd.Context(), outDir); err != nil {
				return fmt.Errorf("export artifacts: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote mapping artifacts to %s\n", outDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Destination directory for the JSON artifacts")
	return cmd
}
