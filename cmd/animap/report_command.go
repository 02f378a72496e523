package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"animap/internal/mapstore"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var unmappedFlag bool
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize mapping store contents",
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

			summary, err := store.Summarize(cmd.Context())
			if err != nil {
				return fmt.Errorf("summarize store: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderSummary(summary))

			if !unmappedFlag {
				return nil
			}
			for _, kind := range []mapstore.NodeKind{mapstore.KindSeries, mapstore.KindSeason, mapstore.KindEpisode} {
				records, err := store.UnmappedByKind(cmd.Context(), kind)
				if err != nil {
					return fmt.Errorf("load unmapped %s records: %w", kind, err)
				}
				if len(records) == 0 {
					continue
				}
				fmt.Fprintf(out, "\nUnmapped %s\n", kindLabel(kind))
				fmt.Fprintln(out, renderUnmapped(records, limitFlag))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&unmappedFlag, "unmapped", false, "Include unmapped records for triage")
	cmd.Flags().IntVar(&limitFlag, "limit", 20, "Maximum unmapped rows per table")
	return cmd
}

func renderSummary(summary mapstore.Summary) string {
	rows := make([][]string, 0, 3)
	for _, kind := range []mapstore.NodeKind{mapstore.KindSeries, mapstore.KindSeason, mapstore.KindEpisode} {
		rows = append(rows, []string{
			kindLabel(kind),
			strconv.Itoa(summary.Mapped[kind]),
			strconv.Itoa(summary.Unmapped[kind]),
		})
	}
	return renderTable(
		[]string{"Kind", "Mapped", "Unmapped"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	)
}

func renderUnmapped(records []mapstore.Unmapped, limit int) string {
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		position := ""
		if r.Season != nil {
			position = "S" + strconv.Itoa(*r.Season)
		}
		if r.Episode != nil {
			position += "E" + strconv.Itoa(*r.Episode)
		}
		last := ""
		if r.LastSequentialID != 0 {
			last = strconv.FormatInt(r.LastSequentialID, 10)
		}
		rows = append(rows, []string{
			r.NodeID,
			position,
			strings.Join(r.SearchTerms, "; "),
			last,
		})
	}
	return renderTable(
		[]string{"Node", "Position", "Search Terms", "Last Id"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	)
}
