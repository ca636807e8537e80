package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show inbox statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer engine.Close()

		ctx := cmd.Context()
		stats, err := engine.Stats(ctx)
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		cats, err := engine.Categories(ctx)
		if err != nil {
			return fmt.Errorf("get categories: %w", err)
		}
		companies, err := engine.Companies(ctx)
		if err != nil {
			return fmt.Errorf("get companies: %w", err)
		}

		out := cmd.OutOrStdout()
		if statsJSON {
			return writeJSON(out, map[string]any{
				"stats":      stats,
				"categories": cats,
				"companies":  companies,
			})
		}

		fmt.Fprintf(out, "  Emails:        %d\n", stats.Total)
		fmt.Fprintf(out, "  Unread:        %d\n", stats.Unread)
		fmt.Fprintf(out, "  With tasks:    %d\n", stats.WithTasks)
		fmt.Fprintf(out, "  High priority: %d\n", stats.HighPriority)
		fmt.Fprintf(out, "  Companies:     %d\n", len(companies))
		fmt.Fprintln(out)
		for _, c := range cats {
			fmt.Fprintf(out, "  %-10s %d\n", c.Category, c.Count)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
}
