package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spinabot/spinabot/internal/query"
)

// listFlags are the dashboard filters shared by list and search.
type listFlags struct {
	category   string
	priority   string
	company    string
	status     string
	searchMode string
	sort       string
	order      string
	page       int
	pageSize   int
	json       bool
}

func (lf *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&lf.category, "category", "", "Category: priority, sales, marketing, updates, social, spam")
	cmd.Flags().StringVar(&lf.priority, "priority", "", "Priority level 1-5 or name (critical, high, medium, low, very-low)")
	cmd.Flags().StringVar(&lf.company, "company", "", "Sender company substring")
	cmd.Flags().StringVar(&lf.status, "status", "", "Status: read, unread, starred, task")
	cmd.Flags().StringVar(&lf.searchMode, "search-mode", "", "How search combines with filters: and, override (default from config)")
	cmd.Flags().StringVar(&lf.sort, "sort", "date", "Sort key: date, sender, priority, subject, company, status")
	cmd.Flags().StringVar(&lf.order, "order", "desc", "Sort order: asc, desc")
	cmd.Flags().IntVar(&lf.page, "page", 1, "Page number")
	cmd.Flags().IntVarP(&lf.pageSize, "limit", "n", 0, "Emails per page (default from config)")
	cmd.Flags().BoolVar(&lf.json, "json", false, "Output as JSON")
}

// apply validates the flags and layers them over base. Explicit flags win
// over the matching search operators.
func (lf *listFlags) apply(base query.Filter) (query.Filter, query.Sort, query.Pagination, error) {
	f := base
	var s query.Sort
	var p query.Pagination

	if lf.category != "" {
		c, err := query.ParseCategory(lf.category)
		if err != nil {
			return f, s, p, err
		}
		f.Category = c
	}
	if lf.priority != "" {
		v, err := query.ParsePriority(lf.priority)
		if err != nil {
			return f, s, p, err
		}
		f.Priority = &v
	}
	if lf.company != "" {
		f.Company = lf.company
	}
	if lf.status != "" {
		st, err := query.ParseStatus(lf.status)
		if err != nil {
			return f, s, p, err
		}
		f.Status = st
	}

	mode := searchMode(cfg)
	if lf.searchMode != "" {
		var err error
		if mode, err = query.ParseSearchMode(lf.searchMode); err != nil {
			return f, s, p, err
		}
	}
	f.SearchMode = mode

	var err error
	if s.Key, err = query.ParseSortKey(lf.sort); err != nil {
		return f, s, p, err
	}
	if s.Direction, err = query.ParseSortDirection(lf.order); err != nil {
		return f, s, p, err
	}

	if lf.page < 1 {
		return f, s, p, fmt.Errorf("page must be at least 1")
	}
	p.Page = lf.page
	p.PageSize = lf.pageSize
	if p.PageSize == 0 {
		p.PageSize = cfg.Dashboard.PageSize
	}
	if p.PageSize < 1 || p.PageSize > query.MaxPageSize {
		return f, s, p, fmt.Errorf("limit must be between 1 and %d", query.MaxPageSize)
	}
	return f, s, p, nil
}

var listOpts listFlags

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List emails with dashboard filters",
	Long: `List emails from the demo inbox using the dashboard filters.

Output is an aligned table on a terminal and tab-separated values when piped.

Examples:
  spinabot list --category priority
  spinabot list --status unread --sort priority --order asc
  spinabot list --company salesforce --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, s, p, err := listOpts.apply(query.Filter{})
		if err != nil {
			return err
		}
		return runList(cmd, f, s, p, listOpts.json)
	},
}

func runList(cmd *cobra.Command, f query.Filter, s query.Sort, p query.Pagination, asJSON bool) error {
	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	page, err := engine.List(cmd.Context(), f, s, p)
	if err != nil {
		return fmt.Errorf("list emails: %w", err)
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), page)
	}
	printPage(cmd.OutOrStdout(), page, isTerminal(os.Stdout))
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listOpts.register(listCmd)
}
