package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spinabot/spinabot/internal/search"
)

var searchOpts listFlags

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search emails using Gmail-like query syntax",
	Long: `Search the demo inbox using Gmail-like query syntax.

Supported operators:
  from:        Sender name or email
  company:     Sender company
  subject:     Subject text
  category:    priority, sales, marketing, updates, social, spam
  priority:    1-5 or critical, high, medium, low, very-low
  is:          read, unread, starred
  has:         attachment, task
  label:       Label (or l: shorthand)
  before:      Emails before date (YYYY-MM-DD)
  after:       Emails after date (YYYY-MM-DD)
  older_than:  Relative date (7d, 2w, 1m, 1y)
  newer_than:  Relative date

Bare words and "quoted phrases" match sender, subject, body and company.
Dashboard flags such as --status override the matching operator.

Examples:
  spinabot search from:sarah is:unread
  spinabot search company:google has:task newer_than:30d
  spinabot search '"server migration"' --sort priority --order asc`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Join all args to form the query (allows unquoted multi-term searches)
		q := search.Parse(strings.Join(args, " "))
		if q.IsEmpty() {
			return fmt.Errorf("empty search query")
		}
		f, s, p, err := searchOpts.apply(q.Filter())
		if err != nil {
			return err
		}
		return runList(cmd, f, s, p, searchOpts.json)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchOpts.register(searchCmd)
}
