package cmd

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spinabot/spinabot/internal/session"
)

var sessionsJSON bool

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and clean up onboarding sessions",
	Long: `Inspect and clean up onboarding sessions in the configured store.

Only the sqlite and redis backends persist sessions between processes; the
memory backend is always empty here.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSessionStore(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}
		defer store.Close()

		list, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		slices.SortFunc(list, func(a, b *session.Session) int {
			return b.UpdatedAt.Compare(a.UpdatedAt)
		})

		out := cmd.OutOrStdout()
		if sessionsJSON {
			return writeJSON(out, list)
		}
		if len(list) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		sessionTable(list, time.Now(), isTerminal(os.Stdout)).render(out)
		return nil
	},
}

var sessionsSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSessionStore(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}
		defer store.Close()

		n, err := session.NewManager(store, cfg.Session.TTL.Duration).Sweep(cmd.Context())
		if err != nil {
			return fmt.Errorf("sweep sessions: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired session(s).\n", n)
		return nil
	},
}

func sessionTable(list []*session.Session, now time.Time, pretty bool) *table {
	t := newTable(pretty,
		column{header: "ID"},
		column{header: "Provider"},
		column{header: "Email"},
		column{header: "Tools"},
		column{header: "Connected"},
		column{header: "Updated"},
		column{header: "Expires"},
	)
	for _, s := range list {
		tools := make([]string, 0, len(s.ToolCredentials))
		for tool := range s.ToolCredentials {
			tools = append(tools, tool)
		}
		slices.Sort(tools)
		if s.TaskToolConfig != nil && s.TaskToolConfig.Connected {
			tools = append(tools, s.TaskToolConfig.Tool)
		}

		expires := "never"
		if !s.ExpiresAt.IsZero() {
			expires = "in " + s.ExpiresAt.Sub(now).Round(time.Minute).String()
			if s.Expired(now) {
				expires = "expired"
			}
		}
		connected := "no"
		if s.IsConnected {
			connected = "yes"
		}
		t.add(
			s.ID,
			s.ProviderID(),
			s.Email(),
			strings.Join(tools, ","),
			connected,
			s.UpdatedAt.Local().Format("2006-01-02 15:04"),
			expires,
		)
	}
	return t
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsSweepCmd)
	sessionsListCmd.Flags().BoolVar(&sessionsJSON, "json", false, "Output as JSON")
}
