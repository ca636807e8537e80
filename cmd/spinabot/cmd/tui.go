package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spinabot/spinabot/internal/assistant"
	"github.com/spinabot/spinabot/internal/catalog"
	"github.com/spinabot/spinabot/internal/tui"
)

var tuiTheme string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive email dashboard",
	Long: `Open the SPINABOT email dashboard in the terminal.

Navigation:
  ↑/k, ↓/j    Move up/down
  PgUp/PgDn   Page up/down
  [ ]         Previous/next result page
  Enter       Open email
  Esc         Go back / clear search or selection
  /           Search (from: company: priority: is: has: …)
  Tab, c      Cycle category
  s, r        Cycle sort key, reverse order
  p, f        Cycle priority, status filter

Selection:
  Space       Toggle selection
  A           Select all visible
  x           Clear selection
  m, u        Mark selected read/unread

Other:
  ?           Email assistant
  t           Toggle dark/light theme
  h           Help
  q           Quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer engine.Close()

		model := tui.New(engine, tui.Options{
			Version:    Version,
			Theme:      tuiTheme,
			SearchMode: searchMode(cfg),
			Catalog:    catalog.Default(),
			Script:     assistant.DefaultScript(),
			Assistant:  assistantConfig(cfg),
		})
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().StringVar(&tuiTheme, "theme", "dark", "Color theme: dark, light")
}
