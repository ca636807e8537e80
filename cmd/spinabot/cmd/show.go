package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spinabot/spinabot/internal/query"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer engine.Close()

		e, err := engine.Get(cmd.Context(), args[0])
		if errors.Is(err, query.ErrNotFound) {
			return fmt.Errorf("email %s not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("get email: %w", err)
		}
		if showJSON {
			return writeJSON(cmd.OutOrStdout(), e)
		}
		printEmail(cmd.OutOrStdout(), e)
		return nil
	},
}

func printEmail(w io.Writer, e *query.Email) {
	fmt.Fprintf(w, "From:        %s <%s>\n", e.Sender.Name, e.Sender.Email)
	fmt.Fprintf(w, "Company:     %s\n", e.Sender.Company)
	fmt.Fprintf(w, "Subject:     %s\n", e.Subject)
	fmt.Fprintf(w, "Received:    %s\n", e.ReceivedAt.Local().Format("Mon, 02 Jan 2006 15:04"))
	fmt.Fprintf(w, "Priority:    %s (%d)\n", query.PriorityName(e.Priority), e.Priority)
	fmt.Fprintf(w, "Category:    %s\n", e.Category)
	if len(e.Labels) > 0 {
		fmt.Fprintf(w, "Labels:      %s\n", strings.Join(e.Labels, ", "))
	}
	if e.HasTask {
		fmt.Fprintf(w, "Task:        %s\n", e.TaskID)
	}
	if e.AttachmentCount > 0 {
		fmt.Fprintf(w, "Attachments: %d\n", e.AttachmentCount)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, e.Body)
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")
}
