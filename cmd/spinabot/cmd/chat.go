package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spinabot/spinabot/internal/assistant"
	"github.com/spinabot/spinabot/internal/query"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to the email assistant",
	Long: `Talk to the scripted email assistant.

With arguments, sends a single message and prints the reply. Without
arguments, starts an interactive session on stdin; an empty line or
"exit" ends it.

Examples:
  spinabot chat show me unread emails
  spinabot chat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conv := assistant.NewConversation(assistant.DefaultScript(), assistantConfig(cfg))
		out := cmd.OutOrStdout()

		if len(args) > 0 {
			return chatOnce(cmd, conv, strings.Join(args, " "))
		}

		fmt.Fprintln(out, assistant.Welcome)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Try:")
		for _, q := range assistant.QuickQuestions {
			fmt.Fprintf(out, "  - %s\n", q)
		}

		sc := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "\n> ")
			if !sc.Scan() {
				return sc.Err()
			}
			line := strings.TrimSpace(sc.Text())
			if line == "" || line == "exit" || line == "quit" {
				return nil
			}
			if err := chatOnce(cmd, conv, line); err != nil {
				return err
			}
		}
	},
}

func chatOnce(cmd *cobra.Command, conv *assistant.Conversation, text string) error {
	reply, err := conv.Ask(cmd.Context(), text)
	if errors.Is(err, assistant.ErrEmptyMessage) {
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
	if reply.Suggest != nil {
		if q := suggestedQuery(*reply.Suggest); q != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  (try: spinabot search %s)\n", q)
		}
	}
	return nil
}

// suggestedQuery renders a suggested filter in search syntax.
func suggestedQuery(f query.Filter) string {
	var parts []string
	if f.Category != "" && f.Category != query.CategoryAll {
		parts = append(parts, "category:"+string(f.Category))
	}
	if f.Priority != nil {
		parts = append(parts, fmt.Sprintf("priority:%d", *f.Priority))
	}
	switch f.Status {
	case query.StatusRead, query.StatusUnread, query.StatusStarred:
		parts = append(parts, "is:"+string(f.Status))
	case query.StatusTask:
		parts = append(parts, "has:task")
	}
	if f.Company != "" {
		parts = append(parts, "company:"+quoteIfSpaced(f.Company))
	}
	if f.Search != "" {
		parts = append(parts, quoteIfSpaced(f.Search))
	}
	return strings.Join(parts, " ")
}

func quoteIfSpaced(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}
