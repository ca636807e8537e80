package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spinabot/spinabot/internal/catalog"
	"github.com/spinabot/spinabot/internal/onboard"
	"github.com/spinabot/spinabot/internal/session"
)

const skipTaskTool = "skip"

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Walk through the onboarding flow interactively",
	Long: `Walk through the SPINABOT onboarding flow in the terminal: pick an email
provider, sign in, answer the setup questions, connect a tool and a task
manager, and connect the inbox.

Nothing is contacted; logins and integrations are simulated. The finished
session is saved to the configured session store.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openSessionStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}
		defer store.Close()
		sessions := session.NewManager(store, cfg.Session.TTL.Duration)

		cat := catalog.Default()
		flow, err := newFlow(cfg, cat)
		if err != nil {
			return err
		}

		s, err := sessions.Create(ctx)
		if err != nil {
			return err
		}

		w := &wizard{
			ctx:        ctx,
			out:        cmd.OutOrStdout(),
			flow:       flow,
			cat:        cat,
			sess:       s,
			accessible: !isTerminal(os.Stdin),
		}
		if err := w.run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Fprintln(w.out, "Onboarding cancelled.")
				return nil
			}
			return err
		}
		if err := sessions.Save(ctx, s); err != nil {
			return fmt.Errorf("save session: %w", err)
		}

		fmt.Fprintln(w.out)
		fmt.Fprintf(w.out, "Inbox connected. Session %s saved (%s backend).\n", s.ID, cfg.Session.Backend)
		fmt.Fprintln(w.out, "Open the dashboard with: spinabot tui")
		return nil
	},
}

// wizard drives the onboarding flow with huh forms, one step per form.
type wizard struct {
	ctx        context.Context
	out        io.Writer
	flow       *onboard.Flow
	cat        *catalog.Catalog
	sess       *session.Session
	accessible bool
}

func (w *wizard) run() error {
	steps := []func() error{
		w.provider,
		w.login,
		w.quiz,
		w.integration,
		w.taskTool,
		w.connect,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (w *wizard) form(fields ...huh.Field) error {
	return huh.NewForm(huh.NewGroup(fields...)).
		WithAccessible(w.accessible).
		RunWithContext(w.ctx)
}

// retry runs step until it succeeds, showing validation messages in
// between. Other errors end the wizard.
func (w *wizard) retry(step func() error) error {
	for {
		err := step()
		var verr *onboard.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		fmt.Fprintf(w.out, "  %s\n", verr.Message)
	}
}

func (w *wizard) provider() error {
	opts := make([]huh.Option[string], 0, len(w.cat.Providers))
	for _, p := range w.cat.Providers {
		label := p.Name
		if p.Popular {
			label += " (popular)"
		}
		opts = append(opts, huh.NewOption(label, p.ID))
	}
	id := w.sess.ProviderID()
	if err := w.form(huh.NewSelect[string]().
		Title("Choose your email provider").
		Options(opts...).
		Value(&id)); err != nil {
		return err
	}
	return w.flow.SelectProvider(w.sess, id)
}

func (w *wizard) login() error {
	name := w.cat.ProviderOrDefault(w.sess.ProviderID()).Name
	return w.retry(func() error {
		var email, password string
		if err := w.form(
			huh.NewInput().Title("Sign in to "+name).Placeholder("you@example.com").Value(&email),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password),
		); err != nil {
			return err
		}
		fmt.Fprintln(w.out, "Signing in...")
		return w.flow.Login(w.ctx, w.sess, email, password)
	})
}

func (w *wizard) quiz() error {
	for i, q := range w.cat.Questions {
		var answer string
		if err := w.form(huh.NewSelect[string]().
			Title(fmt.Sprintf("%d/%d  %s", i+1, len(w.cat.Questions), q.Text)).
			Options(huh.NewOptions(q.Options...)...).
			Value(&answer)); err != nil {
			return err
		}
		if err := w.flow.AnswerQuestion(w.sess, i+1, answer); err != nil {
			return err
		}
	}
	return nil
}

func (w *wizard) integration() error {
	opts := make([]huh.Option[string], 0, len(w.cat.Integrations))
	for _, in := range w.cat.Integrations {
		opts = append(opts, huh.NewOption(in.Name+": "+in.Description, in.ID))
	}
	var tool string
	if err := w.form(huh.NewSelect[string]().
		Title("Connect a tool to your inbox").
		Options(opts...).
		Value(&tool)); err != nil {
		return err
	}
	if err := w.flow.SelectIntegration(w.sess, w.sess.ProviderID(), tool); err != nil {
		return err
	}

	in, _ := w.cat.Integration(tool)
	for _, line := range in.Instructions {
		fmt.Fprintf(w.out, "  %s\n", line)
	}
	return w.retry(func() error {
		values := make([]string, len(in.Fields))
		fields := make([]huh.Field, len(in.Fields))
		for i, f := range in.Fields {
			input := huh.NewInput().Title(f.Label).Placeholder(f.Placeholder).Value(&values[i])
			if f.Secret {
				input = input.EchoMode(huh.EchoModePassword)
			}
			fields[i] = input
		}
		if err := w.form(fields...); err != nil {
			return err
		}
		submitted := make(map[string]string, len(in.Fields))
		for i, f := range in.Fields {
			submitted[f.Key] = values[i]
		}
		fmt.Fprintf(w.out, "Connecting %s...\n", in.Name)
		return w.flow.SubmitToolCredentials(w.ctx, w.sess, submitted)
	})
}

func (w *wizard) taskTool() error {
	opts := make([]huh.Option[string], 0, len(w.cat.TaskTools)+1)
	for _, t := range w.cat.TaskTools {
		opts = append(opts, huh.NewOption(t.Name, t.ID))
	}
	opts = append(opts, huh.NewOption("Skip for now", skipTaskTool))

	id := w.sess.TaskToolID()
	if err := w.form(huh.NewSelect[string]().
		Title("Choose a task management tool").
		Options(opts...).
		Value(&id)); err != nil {
		return err
	}
	if id == skipTaskTool {
		w.flow.SkipTaskTool(w.sess)
		return nil
	}
	if err := w.flow.SelectTaskTool(w.sess, id); err != nil {
		return err
	}

	tool := w.cat.TaskToolOrDefault(id)
	return w.retry(func() error {
		var in onboard.TaskCredentials
		if err := w.form(
			huh.NewInput().Title(tool.Name+" API key").EchoMode(huh.EchoModePassword).Value(&in.APIKey),
			huh.NewInput().Title("API URL").Placeholder(tool.DefaultAPIURL).Value(&in.APIURL),
			huh.NewInput().Title("Workspace ID (optional)").Value(&in.WorkspaceID),
		); err != nil {
			return err
		}
		fmt.Fprintf(w.out, "Connecting %s...\n", tool.Name)
		return w.flow.SubmitTaskCredentials(w.ctx, w.sess, in)
	})
}

func (w *wizard) connect() error {
	return w.retry(func() error {
		count := strconv.Itoa(w.sess.Count())
		if err := w.form(huh.NewInput().
			Title("How many emails should SPINABOT process?").
			Value(&count).
			Validate(func(s string) error {
				if _, err := strconv.Atoi(s); err != nil {
					return errors.New("enter a whole number")
				}
				return nil
			})); err != nil {
			return err
		}
		n, _ := strconv.Atoi(count)
		return w.flow.Connect(w.ctx, w.sess, n, func(step, total int, msg string) {
			fmt.Fprintf(w.out, "  [%d/%d] %s\n", step+1, total, msg)
		})
	})
}

func init() {
	rootCmd.AddCommand(onboardCmd)
}
