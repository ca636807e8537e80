package onboard

import "github.com/spinabot/spinabot/internal/session"

// Step is a page of the onboarding flow.
type Step string

const (
	StepHome            Step = "home"
	StepProducts        Step = "products"
	StepClassifier      Step = "classifier"
	StepOnboarding      Step = "onboarding"
	StepProviders       Step = "providers"
	StepLogin           Step = "login"
	StepIntegrations    Step = "integrations"
	StepToolCredentials Step = "tool_credentials"
	StepTaskSelection   Step = "task_selection"
	StepTaskCredentials Step = "task_credentials"
	StepEmailSettings   Step = "email_settings"
	StepDashboard       Step = "dashboard"
)

// Steps lists the flow in order.
var Steps = []Step{
	StepHome,
	StepProducts,
	StepClassifier,
	StepOnboarding,
	StepProviders,
	StepLogin,
	StepIntegrations,
	StepToolCredentials,
	StepTaskSelection,
	StepTaskCredentials,
	StepEmailSettings,
	StepDashboard,
}

// ParseStep validates a step name.
func ParseStep(s string) (Step, bool) {
	for _, st := range Steps {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Next returns the step after st, skipping task credentials when the task
// tool was skipped. The dashboard is terminal.
func Next(s *session.Session, st Step) Step {
	switch st {
	case StepTaskSelection:
		if s.TaskToolSkipped {
			return StepEmailSettings
		}
		return StepTaskCredentials
	case StepDashboard:
		return StepDashboard
	}
	for i, cur := range Steps {
		if cur == st && i+1 < len(Steps) {
			return Steps[i+1]
		}
	}
	return StepHome
}

// Guard returns the step to redirect to when st's prerequisites are missing,
// or "" when st may be shown.
func Guard(s *session.Session, st Step) Step {
	switch st {
	case StepToolCredentials:
		if s.ConnectedTool == "" || s.ConnectedEmail == "" {
			return StepIntegrations
		}
	case StepDashboard:
		if !s.IsConnected {
			return StepEmailSettings
		}
	}
	return ""
}
