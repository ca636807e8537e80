package tui

import (
	"regexp"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spinabot/spinabot/internal/assistant"
	"github.com/spinabot/spinabot/internal/query"
	"github.com/spinabot/spinabot/internal/query/querytest"
	"github.com/spinabot/spinabot/internal/simulate"
	"github.com/spinabot/spinabot/internal/testutil"
)

// ansiStart is the escape sequence prefix found in styled terminal output.
const ansiStart = "\x1b["

// colorProfileMu serializes tests that mutate the global lipgloss color profile.
var colorProfileMu sync.Mutex

// forceColorProfile sets lipgloss to ANSI color output for tests that assert
// on styled output and restores the original profile via t.Cleanup.
func forceColorProfile(t *testing.T) {
	t.Helper()
	colorProfileMu.Lock()
	orig := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.ANSI)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(orig)
		colorProfileMu.Unlock()
	})
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

// testEmails is a small inbox covering every filter dimension.
func testEmails() []query.Email {
	return []query.Email{
		testutil.NewEmail("001").
			WithSender("Sarah Johnson", "sarah@techcorp.com", "TechCorp").
			WithSubject("Urgent: Server Migration Required by Friday").
			WithPriority(query.PriorityCritical).
			WithCategory(query.CategoryUpdates).
			WithTask("TASK-001").
			WithReceivedAt(testNow.Add(-1 * time.Hour)).
			Build(),
		testutil.NewEmail("002").
			WithSender("Salesforce Team", "team@salesforce.com", "Salesforce").
			WithSubject("New Lead: Enterprise Client Inquiry").
			WithPriority(query.PriorityHigh).
			WithCategory(query.CategorySales).
			Read().
			WithReceivedAt(testNow.Add(-2 * time.Hour)).
			Build(),
		testutil.NewEmail("003").
			WithSender("Marketing Hub", "news@hub.io", "Hub").
			WithSubject("Quarterly newsletter").
			WithBody("Line one of the newsletter.\nLine two.").
			WithPriority(query.PriorityLow).
			WithCategory(query.CategoryMarketing).
			Read().
			Starred().
			WithReceivedAt(testNow.Add(-3 * time.Hour)).
			Build(),
	}
}

// newTestModel creates a Model with common test defaults and loads the
// engine's first page synchronously.
func newTestModel(t *testing.T, engine *querytest.MockEngine) Model {
	t.Helper()
	m := New(engine, Options{
		Version:   "test123",
		Assistant: assistant.Config{Delayer: simulate.Instant},
	})
	m.width = 100
	m.height = 24
	m.pageSize = 10
	m = sendMsg(t, m, m.fetchEmails(m.loadRequestID)())
	m = sendMsg(t, m, m.loadStats()())
	return m
}

func newLoadedModel(t *testing.T) (Model, *querytest.MockEngine) {
	t.Helper()
	engine := &querytest.MockEngine{Emails: testEmails()}
	return newTestModel(t, engine), engine
}

// sendKey sends a key message to the model and returns the updated concrete Model.
func sendKey(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	newM, cmd := m.Update(k)
	return newM.(Model), cmd
}

// sendMsg delivers an arbitrary message and drops the returned command.
func sendMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	newM, _ := m.Update(msg)
	return newM.(Model)
}

// runCmd executes cmd and feeds its message back into the model.
func runCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	return sendMsg(t, m, cmd())
}

// assertModal checks that the model is in the expected modal state.
func assertModal(t *testing.T, m Model, expected modalType) {
	t.Helper()
	if m.modal != expected {
		t.Errorf("expected modal %v, got %v", expected, m.modal)
	}
}

// assertLevel checks that the model is at the expected view level.
func assertLevel(t *testing.T, m Model, expected viewLevel) {
	t.Helper()
	if m.level != expected {
		t.Errorf("expected level %v, got %v", expected, m.level)
	}
}

// key returns a KeyMsg for a single rune (e.g., key('x'), key(' '))
func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func keyText(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyEnter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }

func keyEsc() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEscape} }

func keyTab() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyTab} }

func keyShiftTab() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyShiftTab} }

func keyDown() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyDown} }

func keyRight() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRight} }

func keySpace() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}} }
