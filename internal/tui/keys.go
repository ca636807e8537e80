package tui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spinabot/spinabot/internal/query"
)

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	if m.searchActive {
		return m.handleSearchKeys(msg)
	}
	switch m.modal {
	case modalAssistant:
		return m.handleAssistantKeys(msg)
	case modalHelp:
		m.modal = modalNone
		return m, nil
	case modalQuitConfirm:
		return m.handleQuitConfirmKeys(msg)
	}
	if m.level == levelDetail {
		return m.handleDetailKeys(msg)
	}
	return m.handleListKeys(msg)
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		if m.HasSelection() {
			m.modal = modalQuitConfirm
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	// Navigation
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.ensureCursorVisible()
		}
	case "down", "j":
		if m.cursor < len(m.emails)-1 {
			m.cursor++
			m.ensureCursorVisible()
		}
	case "pgup", "ctrl+u":
		m.cursor = max(m.cursor-m.pageSize, 0)
		m.ensureCursorVisible()
	case "pgdown", "ctrl+d":
		m.cursor = max(min(m.cursor+m.pageSize, len(m.emails)-1), 0)
		m.ensureCursorVisible()
	case "home", "g":
		m.cursor = 0
		m.scrollOffset = 0
	case "end", "G":
		m.cursor = max(len(m.emails)-1, 0)
		m.ensureCursorVisible()
	case "]":
		if m.page < m.totalPages {
			m.page++
			m.cursor = 0
			m.scrollOffset = 0
			return m, m.loadEmails()
		}
	case "[":
		if m.page > 1 {
			m.page--
			m.cursor = 0
			m.scrollOffset = 0
			return m, m.loadEmails()
		}
	case "enter":
		if e, ok := m.current(); ok {
			m.level = levelDetail
			m.detail = nil
			m.detailScroll = 0
			return m, m.loadDetail(e.ID)
		}

	// Search
	case "/":
		m.searchActive = true
		m.searchInput.SetValue(m.search)
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()
	case "esc":
		if m.search != "" {
			m.search = ""
			m.searchInput.SetValue("")
			return m.reload()
		}
		m.selection = make(map[string]bool)

	// Sorting and filters
	case "s":
		i := slices.Index(query.SortKeys, m.sort.Key)
		m.sort.Key = query.SortKeys[(i+1)%len(query.SortKeys)]
		return m.reload()
	case "r":
		if m.sort.Direction == query.SortDesc {
			m.sort.Direction = query.SortAsc
		} else {
			m.sort.Direction = query.SortDesc
		}
		return m.reload()
	case "p":
		m.priority = nextPriority(m.priority)
		return m.reload()
	case "f":
		i := slices.Index(query.Statuses, m.status)
		m.status = query.Statuses[(i+1)%len(query.Statuses)]
		return m.reload()
	case "c", "tab":
		m.category = cycleCategory(m.category, 1)
		return m.reload()
	case "shift+tab":
		m.category = cycleCategory(m.category, -1)
		return m.reload()

	// Selection
	case " ":
		if e, ok := m.current(); ok {
			if m.selection[e.ID] {
				delete(m.selection, e.ID)
			} else {
				m.selection[e.ID] = true
			}
			if m.cursor < len(m.emails)-1 {
				m.cursor++
				m.ensureCursorVisible()
			}
		}
	case "A":
		m.toggleSelectAll()
	case "x":
		m.selection = make(map[string]bool)
	case "m":
		return m.bulkAction("read")
	case "u":
		return m.bulkAction("unread")

	// Panes
	case "?":
		m.modal = modalAssistant
		return m, m.chatInput.Focus()
	case "h":
		m.modal = modalHelp
	case "t":
		m.toggleTheme()
	}
	return m, nil
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace", "q":
		m.level = levelList
		m.detail = nil
	case "up", "k":
		m.detailScroll = max(m.detailScroll-1, 0)
	case "down", "j":
		m.detailScroll++
	case "left", "h":
		if m.cursor > 0 {
			m.cursor--
			m.ensureCursorVisible()
			m.detailScroll = 0
			return m, m.loadDetail(m.emails[m.cursor].ID)
		}
		return m.showFlash("At first email")
	case "right", "l":
		if m.cursor < len(m.emails)-1 {
			m.cursor++
			m.ensureCursorVisible()
			m.detailScroll = 0
			return m, m.loadDetail(m.emails[m.cursor].ID)
		}
		return m.showFlash("At last email")
	case "t":
		m.toggleTheme()
	case "?":
		m.modal = modalAssistant
		return m, m.chatInput.Focus()
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchActive = false
		m.searchInput.Blur()
		m.search = strings.TrimSpace(m.searchInput.Value())
		return m.reload()
	case "esc":
		m.searchActive = false
		m.searchInput.Blur()
		m.searchInput.SetValue(m.search)
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleAssistantKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.modal = modalNone
		m.chatInput.Blur()
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.chatInput.Value())
		if text == "" || m.chatPending {
			return m, nil
		}
		m.chatInput.SetValue("")
		m.chatPending = true
		m.suggestion = nil
		return m, m.ask(text)
	case "ctrl+f":
		if m.suggestion == nil {
			return m, nil
		}
		m.applySuggestion(*m.suggestion)
		m.suggestion = nil
		m.modal = modalNone
		m.chatInput.Blur()
		return m.reload()
	}
	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

func (m Model) handleQuitConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "q":
		m.quitting = true
		return m, tea.Quit
	default:
		m.modal = modalNone
		return m, nil
	}
}

// applySuggestion replaces the tab filters with the assistant's suggestion.
func (m *Model) applySuggestion(f query.Filter) {
	m.category = query.CategoryAll
	if f.Category != "" {
		m.category = f.Category
	}
	m.status = query.StatusAll
	if f.Status != "" {
		m.status = f.Status
	}
	m.priority = f.Priority
	m.search = f.Search
	m.searchInput.SetValue(f.Search)
}

// toggleSelectAll selects every loaded email, or clears the selection when
// all are already selected.
func (m *Model) toggleSelectAll() {
	all := len(m.emails) > 0
	for _, e := range m.emails {
		if !m.selection[e.ID] {
			all = false
			break
		}
	}
	if all {
		m.selection = make(map[string]bool)
		return
	}
	for _, e := range m.emails {
		m.selection[e.ID] = true
	}
}

// bulkAction acknowledges an action over the selection, or the cursor row
// when nothing is selected. Records stay read-only.
func (m Model) bulkAction(action string) (tea.Model, tea.Cmd) {
	n := len(m.selection)
	if n == 0 {
		if _, ok := m.current(); !ok {
			return m, nil
		}
		n = 1
	}
	m.selection = make(map[string]bool)
	noun := "emails"
	if n == 1 {
		noun = "email"
	}
	return m.showFlash(fmt.Sprintf("Marked %d %s as %s", n, noun, action))
}

func (m *Model) toggleTheme() {
	if m.theme == themeDark {
		m.theme = themeLight
	} else {
		m.theme = themeDark
	}
}

// nextPriority cycles any → 1 … 5 → any.
func nextPriority(p *int) *int {
	if p == nil {
		v := query.PriorityCritical
		return &v
	}
	if *p >= query.PriorityVeryLow {
		return nil
	}
	v := *p + 1
	return &v
}

func cycleCategory(c query.Category, step int) query.Category {
	i := slices.Index(sidebarCategories, c)
	n := len(sidebarCategories)
	return sidebarCategories[((i+step)%n+n)%n]
}
