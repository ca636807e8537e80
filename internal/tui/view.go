package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spinabot/spinabot/internal/assistant"
	"github.com/spinabot/spinabot/internal/query"
)

const (
	themeDark  = "dark"
	themeLight = "light"
)

// palette is the set of colors for one theme.
type palette struct {
	bg, bgAlt, bgCursor, bgBar lipgloss.Color
	fg, muted, accent          lipgloss.Color
}

var palettes = map[string]palette{
	themeDark: {
		bg: "#000000", bgAlt: "#181818", bgCursor: "#282828", bgBar: "#333333",
		fg: "#ffffff", muted: "#999999", accent: "#8B5CF6",
	},
	themeLight: {
		bg: "#ffffff", bgAlt: "#f0f0f0", bgCursor: "#e0e0e0", bgBar: "#e0e0e0",
		fg: "#000000", muted: "#555555", accent: "#6D28D9",
	},
}

// styles are derived from the active theme.
type styles struct {
	titleBar, stats, tab, activeTab         lipgloss.Style
	header, separator, row, altRow, cursor  lipgloss.Style
	selected, footer, flash, errText, muted lipgloss.Style
	modal, modalTitle, highlight            lipgloss.Style
}

func newStyles(theme string) styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[themeDark]
	}
	base := lipgloss.NewStyle().Background(p.bg).Foreground(p.fg)
	return styles{
		titleBar:   lipgloss.NewStyle().Bold(true).Background(p.bgBar).Foreground(p.fg).Padding(0, 1),
		stats:      base.Foreground(p.muted).Padding(0, 1),
		tab:        base.Foreground(p.muted).Padding(0, 1),
		activeTab:  base.Bold(true).Foreground(p.accent).Underline(true).Padding(0, 1),
		header:     base.Bold(true),
		separator:  base.Faint(true),
		row:        base,
		altRow:     base.Background(p.bgAlt),
		cursor:     base.Background(p.bgCursor),
		selected:   base.Bold(true),
		footer:     base.Foreground(p.muted).Padding(0, 1),
		flash:      base.Italic(true).Foreground(lipgloss.Color("#ffcc00")),
		errText:    base.Bold(true).Foreground(lipgloss.Color("#EF4444")),
		muted:      base.Foreground(p.muted),
		modal:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.accent).Padding(1, 2).Background(p.bg).Foreground(p.fg),
		modalTitle: lipgloss.NewStyle().Bold(true).Foreground(p.accent),
		highlight:  lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#e8d44d")).Bold(true),
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	st := newStyles(m.theme)

	var body string
	if m.level == levelDetail {
		body = m.detailView(st)
	} else {
		body = m.listView(st)
	}

	switch m.modal {
	case modalAssistant:
		return m.overlay(m.assistantView(st))
	case modalHelp:
		return m.overlay(m.helpView(st))
	case modalQuitConfirm:
		return m.overlay(st.modal.Render(
			st.modalTitle.Render("Quit?")+"\n\n"+
				fmt.Sprintf("%d emails are selected. Quit anyway? [y/N]", m.SelectionCount())))
	}
	return body
}

// overlay centers a modal over the screen.
func (m Model) overlay(modal string) string {
	w, h := m.width, m.height
	if w == 0 || h == 0 {
		return modal
	}
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, modal)
}

func (m Model) width80() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

func (m Model) titleBar(st styles) string {
	title := "SPINABOT Email Dashboard"
	if m.version != "" {
		title += " " + m.version
	}
	right := m.theme + " theme"
	w := m.width80()
	gap := max(w-lipgloss.Width(title)-lipgloss.Width(right)-2, 1)
	return st.titleBar.Width(w).Render(title + strings.Repeat(" ", gap) + right)
}

func (m Model) statsLine(st styles) string {
	if m.stats == nil {
		return st.stats.Render("Loading stats…")
	}
	return st.stats.Render(fmt.Sprintf("Total %s   Unread %s   With tasks %s   High priority %s",
		formatCount(m.stats.Total), formatCount(m.stats.Unread),
		formatCount(m.stats.WithTasks), formatCount(m.stats.HighPriority)))
}

func (m Model) tabs(st styles) string {
	counts := make(map[query.Category]int, len(m.categories))
	for _, c := range m.categories {
		counts[c.Category] = c.Count
	}
	parts := make([]string, 0, len(sidebarCategories))
	for _, c := range sidebarCategories {
		label := fmt.Sprintf("%s (%d)", categoryTitle(c), counts[c])
		if c == m.category {
			parts = append(parts, st.activeTab.Render(label))
		} else {
			parts = append(parts, st.tab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) infoLine(st styles) string {
	if m.searchActive {
		return " / " + m.searchInput.View()
	}
	arrow := "↓"
	if m.sort.Direction == query.SortAsc {
		arrow = "↑"
	}
	pri := "any"
	if m.priority != nil {
		pri = query.PriorityName(*m.priority)
	}
	info := fmt.Sprintf("Sort: %s %s   Priority: %s   Status: %s   Mode: %s",
		m.sort.Key, arrow, pri, m.status, m.searchMode)
	if m.search != "" {
		info += "   Search: " + m.search
	}
	if n := m.SelectionCount(); n > 0 {
		info += fmt.Sprintf("   Selected: %d", n)
	}
	return st.muted.Render(" " + truncateRunes(info, max(m.width80()-2, 10)))
}

// columns returns the table column widths for the terminal width.
func (m Model) columns() (pri, from, company, subject, date int) {
	w := m.width80()
	pri, from, company, date = 9, 18, 14, 7
	subject = max(w-(2+pri+from+company+date+5), 10)
	return
}

func (m Model) listView(st styles) string {
	var b strings.Builder
	b.WriteString(m.titleBar(st) + "\n")
	b.WriteString(m.statsLine(st) + "\n")
	b.WriteString(m.tabs(st) + "\n")
	b.WriteString(m.infoLine(st) + "\n")

	pri, from, company, subject, date := m.columns()
	header := "  " + padRight("Priority", pri) + " " + padRight("From", from) + " " +
		padRight("Company", company) + " " + padRight("Subject", subject) + " " + padRight("Date", date)
	b.WriteString(st.header.Render(header) + "\n")
	b.WriteString(st.separator.Render(strings.Repeat("─", m.width80())) + "\n")

	switch {
	case m.err != nil:
		b.WriteString(st.errText.Render(" Error: "+m.err.Error()) + "\n")
	case m.loading && len(m.emails) == 0:
		b.WriteString(st.muted.Render(" Loading…") + "\n")
	case len(m.emails) == 0:
		b.WriteString(st.muted.Render(" No emails match the current filters") + "\n")
	}

	now := time.Now()
	end := min(m.scrollOffset+m.pageSize, len(m.emails))
	for i := m.scrollOffset; i < end; i++ {
		e := m.emails[i]
		mark := "  "
		if m.selection[e.ID] {
			mark = "✓ "
		}
		subj := e.Subject
		if e.HasTask {
			subj = "[" + e.TaskID + "] " + subj
		}
		if !e.IsRead {
			subj = "● " + subj
		}
		subj = truncateRunes(subj, subject)
		if m.search != "" {
			subj = highlightTerms(subj, m.search, st.highlight)
		}
		line := mark +
			padRight(m.priorityLabel(e.Priority), pri) + " " +
			padRight(truncateRunes(e.Sender.Name, from), from) + " " +
			padRight(truncateRunes(e.Sender.Company, company), company) + " " +
			padRight(subj, subject) + " " +
			padRight(formatReceived(e.ReceivedAt, now), date)

		style := st.row
		switch {
		case i == m.cursor:
			style = st.cursor
		case m.selection[e.ID]:
			style = st.selected
		case i%2 == 1:
			style = st.altRow
		}
		b.WriteString(style.Width(m.width80()).Render(line) + "\n")
	}

	b.WriteString(m.footer(st))
	return b.String()
}

func (m Model) priorityLabel(level int) string {
	ps, ok := m.catalog.PriorityStyle(level)
	if !ok {
		return query.PriorityName(level)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(ps.Color)).Render(ps.Label)
}

func (m Model) footer(st styles) string {
	if m.flashMessage != "" {
		return st.flash.Render(" " + m.flashMessage)
	}
	pages := max(m.totalPages, 1)
	text := fmt.Sprintf("Page %d/%d · %s emails · / search  s sort  r reverse  p priority  f status  c category  space select  m/u mark  ? assistant  h help  q quit",
		m.page, pages, formatCount(m.total))
	return st.footer.Render(truncateRunes(text, max(m.width80()-2, 10)))
}

func (m Model) detailView(st styles) string {
	var b strings.Builder
	b.WriteString(m.titleBar(st) + "\n")
	if m.detail == nil {
		b.WriteString(st.muted.Render(" Loading…") + "\n")
		return b.String()
	}
	e := m.detail
	w := m.width80()

	var lines []string
	add := func(label, value string) {
		lines = append(lines, st.header.Render(padRight(label, 12))+value)
	}
	add("From:", fmt.Sprintf("%s <%s>", e.Sender.Name, e.Sender.Email))
	add("Company:", e.Sender.Company)
	add("Subject:", e.Subject)
	add("Received:", e.ReceivedAt.Local().Format("Mon, 02 Jan 2006 15:04"))
	add("Priority:", m.priorityLabel(e.Priority))
	add("Category:", lipgloss.NewStyle().Foreground(lipgloss.Color(m.catalog.CategoryColor(string(e.Category)))).Render(string(e.Category)))
	if len(e.Labels) > 0 {
		add("Labels:", strings.Join(e.Labels, ", "))
	}
	if e.HasTask {
		add("Task:", e.TaskID)
	}
	if e.AttachmentCount > 0 {
		add("Attachments:", fmt.Sprintf("%d", e.AttachmentCount))
	}
	lines = append(lines, st.separator.Render(strings.Repeat("─", w)))
	for _, l := range wrapText(e.Body, w-2) {
		if m.search != "" {
			l = highlightTerms(l, m.search, st.highlight)
		}
		lines = append(lines, " "+l)
	}

	visible := max(m.height-3, 5)
	start := min(m.detailScroll, max(len(lines)-visible, 0))
	end := min(start+visible, len(lines))
	for _, l := range lines[start:end] {
		b.WriteString(l + "\n")
	}

	if m.flashMessage != "" {
		b.WriteString(st.flash.Render(" " + m.flashMessage))
	} else {
		b.WriteString(st.footer.Render(fmt.Sprintf("%d/%d · ←/→ prev/next  ↑/↓ scroll  esc back  ? assistant",
			m.cursor+1, len(m.emails))))
	}
	return b.String()
}

func (m Model) assistantView(st styles) string {
	w := min(max(m.width80()-10, 40), 90)
	var b strings.Builder
	b.WriteString(st.modalTitle.Render("Email Assistant") + "\n\n")

	history := m.conv.History()
	if len(history) > 8 {
		history = history[len(history)-8:]
	}
	for _, msg := range history {
		who := "You"
		if msg.Role == assistant.RoleAssistant {
			who = "Assistant"
		}
		for i, l := range wrapText(msg.Content, w-16) {
			prefix := strings.Repeat(" ", 11)
			if i == 0 {
				prefix = padRight(who+":", 11)
			}
			b.WriteString(prefix + l + "\n")
		}
	}
	if m.chatPending {
		b.WriteString(st.muted.Render("Assistant is typing…") + "\n")
	}
	b.WriteString("\n" + m.chatInput.View() + "\n\n")

	hint := "enter send · esc close"
	if m.suggestion != nil {
		hint += " · ctrl+f apply suggested filter"
	}
	if len(m.conv.History()) <= 1 {
		b.WriteString(st.muted.Render("Try: "+strings.Join(assistant.QuickQuestions, " · ")) + "\n")
	}
	b.WriteString(st.muted.Render(hint))
	return st.modal.Width(w).Render(b.String())
}

func (m Model) helpView(st styles) string {
	rows := [][2]string{
		{"↑/k ↓/j", "move cursor"},
		{"pgup/pgdn", "page up/down"},
		{"[ ]", "previous/next result page"},
		{"enter", "open email"},
		{"/", "search (from: company: category: priority: is: has: label: subject:)"},
		{"s / r", "cycle sort key / reverse order"},
		{"p f c", "cycle priority / status / category"},
		{"space / A / x", "toggle / select all / clear selection"},
		{"m / u", "mark selected read / unread"},
		{"?", "assistant"},
		{"t", "toggle theme"},
		{"esc", "clear search or selection"},
		{"q", "quit"},
	}
	var b strings.Builder
	b.WriteString(st.modalTitle.Render("Keys") + "\n\n")
	for _, r := range rows {
		b.WriteString(padRight(r[0], 16) + r[1] + "\n")
	}
	b.WriteString("\n" + st.muted.Render("press any key to close"))
	return st.modal.Render(b.String())
}

func categoryTitle(c query.Category) string {
	switch c {
	case query.CategoryAll:
		return "All"
	case query.CategoryPriority:
		return "Priority"
	}
	s := string(c)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
