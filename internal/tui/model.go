// Package tui provides the terminal dashboard for spinabot.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spinabot/spinabot/internal/assistant"
	"github.com/spinabot/spinabot/internal/catalog"
	"github.com/spinabot/spinabot/internal/query"
	"github.com/spinabot/spinabot/internal/search"
)

// viewLevel represents the current navigation depth.
type viewLevel int

const (
	levelList viewLevel = iota
	levelDetail
)

// modalType represents the type of modal dialog.
type modalType int

const (
	modalNone modalType = iota
	modalAssistant
	modalHelp
	modalQuitConfirm
)

// Options configuration for TUI.
type Options struct {
	Version    string
	Theme      string // "dark" (default) or "light"
	SearchMode query.SearchMode
	Catalog    *catalog.Catalog
	Script     *assistant.Script
	Assistant  assistant.Config
}

// sidebarCategories are the category tabs, in display order.
var sidebarCategories = []query.Category{
	query.CategoryAll,
	query.CategoryPriority,
	query.CategorySales,
	query.CategoryMarketing,
	query.CategoryUpdates,
}

// Model is the main TUI model following the Elm architecture.
type Model struct {
	engine  query.Engine
	catalog *catalog.Catalog
	version string
	conv    *assistant.Conversation

	// Filters and ordering
	category   query.Category
	priority   *int
	status     query.Status
	sort       query.Sort
	searchMode query.SearchMode
	search     string // committed search query

	// Data
	emails     []query.Email
	total      int
	page       int
	totalPages int
	stats      *query.Stats
	categories []query.CategoryCount
	detail     *query.Email

	// Navigation
	level        viewLevel
	cursor       int
	scrollOffset int
	detailScroll int
	pageSize     int // rows visible per screen

	// Selection of email IDs for bulk actions
	selection map[string]bool

	// Terminal dimensions
	width  int
	height int

	// Loading state
	loading bool
	err     error

	// Request tracking to ignore stale async results
	loadRequestID   uint64
	detailRequestID uint64

	// Search input
	searchActive bool
	searchInput  textinput.Model

	// Assistant pane
	modal       modalType
	chatInput   textinput.Model
	chatPending bool
	suggestion  *query.Filter // filter suggested by the last reply

	theme string

	// Flash message (temporary notification)
	flashMessage string
	flashID      uint64

	quitting bool
}

// New creates a new TUI model with the given options.
func New(engine query.Engine, opts Options) Model {
	si := textinput.New()
	si.Placeholder = "search (from: company: priority: is: has: …)"
	si.CharLimit = 200
	si.Width = 50

	ci := textinput.New()
	ci.Placeholder = "Ask me about your emails"
	ci.CharLimit = 300
	ci.Width = 50

	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	theme := opts.Theme
	if theme != themeLight {
		theme = themeDark
	}

	return Model{
		engine:        engine,
		catalog:       cat,
		version:       opts.Version,
		conv:          assistant.NewConversation(opts.Script, opts.Assistant),
		category:      query.CategoryAll,
		status:        query.StatusAll,
		sort:          query.DefaultSort,
		searchMode:    opts.SearchMode,
		page:          1,
		pageSize:      20,
		loadRequestID: 1,
		selection:     make(map[string]bool),
		loading:       true,
		searchInput:   si,
		chatInput:     ci,
		theme:         theme,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchEmails(m.loadRequestID), m.loadStats())
}

type emailsLoadedMsg struct {
	page      *query.Page
	err       error
	requestID uint64
}

type statsLoadedMsg struct {
	stats      *query.Stats
	categories []query.CategoryCount
	err        error
}

type detailLoadedMsg struct {
	email     *query.Email
	err       error
	requestID uint64
}

type assistantReplyMsg struct {
	reply assistant.Reply
	err   error
}

type flashClearMsg struct {
	id uint64
}

// filter builds the engine filter from the search query and the active
// tabs. Tab filters win over the matching search operators.
func (m Model) filter() query.Filter {
	var f query.Filter
	if m.search != "" {
		f = search.Parse(m.search).Filter()
	}
	if m.category != query.CategoryAll {
		f.Category = m.category
	}
	if m.priority != nil {
		p := *m.priority
		f.Priority = &p
	}
	if m.status != query.StatusAll {
		f.Status = m.status
	}
	f.SearchMode = m.searchMode
	return f
}

// loadEmails starts a new request for the current page.
func (m *Model) loadEmails() tea.Cmd {
	m.loadRequestID++
	m.loading = true
	return m.fetchEmails(m.loadRequestID)
}

// fetchEmails fetches the current page asynchronously.
func (m Model) fetchEmails(requestID uint64) tea.Cmd {
	f, s := m.filter(), m.sort
	pg := query.Pagination{Page: m.page, PageSize: query.MaxPageSize}
	engine := m.engine

	return func() tea.Msg {
		page, err := engine.List(context.Background(), f, s, pg)
		return emailsLoadedMsg{page: page, err: err, requestID: requestID}
	}
}

// loadStats fetches header counts and category tab counts.
func (m Model) loadStats() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		ctx := context.Background()
		stats, err := engine.Stats(ctx)
		if err != nil {
			return statsLoadedMsg{err: err}
		}
		cats, err := engine.Categories(ctx)
		return statsLoadedMsg{stats: stats, categories: cats, err: err}
	}
}

// loadDetail fetches a single email.
func (m *Model) loadDetail(id string) tea.Cmd {
	m.detailRequestID++
	requestID := m.detailRequestID
	engine := m.engine
	return func() tea.Msg {
		email, err := engine.Get(context.Background(), id)
		return detailLoadedMsg{email: email, err: err, requestID: requestID}
	}
}

// ask sends a message to the assistant. The conversation applies the
// simulated think delay.
func (m Model) ask(text string) tea.Cmd {
	conv := m.conv
	return func() tea.Msg {
		reply, err := conv.Ask(context.Background(), text)
		return assistantReplyMsg{reply: reply, err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 0)
		m.height = max(msg.Height, 0)
		// title + stats + tabs + info + header + separator + footer = 7
		m.pageSize = max(m.height-7, 1)
		m.searchInput.Width = max(m.width-12, 10)
		m.chatInput.Width = max(m.width-16, 10)
		m.ensureCursorVisible()
		return m, nil

	case emailsLoadedMsg:
		// Ignore stale responses from previous loads
		if msg.requestID != m.loadRequestID {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.emails = msg.page.Items
		m.total = msg.page.Total
		m.page = msg.page.Page
		m.totalPages = msg.page.TotalPages
		m.cursor = min(m.cursor, max(len(m.emails)-1, 0))
		m.ensureCursorVisible()
		return m, nil

	case statsLoadedMsg:
		if msg.err == nil {
			m.stats = msg.stats
			m.categories = msg.categories
		}
		return m, nil

	case detailLoadedMsg:
		if msg.requestID != m.detailRequestID {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			m.level = levelList
			return m, nil
		}
		m.detail = msg.email
		return m, nil

	case assistantReplyMsg:
		m.chatPending = false
		if msg.err != nil {
			return m.showFlash("Assistant did not reply")
		}
		m.suggestion = msg.reply.Suggest
		return m, nil

	case flashClearMsg:
		if msg.id == m.flashID {
			m.flashMessage = ""
		}
		return m, nil
	}

	return m, nil
}

// reload resets the cursor and fetches the first page.
func (m Model) reload() (tea.Model, tea.Cmd) {
	m.page = 1
	m.cursor = 0
	m.scrollOffset = 0
	return m, m.loadEmails()
}

// showFlash displays a temporary message in the footer.
func (m Model) showFlash(message string) (tea.Model, tea.Cmd) {
	m.flashID++
	m.flashMessage = message
	id := m.flashID
	return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return flashClearMsg{id: id}
	})
}

// ensureCursorVisible scrolls so the cursor row is on screen.
func (m *Model) ensureCursorVisible() {
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+m.pageSize {
		m.scrollOffset = m.cursor - m.pageSize + 1
	}
	m.scrollOffset = max(m.scrollOffset, 0)
}

// current returns the email under the cursor.
func (m Model) current() (query.Email, bool) {
	if m.cursor < 0 || m.cursor >= len(m.emails) {
		return query.Email{}, false
	}
	return m.emails[m.cursor], true
}

// HasSelection reports whether any email is selected.
func (m Model) HasSelection() bool {
	return len(m.selection) > 0
}

// SelectionCount returns the number of selected emails.
func (m Model) SelectionCount() int {
	return len(m.selection)
}
