package query

import (
	"context"
	"errors"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrNotFound is returned when an email ID does not exist.
var ErrNotFound = errors.New("email not found")

// Engine provides query operations over the inbox.
// MemoryEngine is the only backend; the interface exists so the API, MCP
// server and TUI can be tested against querytest.MockEngine.
type Engine interface {
	// List filters, sorts and paginates the inbox.
	List(ctx context.Context, filter Filter, sort Sort, page Pagination) (*Page, error)

	// Get returns a single email by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Email, error)

	// Stats returns the dashboard stat cards over the whole inbox.
	Stats(ctx context.Context) (*Stats, error)

	// Categories returns the sidebar category counts.
	Categories(ctx context.Context) ([]CategoryCount, error)

	// Companies returns the distinct sender companies, collated.
	Companies(ctx context.Context) ([]string, error)

	// Close releases any resources held by the engine.
	Close() error
}

// MemoryEngine serves queries from an immutable in-memory snapshot. It is
// safe for concurrent use because nothing mutates the snapshot after
// construction.
type MemoryEngine struct {
	emails []Email
	byID   map[string]int
}

// NewMemoryEngine creates an engine over a copy of emails.
func NewMemoryEngine(emails []Email) *MemoryEngine {
	snapshot := slices.Clone(emails)
	byID := make(map[string]int, len(snapshot))
	for i, e := range snapshot {
		byID[e.ID] = i
	}
	return &MemoryEngine{emails: snapshot, byID: byID}
}

var _ Engine = (*MemoryEngine)(nil)

// Emails returns a copy of the full snapshot in generation order.
func (e *MemoryEngine) Emails() []Email {
	return slices.Clone(e.emails)
}

func (e *MemoryEngine) List(ctx context.Context, filter Filter, sort Sort, page Pagination) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := Paginate(Apply(e.emails, filter, sort), page)
	return &p, nil
}

func (e *MemoryEngine) Get(ctx context.Context, id string) (*Email, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i, ok := e.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	email := e.emails[i]
	email.Labels = slices.Clone(email.Labels)
	return &email, nil
}

func (e *MemoryEngine) Stats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := Summarize(e.emails)
	return &st, nil
}

func (e *MemoryEngine) Categories(ctx context.Context) ([]CategoryCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return CategoryCounts(e.emails), nil
}

func (e *MemoryEngine) Companies(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, em := range e.emails {
		c := strings.TrimSpace(em.Sender.Company)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	collate.New(language.English).SortStrings(out)
	return out, nil
}

func (e *MemoryEngine) Close() error {
	return nil
}
