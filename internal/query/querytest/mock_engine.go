// Package querytest provides shared test doubles for the query.Engine interface.
package querytest

import (
	"context"

	"github.com/spinabot/spinabot/internal/query"
)

// MockEngine implements query.Engine for testing. Each method delegates to an
// optional function field; when the field is nil, the canned result fields
// are used. List applies the real filter and sort to Emails so handler
// tests exercise genuine query semantics.
type MockEngine struct {
	Emails       []query.Email
	StatsResult  *query.Stats
	CategoryRows []query.CategoryCount
	CompanyNames []string
	ListCalls    []query.Filter
	Closed       bool

	// Optional overrides for per-test behavior.
	ListFunc       func(context.Context, query.Filter, query.Sort, query.Pagination) (*query.Page, error)
	GetFunc        func(context.Context, string) (*query.Email, error)
	StatsFunc      func(context.Context) (*query.Stats, error)
	CategoriesFunc func(context.Context) ([]query.CategoryCount, error)
}

// Compile-time check.
var _ query.Engine = (*MockEngine)(nil)

func (m *MockEngine) List(ctx context.Context, f query.Filter, s query.Sort, p query.Pagination) (*query.Page, error) {
	m.ListCalls = append(m.ListCalls, f)
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f, s, p)
	}
	page := query.Paginate(query.Apply(m.Emails, f, s), p)
	return &page, nil
}

func (m *MockEngine) Get(ctx context.Context, id string) (*query.Email, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	for i := range m.Emails {
		if m.Emails[i].ID == id {
			e := m.Emails[i]
			return &e, nil
		}
	}
	return nil, query.ErrNotFound
}

func (m *MockEngine) Stats(ctx context.Context) (*query.Stats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	if m.StatsResult != nil {
		return m.StatsResult, nil
	}
	st := query.Summarize(m.Emails)
	return &st, nil
}

func (m *MockEngine) Categories(ctx context.Context) ([]query.CategoryCount, error) {
	if m.CategoriesFunc != nil {
		return m.CategoriesFunc(ctx)
	}
	if m.CategoryRows != nil {
		return m.CategoryRows, nil
	}
	return query.CategoryCounts(m.Emails), nil
}

func (m *MockEngine) Companies(_ context.Context) ([]string, error) {
	return m.CompanyNames, nil
}

func (m *MockEngine) Close() error {
	m.Closed = true
	return nil
}
