package cmd

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spinabot/spinabot/internal/config"
	"github.com/spinabot/spinabot/internal/query"
	"github.com/spinabot/spinabot/internal/testutil/ptr"
)

// withConfig swaps the package-level config for the duration of a test.
func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestListFlagsApply(t *testing.T) {
	c := config.NewDefaultConfig()
	c.Dashboard.PageSize = 25
	withConfig(t, c)

	defaults := listFlags{sort: "date", order: "desc", page: 1}

	tests := []struct {
		name     string
		flags    func(lf *listFlags)
		base     query.Filter
		want     query.Filter
		wantSort query.Sort
		wantPage query.Pagination
		wantErr  bool
	}{
		{
			name:     "defaults",
			flags:    func(*listFlags) {},
			want:     query.Filter{},
			wantSort: query.DefaultSort,
			wantPage: query.Pagination{Page: 1, PageSize: 25},
		},
		{
			name: "flags override search operators",
			flags: func(lf *listFlags) {
				lf.category = "sales"
				lf.priority = "high"
				lf.status = "unread"
			},
			base: query.Filter{Category: query.CategoryMarketing, Search: "lead", Status: query.StatusRead},
			want: query.Filter{
				Category: query.CategorySales,
				Priority: ptr.Int(query.PriorityHigh),
				Status:   query.StatusUnread,
				Search:   "lead",
			},
			wantSort: query.DefaultSort,
			wantPage: query.Pagination{Page: 1, PageSize: 25},
		},
		{
			name: "base kept when flags unset",
			flags: func(lf *listFlags) {
				lf.sort = "priority"
				lf.order = "asc"
				lf.page = 3
				lf.pageSize = 10
			},
			base:     query.Filter{Company: "acme"},
			want:     query.Filter{Company: "acme"},
			wantSort: query.Sort{Key: query.SortByPriority, Direction: query.SortAsc},
			wantPage: query.Pagination{Page: 3, PageSize: 10},
		},
		{
			name:     "search mode flag",
			flags:    func(lf *listFlags) { lf.searchMode = "override" },
			want:     query.Filter{SearchMode: query.SearchCombineOverride},
			wantSort: query.DefaultSort,
			wantPage: query.Pagination{Page: 1, PageSize: 25},
		},
		{name: "invalid priority", flags: func(lf *listFlags) { lf.priority = "9" }, wantErr: true},
		{name: "invalid category", flags: func(lf *listFlags) { lf.category = "inbox" }, wantErr: true},
		{name: "invalid status", flags: func(lf *listFlags) { lf.status = "archived" }, wantErr: true},
		{name: "invalid sort", flags: func(lf *listFlags) { lf.sort = "size" }, wantErr: true},
		{name: "invalid order", flags: func(lf *listFlags) { lf.order = "up" }, wantErr: true},
		{name: "invalid mode", flags: func(lf *listFlags) { lf.searchMode = "or" }, wantErr: true},
		{name: "page zero", flags: func(lf *listFlags) { lf.page = 0 }, wantErr: true},
		{name: "limit too large", flags: func(lf *listFlags) { lf.pageSize = 101 }, wantErr: true},
		{name: "negative limit", flags: func(lf *listFlags) { lf.pageSize = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lf := defaults
			tt.flags(&lf)
			f, s, p, err := lf.apply(tt.base)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if diff := cmp.Diff(tt.want, f); diff != "" {
				t.Errorf("filter mismatch (-want +got):\n%s", diff)
			}
			if s != tt.wantSort {
				t.Errorf("sort = %+v, want %+v", s, tt.wantSort)
			}
			if p != tt.wantPage {
				t.Errorf("pagination = %+v, want %+v", p, tt.wantPage)
			}
		})
	}
}

func TestListFlagsSearchModeFromConfig(t *testing.T) {
	c := config.NewDefaultConfig()
	c.Dashboard.SearchMode = "override"
	withConfig(t, c)

	lf := listFlags{sort: "date", order: "desc", page: 1}
	f, _, _, err := lf.apply(query.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if f.SearchMode != query.SearchCombineOverride {
		t.Errorf("mode = %v, want override", f.SearchMode)
	}
}

func TestSuggestedQuery(t *testing.T) {
	tests := []struct {
		name string
		f    query.Filter
		want string
	}{
		{"empty", query.Filter{}, ""},
		{"all category omitted", query.Filter{Category: query.CategoryAll}, ""},
		{"unread", query.Filter{Status: query.StatusUnread}, "is:unread"},
		{"tasks", query.Filter{Status: query.StatusTask}, "has:task"},
		{"category and priority", query.Filter{Category: query.CategorySales, Priority: ptr.Int(2)}, "category:sales priority:2"},
		{"spaced company", query.Filter{Company: "Acme Corp"}, `company:"Acme Corp"`},
		{"free text", query.Filter{Search: "server migration", Status: query.StatusStarred}, `is:starred "server migration"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := suggestedQuery(tt.f); got != tt.want {
				t.Errorf("suggestedQuery = %q, want %q", got, tt.want)
			}
		})
	}
}
