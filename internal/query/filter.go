package query

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Apply returns the emails that satisfy f, ordered by s. The input slice
// is never modified and the result is a fresh slice. Apply never fails:
// unknown status values pass every record and unknown categories match
// nothing.
func Apply(emails []Email, f Filter, s Sort) []Email {
	out := make([]Email, 0, len(emails))
	m := newMatcher(f)
	for _, e := range emails {
		if m.match(e) {
			out = append(out, e)
		}
	}
	SortEmails(out, s)
	return out
}

// SortEmails sorts emails in place. The sort is stable, so records with
// equal keys keep their relative order in both directions.
func SortEmails(emails []Email, s Sort) {
	// Collators keep internal buffers and must not be shared across goroutines.
	col := collate.New(language.English)
	slices.SortStableFunc(emails, func(a, b Email) int {
		c := compareBy(col, s.Key, a, b)
		if s.Direction == SortDesc {
			return -c
		}
		return c
	})
}

func compareBy(col *collate.Collator, key SortKey, a, b Email) int {
	switch key {
	case SortBySender:
		return col.CompareString(a.Sender.Name, b.Sender.Name)
	case SortByPriority:
		return cmp.Compare(a.Priority, b.Priority)
	case SortBySubject:
		return col.CompareString(a.Subject, b.Subject)
	case SortByCompany:
		return col.CompareString(a.Sender.Company, b.Sender.Company)
	case SortByStatus:
		// Unread before read; within the same read state, starred first.
		if a.IsRead != b.IsRead {
			return boolRank(a.IsRead) - boolRank(b.IsRead)
		}
		return boolRank(b.IsStarred) - boolRank(a.IsStarred)
	default:
		return a.ReceivedAt.Compare(b.ReceivedAt)
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Matches reports whether a single email satisfies f.
func Matches(e Email, f Filter) bool {
	return newMatcher(f).match(e)
}

// matcher holds the lowercased filter terms so they are computed once per query.
type matcher struct {
	f       Filter
	company string
	search  string
	sender  string
	subject string
	label   string
}

func newMatcher(f Filter) matcher {
	return matcher{
		f:       f,
		company: strings.ToLower(f.Company),
		search:  strings.ToLower(f.Search),
		sender:  strings.ToLower(f.Sender),
		subject: strings.ToLower(f.Subject),
		label:   strings.ToLower(f.Label),
	}
}

func (m matcher) match(e Email) bool {
	if m.search != "" && m.f.SearchMode == SearchCombineOverride {
		return m.matchText(e) && m.matchSyntax(e)
	}
	return m.matchDashboard(e) && m.matchSyntax(e) && (m.search == "" || m.matchText(e))
}

func (m matcher) matchDashboard(e Email) bool {
	switch m.f.Category {
	case "", CategoryAll:
	case CategoryPriority:
		if !IsHighPriority(e.Priority) {
			return false
		}
	default:
		if e.Category != m.f.Category {
			return false
		}
	}

	if m.f.Priority != nil && e.Priority != *m.f.Priority {
		return false
	}

	if m.company != "" && !strings.Contains(strings.ToLower(e.Sender.Company), m.company) {
		return false
	}

	switch m.f.Status {
	case StatusRead:
		return e.IsRead
	case StatusUnread:
		return !e.IsRead
	case StatusStarred:
		return e.IsStarred
	case StatusTask:
		return e.HasTask
	}
	return true
}

func (m matcher) matchSyntax(e Email) bool {
	if m.sender != "" &&
		!strings.Contains(strings.ToLower(e.Sender.Name), m.sender) &&
		!strings.Contains(strings.ToLower(e.Sender.Email), m.sender) {
		return false
	}
	if m.subject != "" && !strings.Contains(strings.ToLower(e.Subject), m.subject) {
		return false
	}
	if m.label != "" && !slices.ContainsFunc(e.Labels, func(l string) bool {
		return strings.ToLower(l) == m.label
	}) {
		return false
	}
	if m.f.After != nil && e.ReceivedAt.Before(*m.f.After) {
		return false
	}
	if m.f.Before != nil && !e.ReceivedAt.Before(*m.f.Before) {
		return false
	}
	if m.f.HasAttachment != nil && (e.AttachmentCount > 0) != *m.f.HasAttachment {
		return false
	}
	if m.f.HasTask != nil && e.HasTask != *m.f.HasTask {
		return false
	}
	return true
}

func (m matcher) matchText(e Email) bool {
	for _, field := range []string{e.Sender.Email, e.Sender.Name, e.Subject, e.Body, e.Sender.Company} {
		if strings.Contains(strings.ToLower(field), m.search) {
			return true
		}
	}
	return false
}

// Paginate slices a result set into a page. Page numbers below 1 are
// treated as 1 and page sizes outside 1..MaxPageSize fall back to
// DefaultPageSize. A page past the end has no items but keeps the totals.
func Paginate(emails []Email, p Pagination) Page {
	page := p.Page
	if page < 1 {
		page = 1
	}
	size := p.PageSize
	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}

	total := len(emails)
	start := total
	// Compare before multiplying so huge page numbers cannot overflow.
	if page-1 <= total/size {
		start = min((page-1)*size, total)
	}
	end := min(start+size, total)

	items := make([]Email, end-start)
	copy(items, emails[start:end])

	return Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: (total + size - 1) / size,
	}
}

// Summarize computes the dashboard stat cards.
func Summarize(emails []Email) Stats {
	st := Stats{Total: len(emails)}
	for _, e := range emails {
		if !e.IsRead {
			st.Unread++
		}
		if e.HasTask {
			st.WithTasks++
		}
		if IsHighPriority(e.Priority) {
			st.HighPriority++
		}
	}
	return st
}

// sidebarCategories are the entries shown in the dashboard sidebar.
var sidebarCategories = []Category{CategoryAll, CategoryPriority, CategorySales, CategoryMarketing, CategoryUpdates}

// CategoryCounts returns the sidebar counts. The priority entry counts
// levels 1-2 regardless of the record's own category.
func CategoryCounts(emails []Email) []CategoryCount {
	counts := make([]CategoryCount, len(sidebarCategories))
	for i, c := range sidebarCategories {
		counts[i].Category = c
		m := newMatcher(Filter{Category: c})
		for _, e := range emails {
			if m.matchDashboard(e) {
				counts[i].Count++
			}
		}
	}
	return counts
}
