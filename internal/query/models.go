// Package query provides the dashboard query layer for spinabot.
// It filters, sorts, paginates and summarizes the in-memory inbox. The
// package is backend-agnostic: callers depend on the Engine interface and
// MemoryEngine is the implementation used by the server, TUI and CLI.
package query

import (
	"fmt"
	"strings"
	"time"
)

// Sender identifies who sent an email.
type Sender struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
}

// Email is a single synthetic inbox record. Records are read-only once
// generated; the engine never mutates them.
type Email struct {
	ID              string    `json:"id"`
	Sender          Sender    `json:"sender"`
	Subject         string    `json:"subject"`
	Body            string    `json:"body"`
	ReceivedAt      time.Time `json:"received_at"`
	Priority        int       `json:"priority"`
	Category        Category  `json:"category"`
	IsRead          bool      `json:"is_read"`
	IsStarred       bool      `json:"is_starred"`
	HasTask         bool      `json:"has_task"`
	TaskID          string    `json:"task_id,omitempty"`
	Labels          []string  `json:"labels"`
	AttachmentCount int       `json:"attachment_count"`
}

// Priority levels, 1 being the most urgent.
const (
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityMedium   = 3
	PriorityLow      = 4
	PriorityVeryLow  = 5
)

// PriorityName returns the display name of a priority level.
func PriorityName(p int) string {
	switch p {
	case PriorityCritical:
		return "Critical"
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	case PriorityVeryLow:
		return "Very Low"
	default:
		return "Unknown"
	}
}

// ParsePriority accepts a numeric level or a level name
// (critical, high, medium, low, very-low).
func ParsePriority(s string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "1", "critical":
		return PriorityCritical, nil
	case "2", "high":
		return PriorityHigh, nil
	case "3", "medium":
		return PriorityMedium, nil
	case "4", "low":
		return PriorityLow, nil
	case "5", "very-low", "very_low", "verylow", "very low":
		return PriorityVeryLow, nil
	}
	return 0, fmt.Errorf("invalid priority %q: expected 1-5", s)
}

// IsHighPriority reports whether the level counts as high priority
// (Critical or High).
func IsHighPriority(p int) bool {
	return p <= PriorityHigh
}

// Category is the classification bucket of an email. CategoryAll is a
// filter value only; no record carries it. As a filter, CategoryPriority
// matches levels 1-2 rather than the records tagged priority.
type Category string

const (
	CategoryAll       Category = "all"
	CategoryPriority  Category = "priority"
	CategorySales     Category = "sales"
	CategoryMarketing Category = "marketing"
	CategoryUpdates   Category = "updates"
	CategorySocial    Category = "social"
	CategorySpam      Category = "spam"
)

// Categories lists the categories a record may carry, in display order.
var Categories = []Category{
	CategoryPriority,
	CategorySales,
	CategoryMarketing,
	CategoryUpdates,
	CategorySocial,
	CategorySpam,
}

// ParseCategory validates a category filter value. The empty string means all.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" || c == CategoryAll {
		return CategoryAll, nil
	}
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid category %q", s)
}

// Status is the read/star/task state filter.
type Status string

const (
	StatusAll     Status = "all"
	StatusRead    Status = "read"
	StatusUnread  Status = "unread"
	StatusStarred Status = "starred"
	StatusTask    Status = "task"
)

// Statuses lists the valid status filter values.
var Statuses = []Status{StatusAll, StatusRead, StatusUnread, StatusStarred, StatusTask}

// ParseStatus validates a status filter value. The empty string means all.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if st == "" {
		return StatusAll, nil
	}
	for _, known := range Statuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid status %q", s)
}

// SortKey represents the field to sort emails by.
type SortKey int

const (
	SortByDate SortKey = iota
	SortBySender
	SortByPriority
	SortBySubject
	SortByCompany
	SortByStatus
)

// SortKeys lists every sort key in display order.
var SortKeys = []SortKey{SortByDate, SortBySender, SortByPriority, SortBySubject, SortByCompany, SortByStatus}

func (k SortKey) String() string {
	switch k {
	case SortByDate:
		return "date"
	case SortBySender:
		return "sender"
	case SortByPriority:
		return "priority"
	case SortBySubject:
		return "subject"
	case SortByCompany:
		return "company"
	case SortByStatus:
		return "status"
	default:
		return "unknown"
	}
}

// ParseSortKey converts a sort key name. The empty string means date.
func ParseSortKey(s string) (SortKey, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return SortByDate, nil
	}
	for _, k := range SortKeys {
		if k.String() == v {
			return k, nil
		}
	}
	return 0, fmt.Errorf("invalid sort key %q", s)
}

// SortDirection represents ascending or descending sort order.
type SortDirection int

const (
	SortDesc SortDirection = iota
	SortAsc
)

func (d SortDirection) String() string {
	if d == SortAsc {
		return "asc"
	}
	return "desc"
}

// ParseSortDirection converts "asc" or "desc". The empty string means desc.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc":
		return SortDesc, nil
	case "asc":
		return SortAsc, nil
	}
	return 0, fmt.Errorf("invalid sort order %q: expected asc or desc", s)
}

// Sort selects the ordering of a result set.
type Sort struct {
	Key       SortKey
	Direction SortDirection
}

// DefaultSort is newest first.
var DefaultSort = Sort{Key: SortByDate, Direction: SortDesc}

// SearchMode controls how the free-text query combines with the other
// dashboard filters.
type SearchMode int

const (
	// SearchCombineAnd requires every active predicate, free text included.
	SearchCombineAnd SearchMode = iota
	// SearchCombineOverride makes a non-empty free-text query replace the
	// category, priority, company and status predicates.
	SearchCombineOverride
)

func (m SearchMode) String() string {
	if m == SearchCombineOverride {
		return "override"
	}
	return "and"
}

// ParseSearchMode converts "and" or "override". The empty string means and.
func ParseSearchMode(s string) (SearchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "and":
		return SearchCombineAnd, nil
	case "override":
		return SearchCombineOverride, nil
	}
	return 0, fmt.Errorf("invalid search mode %q: expected and or override", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m SearchMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *SearchMode) UnmarshalText(text []byte) error {
	v, err := ParseSearchMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Filter specifies which emails to return. The zero value matches everything.
type Filter struct {
	// Dashboard filters
	Category Category `json:"category,omitempty"` // "", all, priority (levels 1-2) or a record category
	Priority *int     `json:"priority,omitempty"` // exact level; nil means any
	Company  string   `json:"company,omitempty"`  // case-insensitive substring of the sender company
	Status   Status   `json:"status,omitempty"`   // "", all, read, unread, starred, task
	Search   string   `json:"search,omitempty"`   // free text over sender, subject, body and company

	SearchMode SearchMode `json:"search_mode"`

	// Search-syntax filters
	Sender        string     `json:"sender,omitempty"`  // substring of sender name or email
	Subject       string     `json:"subject,omitempty"` // substring of subject
	Label         string     `json:"label,omitempty"`   // exact label, case-insensitive
	After         *time.Time `json:"after,omitempty"`
	Before        *time.Time `json:"before,omitempty"`
	HasAttachment *bool      `json:"has_attachment,omitempty"`
	HasTask       *bool      `json:"has_task,omitempty"`
}

// Pagination selects a page of a result set. Page is 1-based.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Page is one page of a filtered, sorted result set.
type Page struct {
	Items      []Email `json:"items"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
}

// Stats are the dashboard summary counters.
type Stats struct {
	Total        int `json:"total"`
	Unread       int `json:"unread"`
	WithTasks    int `json:"with_tasks"`
	HighPriority int `json:"high_priority"`
}

// CategoryCount is a sidebar entry.
type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}
