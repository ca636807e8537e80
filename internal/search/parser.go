// Package search provides Gmail-like search query parsing for the dashboard.
package search

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spinabot/spinabot/internal/query"
)

// Query represents a parsed search query with all supported filters.
// Repeated single-valued operators keep the last value.
type Query struct {
	TextTerms     []string   // Free-text terms
	From          string     // from: sender name or email
	Company       string     // company:
	Category      string     // category:
	Priority      *int       // priority:
	Status        string     // is:read, is:unread, is:starred
	Label         string     // label: or l:
	Subject       string     // subject:
	HasAttachment *bool      // has:attachment
	HasTask       *bool      // has:task
	BeforeDate    *time.Time // before: or older_than:
	AfterDate     *time.Time // after: or newer_than:
}

// IsEmpty returns true if the query has no search criteria.
func (q *Query) IsEmpty() bool {
	return len(q.TextTerms) == 0 &&
		q.From == "" &&
		q.Company == "" &&
		q.Category == "" &&
		q.Priority == nil &&
		q.Status == "" &&
		q.Label == "" &&
		q.Subject == "" &&
		q.HasAttachment == nil &&
		q.HasTask == nil &&
		q.BeforeDate == nil &&
		q.AfterDate == nil
}

// Filter compiles the query into a dashboard filter. Free-text terms are
// joined with single spaces into the substring query.
func (q *Query) Filter() query.Filter {
	f := query.Filter{
		Category:      query.Category(q.Category),
		Priority:      q.Priority,
		Company:       q.Company,
		Status:        query.Status(q.Status),
		Search:        strings.Join(q.TextTerms, " "),
		Sender:        q.From,
		Subject:       q.Subject,
		Label:         q.Label,
		After:         q.AfterDate,
		Before:        q.BeforeDate,
		HasAttachment: q.HasAttachment,
		HasTask:       q.HasTask,
	}
	return f
}

// operatorFn handles a parsed operator:value pair by applying it to the query.
type operatorFn func(q *Query, value string, now time.Time)

// operators maps operator names to their handler functions. Invalid values
// are ignored rather than reported.
var operators = map[string]operatorFn{
	"from": func(q *Query, v string, _ time.Time) {
		q.From = strings.ToLower(v)
	},
	"company": func(q *Query, v string, _ time.Time) {
		q.Company = v
	},
	"category": func(q *Query, v string, _ time.Time) {
		if c, err := query.ParseCategory(v); err == nil {
			q.Category = string(c)
		}
	},
	"priority": func(q *Query, v string, _ time.Time) {
		if p, err := query.ParsePriority(v); err == nil {
			q.Priority = &p
		}
	},
	"is": func(q *Query, v string, _ time.Time) {
		switch low := strings.ToLower(v); low {
		case "read", "unread", "starred":
			q.Status = low
		}
	},
	"subject": func(q *Query, v string, _ time.Time) {
		q.Subject = v
	},
	"label": func(q *Query, v string, _ time.Time) {
		q.Label = v
	},
	"l": func(q *Query, v string, _ time.Time) {
		q.Label = v
	},
	"has": func(q *Query, v string, _ time.Time) {
		b := true
		switch strings.ToLower(v) {
		case "attachment", "attachments":
			q.HasAttachment = &b
		case "task", "tasks":
			q.HasTask = &b
		}
	},
	"before": func(q *Query, v string, _ time.Time) {
		if t := parseDate(v); t != nil {
			q.BeforeDate = t
		}
	},
	"after": func(q *Query, v string, _ time.Time) {
		if t := parseDate(v); t != nil {
			q.AfterDate = t
		}
	},
	"older_than": func(q *Query, v string, now time.Time) {
		if t := parseRelativeDate(v, now); t != nil {
			q.BeforeDate = t
		}
	},
	"newer_than": func(q *Query, v string, now time.Time) {
		if t := parseRelativeDate(v, now); t != nil {
			q.AfterDate = t
		}
	},
}

// Parser holds configuration for query parsing.
type Parser struct {
	Now func() time.Time // Time source (mockable for testing)
}

// NewParser creates a Parser with default settings.
func NewParser() *Parser {
	return &Parser{Now: func() time.Time { return time.Now().UTC() }}
}

// Parse parses a Gmail-like search query string into a Query object.
//
// Supported operators:
//   - from: - sender name or email
//   - company:, category:, priority: - dashboard filters
//   - is:read, is:unread, is:starred - status filter
//   - has:attachment, has:task
//   - subject:, label: or l:
//   - before:, after: - date filters (YYYY-MM-DD)
//   - older_than:, newer_than: - relative date filters (e.g., 7d, 2w, 1m, 1y)
//   - Bare words and "quoted phrases" - free-text search
func (p *Parser) Parse(queryStr string) *Query {
	q := &Query{}
	now := time.Now().UTC()
	if p.Now != nil {
		now = p.Now()
	}

	for _, token := range tokenize(queryStr) {
		if isQuotedPhrase(token) {
			q.TextTerms = append(q.TextTerms, unquote(token))
			continue
		}

		if idx := strings.Index(token, ":"); idx != -1 {
			op := strings.ToLower(token[:idx])
			value := unquote(token[idx+1:])

			if handler, ok := operators[op]; ok {
				handler(q, value, now)
			} else {
				q.TextTerms = append(q.TextTerms, token)
			}
			continue
		}

		q.TextTerms = append(q.TextTerms, token)
	}

	return q
}

// Parse is a convenience function that parses using default settings.
func Parse(queryStr string) *Query {
	return NewParser().Parse(queryStr)
}

// unquote removes surrounding double quotes from a string if present.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// isQuotedPhrase returns true if the token is a double-quoted phrase.
func isQuotedPhrase(token string) bool {
	return len(token) > 2 && token[0] == '"' && token[len(token)-1] == '"'
}

// tokenize splits a query string, preserving quoted phrases and op:"value" pairs.
func tokenize(queryStr string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)
	afterColon := false // previous rune was ':'
	opQuoted := false   // current quote opened right after ':'

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, char := range queryStr {
		switch {
		case (char == '"' || char == '\'') && !inQuotes:
			inQuotes = true
			quoteChar = char
			opQuoted = afterColon
			if afterColon {
				current.WriteRune('"')
			} else {
				flush()
			}
			afterColon = false
		case char == quoteChar && inQuotes:
			inQuotes = false
			if opQuoted {
				current.WriteRune('"')
				flush()
			} else if current.Len() > 0 {
				tokens = append(tokens, "\""+current.String()+"\"")
				current.Reset()
			}
			quoteChar = 0
			opQuoted = false
		case (char == ' ' || char == '\t') && !inQuotes:
			flush()
			afterColon = false
		default:
			current.WriteRune(char)
			afterColon = char == ':'
		}
	}
	flush()

	return tokens
}

// parseDate parses date strings like YYYY-MM-DD or YYYY/MM/DD.
func parseDate(value string) *time.Time {
	formats := []string{
		"2006-01-02",
		"2006/01/02",
		"01/02/2006",
	}

	value = strings.TrimSpace(value)
	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

var relativeDateRe = regexp.MustCompile(`^(\d+)([dwmy])$`)

// parseRelativeDate parses relative dates like 7d, 2w, 1m, 1y relative to now.
func parseRelativeDate(value string, now time.Time) *time.Time {
	match := relativeDateRe.FindStringSubmatch(strings.TrimSpace(strings.ToLower(value)))
	if match == nil {
		return nil
	}

	amount, _ := strconv.Atoi(match[1])

	var result time.Time
	switch match[2] {
	case "d":
		result = now.AddDate(0, 0, -amount)
	case "w":
		result = now.AddDate(0, 0, -amount*7)
	case "m":
		result = now.AddDate(0, -amount, 0)
	case "y":
		result = now.AddDate(-amount, 0, 0)
	}

	return &result
}
