// Package assistant implements the dashboard's scripted email assistant.
//
// The assistant has no language model behind it. Replies come from a fixed
// table keyed by normalized phrases, with a fallback for anything that
// does not match.
package assistant

import (
	"strings"

	"github.com/spinabot/spinabot/internal/query"
)

// Welcome is the first message of every conversation.
const Welcome = "Hi! I'm your email assistant. I can help you find specific emails, filter by priority, or answer questions about your inbox. Try asking me something!"

// Fallback is the reply when no scripted phrase matches.
const Fallback = "I understand you're asking about your emails. Let me help you with that. You can ask me about unread emails, priority levels, specific senders, or use the filters in your dashboard."

// QuickQuestions are the suggested prompts, in display order.
var QuickQuestions = []string{
	"Show me unread emails",
	"What are the high priority emails?",
	"Recent emails from specific sender",
	"Show emails with tasks assigned",
	"Filter by sales category",
}

// Entry maps a normalized phrase to a scripted reply. Suggest, when set,
// is the dashboard filter the reply describes.
type Entry struct {
	Phrase   string
	Response string
	Suggest  *query.Filter
}

// Reply is the assistant's answer to one message.
type Reply struct {
	Text    string        `json:"text"`
	Matched bool          `json:"matched"`
	Phrase  string        `json:"phrase,omitempty"`
	Suggest *query.Filter `json:"suggested_filter,omitempty"`
}

// Script is an ordered phrase table. Earlier entries win ties.
type Script struct {
	entries  []Entry
	fallback string
}

// NewScript builds a script from entries; phrases are normalized.
func NewScript(fallback string, entries ...Entry) *Script {
	s := &Script{fallback: fallback, entries: make([]Entry, len(entries))}
	for i, e := range entries {
		e.Phrase = Normalize(e.Phrase)
		s.entries[i] = e
	}
	return s
}

// DefaultScript returns the demo assistant's phrase table.
func DefaultScript() *Script {
	return NewScript(Fallback,
		Entry{
			Phrase:   "show me unread emails",
			Response: "I found 3 unread emails: 2 high priority from TechCorp and Customer Support, and 1 medium priority update. Would you like me to filter them for you?",
			Suggest:  &query.Filter{Status: query.StatusUnread},
		},
		Entry{
			Phrase:   "what are the high priority emails",
			Response: "You have 2 high priority emails: 'Urgent: Server Migration Required by Friday' from Sarah Johnson at TechCorp, and 'Re: Login Issues - Follow Up Required' from Customer Support.",
			Suggest:  &query.Filter{Category: query.CategoryPriority},
		},
		Entry{
			Phrase:   "recent emails from specific sender",
			Response: "Please specify the sender's name or email address, and I'll show you their recent emails with dates and priorities.",
		},
		Entry{
			Phrase:   "show emails with tasks assigned",
			Response: "I found 2 emails with assigned tasks: TASK-001 for server migration and TASK-002 for the new enterprise client inquiry. Both are marked as high priority.",
			Suggest:  &query.Filter{Status: query.StatusTask},
		},
		Entry{
			Phrase:   "filter by sales category",
			Response: "Filtering emails by Sales category... I found 1 sales email: 'New Lead: Enterprise Client Inquiry' from Salesforce Team with task TASK-002 assigned.",
			Suggest:  &query.Filter{Category: query.CategorySales},
		},
	)
}

// Normalize lowercases, trims, collapses inner whitespace and drops
// trailing question marks.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	return strings.TrimRight(s, "?")
}

// Respond looks up the reply for input. An entry matches when the
// normalized input contains its phrase or its phrase contains the input.
// The boolean is false for input that is empty after normalization.
func (s *Script) Respond(input string) (Reply, bool) {
	n := Normalize(input)
	if strings.TrimSpace(n) == "" {
		return Reply{}, false
	}
	for _, e := range s.entries {
		if strings.Contains(n, e.Phrase) || strings.Contains(e.Phrase, n) {
			r := Reply{Text: e.Response, Matched: true, Phrase: e.Phrase}
			if e.Suggest != nil {
				f := *e.Suggest
				r.Suggest = &f
			}
			return r, true
		}
	}
	return Reply{Text: s.fallback}, true
}

// Phrases returns the normalized phrases in table order.
func (s *Script) Phrases() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Phrase
	}
	return out
}
