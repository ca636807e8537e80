package assistant

import (
	"testing"

	"github.com/spinabot/spinabot/internal/query"
)

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Show ME Unread  Emails ", "show me unread emails"},
		{"What are the high priority emails?", "what are the high priority emails"},
		{"why???", "why"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRespond(t *testing.T) {
	s := DefaultScript()
	tests := []struct {
		name        string
		input       string
		wantPhrase  string
		wantMatched bool
		wantStatus  query.Status
		wantCat     query.Category
	}{
		{"exact quick question", "Show me unread emails", "show me unread emails", true, query.StatusUnread, ""},
		{"question mark", "What are the high priority emails?", "what are the high priority emails", true, "", query.CategoryPriority},
		{"input contains phrase", "please show emails with tasks assigned now", "show emails with tasks assigned", true, query.StatusTask, ""},
		{"phrase contains input", "sales category", "filter by sales category", true, "", query.CategorySales},
		{"first entry wins", "emails", "show me unread emails", true, query.StatusUnread, ""},
		{"no filter suggestion", "recent emails from specific sender", "recent emails from specific sender", true, "", ""},
		{"fallback", "how is the weather", "", false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := s.Respond(tt.input)
			if !ok {
				t.Fatal("Respond ignored non-empty input")
			}
			if r.Matched != tt.wantMatched || r.Phrase != tt.wantPhrase {
				t.Errorf("matched/phrase = %v/%q, want %v/%q", r.Matched, r.Phrase, tt.wantMatched, tt.wantPhrase)
			}
			if !tt.wantMatched && r.Text != Fallback {
				t.Errorf("Text = %q, want fallback", r.Text)
			}
			var gotStatus query.Status
			var gotCat query.Category
			if r.Suggest != nil {
				gotStatus, gotCat = r.Suggest.Status, r.Suggest.Category
			}
			if gotStatus != tt.wantStatus || gotCat != tt.wantCat {
				t.Errorf("suggest = %q/%q, want %q/%q", gotStatus, gotCat, tt.wantStatus, tt.wantCat)
			}
		})
	}
}

func TestRespondIgnoresBlank(t *testing.T) {
	if _, ok := DefaultScript().Respond("  \t "); ok {
		t.Error("blank input should be ignored")
	}
}

func TestRespondSuggestIsCopy(t *testing.T) {
	s := DefaultScript()
	r, _ := s.Respond("show me unread emails")
	r.Suggest.Status = query.StatusRead

	again, _ := s.Respond("show me unread emails")
	if again.Suggest.Status != query.StatusUnread {
		t.Error("script entry mutated through reply")
	}
}

func TestQuickQuestionsAllMatch(t *testing.T) {
	s := DefaultScript()
	phrases := s.Phrases()
	for i, q := range QuickQuestions {
		r, _ := s.Respond(q)
		if r.Phrase != phrases[i] {
			t.Errorf("quick question %q matched %q, want %q", q, r.Phrase, phrases[i])
		}
	}
}
