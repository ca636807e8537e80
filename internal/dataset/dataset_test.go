package dataset

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spinabot/spinabot/internal/query"
)

var anchor = time.Date(2024, 12, 20, 15, 0, 0, 0, time.UTC)

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(Options{Seed: 42, Anchor: anchor})
	b := Generate(Options{Seed: 42, Anchor: anchor})
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed produced different inboxes (-a +b):\n%s", diff)
	}
}

func TestGenerateShape(t *testing.T) {
	emails := Generate(Options{Seed: 7, Anchor: anchor})
	if len(emails) != DefaultSize {
		t.Fatalf("len = %d, want %d", len(emails), DefaultSize)
	}

	seen := make(map[string]bool)
	for i, e := range emails {
		if seen[e.ID] {
			t.Errorf("duplicate id %s", e.ID)
		}
		seen[e.ID] = true

		if e.Priority < 1 || e.Priority > 5 {
			t.Errorf("%s: priority %d out of range", e.ID, e.Priority)
		}
		if e.IsRead != (i%3 != 0) {
			t.Errorf("%s: is_read = %v", e.ID, e.IsRead)
		}
		if e.IsStarred != (i%7 == 0) {
			t.Errorf("%s: is_starred = %v", e.ID, e.IsStarred)
		}
		if e.Sender != Senders[i%len(Senders)] {
			t.Errorf("%s: sender = %+v", e.ID, e.Sender)
		}
		if e.Category == query.CategorySpam {
			t.Errorf("%s: spam generated", e.ID)
		}

		wantReceived := anchor.AddDate(0, 0, -(i / 5)).Add(-time.Duration(i%24) * time.Hour)
		if !e.ReceivedAt.Equal(wantReceived) {
			t.Errorf("%s: received = %v, want %v", e.ID, e.ReceivedAt, wantReceived)
		}

		switch {
		case e.Priority <= 2 && !e.HasTask:
			t.Errorf("%s: priority %d without task", e.ID, e.Priority)
		case e.Priority >= 4 && e.HasTask:
			t.Errorf("%s: priority %d with task", e.ID, e.Priority)
		}
		if e.HasTask != (e.TaskID != "") {
			t.Errorf("%s: has_task %v but task id %q", e.ID, e.HasTask, e.TaskID)
		}

		critical := strings.HasSuffix(e.Subject, " - Critical")
		if critical != (e.Priority == 1) {
			t.Errorf("%s: subject %q with priority %d", e.ID, e.Subject, e.Priority)
		}

		if i%4 == 0 {
			if e.AttachmentCount < 1 || e.AttachmentCount > 3 {
				t.Errorf("%s: attachments = %d", e.ID, e.AttachmentCount)
			}
		} else if e.AttachmentCount != 0 {
			t.Errorf("%s: attachments = %d, want 0", e.ID, e.AttachmentCount)
		}
	}
}

func TestGenerateFirstRecord(t *testing.T) {
	e := Generate(Options{Size: 1, Seed: 1, Anchor: anchor})[0]

	if e.ID != "1" {
		t.Errorf("ID = %q", e.ID)
	}
	if e.Category != query.CategoryPriority {
		t.Errorf("Category = %q", e.Category)
	}
	if got := e.Labels; len(got) != 2 || got[0] != "urgent" || got[1] != "important" {
		t.Errorf("Labels = %v", got)
	}
	wantBody := "Email content for Quarterly Business Review - Q4 2024. This is email #1 in the system."
	if e.Body != wantBody {
		t.Errorf("Body = %q", e.Body)
	}
	if e.HasTask && e.TaskID != "TASK-001" {
		t.Errorf("TaskID = %q", e.TaskID)
	}
}

func TestDrawPriority(t *testing.T) {
	tests := []struct {
		x    float64
		want int
	}{
		{0, 1}, {0.099, 1}, {0.1, 2}, {0.249, 2}, {0.25, 3}, {0.549, 3}, {0.55, 4}, {0.849, 4}, {0.85, 5}, {0.999, 5},
	}
	for _, tt := range tests {
		if got := drawPriority(tt.x); got != tt.want {
			t.Errorf("drawPriority(%v) = %d, want %d", tt.x, got, tt.want)
		}
	}
}

func TestGenerateSortReversal(t *testing.T) {
	// Received times are distinct for the first 24 records, so date
	// ascending must be the exact reverse of date descending.
	emails := Generate(Options{Size: 24, Seed: 3, Anchor: anchor})
	asc := query.Apply(emails, query.Filter{}, query.Sort{Key: query.SortByDate, Direction: query.SortAsc})
	desc := query.Apply(emails, query.Filter{}, query.Sort{Key: query.SortByDate, Direction: query.SortDesc})
	for i := range asc {
		if asc[i].ID != desc[len(desc)-1-i].ID {
			t.Fatalf("position %d: asc %s, reversed desc %s", i, asc[i].ID, desc[len(desc)-1-i].ID)
		}
	}
}
