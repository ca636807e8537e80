// Package dataset generates the synthetic inbox shown by the dashboard.
//
// Generation is deterministic for a given seed and anchor time so the
// server, CLI and tests agree on the same records.
package dataset

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spinabot/spinabot/internal/query"
)

// DefaultSize is the number of emails in the demo inbox.
const DefaultSize = 100

// Options configures generation.
type Options struct {
	Size   int       // number of emails; <= 0 means DefaultSize
	Seed   uint64    // random seed for priorities, tasks and attachments
	Anchor time.Time // "now" for received times; zero means time.Now()
}

// Senders is the fixed roster of demo correspondents.
var Senders = []query.Sender{
	{Name: "Sarah Johnson", Email: "sarah.johnson@techcorp.com", Company: "TechCorp Inc."},
	{Name: "Mike Chen", Email: "mike.chen@salesforce.com", Company: "Salesforce"},
	{Name: "Emma Davis", Email: "emma.davis@microsoft.com", Company: "Microsoft"},
	{Name: "Alex Rodriguez", Email: "alex.rodriguez@google.com", Company: "Google"},
	{Name: "Jennifer Wilson", Email: "jennifer.wilson@amazon.com", Company: "Amazon Web Services"},
	{Name: "Robert Thompson", Email: "robert.thompson@apple.com", Company: "Apple Inc."},
	{Name: "Lisa Park", Email: "lisa.park@meta.com", Company: "Meta Platforms"},
	{Name: "David Kim", Email: "david.kim@netflix.com", Company: "Netflix"},
	{Name: "Amanda Walsh", Email: "amanda.walsh@stripe.com", Company: "Stripe"},
	{Name: "James Brown", Email: "james.brown@shopify.com", Company: "Shopify"},
	{Name: "Maria Garcia", Email: "maria.garcia@adobe.com", Company: "Adobe"},
	{Name: "Chris Anderson", Email: "chris.anderson@slack.com", Company: "Slack Technologies"},
	{Name: "Patricia Lee", Email: "patricia.lee@zoom.us", Company: "Zoom"},
	{Name: "Michael Scott", Email: "michael.scott@salesforce.com", Company: "Salesforce"},
	{Name: "Angela Martin", Email: "angela.martin@oracle.com", Company: "Oracle Corporation"},
}

// Subjects is the fixed list of base subject lines.
var Subjects = []string{
	"Quarterly Business Review - Q4 2024",
	"URGENT: Action Required by EOD",
	"Follow-up: Partnership Discussion",
	"Weekly Team Sync Meeting",
	"New Feature Launch Update",
	"Customer Feedback Summary",
	"Project Status Report",
	"Invoice Payment Reminder",
	"Security Update Required",
	"Marketing Campaign Results",
	"Budget Approval Request",
	"Technical Support Ticket",
	"Contract Renewal Notice",
	"System Maintenance Alert",
	"Product Demo Request",
}

// Labels are paired onto each email in rotation.
var Labels = []string{"urgent", "important", "review", "action-required", "follow-up", "meeting", "report"}

// categoryCycle is the category rotation; spam is never generated.
var categoryCycle = []query.Category{
	query.CategoryPriority,
	query.CategorySales,
	query.CategoryMarketing,
	query.CategoryUpdates,
	query.CategorySocial,
}

// Generate builds the inbox. Email i (0-based) gets ID i+1, the sender and
// subject at i modulo their list lengths, and a received time of
// anchor - floor(i/5) days - (i mod 24) hours.
func Generate(opts Options) []query.Email {
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	anchor := opts.Anchor
	if anchor.IsZero() {
		anchor = time.Now()
	}
	r := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x5deece66d))

	emails := make([]query.Email, 0, size)
	for i := range size {
		sender := Senders[i%len(Senders)]
		subject := Subjects[i%len(Subjects)]
		received := anchor.AddDate(0, 0, -(i / 5)).Add(-time.Duration(i%24) * time.Hour)

		priority := drawPriority(r.Float64())
		hasTask := false
		switch priority {
		case query.PriorityCritical, query.PriorityHigh:
			hasTask = true
		case query.PriorityMedium:
			hasTask = r.Float64() < 0.5
		}

		e := query.Email{
			ID:         fmt.Sprintf("%d", i+1),
			Sender:     sender,
			Subject:    subject,
			Body:       fmt.Sprintf("Email content for %s. This is email #%d in the system.", subject, i+1),
			ReceivedAt: received,
			Priority:   priority,
			Category:   categoryCycle[i%len(categoryCycle)],
			IsRead:     i%3 != 0,
			IsStarred:  i%7 == 0,
			HasTask:    hasTask,
			Labels:     []string{Labels[i%len(Labels)], Labels[(i+1)%len(Labels)]},
		}
		if priority == query.PriorityCritical {
			e.Subject = subject + " - Critical"
		}
		if hasTask {
			e.TaskID = fmt.Sprintf("TASK-%03d", i+1)
		}
		if i%4 == 0 {
			e.AttachmentCount = r.IntN(3) + 1
		}
		emails = append(emails, e)
	}
	return emails
}

// drawPriority maps a uniform draw in [0,1) onto the 10/15/30/30/15
// percent distribution of levels 1 through 5.
func drawPriority(x float64) int {
	switch {
	case x < 0.10:
		return query.PriorityCritical
	case x < 0.25:
		return query.PriorityHigh
	case x < 0.55:
		return query.PriorityMedium
	case x < 0.85:
		return query.PriorityLow
	default:
		return query.PriorityVeryLow
	}
}
