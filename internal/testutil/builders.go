package testutil

import (
	"time"

	"github.com/spinabot/spinabot/internal/query"
)

// EmailBuilder provides a fluent API for constructing query.Email in tests.
type EmailBuilder struct {
	e query.Email
}

// NewEmail creates a builder with sensible defaults: an unread, unstarred
// medium-priority sales email without a task.
func NewEmail(id string) *EmailBuilder {
	return &EmailBuilder{
		e: query.Email{
			ID: id,
			Sender: query.Sender{
				Name:    "Sender",
				Email:   "sender@example.com",
				Company: "Example Corp",
			},
			Subject:    "Test Subject",
			Body:       "Test body",
			ReceivedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Priority:   query.PriorityMedium,
			Category:   query.CategorySales,
		},
	}
}

func (b *EmailBuilder) WithSender(name, email, company string) *EmailBuilder {
	b.e.Sender = query.Sender{Name: name, Email: email, Company: company}
	return b
}

func (b *EmailBuilder) WithCompany(c string) *EmailBuilder {
	b.e.Sender.Company = c
	return b
}

func (b *EmailBuilder) WithSubject(s string) *EmailBuilder {
	b.e.Subject = s
	return b
}

func (b *EmailBuilder) WithBody(s string) *EmailBuilder {
	b.e.Body = s
	return b
}

func (b *EmailBuilder) WithReceivedAt(t time.Time) *EmailBuilder {
	b.e.ReceivedAt = t
	return b
}

func (b *EmailBuilder) WithPriority(p int) *EmailBuilder {
	b.e.Priority = p
	return b
}

func (b *EmailBuilder) WithCategory(c query.Category) *EmailBuilder {
	b.e.Category = c
	return b
}

func (b *EmailBuilder) Read() *EmailBuilder {
	b.e.IsRead = true
	return b
}

func (b *EmailBuilder) Starred() *EmailBuilder {
	b.e.IsStarred = true
	return b
}

// WithTask marks the email as having an assigned task.
func (b *EmailBuilder) WithTask(taskID string) *EmailBuilder {
	b.e.HasTask = true
	b.e.TaskID = taskID
	return b
}

func (b *EmailBuilder) WithLabels(labels ...string) *EmailBuilder {
	b.e.Labels = labels
	return b
}

func (b *EmailBuilder) WithAttachments(n int) *EmailBuilder {
	b.e.AttachmentCount = n
	return b
}

func (b *EmailBuilder) Build() query.Email {
	return b.e
}

func (b *EmailBuilder) BuildPtr() *query.Email {
	e := b.e
	return &e
}

// IDs returns the IDs of emails in order.
func IDs(emails []query.Email) []string {
	ids := make([]string, len(emails))
	for i, e := range emails {
		ids[i] = e.ID
	}
	return ids
}
