// Package mailbox defines the provider-agnostic email record, the capability
// interface both mailbox backends implement, and the typed transport errors
// the pipeline distinguishes from an empty result.
package mailbox

import (
	"context"
	"sort"
	"time"
)

// Email is a normalized message flattened out of a provider-native record.
// ReceivedAt is always a valid instant (backends fall back to time.Now when
// the source carries no date). HTMLBody and TextBody may be empty.
type Email struct {
	ID         string
	Subject    string
	From       string
	To         string
	Cc         string
	ReceivedAt time.Time
	HTMLBody   string
	TextBody   string
}

// Source is the mailbox access capability. FindCandidateEmails returns the
// candidate messages for target, newest first. An empty slice means the
// mailbox had nothing relevant; a failure to reach or authenticate against
// the mailbox surfaces as *Error, never as an empty result.
type Source interface {
	FindCandidateEmails(ctx context.Context, target string) ([]Email, error)
	Name() string
}

// SortByReceiptDesc orders emails newest first. The sort is stable so
// messages with identical timestamps keep first-encountered order.
func SortByReceiptDesc(emails []Email) {
	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.After(emails[j].ReceivedAt)
	})
}
