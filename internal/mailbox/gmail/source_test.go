package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"nfxcode/internal/mailbox"
)

type fakeMessage struct {
	id         string
	receivedAt time.Time
	from       string
	to         string
	subject    string
	html       string
	text       string
	fetchFails bool
}

func newFakeServer(t *testing.T, msgs []fakeMessage) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		var refs []string
		for _, m := range msgs {
			refs = append(refs, fmt.Sprintf(`{"id":%q,"threadId":%q}`, m.id, m.id))
		}
		fmt.Fprintf(w, `{"messages":[%s],"resultSizeEstimate":%d}`, strings.Join(refs, ","), len(msgs))
	})

	for _, m := range msgs {
		m := m
		mux.HandleFunc("/users/me/messages/"+m.id, func(w http.ResponseWriter, r *http.Request) {
			if m.fetchFails {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			enc := base64.RawURLEncoding.EncodeToString
			fmt.Fprintf(w, `{
				"id": %q,
				"internalDate": "%d",
				"payload": {
					"mimeType": "multipart/alternative",
					"headers": [
						{"name": "From", "value": %q},
						{"name": "To", "value": %q},
						{"name": "Subject", "value": %q}
					],
					"parts": [
						{"mimeType": "text/plain", "body": {"data": %q}},
						{"mimeType": "text/html", "body": {"data": %q}}
					]
				}
			}`, m.id, m.receivedAt.UnixMilli(), m.from, m.to, m.subject,
				enc([]byte(m.text)), enc([]byte(m.html)))
		})
	}

	return httptest.NewServer(mux)
}

func newTestSource(srv *httptest.Server, now time.Time) *Source {
	s := NewWithClient(srv.Client(), srv.URL, log.New(io.Discard))
	s.now = func() time.Time { return now }
	return s
}

func TestFindCandidateEmailsWithinWindow(t *testing.T) {
	now := time.Now()
	srv := newFakeServer(t, []fakeMessage{{
		id:         "m1",
		receivedAt: now.Add(-2 * time.Minute),
		from:       "travel-noreply@netflix.com",
		to:         "user@x.com",
		subject:    "Your temporary access code",
		html:       `<a href="https://www.netflix.com/account/travel/verify?abc">Get Code</a>`,
		text:       "Use the link to get your code.",
	}})
	defer srv.Close()

	emails, err := newTestSource(srv, now).FindCandidateEmails(context.Background(), "user@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emails) != 1 {
		t.Fatalf("expected 1 email, got %d", len(emails))
	}
	e := emails[0]
	if e.ID != "m1" || e.From != "travel-noreply@netflix.com" {
		t.Fatalf("unexpected email: %+v", e)
	}
	if !strings.Contains(e.HTMLBody, "account/travel/verify") {
		t.Fatalf("html body not decoded: %q", e.HTMLBody)
	}
	if e.TextBody != "Use the link to get your code." {
		t.Fatalf("text body not decoded: %q", e.TextBody)
	}
	if e.ReceivedAt.UnixMilli() != now.Add(-2*time.Minute).UnixMilli() {
		t.Fatalf("receivedAt wrong: %v", e.ReceivedAt)
	}
}

// A message the server returns but whose true receipt time is outside the
// 15-minute window must be filtered out client-side.
func TestFindCandidateEmailsFiltersStale(t *testing.T) {
	now := time.Now()
	srv := newFakeServer(t, []fakeMessage{{
		id:         "old",
		receivedAt: now.Add(-20 * time.Minute),
		from:       "info@netflix.com",
		to:         "user@x.com",
		subject:    "old mail",
	}})
	defer srv.Close()

	emails, err := newTestSource(srv, now).FindCandidateEmails(context.Background(), "user@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emails) != 0 {
		t.Fatalf("stale email not filtered: %+v", emails)
	}
}

// One failed fetch must not fail the batch.
func TestFindCandidateEmailsToleratesFetchFailure(t *testing.T) {
	now := time.Now()
	var msgs []fakeMessage
	for i := 0; i < 10; i++ {
		msgs = append(msgs, fakeMessage{
			id:         fmt.Sprintf("m%d", i),
			receivedAt: now.Add(-time.Duration(i) * time.Minute),
			from:       "info@netflix.com",
			to:         "user@x.com",
			subject:    fmt.Sprintf("mail %d", i),
			fetchFails: i == 3,
		})
	}
	srv := newFakeServer(t, msgs)
	defer srv.Close()

	emails, err := newTestSource(srv, now).FindCandidateEmails(context.Background(), "user@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emails) != 9 {
		t.Fatalf("expected 9 emails, got %d", len(emails))
	}
	for i := 1; i < len(emails); i++ {
		if emails[i].ReceivedAt.After(emails[i-1].ReceivedAt) {
			t.Fatalf("emails not sorted newest first")
		}
	}
}

func TestFindCandidateEmailsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_grant", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestSource(srv, time.Now()).FindCandidateEmails(context.Background(), "user@x.com")
	if err == nil {
		t.Fatalf("expected typed error")
	}
	kind, ok := mailbox.KindOf(err)
	if !ok || kind != mailbox.KindAuthentication {
		t.Fatalf("expected authentication kind, got %v (typed=%v)", kind, ok)
	}
}

func TestFindCandidateEmailsEmptyMailbox(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resultSizeEstimate":0}`)
	}))
	defer srv.Close()

	emails, err := newTestSource(srv, time.Now()).FindCandidateEmails(context.Background(), "user@x.com")
	if err != nil {
		t.Fatalf("empty mailbox must not be an error: %v", err)
	}
	if len(emails) != 0 {
		t.Fatalf("expected no emails, got %+v", emails)
	}
}
