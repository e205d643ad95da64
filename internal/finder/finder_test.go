package finder

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"nfxcode/internal/mailbox"
	"nfxcode/internal/sanitize"
	"nfxcode/internal/segments"
)

type stubSource struct {
	emails []mailbox.Email
	err    error
	target string
}

func (s *stubSource) FindCandidateEmails(_ context.Context, target string) ([]mailbox.Email, error) {
	s.target = target
	return s.emails, s.err
}

func (s *stubSource) Name() string { return "stub" }

type prefixTranslator struct{}

func (prefixTranslator) Translate(_ context.Context, text, targetLang string) string {
	if targetLang == "" {
		return text
	}
	return "[" + targetLang + "] " + text
}

func testLogger() *log.Logger { return log.New(io.Discard) }

func travelEmail(id string, receivedAt time.Time) mailbox.Email {
	return mailbox.Email{
		ID:         id,
		Subject:    "Your temporary access code",
		From:       "travel-noreply@netflix.com",
		To:         "user@x.com",
		ReceivedAt: receivedAt,
		HTMLBody: `<p>Use the button below.</p>` +
			`<a href="https://www.netflix.com/account/travel/verify?nftoken=abc">Get Code</a>`,
		TextBody: "Your verification code is 4821. Use it within 15 minutes.",
	}
}

func TestFindBuildsResult(t *testing.T) {
	now := time.Now()
	src := &stubSource{emails: []mailbox.Email{travelEmail("m1", now)}}
	f := New(src, prefixTranslator{}, testLogger(), Options{})

	res, err := f.Find(context.Background(), "user@x.com", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.target != "user@x.com" {
		t.Fatalf("source queried with %q", src.target)
	}
	if res.ID != "m1" || res.Subject != "Your temporary access code" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(res.RawHTML, sanitize.WrapperClass) {
		t.Fatalf("raw html not sanitized: %q", res.RawHTML)
	}
	if res.AccessCode != "4821" {
		t.Fatalf("access code = %q, want 4821", res.AccessCode)
	}

	if len(res.ContentSegments) != 2 {
		t.Fatalf("expected link + text segments, got %+v", res.ContentSegments)
	}
	link := res.ContentSegments[0]
	if link.Type != segments.TypeLink || !link.IsMain || link.Label != "Get Code" {
		t.Fatalf("unexpected link segment: %+v", link)
	}
}

func TestFindTranslatesDisplayStrings(t *testing.T) {
	src := &stubSource{emails: []mailbox.Email{travelEmail("m1", time.Now())}}
	f := New(src, prefixTranslator{}, testLogger(), Options{})

	res, err := f.Find(context.Background(), "user@x.com", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(res.Subject, "[fr] ") {
		t.Fatalf("subject not translated: %q", res.Subject)
	}
	text := res.ContentSegments[len(res.ContentSegments)-1]
	if text.Type != segments.TypeText || !strings.HasPrefix(text.Value, "[fr] ") {
		t.Fatalf("text segment not translated: %+v", text)
	}
}

// With the content gate on, a newer message without verification content
// loses to an older one that has it.
func TestFindActionContentGate(t *testing.T) {
	now := time.Now()
	promo := mailbox.Email{
		ID:         "promo",
		Subject:    "New arrivals this week",
		From:       "info@netflix.com",
		ReceivedAt: now,
		HTMLBody:   `<a href="https://www.netflix.com/browse">Browse</a>`,
	}
	src := &stubSource{emails: []mailbox.Email{promo, travelEmail("m2", now.Add(-3 * time.Minute))}}

	gated := New(src, prefixTranslator{}, testLogger(), Options{RequireActionContent: true})
	res, err := gated.Find(context.Background(), "user@x.com", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID != "m2" {
		t.Fatalf("gate picked %q, want m2", res.ID)
	}

	ungated := New(src, prefixTranslator{}, testLogger(), Options{})
	res, err = ungated.Find(context.Background(), "user@x.com", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID != "promo" {
		t.Fatalf("without the gate the newest wins, got %q", res.ID)
	}
}

func TestFindNotFound(t *testing.T) {
	f := New(&stubSource{}, prefixTranslator{}, testLogger(), Options{})
	_, err := f.Find(context.Background(), "user@x.com", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindPropagatesTypedErrors(t *testing.T) {
	srcErr := mailbox.NewError(mailbox.KindQuota, "stub: list", errors.New("429"))
	f := New(&stubSource{err: srcErr}, prefixTranslator{}, testLogger(), Options{})

	_, err := f.Find(context.Background(), "user@x.com", "")
	kind, ok := mailbox.KindOf(err)
	if !ok || kind != mailbox.KindQuota {
		t.Fatalf("expected quota kind, got %v (typed=%v)", kind, ok)
	}
}

func TestFriendlyMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNotFound, "No recent Netflix verification email"},
		{mailbox.NewError(mailbox.KindAuthentication, "op", errors.New("x")), "sign-in failed"},
		{mailbox.NewError(mailbox.KindConfiguration, "op", errors.New("x")), "not configured"},
		{mailbox.NewError(mailbox.KindQuota, "op", errors.New("x")), "rate limiting"},
		{mailbox.NewError(mailbox.KindConnectivity, "op", errors.New("x")), "Could not reach"},
		{errors.New("plain"), "Something went wrong"},
	}
	for _, tc := range cases {
		got := FriendlyMessage(tc.err)
		if !strings.Contains(got, tc.want) {
			t.Errorf("FriendlyMessage(%v) = %q, want substring %q", tc.err, got, tc.want)
		}
	}
}
