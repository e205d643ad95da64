// Package gmail implements the mailbox capability against the Gmail REST
// API: a provider-side search constrained to Netflix senders and the target
// recipient within the recency window, followed by parallel full-message
// fetches.
package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"nfxcode/internal/config"
	"nfxcode/internal/mailbox"
)

// RecencyWindow is how fresh a verification email must be to answer the
// current request. Netflix sends these immediately; anything older is a
// previous attempt.
const RecencyWindow = 15 * time.Minute

// maxResults caps the provider-side search. One request only ever needs a
// handful of candidates.
const maxResults = 10

const readonlyScope = "https://www.googleapis.com/auth/gmail.readonly"

type Source struct {
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger
	now        func() time.Time
}

// New builds a Source whose HTTP client refreshes its access token from the
// configured OAuth refresh token.
func New(cfg config.GmailConfig, logger *log.Logger) *Source {
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
		Scopes:       []string{readonlyScope},
	}
	client := oc.Client(context.Background(), &oauth2.Token{RefreshToken: cfg.RefreshToken})

	return NewWithClient(client, cfg.Endpoint, logger)
}

// NewWithClient wires an explicit HTTP client and base URL. Tests use this
// to point the source at a fake Gmail server.
func NewWithClient(httpClient *http.Client, baseURL string, logger *log.Logger) *Source {
	return &Source{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Source) Name() string { return "gmail" }

// FindCandidateEmails searches for Netflix mail addressed to target within
// the recency window and fetches each hit's full body in parallel. A failed
// individual fetch is logged and skipped; it never fails the batch. Results
// come back newest first, re-filtered client-side against the exact window
// since the server-side after: filter is minute-coarse.
func (s *Source) FindCandidateEmails(ctx context.Context, target string) ([]mailbox.Email, error) {
	cutoff := s.now().Add(-RecencyWindow)

	query := fmt.Sprintf("from:netflix.com to:%s after:%d", target, cutoff.Unix())
	listURL := fmt.Sprintf("%s/users/me/messages?q=%s&maxResults=%d",
		s.baseURL, url.QueryEscape(query), maxResults)

	var list messageList
	if err := s.getJSON(ctx, listURL, &list); err != nil {
		return nil, err
	}
	if len(list.Messages) == 0 {
		return nil, nil
	}

	results := make([]*mailbox.Email, len(list.Messages))
	var wg sync.WaitGroup
	for i, ref := range list.Messages {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			email, err := s.fetchMessage(ctx, id)
			if err != nil {
				s.logger.Warn("message fetch failed, skipping", "id", id, "error", err)
				return
			}
			results[i] = email
		}(i, ref.ID)
	}
	wg.Wait()

	var emails []mailbox.Email
	for _, e := range results {
		if e == nil {
			continue
		}
		if e.ReceivedAt.Before(cutoff) {
			continue
		}
		emails = append(emails, *e)
	}

	mailbox.SortByReceiptDesc(emails)
	return emails, nil
}

func (s *Source) fetchMessage(ctx context.Context, id string) (*mailbox.Email, error) {
	var msg gmailMessage
	fetchURL := fmt.Sprintf("%s/users/me/messages/%s?format=full", s.baseURL, url.PathEscape(id))
	if err := s.getJSON(ctx, fetchURL, &msg); err != nil {
		return nil, err
	}
	return normalizeMessage(&msg, s.now), nil
}

func (s *Source) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return mailbox.NewError(mailbox.KindConnectivity, "gmail: build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return mailbox.NewError(mailbox.ClassifyTransport(err), "gmail: request", err)
	}
	defer resp.Body.Close()

	if kind, failed := statusKind(resp.StatusCode); failed {
		return mailbox.NewError(kind, "gmail: request",
			fmt.Errorf("gmail API returned HTTP %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return mailbox.NewError(mailbox.KindConnectivity, "gmail: decode response", err)
	}
	return nil
}

func statusKind(status int) (mailbox.Kind, bool) {
	switch {
	case status == http.StatusOK:
		return 0, false
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return mailbox.KindAuthentication, true
	case status == http.StatusTooManyRequests:
		return mailbox.KindQuota, true
	default:
		return mailbox.KindConnectivity, true
	}
}
