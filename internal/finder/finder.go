// Package finder ties the pipeline together: query a mailbox source for
// candidate messages, pick the single relevant one, and shape it into a
// displayable result.
package finder

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"nfxcode/internal/mailbox"
	"nfxcode/internal/sanitize"
	"nfxcode/internal/segments"
)

// ErrNotFound reports that no verification email was found for the address.
var ErrNotFound = errors.New("no recent verification email found")

// Result is the displayable form of the selected email.
type Result struct {
	ID              string             `json:"id"`
	Subject         string             `json:"subject"`
	From            string             `json:"from"`
	To              string             `json:"to"`
	ReceivedAt      time.Time          `json:"receivedAt"`
	RawHTML         string             `json:"rawHtml"`
	ContentSegments []segments.Segment `json:"contentSegments"`
	AccessCode      string             `json:"accessCode,omitempty"`
}

// Options tunes selection per deployment. RequireActionContent adds a body
// gate on top of the source's own filtering; sources whose server-side query
// is coarse (sender-domain only) need it, sources that already filter hard
// do not.
type Options struct {
	RequireActionContent bool
	TargetLang           string
}

type Finder struct {
	source     mailbox.Source
	translator segments.Translator
	logger     *log.Logger
	opts       Options
}

func New(source mailbox.Source, translator segments.Translator, logger *log.Logger, opts Options) *Finder {
	return &Finder{source: source, translator: translator, logger: logger, opts: opts}
}

// actionIndicators mark message bodies that belong to the verification flow
// rather than ordinary account mail. Matched case-insensitively.
var actionIndicators = []string{
	"/account/travel",
	"travel/verify",
	"update-primary-location",
	"temporary access",
	"verify-device",
	"device-confirm",
	"yesitwasme",
	"yes-it-was-me",
	"yes_it_was_me",
}

// Find locates the single most recent verification email addressed to
// address. lang, when non-empty, overrides the configured target language
// for the displayable strings.
func (f *Finder) Find(ctx context.Context, address, lang string) (*Result, error) {
	traceID := uuid.NewString()
	logger := f.logger.With("trace", traceID, "source", f.source.Name())
	logger.Info("searching for verification email", "address", address)

	emails, err := f.source.FindCandidateEmails(ctx, address)
	if err != nil {
		logger.Error("mailbox query failed", "error", err)
		return nil, err
	}
	logger.Debug("candidates returned", "count", len(emails))

	selected := f.selectEmail(emails)
	if selected == nil {
		logger.Info("no matching email")
		return nil, ErrNotFound
	}
	logger.Info("email selected", "id", selected.ID, "receivedAt", selected.ReceivedAt)

	if lang == "" {
		lang = f.opts.TargetLang
	}
	return f.buildResult(ctx, selected, lang), nil
}

// selectEmail picks the newest candidate, optionally gated on verification
// content. Candidates arrive newest first from every source.
func (f *Finder) selectEmail(emails []mailbox.Email) *mailbox.Email {
	for i := range emails {
		if f.opts.RequireActionContent && !hasActionContent(&emails[i]) {
			continue
		}
		return &emails[i]
	}
	return nil
}

func hasActionContent(e *mailbox.Email) bool {
	body := strings.ToLower(e.HTMLBody + "\n" + e.TextBody)
	for _, indicator := range actionIndicators {
		if strings.Contains(body, indicator) {
			return true
		}
	}
	return false
}

func (f *Finder) buildResult(ctx context.Context, e *mailbox.Email, lang string) *Result {
	subject := e.Subject
	if lang != "" {
		subject = f.translator.Translate(ctx, subject, lang)
	}
	return &Result{
		ID:              e.ID,
		Subject:         subject,
		From:            e.From,
		To:              e.To,
		ReceivedAt:      e.ReceivedAt,
		RawHTML:         sanitize.StyleForDisplay(e.HTMLBody),
		ContentSegments: segments.ToSegments(ctx, e.HTMLBody, e.TextBody, f.translator, lang),
		AccessCode:      segments.ExtractAccessCode(e.TextBody, e.HTMLBody),
	}
}
