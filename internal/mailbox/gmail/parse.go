package gmail

import (
	"encoding/base64"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"nfxcode/internal/mailbox"
)

// messageList is the users.messages.list response.
type messageList struct {
	Messages []struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	} `json:"messages"`
	ResultSizeEstimate int `json:"resultSizeEstimate"`
}

// gmailMessage is the relevant subset of a users.messages.get response.
type gmailMessage struct {
	ID           string      `json:"id"`
	InternalDate string      `json:"internalDate"` // epoch millis as string
	Payload      messagePart `json:"payload"`
}

type messagePart struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []messagePart `json:"parts"`
}

// normalizeMessage flattens a Gmail message into the provider-agnostic
// record: headers from the top-level part, bodies from the first text/html
// and text/plain leaves of the part tree.
func normalizeMessage(msg *gmailMessage, now func() time.Time) *mailbox.Email {
	email := &mailbox.Email{
		ID:      msg.ID,
		Subject: header(&msg.Payload, "Subject"),
		From:    header(&msg.Payload, "From"),
		To:      header(&msg.Payload, "To"),
		Cc:      header(&msg.Payload, "Cc"),
	}

	email.ReceivedAt = receivedAt(msg, now)

	flattenParts(&msg.Payload, email)
	return email
}

func header(p *messagePart, name string) string {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// receivedAt prefers internalDate (true receipt time, millisecond epoch),
// then the Date header, then "now" so the invariant of a valid timestamp
// always holds.
func receivedAt(msg *gmailMessage, now func() time.Time) time.Time {
	if ms, err := strconv.ParseInt(msg.InternalDate, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms)
	}
	if date := header(&msg.Payload, "Date"); date != "" {
		if t, err := mail.ParseDate(date); err == nil {
			return t
		}
	}
	return now()
}

// flattenParts walks the part tree recursively, taking the first text/html
// and first text/plain leaf encountered.
func flattenParts(p *messagePart, email *mailbox.Email) {
	mime := strings.ToLower(p.MimeType)
	switch {
	case strings.HasPrefix(mime, "multipart/"):
		for i := range p.Parts {
			flattenParts(&p.Parts[i], email)
		}
	case mime == "text/html" && email.HTMLBody == "":
		email.HTMLBody = decodeBody(p.Body.Data)
	case mime == "text/plain" && email.TextBody == "":
		email.TextBody = decodeBody(p.Body.Data)
	}
}

// decodeBody decodes Gmail's URL-safe base64 body data, tolerating both
// padded and unpadded forms.
func decodeBody(data string) string {
	if data == "" {
		return ""
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	return string(raw)
}
