package imap

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"nfxcode/internal/mailbox"
)

func init() {
	message.CharsetReader = charsetReader
}

// charsetReader decodes non-UTF-8 body parts by IANA charset name. Unknown
// charsets pass through undecoded rather than failing the message.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(strings.ToLower(charset))
	if err != nil || enc == nil {
		return input, nil
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// parseMessage flattens a fetched IMAP message into the provider-agnostic
// record: envelope headers plus the first text/plain and first text/html
// inline parts of the body.
func parseMessage(msg *imap.Message, section *imap.BodySectionName) (*mailbox.Email, error) {
	email := &mailbox.Email{
		ID: fmt.Sprintf("%d", msg.SeqNum),
	}

	if env := msg.Envelope; env != nil {
		email.Subject = env.Subject
		email.From = formatAddresses(env.From)
		email.To = formatAddresses(env.To)
		email.Cc = formatAddresses(env.Cc)
	}

	email.ReceivedAt = receivedAt(msg)

	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("message %d: body not available", msg.SeqNum)
	}

	reader, err := mail.CreateReader(body)
	if err != nil {
		return nil, fmt.Errorf("message %d: %w", msg.SeqNum, err)
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", msg.SeqNum, err)
		}
		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := header.ContentType()
		switch {
		case strings.HasPrefix(contentType, "text/plain") && email.TextBody == "":
			data, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			email.TextBody = string(data)
		case strings.HasPrefix(contentType, "text/html") && email.HTMLBody == "":
			data, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			email.HTMLBody = string(data)
		}
	}

	return email, nil
}

// receivedAt prefers the server's internal date (true receipt time) over the
// sender-controlled envelope date, falling back to "now" so the timestamp
// invariant always holds.
func receivedAt(msg *imap.Message) time.Time {
	if !msg.InternalDate.IsZero() {
		return msg.InternalDate
	}
	if msg.Envelope != nil && !msg.Envelope.Date.IsZero() {
		return msg.Envelope.Date
	}
	return time.Now()
}

func formatAddresses(addrs []*imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if addr == nil {
			continue
		}
		full := addr.MailboxName
		if addr.HostName != "" {
			full = addr.MailboxName + "@" + addr.HostName
		}
		if addr.PersonalName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", addr.PersonalName, full))
		} else {
			parts = append(parts, full)
		}
	}
	return strings.Join(parts, ", ")
}
