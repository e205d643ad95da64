// Package imap implements the mailbox capability against a plain IMAP
// server: open the mailbox read-only, pull the most recent messages, parse
// them in parallel and keep the ones from Netflix that mention the target
// address anywhere.
package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"nfxcode/internal/config"
	"nfxcode/internal/mailbox"
)

// fetchLimit bounds how many of the newest messages are pulled per request.
// There is no server-side recency filter on this path; recency is enforced
// by sort order downstream.
const fetchLimit = 200

// Client is the subset of the go-imap client this source needs. Tests
// substitute a mock.
type Client interface {
	Logout() error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
}

type Source struct {
	cfg    config.Config
	logger *log.Logger

	// Connector opens and authenticates a connection. Overridable in tests.
	Connector func(cfg config.Config) (Client, error)
}

func New(cfg config.Config, logger *log.Logger) *Source {
	return &Source{cfg: cfg, logger: logger, Connector: Connect}
}

func (s *Source) Name() string { return "imap" }

// Connect dials the configured IMAP server, negotiating TLS or STARTTLS,
// and logs in.
func Connect(cfg config.Config) (Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.IMAP.Host, cfg.IMAP.Port)
	var c *imapclient.Client
	var err error

	if cfg.IMAP.TLS {
		tlsConfig := &tls.Config{
			ServerName:         cfg.IMAP.Host,
			InsecureSkipVerify: cfg.IMAP.InsecureSkipVerify,
		}
		c, err = imapclient.DialTLS(addr, tlsConfig)
	} else {
		c, err = imapclient.Dial(addr)
		if err == nil && cfg.IMAP.StartTLS {
			tlsConfig := &tls.Config{
				ServerName:         cfg.IMAP.Host,
				InsecureSkipVerify: cfg.IMAP.InsecureSkipVerify,
			}
			if err := c.StartTLS(tlsConfig); err != nil {
				_ = c.Logout()
				return nil, err
			}
		}
	}
	if err != nil {
		return nil, err
	}

	if err := c.Login(cfg.Auth.Username, cfg.Auth.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("login: %w", err)
	}

	return c, nil
}

// FindCandidateEmails fetches the newest messages from the configured
// mailbox and filters to those sent by Netflix that mention target in the
// recipient, cc, subject or either body. Messages that fail to parse are
// dropped individually; the batch survives. Results come back newest first.
func (s *Source) FindCandidateEmails(ctx context.Context, target string) ([]mailbox.Email, error) {
	if err := ctx.Err(); err != nil {
		return nil, mailbox.NewError(mailbox.KindConnectivity, "imap: connect", err)
	}

	connector := s.Connector
	if connector == nil {
		connector = Connect
	}
	c, err := connector(s.cfg)
	if err != nil {
		return nil, mailbox.NewError(mailbox.ClassifyTransport(err), "imap: connect", err)
	}
	defer func() {
		_ = c.Logout()
	}()

	mbox, err := c.Select(s.cfg.IMAP.Mailbox, true)
	if err != nil {
		return nil, mailbox.NewError(mailbox.ClassifyTransport(err), "imap: select", err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	from := uint32(1)
	if mbox.Messages > fetchLimit {
		from = mbox.Messages - fetchLimit + 1
	}
	seqset := new(imap.SeqSet)
	seqset.AddRange(from, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, section.FetchItem()}

	ch := make(chan *imap.Message, fetchLimit)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, ch)
	}()

	// Each message parses in its own goroutine; the WaitGroup is the
	// completion signal, so nothing here waits on timers.
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		parsed []*mailbox.Email
	)
	for msg := range ch {
		if msg == nil {
			continue
		}
		wg.Add(1)
		go func(msg *imap.Message) {
			defer wg.Done()
			email, err := parseMessage(msg, section)
			if err != nil {
				s.logger.Debug("message parse failed, skipping", "seq", msg.SeqNum, "error", err)
				return
			}
			mu.Lock()
			parsed = append(parsed, email)
			mu.Unlock()
		}(msg)
	}
	fetchErr := <-done
	wg.Wait()
	if fetchErr != nil {
		return nil, mailbox.NewError(mailbox.ClassifyTransport(fetchErr), "imap: fetch", fetchErr)
	}

	var emails []mailbox.Email
	for _, e := range parsed {
		if !fromNetflix(e.From) {
			continue
		}
		if !mentionsTarget(e, target) {
			continue
		}
		emails = append(emails, *e)
	}

	mailbox.SortByReceiptDesc(emails)
	return emails, nil
}

func fromNetflix(from string) bool {
	return strings.Contains(strings.ToLower(from), "netflix")
}

// mentionsTarget is a deliberately loose substring match so addresses
// embedded in forwarded or CC'd content still count.
func mentionsTarget(e *mailbox.Email, target string) bool {
	needle := strings.ToLower(target)
	for _, hay := range []string{e.To, e.Cc, e.Subject, e.TextBody, e.HTMLBody} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}
