package cli

import (
	"fmt"

	"github.com/charmbracelet/log"

	"nfxcode/internal/config"
	"nfxcode/internal/finder"
	"nfxcode/internal/mailbox"
	"nfxcode/internal/mailbox/gmail"
	imapsrc "nfxcode/internal/mailbox/imap"
	"nfxcode/internal/segments"
	"nfxcode/internal/translate"
)

// buildFinder assembles the pipeline for the configured backend. The Gmail
// query is coarse (sender domain plus recipient), so that path gates on
// verification content; the IMAP path filters harder up front and does not.
func buildFinder(cfg config.Config, logger *log.Logger) (*finder.Finder, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, mailbox.NewError(mailbox.KindConfiguration, "config: validate", err)
	}

	var (
		source mailbox.Source
		opts   finder.Options
	)
	switch cfg.Mailbox.Backend {
	case config.BackendGmail:
		source = gmail.New(cfg.Gmail, logger)
		opts.RequireActionContent = true
	case config.BackendIMAP:
		source = imapsrc.New(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown mailbox backend %q", cfg.Mailbox.Backend)
	}
	opts.TargetLang = cfg.Translate.TargetLang

	return finder.New(source, newTranslator(cfg.Translate, logger), logger, opts), nil
}

// newTranslator picks the noop when no endpoint is configured, so the
// pipeline skips translation outright instead of probing a dead endpoint.
func newTranslator(cfg config.TranslateConfig, logger *log.Logger) segments.Translator {
	if cfg.Endpoint == "" {
		return translate.Noop{}
	}
	return translate.New(cfg, logger)
}
