package cli

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"nfxcode/internal/config"
)

func testLogger() *log.Logger { return log.New(io.Discard) }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.IMAP.Host = "imap.example.com"
	cfg.Auth.Username = "user@x.com"
	cfg.Auth.Password = "hunter2"
	return cfg
}
