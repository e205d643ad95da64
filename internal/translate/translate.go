// Package translate localizes display strings through a self-hosted
// LibreTranslate-compatible endpoint. Translation is cosmetic: it never
// fails a request, it degrades to the original text.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"nfxcode/internal/config"
)

const requestTimeout = 5 * time.Second

type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *log.Logger
}

func New(cfg config.TranslateConfig, logger *log.Logger) *Client {
	return &Client{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

type translateRequest struct {
	Text   string `json:"q"`
	Target string `json:"target"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate returns text rendered in targetLang, or the input unchanged
// when no endpoint is configured, the target is empty, or the call fails.
func (c *Client) Translate(ctx context.Context, text, targetLang string) string {
	if c.endpoint == "" || targetLang == "" || text == "" {
		return text
	}

	body, err := json.Marshal(translateRequest{Text: text, Target: targetLang})
	if err != nil {
		return text
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return text
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("translation unavailable, using original text", "error", err)
		return text
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("translation rejected, using original text", "status", resp.StatusCode)
		return text
	}

	var out translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.TranslatedText == "" {
		return text
	}
	return out.TranslatedText
}

// Noop satisfies the translator contract without doing anything. Used when
// no target language is requested.
type Noop struct{}

func (Noop) Translate(_ context.Context, text, _ string) string { return text }
