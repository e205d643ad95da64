package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"nfxcode/internal/config"
	"nfxcode/internal/finder"
	"nfxcode/internal/mailbox"
	"nfxcode/internal/segments"
)

type stubService struct {
	result *finder.Result
	err    error
	lang   string
}

func (s *stubService) Find(_ context.Context, address, lang string) (*finder.Result, error) {
	s.lang = lang
	return s.result, s.err
}

func newTestServer(svc FindService) *httptest.Server {
	s := New(svc, log.New(io.Discard), config.ServeConfig{AllowedOrigins: []string{"*"}})
	return httptest.NewServer(s.Handler())
}

func postFind(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/api/find", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestHandleFindSuccess(t *testing.T) {
	svc := &stubService{result: &finder.Result{
		ID:      "m1",
		Subject: "Your temporary access code",
		ContentSegments: []segments.Segment{
			{Type: segments.TypeLink, Label: "Get Code", URL: "https://www.netflix.com/account/travel/verify?x", IsMain: true},
		},
		AccessCode: "4821",
	}}
	srv := newTestServer(svc)
	defer srv.Close()

	resp := postFind(t, srv.URL, `{"email":"user@x.com","lang":"fr"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if svc.lang != "fr" {
		t.Fatalf("lang not forwarded, got %q", svc.lang)
	}

	var out struct {
		Emails     []finder.Result `json:"emails"`
		TotalCount int             `json:"totalCount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.TotalCount != 1 || len(out.Emails) != 1 || out.Emails[0].ID != "m1" {
		t.Fatalf("unexpected body: %+v", out)
	}
	if out.Emails[0].AccessCode != "4821" {
		t.Fatalf("access code lost: %+v", out.Emails[0])
	}
}

func TestHandleFindNotFound(t *testing.T) {
	srv := newTestServer(&stubService{err: finder.ErrNotFound})
	defer srv.Close()

	resp := postFind(t, srv.URL, `{"email":"user@x.com"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	var out struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Error == "" {
		t.Fatalf("expected friendly error message")
	}
}

func TestHandleFindMailboxError(t *testing.T) {
	srv := newTestServer(&stubService{
		err: mailbox.NewError(mailbox.KindConnectivity, "imap: connect", errors.New("refused")),
	})
	defer srv.Close()

	resp := postFind(t, srv.URL, `{"email":"user@x.com"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var out struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Contains(out.Error, "refused") {
		t.Fatalf("internal detail leaked to client: %q", out.Error)
	}
}

func TestHandleFindBadRequest(t *testing.T) {
	srv := newTestServer(&stubService{})
	defer srv.Close()

	resp := postFind(t, srv.URL, `{"email":""}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty email: status = %d, want 400", resp.StatusCode)
	}

	resp2 := postFind(t, srv.URL, `{not json`)
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad json: status = %d, want 400", resp2.StatusCode)
	}

	resp3, err := http.Get(srv.URL + "/api/find")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET: status = %d, want 405", resp3.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&stubService{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(&stubService{})
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/find", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Allow-Origin = %q", got)
	}
}

func TestRunServesAndShutsDown(t *testing.T) {
	s := New(&stubService{err: finder.ErrNotFound}, log.New(io.Discard), config.ServeConfig{Port: 0})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("server never became ready")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
