// Package server exposes the finder over HTTP for browser front ends.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rs/cors"

	"nfxcode/internal/config"
	"nfxcode/internal/finder"
)

// FindService is what the HTTP layer needs from the finder.
type FindService interface {
	Find(ctx context.Context, address, lang string) (*finder.Result, error)
}

type Server struct {
	svc    FindService
	logger *log.Logger
	cfg    config.ServeConfig

	ready chan struct{}
}

func New(svc FindService, logger *log.Logger, cfg config.ServeConfig) *Server {
	return &Server{svc: svc, logger: logger, cfg: cfg, ready: make(chan struct{})}
}

// Ready is closed once the listener is bound. Tests wait on it.
func (s *Server) Ready() <-chan struct{} { return s.ready }

type findRequest struct {
	Email string `json:"email"`
	Lang  string `json:"lang,omitempty"`
}

type findResponse struct {
	Emails     []*finder.Result `json:"emails"`
	TotalCount int              `json:"totalCount"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/find", s.handleFind)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "use POST"})
		return
	}

	var req findRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email is required"})
		return
	}

	result, err := s.svc.Find(r.Context(), req.Email, req.Lang)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, finder.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: finder.FriendlyMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, findResponse{
		Emails:     []*finder.Result{result},
		TotalCount: 1,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Run binds the configured port and serves until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("http server listening", "addr", ln.Addr().String())
	close(s.ready)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}
