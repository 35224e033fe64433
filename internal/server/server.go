// Package server serves the dashboard over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/edadash/internal/logging"
	"github.com/KaramelBytes/edadash/internal/session"
)

const (
	cookieName = "edadash_session"
	// form parsing keeps at most this much of an upload in memory
	formMemory = 32 << 20
	sessionTTL = 12 * time.Hour
)

// Options configures a Server.
type Options struct {
	MaxUploadBytes int64
	PreviewRows    int
	Store          *session.Store
	Logger         logrus.FieldLogger
}

// Server routes dashboard requests to session interactions.
type Server struct {
	dash  *session.Dashboard
	store *session.Store
	opt   Options
	log   logrus.FieldLogger
	mux   *http.ServeMux
}

// New builds a server around a dashboard.
func New(dash *session.Dashboard, opt Options) *Server {
	if opt.Store == nil {
		opt.Store = session.NewStore()
	}
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = 200 << 20
	}
	if opt.PreviewRows <= 0 {
		opt.PreviewRows = 5
	}
	s := &Server{
		dash:  dash,
		store: opt.Store,
		opt:   opt,
		log:   logging.Or(opt.Logger).WithField("component", "server"),
		mux:   http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /upload", s.handleUpload)
	s.mux.HandleFunc("POST /drop", s.handleDrop)
	s.mux.HandleFunc("POST /fill", s.handleFill)
	s.mux.HandleFunc("POST /dedupe", s.handleDedupe)
	s.mux.HandleFunc("POST /outliers", s.handleOutliers)
	s.mux.HandleFunc("GET /plot.png", s.handlePlot)
	s.mux.HandleFunc("POST /report", s.handleReport)
	s.mux.HandleFunc("GET /download/{kind}", s.handleDownload)
	s.mux.HandleFunc("GET /export.csv", s.handleExport)
	s.mux.HandleFunc("GET /export.xlsx", s.handleExport)
	s.mux.HandleFunc("POST /reset", s.handleReset)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Millisecond),
		}).Debug("request")
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. Stale sessions are pruned in the background.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.pruneLoop(ctx)

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("dashboard listening")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) pruneLoop(ctx context.Context) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.store.Prune(now.Add(-sessionTTL)); n > 0 {
				s.log.WithField("sessions", n).Info("pruned idle sessions")
			}
		}
	}
}

// sessionID returns the request's session, issuing a cookie for new visitors.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		if _, ok := s.store.Get(c.Value); ok {
			return c.Value
		}
	}
	st := s.store.New()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    st.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return st.ID
}
