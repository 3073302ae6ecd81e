// Package http serves the expense tracker: one page whose content follows the
// session state, and POST endpoints that change state and redirect back to it.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"homeexpense/internal/auth"
	"homeexpense/internal/dashboard"
	"homeexpense/internal/ledger"
	"homeexpense/internal/log"
	"homeexpense/internal/middleware/ratelimit"
	"homeexpense/internal/middleware/security"
	"homeexpense/internal/middleware/trace"
	"homeexpense/internal/session"
	"homeexpense/internal/storage"
	appweb "homeexpense/web"
)

// Deps are the services the handlers drive.
type Deps struct {
	Flow      *auth.Flow
	Ledger    *ledger.Service
	Dashboard *dashboard.Service
	Sessions  *session.Manager
	// Store is probed by /readyz.
	Store    storage.Store
	Logger   *log.Logger
	Currency string
	// RateLimitPerMinute bounds POST requests per client IP.
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	templates *template.Template

	flow      *auth.Flow
	ledger    *ledger.Service
	dashboard *dashboard.Service
	sessions  *session.Manager
	store     storage.Store

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	logger   *log.Logger
	currency string
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, d Deps) (*Server, error) {
	if d.Flow == nil || d.Ledger == nil || d.Dashboard == nil || d.Sessions == nil || d.Store == nil {
		return nil, errors.New("http: missing dependency")
	}
	logger := d.Logger
	if logger == nil {
		logger = log.Nop()
	}

	s := &Server{
		flow:      d.Flow,
		ledger:    d.Ledger,
		dashboard: d.Dashboard,
		sessions:  d.Sessions,
		store:     d.Store,
		detector:  security.NewDetector(logger),
		logger:    logger.WithComponent(log.ComponentHTTP),
		currency:  d.Currency,
		started:   time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ClientIP)

	t, err := template.New("").Funcs(s.templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static files: %w", err)
	}

	s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: d.RateLimitPerMinute}, logger)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(static),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(static fs.FS) http.Handler {
	app := http.NewServeMux()
	app.HandleFunc("GET /{$}", s.handleIndex)

	app.HandleFunc("POST /auth/login", s.handleLogin)
	app.HandleFunc("POST /auth/signup", s.handleSignup)
	app.HandleFunc("POST /auth/verify", s.handleVerify)
	app.HandleFunc("POST /auth/resend", s.handleResend)
	app.HandleFunc("POST /auth/back", s.handleBack)
	app.HandleFunc("POST /auth/logout", s.handleLogout)

	app.HandleFunc("POST /salary", s.requireAuth(s.handleSalary))
	app.HandleFunc("POST /expenses", s.requireAuth(s.handleAddExpense))
	app.HandleFunc("POST /expenses/delete", s.requireAuth(s.handleDeleteExpense))
	app.HandleFunc("POST /expenses/clear", s.requireAuth(s.handleClearExpenses))
	app.HandleFunc("GET /expenses/export", s.requireAuth(s.handleExport))

	// Session bound routes run with the session locked for the whole request.
	var stateful http.Handler = s.sessions.Middleware(app)
	stateful = s.limiter.Middleware(s.detector.ClientIP, nil)(stateful)

	root := http.NewServeMux()
	root.Handle("/static/", security.CacheStatic(time.Hour)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))
	root.HandleFunc("GET /healthz", s.handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)
	root.Handle("/", stateful)

	headers := security.NewHeaders(security.DefaultPolicy())
	return s.tracer.Middleware(s.detector.Middleware(headers.Middleware(root)))
}

// Shutdown stops the rate limiter and drains the HTTP server. Safe to call twice.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// render executes a page template into a buffer first so a failing template
// never leaves a half written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err.Error(), "template", name)
		InternalServerError("Something went wrong. Please try again.").Write(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
