package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"homeexpense/internal/cache"
	"homeexpense/internal/log"
)

const DefaultCookieName = "he_session"

type Config struct {
	CookieName string
	Secure     bool
	TTL        time.Duration
	MaxSize    int
	Now        func() time.Time
}

// Manager keeps sessions in memory, keyed by an opaque cookie value.
// Sessions die with the process.
type Manager struct {
	cfg    Config
	store  *cache.LRUCache[*Session]
	logger *log.Logger
}

type contextKey struct{}

func NewManager(cfg Config, logger *log.Logger) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10000
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentSession)

	return &Manager{
		cfg: cfg,
		store: cache.NewLRUCache[*Session](cfg.MaxSize, cfg.TTL,
			cache.WithClock[*Session](cfg.Now),
			cache.WithEvictHook(func(_ string, s *Session) {
				logger.Debug("Session evicted", "age", cfg.Now().Sub(s.CreatedAt).String())
			})),
		logger: logger,
	}
}

// Store exposes the backing cache so a janitor can sweep it.
func (m *Manager) Store() cache.Cleaner {
	return m.store
}

func (m *Manager) Count() int {
	return m.store.Size()
}

func newID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("session: crypto/rand failed: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Load returns the session named by the request cookie. When it is missing or
// expired, Load returns a fresh session that is not stored yet; created
// reports that case.
func (m *Manager) Load(r *http.Request) (s *Session, created bool) {
	if c, err := r.Cookie(m.cfg.CookieName); err == nil && c.Value != "" {
		if s, ok := m.store.Get(c.Value); ok {
			return s, false
		}
	}
	return New(newID(), m.cfg.Now()), true
}

// keep stores a fresh session once it holds anything worth a cookie.
func (m *Manager) keep(w http.ResponseWriter, s *Session) bool {
	if !s.Dirty() {
		return false
	}
	if _, ok := m.store.Get(s.ID); !ok {
		m.store.Set(s.ID, s)
		m.setCookie(w, s)
	}
	return true
}

func (m *Manager) setCookie(w http.ResponseWriter, s *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.cfg.TTL.Seconds()),
	})
}

// Rotate gives s a fresh id after a privilege change and reissues the cookie.
// Call it while holding the session lock.
func (m *Manager) Rotate(w http.ResponseWriter, s *Session) {
	m.store.Delete(s.ID)
	s.ID = newID()
	m.store.Set(s.ID, s)
	m.setCookie(w, s)
}

// Middleware attaches the session to the request context and holds its lock
// until the handler returns, so requests of one browser run one at a time.
// A fresh session is stored, and its cookie set, only when the handler leaves
// something in it, so anonymous page views do not fill the session table.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, created := m.Load(r)

		s.Lock()
		defer s.Unlock()

		if created {
			orig := w
			kw := &keepWriter{ResponseWriter: orig, keep: func() bool { return m.keep(orig, s) }}
			w = kw
			defer kw.flush()
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
	})
}

// keepWriter gives the manager a last chance to set the session cookie
// before the response headers go out.
type keepWriter struct {
	http.ResponseWriter
	keep func() bool
	done bool
}

func (k *keepWriter) flush() {
	if !k.done && k.keep() {
		k.done = true
	}
}

func (k *keepWriter) WriteHeader(code int) {
	k.flush()
	k.done = true
	k.ResponseWriter.WriteHeader(code)
}

func (k *keepWriter) Write(b []byte) (int, error) {
	if !k.done {
		k.WriteHeader(http.StatusOK)
	}
	return k.ResponseWriter.Write(b)
}

func (k *keepWriter) Unwrap() http.ResponseWriter {
	return k.ResponseWriter
}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request session or nil outside the middleware.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
