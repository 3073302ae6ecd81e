package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeexpense/internal/otp"
)

func TestStateMachine(t *testing.T) {
	s := New("id", time.Now())
	assert.Equal(t, Unauthenticated, s.State())

	_, ok := s.Identity()
	assert.False(t, ok, "no identity before authentication")

	require.ErrorIs(t, s.Authenticate(Identity{Mobile: "03001234567"}), ErrIllegalTransition)
	require.ErrorIs(t, s.Logout(), ErrIllegalTransition)
	require.ErrorIs(t, s.Abandon(), ErrIllegalTransition)
	require.ErrorIs(t, s.ReplaceCode(otp.Code{}), ErrIllegalTransition)

	code := otp.Code{Value: "123456", Mobile: "03001234567", IssuedAt: time.Now()}
	require.NoError(t, s.BeginChallenge(Challenge{Code: code, Purpose: PurposeLogin}))
	assert.Equal(t, CodePending, s.State())
	require.ErrorIs(t, s.BeginChallenge(Challenge{}), ErrIllegalTransition)
	require.ErrorIs(t, s.Logout(), ErrIllegalTransition)

	_, ok = s.Identity()
	assert.False(t, ok, "no identity while a code is pending")

	fresh := otp.Code{Value: "654321", Mobile: code.Mobile, IssuedAt: time.Now()}
	require.NoError(t, s.ReplaceCode(fresh))
	ch, ok := s.Challenge()
	require.True(t, ok)
	assert.Equal(t, "654321", ch.Code.Value)
	assert.Equal(t, 1, ch.Resent)

	require.NoError(t, s.Authenticate(Identity{Mobile: code.Mobile, DisplayName: "Sara"}))
	assert.Equal(t, Authenticated, s.State())
	_, ok = s.Challenge()
	assert.False(t, ok, "code fields cleared on success")

	id, ok := s.Identity()
	require.True(t, ok)
	assert.Equal(t, "Sara", id.DisplayName)

	require.ErrorIs(t, s.BeginChallenge(Challenge{}), ErrIllegalTransition)
	require.NoError(t, s.Logout())
	assert.Equal(t, Unauthenticated, s.State())
	_, ok = s.Identity()
	assert.False(t, ok)
}

func TestAbandonReturnsToUnauthenticated(t *testing.T) {
	s := New("id", time.Now())
	require.NoError(t, s.BeginChallenge(Challenge{Purpose: PurposeSignup}))
	require.NoError(t, s.Abandon())
	assert.Equal(t, Unauthenticated, s.State())
	_, ok := s.Challenge()
	assert.False(t, ok)
}

func TestFlashIsOneShot(t *testing.T) {
	s := New("id", time.Now())
	assert.Nil(t, s.PopFlash())
	s.SetFlash(FlashError, "Invalid OTP")
	f := s.PopFlash()
	require.NotNil(t, f)
	assert.Equal(t, FlashError, f.Kind)
	assert.Nil(t, s.PopFlash())
}

func TestIdentityKey(t *testing.T) {
	assert.Equal(t, "923001234567", Identity{Mobile: "+92 300 1234567"}.Key())
}

func stored(m *Manager) *Session {
	s := New(newID(), m.cfg.Now())
	m.store.Set(s.ID, s)
	return s
}

func TestManagerMiddleware(t *testing.T) {
	m := NewManager(Config{TTL: time.Hour}, nil)

	var seen *Session
	flash := false
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		if flash {
			seen.SetFlash(FlashInfo, "hi")
		}
		w.WriteHeader(http.StatusSeeOther)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, seen)
	assert.Empty(t, rec.Result().Cookies(), "blank sessions are not kept")
	assert.Equal(t, 0, m.Count())

	flash = true
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DefaultCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 1, m.Count())
	first := seen

	flash = false
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Same(t, first, seen, "cookie resolves to the same session")
	assert.Empty(t, rec.Result().Cookies(), "no new cookie for a known session")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "forged"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotSame(t, first, seen, "unknown ids get a fresh session")
	assert.Equal(t, 1, m.Count())
}

func TestManagerKeepsSessionWithoutExplicitWrite(t *testing.T) {
	m := NewManager(Config{}, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).SetFlash(FlashError, "Please log in first.")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/expenses/export", nil))
	assert.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, 1, m.Count())
}

func TestAnonymousPageViewsDoNotEvictSessions(t *testing.T) {
	m := NewManager(Config{MaxSize: 2}, nil)
	s := stored(m)
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	for range 10 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: s.ID})
	got, created := m.Load(req)
	assert.False(t, created)
	assert.Same(t, s, got)
}

func TestManagerRotate(t *testing.T) {
	m := NewManager(Config{}, nil)
	s := stored(m)
	old := s.ID

	rec := httptest.NewRecorder()
	m.Rotate(rec, s)
	assert.NotEqual(t, old, s.ID)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: old})
	got, created := m.Load(req)
	assert.True(t, created, "old id no longer resolves")
	assert.NotSame(t, s, got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	got, created = m.Load(req)
	assert.False(t, created)
	assert.Same(t, s, got)
}

func TestManagerExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(Config{TTL: time.Hour, Now: func() time.Time { return now }}, nil)
	s := stored(m)

	now = now.Add(2 * time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: s.ID})
	_, created := m.Load(req)
	assert.True(t, created)
}
