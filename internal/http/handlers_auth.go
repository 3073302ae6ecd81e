package http

import (
	"net/http"

	"homeexpense/internal/log"
	"homeexpense/internal/session"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, sess, log.OpLogin, "/", err)
		return
	}
	if err := s.flow.Login(r.Context(), sess, ParseLoginForm(r.Form)); err != nil {
		s.fail(w, r, sess, log.OpLogin, "/", err)
		return
	}
	s.done(w, r, sess, session.FlashInfo, "We sent you a verification code.", "")
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, sess, log.OpRegister, "/?tab=signup", err)
		return
	}
	if err := s.flow.Signup(r.Context(), sess, ParseSignupForm(r.Form)); err != nil {
		s.fail(w, r, sess, log.OpRegister, "/?tab=signup", err)
		return
	}
	s.done(w, r, sess, session.FlashSuccess, "Account created. Enter the code to finish signing in.", "")
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, sess, log.OpVerify, "/", err)
		return
	}
	id, err := s.flow.Verify(r.Context(), sess, r.Form.Get("code"))
	if err != nil {
		s.fail(w, r, sess, log.OpVerify, "/", err)
		return
	}
	s.sessions.Rotate(w, sess)
	s.done(w, r, sess, session.FlashSuccess, "Welcome, "+id.DisplayName+"!", "")
}

func (s *Server) handleResend(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := s.flow.Resend(r.Context(), sess); err != nil {
		s.fail(w, r, sess, log.OpResend, "/", err)
		return
	}
	s.done(w, r, sess, session.FlashInfo, "A new OTP has been sent.", "")
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := s.flow.Back(sess); err != nil {
		s.fail(w, r, sess, log.OpVerify, "/", err)
		return
	}
	s.done(w, r, sess, session.FlashInfo, "", "")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := s.flow.Logout(r.Context(), sess); err != nil {
		s.fail(w, r, sess, log.OpLogout, "/", err)
		return
	}
	s.sessions.Rotate(w, sess)
	s.done(w, r, sess, session.FlashInfo, "You have been logged out.", "")
}
