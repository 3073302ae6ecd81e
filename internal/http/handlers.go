package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"homeexpense/internal/auth"
	"homeexpense/internal/core"
	"homeexpense/internal/log"
	"homeexpense/internal/otp"
	"homeexpense/internal/session"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether templates are loaded and the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.store.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness probe failed", log.FieldError, err.Error())
		checks["store"] = "failed: " + err.Error()
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["sessions"] = s.sessions.Count()
	checks["rate_limited_clients"] = s.limiter.ActiveClients()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session, owner session.Identity)

// requireAuth runs next only for an Authenticated session, so dashboard
// operations are unreachable from any other state.
func (s *Server) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		owner, ok := sess.Identity()
		if !ok {
			sess.SetFlash(session.FlashError, "Please log in first.")
			NewHTMXResponse().Status(http.StatusUnauthorized).Redirect("/").Write(w, r)
			return
		}
		next(w, r, sess, owner)
	}
}

// userError maps an error to the message shown to the user and the status
// an htmx client receives. Status 500 means the error is not the user's to fix.
func userError(err error) (string, int) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message, http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrAlreadyRegistered):
		return "This mobile number is already registered. Please log in.", http.StatusConflict
	case errors.Is(err, auth.ErrNotRegistered):
		return "Mobile number not registered. Please sign up first.", http.StatusUnauthorized
	case errors.Is(err, auth.ErrWrongPassword):
		return "Incorrect password.", http.StatusUnauthorized
	case errors.Is(err, otp.ErrExpired):
		return "OTP expired. Please log in again.", http.StatusUnauthorized
	case errors.Is(err, otp.ErrMismatch):
		return "Invalid OTP. Please try again.", http.StatusUnauthorized
	case errors.Is(err, session.ErrIllegalTransition):
		return "That action is not available right now.", http.StatusConflict
	default:
		return "Something went wrong. Please try again.", http.StatusInternalServerError
	}
}

// fail reports err to the user. Fixable errors become a flash and a redirect
// to target; anything else is logged and answered with a 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, sess *session.Session, op, target string, err error) {
	msg, status := userError(err)
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Request failed",
			log.NewFields().WithOperation(op).WithError(err, log.ErrorTypeStorage).ToSlice()...)
		InternalServerError(msg).Write(w, r)
		return
	}

	errType := log.ErrorTypeValidation
	switch status {
	case http.StatusUnauthorized:
		errType = log.ErrorTypeAuth
	case http.StatusConflict:
		errType = log.ErrorTypeState
	}
	s.logger.InfoContext(r.Context(), "Request rejected",
		log.FieldOperation, op, log.FieldErrorType, errType, "reason", msg)

	sess.SetFlash(session.FlashError, msg)
	NewHTMXResponse().Status(status).Redirect(target).Write(w, r)
}

// done flashes msg and sends the browser back to the page.
func (s *Server) done(w http.ResponseWriter, r *http.Request, sess *session.Session, kind session.FlashKind, msg string, trigger string) {
	if msg != "" {
		sess.SetFlash(kind, msg)
	}
	b := NewHTMXResponse().Redirect("/")
	if trigger != "" {
		b.TriggerLedgerChanged(trigger)
	}
	b.Write(w, r)
}
