package http

import (
	"net/http"
	"time"

	"homeexpense/internal/core"
	"homeexpense/internal/dashboard"
	"homeexpense/internal/log"
	"homeexpense/internal/otp"
	"homeexpense/internal/session"
)

// pageData is shared by the three page templates.
type pageData struct {
	Title    string
	Currency string
	Flash    *session.Flash

	// login.html
	Tab string

	// verify.html
	Verify *verifyData

	// dashboard.html
	View       *dashboard.View
	Categories []core.Category
	MaxNote    int
}

type verifyData struct {
	Mobile    string
	Masked    string
	Purpose   session.Purpose
	ExpiresIn time.Duration
	Resent    int
	DemoCode  string
}

// handleIndex renders the page for the session's current state. An expired
// pending code is detected here and sends the user back to login.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if s.flow.CheckExpiry(sess) {
		s.logger.InfoContext(r.Context(), "Pending code expired", log.FieldState, sess.State().String())
		sess.SetFlash(session.FlashError, "OTP expired. Please log in again.")
	}

	data := pageData{
		Title:    "Home Expense Tracker",
		Currency: s.currency,
		Flash:    sess.PopFlash(),
	}

	switch sess.State() {
	case session.Authenticated:
		owner, _ := sess.Identity()
		view, err := s.dashboard.Load(r.Context(), owner)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Dashboard load failed",
				log.NewFields().WithOperation(log.OpRender).WithAccount(owner.Key()).WithError(err, log.ErrorTypeStorage).ToSlice()...)
			InternalServerError("Could not load your expenses. Please try again.").Write(w, r)
			return
		}
		data.View = &view
		data.Categories = core.Categories
		data.MaxNote = core.MaxNoteLength
		s.render(w, r, "dashboard.html", data)

	case session.CodePending:
		ch, _ := sess.Challenge()
		v := &verifyData{
			Mobile:    ch.Code.Mobile,
			Masked:    otp.MaskMobile(ch.Code.Mobile),
			Purpose:   ch.Purpose,
			ExpiresIn: s.flow.ExpiresIn(sess),
			Resent:    ch.Resent,
		}
		if code, ok := s.flow.DemoCode(sess); ok {
			v.DemoCode = code
		}
		data.Verify = v
		s.render(w, r, "verify.html", data)

	default:
		data.Tab = "login"
		if r.URL.Query().Get("tab") == "signup" {
			data.Tab = "signup"
		}
		s.render(w, r, "login.html", data)
	}
}
