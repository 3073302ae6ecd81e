package http

import (
	"bytes"
	"net/http"
	"strconv"

	"homeexpense/internal/log"
	"homeexpense/internal/session"
)

func (s *Server) handleSalary(w http.ResponseWriter, r *http.Request, sess *session.Session, owner session.Identity) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, sess, log.OpSalary, "/", err)
		return
	}
	amount, err := ParseSalaryForm(r.Form)
	if err != nil {
		s.fail(w, r, sess, log.OpSalary, "/", err)
		return
	}
	if err := s.ledger.SetSalary(r.Context(), owner.Key(), amount); err != nil {
		s.fail(w, r, sess, log.OpSalary, "/", err)
		return
	}
	s.done(w, r, sess, session.FlashSuccess, "Salary saved.", log.OpSalary)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request, sess *session.Session, owner session.Identity) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, sess, log.OpAdd, "/", err)
		return
	}
	e, err := ParseExpenseForm(r.Form, s.ledger.Today())
	if err != nil {
		s.fail(w, r, sess, log.OpAdd, "/", err)
		return
	}
	if _, err := s.ledger.AddExpense(r.Context(), owner.Key(), e); err != nil {
		s.fail(w, r, sess, log.OpAdd, "/", err)
		return
	}
	s.done(w, r, sess, session.FlashSuccess, "Expense added.", log.OpAdd)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, sess *session.Session, owner session.Identity) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, sess, log.OpDelete, "/", err)
		return
	}
	id, err := ParseExpenseID(r.Form)
	if err != nil {
		s.fail(w, r, sess, log.OpDelete, "/", err)
		return
	}
	deleted, err := s.ledger.DeleteExpense(r.Context(), owner.Key(), id)
	if err != nil {
		s.fail(w, r, sess, log.OpDelete, "/", err)
		return
	}
	if !deleted {
		sess.SetFlash(session.FlashError, "That expense no longer exists.")
		NewHTMXResponse().Status(http.StatusNotFound).Redirect("/").Write(w, r)
		return
	}
	s.done(w, r, sess, session.FlashSuccess, "Expense deleted.", log.OpDelete)
}

func (s *Server) handleClearExpenses(w http.ResponseWriter, r *http.Request, sess *session.Session, owner session.Identity) {
	if err := s.ledger.ClearAll(r.Context(), owner.Key()); err != nil {
		s.fail(w, r, sess, log.OpClear, "/", err)
		return
	}
	s.done(w, r, sess, session.FlashSuccess, "All expenses cleared.", log.OpClear)
}

// handleExport streams the owner's expenses as a CSV download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess *session.Session, owner session.Identity) {
	var buf bytes.Buffer
	filename, err := s.dashboard.Export(r.Context(), owner, &buf)
	if err != nil {
		s.fail(w, r, sess, log.OpExport, "/", err)
		return
	}

	s.logger.InfoContext(r.Context(), "Expenses exported",
		log.FieldOperation, log.OpExport, log.FieldAccount, owner.Key(), "bytes", buf.Len())

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
