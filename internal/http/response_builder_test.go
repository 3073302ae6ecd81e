package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	NewHTMXResponse().
		Status(http.StatusAccepted).
		BodyHTML("<p>ok</p>").
		Write(w, r)

	if w.Code != http.StatusAccepted {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusAccepted)
	}
	if w.Body.String() != "<p>ok</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/expenses", nil)

	NewHTMXResponse().
		TriggerLedgerChanged("add").
		Trigger("form:reset", struct{}{}).
		Write(w, r)

	trigger := w.Header().Get("HX-Trigger")
	for _, part := range []string{`"ledger:changed"`, `"op":"add"`, `"form:reset"`} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestHTMXResponseBuilder_Redirect(t *testing.T) {
	tests := []struct {
		name       string
		htmx       bool
		wantStatus int
		wantHeader string
	}{
		{"plain form post", false, http.StatusSeeOther, "Location"},
		{"htmx request", true, http.StatusUnprocessableEntity, "HX-Redirect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/salary", nil)
			if tt.htmx {
				r.Header.Set("HX-Request", "true")
			}

			NewHTMXResponse().Status(http.StatusUnprocessableEntity).Redirect("/").Write(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get(tt.wantHeader); got != "/" {
				t.Errorf("%s = %q, want /", tt.wantHeader, got)
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	InternalServerError(`<script>alert("x")</script>`).Write(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "<script>") {
		t.Errorf("message not escaped: %s", w.Body.String())
	}
}
