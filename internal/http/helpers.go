package http

import (
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"homeexpense/internal/core"
)

// moneyFormatter renders amounts with thousands grouping and the configured currency label.
type moneyFormatter struct {
	currency string
}

func (f moneyFormatter) Format(m core.Money) string {
	sign := ""
	if m.IsNegative() {
		sign = "-"
		m = core.Money{Cents: -m.Cents}
	}
	s := humanize.FormatFloat("#,###.##", m.Float())
	if f.currency == "" {
		return sign + s
	}
	return sign + f.currency + " " + s
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// barWidth clamps a percentage to a visible CSS width.
func barWidth(p float64) int {
	w := int(math.Round(p))
	if p > 0 && w < 2 {
		w = 2
	}
	if w > 100 {
		w = 100
	}
	return w
}

func formatCountdown(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	d = d.Round(time.Second)
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	if m == 0 {
		return fmt.Sprintf("%ds", s)
	}
	return fmt.Sprintf("%dm %02ds", m, s)
}

func (s *Server) templateFuncs() template.FuncMap {
	money := moneyFormatter{currency: s.currency}
	return template.FuncMap{
		"money":     money.Format,
		"percent":   formatPercent,
		"barWidth":  barWidth,
		"countdown": formatCountdown,
		"date":      func(d core.Date) string { return d.Format("02 Jan 2006") },
		"count":     func(n int) string { return humanize.Comma(int64(n)) },
	}
}

// sanitizeInput removes control characters except tab and newlines and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
