// This file turns submitted forms into domain inputs. Every parser returns a
// core.ValidationError for input the user can fix.

package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"homeexpense/internal/auth"
	"homeexpense/internal/core"
)

const maxFormBytes = 64 << 10

var errMalformedForm = errors.New("malformed form")

// parseForm reads a size limited urlencoded body into r.Form.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return core.Invalid("form", errMalformedForm, "Invalid request format")
	}
	return nil
}

// ParseLoginForm keeps the mobile number exactly as typed; it is the account identity.
func ParseLoginForm(form url.Values) auth.LoginInput {
	return auth.LoginInput{
		Mobile:   form.Get("mobile"),
		Password: form.Get("password"),
	}
}

func ParseSignupForm(form url.Values) auth.SignupInput {
	return auth.SignupInput{
		Name:     sanitizeInput(form.Get("name")),
		Mobile:   form.Get("mobile"),
		Password: form.Get("password"),
		Confirm:  form.Get("confirm"),
	}
}

// ParseSalaryForm accepts zero; negative or malformed values are rejected.
func ParseSalaryForm(form url.Values) (core.Money, error) {
	m, err := core.ParseMoney(form.Get("salary"))
	if err != nil {
		return core.Money{}, core.Invalid("salary", err, "Please enter a valid salary")
	}
	return m, nil
}

// ParseExpenseForm builds an expense from the add form. An empty date means today.
func ParseExpenseForm(form url.Values, today core.Date) (core.Expense, error) {
	e := core.Expense{Date: today, Note: sanitizeInput(form.Get("note"))}

	if v := strings.TrimSpace(form.Get("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Expense{}, core.Invalid("date", err, "Please choose a valid date")
		}
		e.Date = d
	}

	cat, err := core.ParseCategory(form.Get("category"))
	if err != nil {
		return core.Expense{}, core.Invalid("category", err, "Please choose a category")
	}
	e.Category = cat

	amount, err := core.ParseMoney(form.Get("amount"))
	if err != nil {
		return core.Expense{}, core.Invalid("amount", err, "Amount must be greater than 0")
	}
	e.Amount = amount

	return e, e.Validate()
}

// ParseExpenseID reads the id of the row to delete.
func ParseExpenseID(form url.Values) (string, error) {
	id := strings.TrimSpace(form.Get("id"))
	if _, err := uuid.Parse(id); err != nil {
		return "", core.Invalid("id", core.ErrRequired, "Unknown expense")
	}
	return id, nil
}
